/*
 * @module service/distributed_lock/local_lock
 * @description 进程内锁实现，单实例部署或测试环境无Redis时的降级方案
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 获取锁 -> 执行重算 -> 释放锁/过期后可被抢占
 * @rules 与Redis实现共用DistributedLock接口，TTL过期后锁视为失效
 * @dependencies sync
 * @refs service/init.go, service/dqi/recompute.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalLock 进程内锁实现，仅保护单实例内的并发重算
type LocalLock struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> 过期时间
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{locks: make(map[string]time.Time)}
}

// TryLock 尝试获取锁，已持有且未过期时失败
func (l *LocalLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.locks[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock 释放锁
func (l *LocalLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}

// Refresh 刷新锁的过期时间
func (l *LocalLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.locks[key]; !ok || time.Now().After(expiry) {
		return fmt.Errorf("锁不存在或已过期")
	}
	l.locks[key] = time.Now().Add(ttl)
	return nil
}

// IsLocked 检查锁是否存在且未过期
func (l *LocalLock) IsLocked(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.locks[key]
	return ok && time.Now().Before(expiry), nil
}
