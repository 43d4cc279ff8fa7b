/*
 * @module service/distributed_lock/local_lock_test
 * @description 进程内锁单元测试，覆盖互斥、释放、TTL过期与续期
 * @architecture 测试层 - 工具单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 获取锁 -> 二次获取失败 -> 释放/过期 -> 重新获取成功
 * @rules TTL过期后的锁视为失效，可被重新获取
 * @dependencies testing, testify
 * @refs local_lock.go
 */

package distributed_lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock_MutualExclusion(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	locked, err := lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	// 同一key二次获取失败
	locked, err = lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)

	// 不同key互不影响
	locked, err = lock.TryLock(ctx, "scope-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLocalLock_UnlockAllowsReacquire(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	locked, _ := lock.TryLock(ctx, "scope-a", time.Minute)
	require.True(t, locked)

	require.NoError(t, lock.Unlock(ctx, "scope-a"))

	locked, err := lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLocalLock_TTLExpiry(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	locked, _ := lock.TryLock(ctx, "scope-a", 10*time.Millisecond)
	require.True(t, locked)

	time.Sleep(20 * time.Millisecond)

	// 过期后锁失效，可被重新获取
	isLocked, err := lock.IsLocked(ctx, "scope-a")
	require.NoError(t, err)
	assert.False(t, isLocked)

	locked, err = lock.TryLock(ctx, "scope-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLocalLock_RefreshExtendsTTL(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	locked, _ := lock.TryLock(ctx, "scope-a", 30*time.Millisecond)
	require.True(t, locked)

	require.NoError(t, lock.Refresh(ctx, "scope-a", time.Minute))

	time.Sleep(50 * time.Millisecond)
	isLocked, err := lock.IsLocked(ctx, "scope-a")
	require.NoError(t, err)
	assert.True(t, isLocked)
}

func TestLocalLock_RefreshMissingKeyFails(t *testing.T) {
	lock := NewLocalLock()

	err := lock.Refresh(context.Background(), "never-locked", time.Minute)
	assert.Error(t, err)
}
