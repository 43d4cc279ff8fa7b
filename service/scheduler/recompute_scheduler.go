/*
 * @module service/scheduler/recompute_scheduler
 * @description DQI重算定时调度器，按cron表达式触发全量重算
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 启动调度器 -> 注册cron任务 -> 定时触发全量重算
 * @rules cron表达式从RECOMPUTE_CRON读取，默认每日02:00；并发防重由重算服务内的分布式锁兜底
 * @dependencies github.com/robfig/cron/v3, dqi-service/service/dqi
 * @refs service/init.go, service/dqi/recompute.go
 */

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"dqi-service/service/dqi"
)

// RecomputeScheduler DQI重算调度器
type RecomputeScheduler struct {
	service *dqi.Service
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewRecomputeScheduler 创建重算调度器
func NewRecomputeScheduler(service *dqi.Service) *RecomputeScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RecomputeScheduler{
		service: service,
		cron:    cron.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartScheduler 启动调度器
// cron表达式从RECOMPUTE_CRON读取（标准五段式），默认每日02:00全量重算
func (rs *RecomputeScheduler) StartScheduler() error {
	if rs.started {
		return fmt.Errorf("调度器已经启动")
	}

	spec := os.Getenv("RECOMPUTE_CRON")
	if spec == "" {
		spec = "0 2 * * *"
	}

	if _, err := rs.cron.AddFunc(spec, rs.runScheduledRecompute); err != nil {
		return fmt.Errorf("注册重算定时任务失败: %w", err)
	}

	rs.cron.Start()
	rs.started = true
	slog.Info("DQI重算调度器启动完成", "cron", spec)
	return nil
}

// StopScheduler 停止调度器
func (rs *RecomputeScheduler) StopScheduler() {
	if !rs.started {
		return
	}
	rs.cancel()
	rs.cron.Stop()
	rs.started = false
	slog.Info("DQI重算调度器已停止")
}

// runScheduledRecompute 执行一次定时触发的全量重算
func (rs *RecomputeScheduler) runScheduledRecompute() {
	slog.Info("定时触发DQI全量重算")
	run, err := rs.service.Recompute(rs.ctx, "")
	if err != nil {
		if errors.Is(err, dqi.ErrAlreadyRunning) {
			slog.Info("全量重算已在其他实例执行，本次定时触发跳过")
			return
		}
		slog.Error("定时DQI重算失败", "error", err)
		return
	}
	slog.Info("定时DQI重算完成", "run_id", run.ID, "status", run.Status)
}
