/*
 * @module service/dqi/metrics
 * @description 重算管道的Prometheus指标：运行计数、受试者处理量、跳过量、运行耗时
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 重算各阶段 -> 指标埋点 -> /metrics端点暴露
 * @rules 指标名前缀统一为dqi_
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/dqi/recompute.go
 */

package dqi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dqi_recompute_runs_total",
		Help: "DQI重算运行总数，按最终状态分组",
	}, []string{"status"})

	subjectsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqi_subjects_processed_total",
		Help: "成功计算评分的受试者总数",
	})

	subjectsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dqi_subjects_skipped_total",
		Help: "因数据畸形被跳过的受试者总数",
	})

	recomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dqi_recompute_duration_seconds",
		Help:    "单次重算运行耗时",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
