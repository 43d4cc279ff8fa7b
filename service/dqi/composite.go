/*
 * @module service/dqi/composite
 * @description 综合DQI评分器：分项评分按激活权重加权平均，并映射风险等级
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 分项评分 + 权重快照 -> 加权平均 -> 风险等级
 * @rules 仅对同时出现在两个映射中的指标求加权平均（非加权求和），结果恒在[0,100]，与激活权重个数无关
 * @dependencies dqi-service/service/meta, dqi-service/service/models
 * @refs service/dqi/extractors.go, service/dqi/weights.go
 */

package dqi

import (
	"dqi-service/service/meta"
	"dqi-service/service/models"
	"log/slog"
)

// ComputeComposite 计算综合DQI评分与风险等级
// composite = Σ(score[m] * weight[m]) / Σ(weight[m])，m取两个映射的交集
// 停用指标同时从分子分母剔除，保证评分不随激活权重数量缩放
func ComputeComposite(subScores map[string]float64, weights map[string]float64) (float64, string) {
	var weightedSum, weightSum float64
	for metric, weight := range weights {
		score, ok := subScores[metric]
		if !ok {
			continue
		}
		weightedSum += score * weight
		weightSum += weight
	}

	if weightSum == 0 {
		// 无任何有权重的分项评分：按0分/Low处理，但这不代表质量有保证
		// 产品层面应视为"数据不足"而非满分，此处仅记录不改变行为
		slog.Warn("综合DQI评分缺少有效分项，按数据不足处理", "sub_scores", len(subScores))
		return 0, models.RiskBandLow
	}

	composite := round2(weightedSum / weightSum)
	return composite, RiskBandFor(composite)
}

// RiskBandFor 按固定阈值映射风险等级：<20 Low，<50 Medium，<80 High，否则Critical
// 评分越低越好，与分项评分极性一致
func RiskBandFor(composite float64) string {
	switch {
	case composite < meta.RiskThresholdLow:
		return models.RiskBandLow
	case composite < meta.RiskThresholdMedium:
		return models.RiskBandMedium
	case composite < meta.RiskThresholdHigh:
		return models.RiskBandHigh
	default:
		return models.RiskBandCritical
	}
}

// ReadinessFor 按clean_percentage映射研究就绪状态
func ReadinessFor(cleanPercentage float64) string {
	switch {
	case cleanPercentage >= meta.ReadinessThresholdDatabaseLock:
		return models.ReadinessDatabaseLock
	case cleanPercentage >= meta.ReadinessThresholdInterimAnalysis:
		return models.ReadinessInterimAnalysis
	case cleanPercentage >= meta.ReadinessThresholdInProgress:
		return models.ReadinessInProgress
	default:
		return models.ReadinessNotReady
	}
}
