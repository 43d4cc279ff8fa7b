/*
 * @module service/dqi/composite_test
 * @description 综合评分与风险等级单元测试，覆盖加权平均、权重停用、数据不足与阈值边界
 * @architecture 测试层 - 纯函数单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造分项评分与权重 -> 计算综合评分 -> 断言评分与等级
 * @rules 综合评分为交集上的加权平均，恒在[0,100]
 * @dependencies testing, testify
 * @refs composite.go
 */

package dqi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dqi-service/service/meta"
	"dqi-service/service/models"
)

func TestComputeComposite_WeightedAverage(t *testing.T) {
	scores := map[string]float64{
		meta.MetricSAEUnresolved: 40,
		meta.MetricOpenQueries:   60,
	}
	weights := map[string]float64{
		meta.MetricSAEUnresolved: 0.5,
		meta.MetricOpenQueries:   0.5,
	}

	composite, band := ComputeComposite(scores, weights)
	assert.Equal(t, 50.0, composite)
	assert.Equal(t, models.RiskBandHigh, band)
}

func TestComputeComposite_NormalizedByActiveWeights(t *testing.T) {
	// 权重之和不为1时结果不缩放：单指标满分权重0.25，综合仍为100
	scores := map[string]float64{meta.MetricSAEUnresolved: 100}
	weights := map[string]float64{meta.MetricSAEUnresolved: 0.25}

	composite, band := ComputeComposite(scores, weights)
	assert.Equal(t, 100.0, composite)
	assert.Equal(t, models.RiskBandCritical, band)
}

func TestComputeComposite_DisabledMetricExcluded(t *testing.T) {
	scores := map[string]float64{
		meta.MetricSAEUnresolved: 100,
		meta.MetricOpenQueries:   20,
	}
	// SAE权重被停用（不在激活快照里），综合评分只看未决质询
	weights := map[string]float64{meta.MetricOpenQueries: 0.15}

	composite, _ := ComputeComposite(scores, weights)
	assert.Equal(t, 20.0, composite)
}

func TestComputeComposite_NoOverlapInsufficientData(t *testing.T) {
	scores := map[string]float64{meta.MetricOpenQueries: 80}
	weights := map[string]float64{meta.MetricSAEUnresolved: 0.25}

	composite, band := ComputeComposite(scores, weights)
	assert.Equal(t, 0.0, composite)
	assert.Equal(t, models.RiskBandLow, band)
}

func TestRiskBandFor_Thresholds(t *testing.T) {
	tests := []struct {
		composite float64
		band      string
	}{
		{0, models.RiskBandLow},
		{19.99, models.RiskBandLow},
		{20, models.RiskBandMedium},
		{49.99, models.RiskBandMedium},
		{50, models.RiskBandHigh},
		{79.99, models.RiskBandHigh},
		{80, models.RiskBandCritical},
		{100, models.RiskBandCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.band, RiskBandFor(tt.composite), "composite=%.2f", tt.composite)
	}
}

func TestReadinessFor_Thresholds(t *testing.T) {
	tests := []struct {
		cleanPct  float64
		readiness string
	}{
		{100, models.ReadinessDatabaseLock},
		{95, models.ReadinessDatabaseLock},
		{94.99, models.ReadinessInterimAnalysis},
		{80, models.ReadinessInterimAnalysis},
		{50, models.ReadinessInProgress},
		{49.99, models.ReadinessNotReady},
		{0, models.ReadinessNotReady},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.readiness, ReadinessFor(tt.cleanPct), "clean_pct=%.2f", tt.cleanPct)
	}
}
