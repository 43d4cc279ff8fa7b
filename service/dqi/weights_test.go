/*
 * @module service/dqi/weights_test
 * @description 权重快照加载测试，覆盖无激活权重、停用权重排除与未知指标忽略
 * @architecture 测试层 - 服务集成测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 造权重配置 -> 加载快照 -> 断言快照内容
 * @rules 无激活权重返回配置错误；未知指标的权重行被忽略
 * @dependencies testing, testify, dqi-service/testutil
 * @refs weights.go
 */

package dqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqi-service/service/meta"
	"dqi-service/service/models"
	"dqi-service/testutil"
)

func TestLoadWeightSnapshot_NoActiveWeights(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()

	_, err := LoadWeightSnapshot(testDB.DB)
	require.Error(t, err)

	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadWeightSnapshot_InactiveExcluded(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()
	factory := testutil.NewTestDataFactory(testDB.DB)

	factory.CreateWeightConfig(meta.MetricSAEUnresolved, 0.25)
	factory.CreateWeightConfig(meta.MetricOpenQueries, 0.15, func(c *models.DQIWeightConfig) {
		c.IsActive = false
	})

	weights, err := LoadWeightSnapshot(testDB.DB)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{meta.MetricSAEUnresolved: 0.25}, weights)
}

func TestLoadWeightSnapshot_UnknownMetricIgnored(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()
	factory := testutil.NewTestDataFactory(testDB.DB)

	factory.CreateWeightConfig(meta.MetricMissingVisits, 0.15)
	factory.CreateWeightConfig("not_a_real_metric", 0.50)

	weights, err := LoadWeightSnapshot(testDB.DB)
	require.NoError(t, err)

	assert.Len(t, weights, 1)
	assert.Contains(t, weights, meta.MetricMissingVisits)
}

func TestLoadWeightSnapshot_FullDefaultSeed(t *testing.T) {
	testDB := testutil.NewTestDB()
	defer testDB.Close()
	factory := testutil.NewTestDataFactory(testDB.DB)
	factory.SeedDefaultWeights()

	weights, err := LoadWeightSnapshot(testDB.DB)
	require.NoError(t, err)

	assert.Len(t, weights, len(meta.MetricNames))
	assert.Equal(t, 0.25, weights[meta.MetricSAEUnresolved])
}
