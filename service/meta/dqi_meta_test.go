/*
 * @module service/meta/dqi_meta_test
 * @description DQI指标元数据单元测试，覆盖指标名校验与权重区间校验
 * @architecture 测试层 - 单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 输入校验函数 -> 断言结果
 * @rules 指标集合固定；权重限定[0,1]区间
 * @dependencies testing, testify
 * @refs dqi_meta.go
 */

package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownMetric(t *testing.T) {
	for _, name := range MetricNames {
		assert.True(t, IsKnownMetric(name), name)
	}
	assert.False(t, IsKnownMetric("protocol_deviations"))
	assert.False(t, IsKnownMetric(""))
}

func TestValidateWeight(t *testing.T) {
	tests := []struct {
		name    string
		weight  float64
		wantErr bool
	}{
		{"下界", 0, false},
		{"上界", 1, false},
		{"区间内", 0.25, false},
		{"负权重", -0.1, true},
		{"超过1", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeight(tt.weight)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
