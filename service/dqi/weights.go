/*
 * @module service/dqi/weights
 * @description 权重快照加载：重算开始时一次性读取激活权重，整个运行期间保持一致
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow dqi_weight_config表 -> 内存权重快照 -> 评分阶段只读使用
 * @rules 无任何激活权重 -> 配置错误，整次重算失败；未知指标名的权重行忽略并告警
 * @dependencies gorm.io/gorm, dqi-service/service/meta, dqi-service/service/models
 * @refs service/dqi/recompute.go
 */

package dqi

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// LoadWeightSnapshot 加载激活权重快照
// 重算期间权重只读，单次运行内所有受试者使用同一快照，保证评分口径一致
func LoadWeightSnapshot(db *gorm.DB) (map[string]float64, error) {
	var configs []models.DQIWeightConfig
	if err := db.Where("is_active = ?", true).Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("加载权重配置失败: %w", err)
	}
	if len(configs) == 0 {
		return nil, &ConfigError{Reason: "没有激活的DQI权重配置"}
	}

	weights := make(map[string]float64, len(configs))
	for _, c := range configs {
		if !meta.IsKnownMetric(c.MetricName) {
			slog.Warn("忽略未知指标的权重配置", "metric_name", c.MetricName, "config_id", c.ConfigID)
			continue
		}
		weights[c.MetricName] = c.Weight
	}
	if len(weights) == 0 {
		return nil, &ConfigError{Reason: "激活的权重配置没有任何已知指标"}
	}
	return weights, nil
}
