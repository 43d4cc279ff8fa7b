/*
 * @module service/meta/dqi_meta
 * @description DQI指标元数据定义，包括固定指标集、单位扣分、默认权重、风险等级阈值等常量
 * @architecture 元数据层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 静态元数据定义
 * @rules 指标集合固定，单位扣分与阈值为既定设计值，修改需同步更新看板口径说明；权重取值限定在[0,1]区间
 * @dependencies fmt
 * @refs service/dqi/extractors.go, service/dqi/composite.go
 */

package meta

import "fmt"

// 固定指标名集合
const (
	MetricSAEUnresolved     = "sae_unresolved"
	MetricMissingVisits     = "missing_visits"
	MetricMissingPages      = "missing_pages"
	MetricOpenQueries       = "open_queries"
	MetricOverdueQueries    = "overdue_queries"
	MetricNonConformant     = "non_conformant"
	MetricSDVIncomplete     = "sdv_incomplete"
	MetricUnsignedCasebooks = "unsigned_casebooks"
	MetricLabIssues         = "lab_issues"
	MetricCodingIssues      = "coding_issues"
	MetricEDRRIssues        = "edrr_issues"
)

// MetricNames 全部指标名，按阻断项固定展示顺序排列
var MetricNames = []string{
	MetricSAEUnresolved,
	MetricMissingVisits,
	MetricMissingPages,
	MetricOpenQueries,
	MetricOverdueQueries,
	MetricNonConformant,
	MetricSDVIncomplete,
	MetricUnsignedCasebooks,
	MetricLabIssues,
	MetricCodingIssues,
	MetricEDRRIssues,
}

// PerUnitPenalty 计数型指标的单位扣分，score = min(100, count * penalty)
// 数值沿用项目文档第9.3节的评分设计：每条未决SAE差异25分，每个缺失访视10分，
// 每条未决质询3分，以此类推，封顶100
var PerUnitPenalty = map[string]float64{
	MetricSAEUnresolved:  25,
	MetricMissingVisits:  10,
	MetricMissingPages:   5,
	MetricOpenQueries:    3,
	MetricOverdueQueries: 5,
	MetricNonConformant:  5,
	MetricLabIssues:      4,
	MetricCodingIssues:   2,
	MetricEDRRIssues:     5,
}

// OverdueQueryDays 质询逾期判定阈值（天）
const OverdueQueryDays = 14

// 风险等级阈值，composite < 20 为Low，< 50 为Medium，< 80 为High，否则Critical
const (
	RiskThresholdLow    = 20.0
	RiskThresholdMedium = 50.0
	RiskThresholdHigh   = 80.0
)

// 研究就绪状态阈值（clean_percentage）
const (
	ReadinessThresholdDatabaseLock    = 95.0
	ReadinessThresholdInterimAnalysis = 80.0
	ReadinessThresholdInProgress      = 50.0
)

// DefaultWeight 默认权重定义
type DefaultWeight struct {
	MetricName  string  `json:"metric_name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
}

// DefaultWeights 默认权重配置，迁移时以update-or-create方式写入
// 综合评分对激活权重归一化，因此权重之和不要求为1
var DefaultWeights = []DefaultWeight{
	{
		MetricName:  MetricSAEUnresolved,
		Weight:      0.25,
		Description: "未决SAE对账差异（最高严重级阻断项）",
		IsActive:    true,
	},
	{
		MetricName:  MetricMissingVisits,
		Weight:      0.15,
		Description: "逾期未发生的计划访视（运营紧迫度）",
		IsActive:    true,
	},
	{
		MetricName:  MetricOpenQueries,
		Weight:      0.15,
		Description: "未决质询（数据清理工作量）",
		IsActive:    true,
	},
	{
		MetricName:  MetricMissingPages,
		Weight:      0.10,
		Description: "缺失CRF页面（完整性风险）",
		IsActive:    true,
	},
	{
		MetricName:  MetricNonConformant,
		Weight:      0.10,
		Description: "非一致性数据项（合规风险）",
		IsActive:    true,
	},
	{
		MetricName:  MetricSDVIncomplete,
		Weight:      0.10,
		Description: "源数据核查未完成（稽查就绪度）",
		IsActive:    true,
	},
	{
		MetricName:  MetricUnsignedCasebooks,
		Weight:      0.05,
		Description: "PI签名未完成（核查就绪度）",
		IsActive:    true,
	},
	{
		MetricName:  MetricCodingIssues,
		Weight:      0.05,
		Description: "未编码医学术语（分析就绪度）",
		IsActive:    true,
	},
	{
		MetricName:  MetricEDRRIssues,
		Weight:      0.05,
		Description: "第三方对账未决问题",
		IsActive:    true,
	},
	{
		MetricName:  MetricOverdueQueries,
		Weight:      0.05,
		Description: "开放超过14天的逾期质询（SLA风险）",
		IsActive:    true,
	},
	{
		MetricName:  MetricLabIssues,
		Weight:      0.05,
		Description: "实验室数据问题（安全性数据质量）",
		IsActive:    true,
	},
}

// 权重取值区间
const (
	WeightMin = 0.0
	WeightMax = 1.0
)

// IsKnownMetric 校验指标名是否属于固定集合
func IsKnownMetric(name string) bool {
	for _, m := range MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

// ValidateWeight 校验权重取值是否在[0,1]区间内
func ValidateWeight(weight float64) error {
	if weight < WeightMin || weight > WeightMax {
		return fmt.Errorf("权重必须在%.0f到%.0f之间: weight=%f", WeightMin, WeightMax, weight)
	}
	return nil
}
