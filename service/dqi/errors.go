/*
 * @module service/dqi/errors
 * @description DQI计算引擎错误分类定义：配置错误（致命）、受试者计算错误（局部跳过）、汇总不一致（警告）
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 配置错误中止整次运行；受试者错误记录后跳过；汇总不一致按零贡献处理
 * @rules 单个受试者的数据错误不得阻断整批重算
 * @dependencies errors, fmt
 * @refs service/dqi/recompute.go
 */

package dqi

import (
	"fmt"
)

// ConfigError 权重配置错误，无激活权重时综合评分无定义，整次运行在任何写入前中止
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("权重配置错误: %s", e.Reason)
}

// SubjectComputeError 单个受试者的事实数据畸形或缺失（负计数、无法解析的日期等）
// 局部恢复：该受试者被跳过并记录，运行继续
type SubjectComputeError struct {
	SubjectID string
	Cause     string
}

func (e *SubjectComputeError) Error() string {
	return fmt.Sprintf("受试者 %s 计算失败: %s", e.SubjectID, e.Cause)
}

// RollupInconsistencyError 中心/研究引用了没有受试者级评分行的受试者（例如该受试者计算失败）
// 按零贡献处理，不致命，仅记录警告
type RollupInconsistencyError struct {
	SiteID          string
	MissingSubjects int
}

func (e *RollupInconsistencyError) Error() string {
	return fmt.Sprintf("中心 %s 有 %d 个受试者缺少DQI评分行，按零贡献处理", e.SiteID, e.MissingSubjects)
}
