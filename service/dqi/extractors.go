/*
 * @module service/dqi/extractors
 * @description 指标提取器注册表，每个指标一个纯函数：事实快照 -> 0-100分项评分 + 阻断项
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 受试者事实快照 -> 按指标提取 -> 分项评分与阻断项
 * @rules 计数型指标 score = min(100, count * 单位扣分)；百分率型指标 score = 100 - 完成率；0最好100最差
 * @dependencies dqi-service/service/meta
 * @refs service/dqi/composite.go, service/dqi/clean_status.go
 */

package dqi

import (
	"dqi-service/service/meta"
	"fmt"
	"math"
)

// Blocker 阻断项描述，供Clean Patient状态与看板展示
type Blocker struct {
	Type     string  `json:"type"`
	Count    float64 `json:"count"`
	Severity string  `json:"severity"`
}

// MetricResult 单指标提取结果
type MetricResult struct {
	Score   float64  // 分项评分，0-100，越高越差
	Blocker *Blocker // 原始信号非零时给出阻断项，与评分大小无关
}

// Extractor 指标提取器：一个受试者的事实快照 -> 指标结果
type Extractor func(f *SubjectFacts) (MetricResult, error)

// blockerSeverity 各指标阻断项的严重级
var blockerSeverity = map[string]string{
	meta.MetricSAEUnresolved:     "critical",
	meta.MetricMissingVisits:     "high",
	meta.MetricMissingPages:      "medium",
	meta.MetricOpenQueries:       "medium",
	meta.MetricOverdueQueries:    "medium",
	meta.MetricNonConformant:     "medium",
	meta.MetricSDVIncomplete:     "high",
	meta.MetricUnsignedCasebooks: "high",
	meta.MetricLabIssues:         "medium",
	meta.MetricCodingIssues:      "low",
	meta.MetricEDRRIssues:        "low",
}

// countResult 计数型指标的统一评分：min(100, count * penalty)
func countResult(metric string, count int) MetricResult {
	score := math.Min(100, float64(count)*meta.PerUnitPenalty[metric])
	result := MetricResult{Score: score}
	if count > 0 {
		result.Blocker = &Blocker{
			Type:     metric,
			Count:    float64(count),
			Severity: blockerSeverity[metric],
		}
	}
	return result
}

// pctResult 百分率型指标的统一评分：100 - 完成率，缺口即阻断项计数
func pctResult(metric string, completionPct float64) (MetricResult, error) {
	if completionPct < 0 || completionPct > 100 {
		return MetricResult{}, fmt.Errorf("完成率超出[0,100]范围: %.2f", completionPct)
	}
	gap := 100 - completionPct
	result := MetricResult{Score: gap}
	if gap > 0 {
		result.Blocker = &Blocker{
			Type:     metric,
			Count:    round2(gap),
			Severity: blockerSeverity[metric],
		}
	}
	return result, nil
}

func extractSAEUnresolved(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricSAEUnresolved, f.UnresolvedSAECount()), nil
}

func extractMissingVisits(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricMissingVisits, f.MissingVisitCount()), nil
}

func extractMissingPages(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricMissingPages, f.MissingPageCount()), nil
}

func extractOpenQueries(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricOpenQueries, f.OpenQueryCount()), nil
}

func extractOverdueQueries(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricOverdueQueries, f.OverdueQueryCount(meta.OverdueQueryDays)), nil
}

func extractNonConformant(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricNonConformant, f.OpenNonConformantCount()), nil
}

func extractSDVIncomplete(f *SubjectFacts) (MetricResult, error) {
	return pctResult(meta.MetricSDVIncomplete, f.SDVCompletionPct())
}

func extractUnsignedCasebooks(f *SubjectFacts) (MetricResult, error) {
	return pctResult(meta.MetricUnsignedCasebooks, f.PISignaturePct())
}

func extractLabIssues(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricLabIssues, len(f.LabIssues)), nil
}

func extractCodingIssues(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricCodingIssues, f.UncodedCount()), nil
}

func extractEDRRIssues(f *SubjectFacts) (MetricResult, error) {
	return countResult(meta.MetricEDRRIssues, f.EDRRIssueCount()), nil
}

// Registry 指标名 -> 提取器，集合固定且与meta.MetricNames一致
var Registry = map[string]Extractor{
	meta.MetricSAEUnresolved:     extractSAEUnresolved,
	meta.MetricMissingVisits:     extractMissingVisits,
	meta.MetricMissingPages:      extractMissingPages,
	meta.MetricOpenQueries:       extractOpenQueries,
	meta.MetricOverdueQueries:    extractOverdueQueries,
	meta.MetricNonConformant:     extractNonConformant,
	meta.MetricSDVIncomplete:     extractSDVIncomplete,
	meta.MetricUnsignedCasebooks: extractUnsignedCasebooks,
	meta.MetricLabIssues:         extractLabIssues,
	meta.MetricCodingIssues:      extractCodingIssues,
	meta.MetricEDRRIssues:        extractEDRRIssues,
}

// ExtractAll 对一个受试者执行全部指标提取，先做事实校验
func ExtractAll(f *SubjectFacts) (map[string]float64, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(Registry))
	for _, name := range meta.MetricNames {
		result, err := Registry[name](f)
		if err != nil {
			return nil, &SubjectComputeError{SubjectID: f.SubjectID, Cause: fmt.Sprintf("指标 %s 提取失败: %v", name, err)}
		}
		scores[name] = round2(result.Score)
	}
	return scores, nil
}

// round2 保留两位小数，保证重算结果逐位一致
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
