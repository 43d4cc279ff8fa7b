/*
 * @module service/dqi/clean_status
 * @description Clean Patient状态评估器：独立于DQI量值的布尔聚合，判定受试者是否无任何数据质量阻断项
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 受试者事实快照 -> 七项阻断条件判定 -> 状态行（含有序阻断项列表）
 * @rules is_clean 当且仅当七项条件全满足；阻断项按固定指标顺序拼接，保证可快照比对
 * @dependencies dqi-service/service/models
 * @refs service/dqi/recompute.go
 */

package dqi

import (
	"dqi-service/service/models"
)

// 阻断项类型按固定顺序：缺失访视、未决质询、缺失页面、非一致性、SAE差异、SDV、PI签名
const (
	BlockerMissingVisits   = "missing_visits"
	BlockerOpenQueries     = "open_queries"
	BlockerMissingPages    = "missing_pages"
	BlockerNonConformant   = "non_conformant"
	BlockerSAEDiscrepancy  = "sae_discrepancies"
	BlockerSDVIncomplete   = "sdv_incomplete"
	BlockerPIIncomplete    = "pi_signature_incomplete"
)

// EvaluateCleanStatus 评估一个受试者的Clean Patient状态
// 判定与DQI综合评分相互独立：评分衡量问题的量，is_clean只看有没有
func EvaluateCleanStatus(f *SubjectFacts) (*models.CleanPatientStatus, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	missingVisits := f.MissingVisitCount()
	openQueries := f.OpenQueryCount()
	missingPages := f.MissingPageCount()
	nonConformant := f.OpenNonConformantCount()
	saeDiscrepancies := f.UnresolvedSAECount()
	sdvPct := round2(f.SDVCompletionPct())
	piPct := round2(f.PISignaturePct())

	isClean := missingVisits == 0 &&
		openQueries == 0 &&
		missingPages == 0 &&
		nonConformant == 0 &&
		saeDiscrepancies == 0 &&
		sdvPct == 100 &&
		piPct == 100
	// 编码积压与EDRR计数仅做信息展示，不参与is_clean判定

	// 阻断项按固定顺序拼接，顺序稳定便于看板展示与测试快照比对
	var blockers models.JSONBArray
	appendBlocker := func(blockerType string, count float64, severity string) {
		blockers = append(blockers, models.JSONB{
			"type":     blockerType,
			"count":    count,
			"severity": severity,
		})
	}

	if missingVisits > 0 {
		appendBlocker(BlockerMissingVisits, float64(missingVisits), "high")
	}
	if openQueries > 0 {
		appendBlocker(BlockerOpenQueries, float64(openQueries), "medium")
	}
	if missingPages > 0 {
		appendBlocker(BlockerMissingPages, float64(missingPages), "medium")
	}
	if nonConformant > 0 {
		appendBlocker(BlockerNonConformant, float64(nonConformant), "medium")
	}
	if saeDiscrepancies > 0 {
		appendBlocker(BlockerSAEDiscrepancy, float64(saeDiscrepancies), "critical")
	}
	if sdvPct < 100 {
		appendBlocker(BlockerSDVIncomplete, round2(100-sdvPct), "high")
	}
	if piPct < 100 {
		appendBlocker(BlockerPIIncomplete, round2(100-piPct), "high")
	}

	return &models.CleanPatientStatus{
		SubjectID:                f.SubjectID,
		StudyID:                  f.StudyID,
		SiteID:                   f.SiteID,
		IsClean:                  isClean,
		HasMissingVisits:         missingVisits > 0,
		MissingVisitsCount:       missingVisits,
		HasOpenQueries:           openQueries > 0,
		OpenQueriesCount:         openQueries,
		HasMissingPages:          missingPages > 0,
		MissingPagesCount:        missingPages,
		HasNonConformant:         nonConformant > 0,
		NonConformantCount:       nonConformant,
		HasSAEDiscrepancies:      saeDiscrepancies > 0,
		SAEDiscrepancyCount:      saeDiscrepancies,
		SDVCompletionPct:         sdvPct,
		PISignatureCompletionPct: piPct,
		CodingUncodedCount:       f.UncodedCount(),
		EDRROpenIssueCount:       f.EDRRIssueCount(),
		Blockers:                 blockers,
		LastComputed:             f.SnapshotTime,
	}, nil
}
