/*
 * @module service/dqi/rollup
 * @description 中心级与研究级DQI汇总：中心行由受试者集市行纯派生，研究行由中心行聚合（按中心加权）
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 受试者集市行 -> 中心汇总行 -> 研究汇总行
 * @rules 缺失受试者集市行记为汇总不一致告警，零贡献但计入total_subjects；空中心输出全零/Low行
 * @dependencies dqi-service/service/models
 * @refs service/dqi/recompute.go
 */

package dqi

import (
	"log/slog"
	"time"

	"dqi-service/service/models"
)

// RollupSite 由受试者级集市行汇总出单个中心的DQI行
// dqiRows与cleanRows按subject_id索引；subjectIDs是该中心的全部在册受试者
// 缺失集市行的受试者不贡献任何统计量，但计入total_subjects，并返回不一致告警
func RollupSite(site *models.Site, subjectIDs []string, dqiRows map[string]*models.DQIScoreSubject, cleanRows map[string]*models.CleanPatientStatus, computedAt time.Time) (*models.DQIScoreSite, *RollupInconsistencyError) {
	row := &models.DQIScoreSite{
		SiteID:        site.SiteID,
		StudyID:       site.StudyID,
		RiskBand:      models.RiskBandLow,
		TotalSubjects: len(subjectIDs),
		LastComputed:  computedAt,
	}

	var sum, min, max float64
	var scored, clean int
	var missing []string

	for _, subjectID := range subjectIDs {
		dqi, ok := dqiRows[subjectID]
		if !ok {
			missing = append(missing, subjectID)
			continue
		}
		if scored == 0 || dqi.CompositeDQIScore < min {
			min = dqi.CompositeDQIScore
		}
		if scored == 0 || dqi.CompositeDQIScore > max {
			max = dqi.CompositeDQIScore
		}
		sum += dqi.CompositeDQIScore
		scored++
		if cs, ok := cleanRows[subjectID]; ok && cs.IsClean {
			clean++
		}
	}

	// 空中心（无受试者或全部缺行）输出全零/Low行，不视为错误
	if scored > 0 {
		row.AvgDQIScore = round2(sum / float64(scored))
		row.MinDQIScore = round2(min)
		row.MaxDQIScore = round2(max)
		row.RiskBand = RiskBandFor(row.AvgDQIScore)
	}
	row.CleanSubjects = clean
	if row.TotalSubjects > 0 {
		row.CleanPercentage = round2(float64(clean) / float64(row.TotalSubjects) * 100)
	}

	if len(missing) > 0 {
		inconsistency := &RollupInconsistencyError{SiteID: site.SiteID, MissingSubjects: len(missing)}
		slog.Warn("中心汇总发现缺失的受试者集市行",
			"site_id", site.SiteID,
			"missing_count", len(missing))
		return row, inconsistency
	}
	return row, nil
}

// RollupStudy 由中心级汇总行聚合出研究级DQI行
// 平均分按中心加权而非按受试者加权：小中心与大中心在研究均值里等权，避免大中心淹没小中心的质量信号
func RollupStudy(study *models.Study, siteRows []*models.DQIScoreSite, computedAt time.Time) *models.DQIScoreStudy {
	row := &models.DQIScoreStudy{
		StudyID:         study.StudyID,
		TotalSites:      len(siteRows),
		RiskBand:        models.RiskBandLow,
		ReadinessStatus: models.ReadinessNotReady,
		LastComputed:    computedAt,
	}

	var sum float64
	for _, site := range siteRows {
		sum += site.AvgDQIScore
		row.TotalSubjects += site.TotalSubjects
		row.CleanSubjects += site.CleanSubjects
	}

	if len(siteRows) > 0 {
		row.AvgDQIScore = round2(sum / float64(len(siteRows)))
		row.RiskBand = RiskBandFor(row.AvgDQIScore)
	}
	if row.TotalSubjects > 0 {
		row.CleanPercentage = round2(float64(row.CleanSubjects) / float64(row.TotalSubjects) * 100)
	}
	row.ReadinessStatus = ReadinessFor(row.CleanPercentage)
	return row
}
