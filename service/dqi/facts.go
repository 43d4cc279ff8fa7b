/*
 * @module service/dqi/facts
 * @description 受试者事实快照与批量装载，一次重算按研究整体拉取事实行并在内存中按受试者分组
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 按研究批量查询各事实表 -> 按受试者分组 -> 提供派生计数与完成率
 * @rules 事实行只读；受试者规模为百级，全量物化在内存中，不做流式处理
 * @dependencies gorm.io/gorm, dqi-service/service/models
 * @refs service/dqi/extractors.go, service/dqi/recompute.go
 */

package dqi

import (
	"dqi-service/service/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SubjectFacts 单个受试者的事实快照，指标提取的唯一输入
type SubjectFacts struct {
	SubjectID    string
	StudyID      string
	SiteID       string
	SnapshotTime time.Time

	Queries          []models.QueryEvent
	MissingVisits    []models.MissingVisit
	MissingPages     []models.MissingPage
	SDV              *models.SDVStatus
	PISignature      *models.PISignatureStatus
	NonConformant    []models.NonConformantEvent
	SAEDiscrepancies []models.SAEDiscrepancy
	LabIssues        []models.LabIssue
	CodingItems      []models.CodingItem
	EDRR             *models.EDRROpenIssue
}

// Validate 校验事实数据的基本一致性，畸形数据返回SubjectComputeError
func (f *SubjectFacts) Validate() error {
	if f.SDV != nil {
		if f.SDV.ExpectedRecords < 0 || f.SDV.VerifiedRecords < 0 {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: "SDV核查记录计数为负"}
		}
		if f.SDV.VerifiedRecords > f.SDV.ExpectedRecords {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: "SDV已核查记录数超过应核查记录数"}
		}
	}
	if f.PISignature != nil {
		if f.PISignature.ExpectedCasebooks < 0 || f.PISignature.SignedCasebooks < 0 {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: "PI签名册计数为负"}
		}
		if f.PISignature.SignedCasebooks > f.PISignature.ExpectedCasebooks {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: "PI已签名册数超过应签名册数"}
		}
	}
	if f.EDRR != nil && f.EDRR.TotalOpenIssueCount < 0 {
		return &SubjectComputeError{SubjectID: f.SubjectID, Cause: "EDRR未决问题计数为负"}
	}
	for _, q := range f.Queries {
		if q.QueryStatus == models.QueryStatusOpen && q.QueryOpenDate == nil {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: fmt.Sprintf("未决质询 %d 缺少开启日期", q.QueryID)}
		}
		if q.QueryOpenDate != nil && q.QueryOpenDate.After(f.SnapshotTime) {
			return &SubjectComputeError{SubjectID: f.SubjectID, Cause: fmt.Sprintf("质询 %d 开启日期晚于快照时间", q.QueryID)}
		}
	}
	return nil
}

// OpenQueryCount 未决质询数
func (f *SubjectFacts) OpenQueryCount() int {
	count := 0
	for _, q := range f.Queries {
		if q.QueryStatus == models.QueryStatusOpen {
			count++
		}
	}
	return count
}

// OverdueQueryCount 逾期质询数：开启超过threshold天的质询
// 未决质询以快照时间计龄，已处理质询以修复日期计龄
func (f *SubjectFacts) OverdueQueryCount(thresholdDays int) int {
	count := 0
	threshold := time.Duration(thresholdDays) * 24 * time.Hour
	for _, q := range f.Queries {
		if q.QueryOpenDate == nil {
			continue
		}
		end := f.SnapshotTime
		if q.QueryRepairDate != nil {
			end = *q.QueryRepairDate
		}
		if end.Sub(*q.QueryOpenDate) > threshold {
			count++
		}
	}
	return count
}

// MissingVisitCount 未解决的缺失访视数
func (f *SubjectFacts) MissingVisitCount() int {
	count := 0
	for _, v := range f.MissingVisits {
		if !v.IsResolved {
			count++
		}
	}
	return count
}

// MissingPageCount 未解决的缺失页面数
func (f *SubjectFacts) MissingPageCount() int {
	count := 0
	for _, p := range f.MissingPages {
		if !p.IsResolved {
			count++
		}
	}
	return count
}

// OpenNonConformantCount 未决非一致性事件数
func (f *SubjectFacts) OpenNonConformantCount() int {
	count := 0
	for _, e := range f.NonConformant {
		if e.Status == "Open" {
			count++
		}
	}
	return count
}

// UnresolvedSAECount 未决SAE差异数
func (f *SubjectFacts) UnresolvedSAECount() int {
	count := 0
	for _, s := range f.SAEDiscrepancies {
		if s.ResolutionStatus != "Resolved" {
			count++
		}
	}
	return count
}

// UncodedCount 未编码条目数（Uncoded/Pending且需要编码）
func (f *SubjectFacts) UncodedCount() int {
	count := 0
	for _, c := range f.CodingItems {
		if !c.RequireCoding {
			continue
		}
		if c.CodingStatus == "Uncoded" || c.CodingStatus == "Pending" {
			count++
		}
	}
	return count
}

// EDRRIssueCount EDRR未决问题数
func (f *SubjectFacts) EDRRIssueCount() int {
	if f.EDRR == nil {
		return 0
	}
	return f.EDRR.TotalOpenIssueCount
}

// SDVCompletionPct SDV完成率（0-100）
// 无SDV行或应核查记录数为0时视为100（无应核查记录即无欠账），避免除零
func (f *SubjectFacts) SDVCompletionPct() float64 {
	if f.SDV == nil || f.SDV.ExpectedRecords == 0 {
		return 100
	}
	return float64(f.SDV.VerifiedRecords) / float64(f.SDV.ExpectedRecords) * 100
}

// PISignaturePct PI签名完成率（0-100），除零处理同SDV
func (f *SubjectFacts) PISignaturePct() float64 {
	if f.PISignature == nil || f.PISignature.ExpectedCasebooks == 0 {
		return 100
	}
	return float64(f.PISignature.SignedCasebooks) / float64(f.PISignature.ExpectedCasebooks) * 100
}

// StudyFacts 一个研究范围内的全部受试者事实快照
type StudyFacts struct {
	Study    models.Study
	Sites    []models.Site
	Subjects []models.Subject
	BySubjct map[string]*SubjectFacts
}

// FactLoader 事实批量装载器
type FactLoader struct {
	db *gorm.DB
}

// NewFactLoader 创建事实装载器
func NewFactLoader(db *gorm.DB) *FactLoader {
	return &FactLoader{db: db}
}

// LoadStudyFacts 装载一个研究的全部事实行，每张事实表一次查询，按受试者在内存中分组
func (l *FactLoader) LoadStudyFacts(study models.Study, snapshotTime time.Time) (*StudyFacts, error) {
	facts := &StudyFacts{
		Study:    study,
		BySubjct: make(map[string]*SubjectFacts),
	}

	if err := l.db.Where("study_id = ?", study.StudyID).Order("site_id ASC").Find(&facts.Sites).Error; err != nil {
		return nil, fmt.Errorf("查询中心维度失败: %w", err)
	}
	if err := l.db.Where("study_id = ?", study.StudyID).Order("subject_id ASC").Find(&facts.Subjects).Error; err != nil {
		return nil, fmt.Errorf("查询受试者维度失败: %w", err)
	}

	for i := range facts.Subjects {
		s := facts.Subjects[i]
		facts.BySubjct[s.SubjectID] = &SubjectFacts{
			SubjectID:    s.SubjectID,
			StudyID:      s.StudyID,
			SiteID:       s.SiteID,
			SnapshotTime: snapshotTime,
		}
	}

	var queries []models.QueryEvent
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&queries).Error; err != nil {
		return nil, fmt.Errorf("查询质询事实失败: %w", err)
	}
	for _, q := range queries {
		if sf, ok := facts.BySubjct[q.SubjectID]; ok {
			sf.Queries = append(sf.Queries, q)
		}
	}

	var visits []models.MissingVisit
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("查询缺失访视事实失败: %w", err)
	}
	for _, v := range visits {
		if sf, ok := facts.BySubjct[v.SubjectID]; ok {
			sf.MissingVisits = append(sf.MissingVisits, v)
		}
	}

	var pages []models.MissingPage
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("查询缺失页面事实失败: %w", err)
	}
	for _, p := range pages {
		if sf, ok := facts.BySubjct[p.SubjectID]; ok {
			sf.MissingPages = append(sf.MissingPages, p)
		}
	}

	var sdvRows []models.SDVStatus
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&sdvRows).Error; err != nil {
		return nil, fmt.Errorf("查询SDV状态事实失败: %w", err)
	}
	for i := range sdvRows {
		if sf, ok := facts.BySubjct[sdvRows[i].SubjectID]; ok && sf.SDV == nil {
			sf.SDV = &sdvRows[i]
		}
	}

	var piRows []models.PISignatureStatus
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&piRows).Error; err != nil {
		return nil, fmt.Errorf("查询PI签名状态事实失败: %w", err)
	}
	for i := range piRows {
		if sf, ok := facts.BySubjct[piRows[i].SubjectID]; ok && sf.PISignature == nil {
			sf.PISignature = &piRows[i]
		}
	}

	var ncRows []models.NonConformantEvent
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&ncRows).Error; err != nil {
		return nil, fmt.Errorf("查询非一致性事件事实失败: %w", err)
	}
	for _, e := range ncRows {
		if sf, ok := facts.BySubjct[e.SubjectID]; ok {
			sf.NonConformant = append(sf.NonConformant, e)
		}
	}

	var saeRows []models.SAEDiscrepancy
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&saeRows).Error; err != nil {
		return nil, fmt.Errorf("查询SAE差异事实失败: %w", err)
	}
	for _, s := range saeRows {
		if sf, ok := facts.BySubjct[s.SubjectID]; ok {
			sf.SAEDiscrepancies = append(sf.SAEDiscrepancies, s)
		}
	}

	var labRows []models.LabIssue
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&labRows).Error; err != nil {
		return nil, fmt.Errorf("查询实验室问题事实失败: %w", err)
	}
	for _, lab := range labRows {
		if sf, ok := facts.BySubjct[lab.SubjectID]; ok {
			sf.LabIssues = append(sf.LabIssues, lab)
		}
	}

	var codingRows []models.CodingItem
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&codingRows).Error; err != nil {
		return nil, fmt.Errorf("查询编码条目事实失败: %w", err)
	}
	for _, c := range codingRows {
		if sf, ok := facts.BySubjct[c.SubjectID]; ok {
			sf.CodingItems = append(sf.CodingItems, c)
		}
	}

	var edrrRows []models.EDRROpenIssue
	if err := l.db.Where("study_id = ?", study.StudyID).Find(&edrrRows).Error; err != nil {
		return nil, fmt.Errorf("查询EDRR事实失败: %w", err)
	}
	for i := range edrrRows {
		if sf, ok := facts.BySubjct[edrrRows[i].SubjectID]; ok && sf.EDRR == nil {
			sf.EDRR = &edrrRows[i]
		}
	}

	return facts, nil
}
