/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Study{},
		&models.Site{},
		&models.Subject{},
		&models.QueryEvent{},
		&models.MissingVisit{},
		&models.MissingPage{},
		&models.SDVStatus{},
		&models.PISignatureStatus{},
		&models.NonConformantEvent{},
		&models.SAEDiscrepancy{},
		&models.LabIssue{},
		&models.CodingItem{},
		&models.EDRROpenIssue{},
		&models.ProtocolDeviation{},
		&models.InactivatedRecord{},
		&models.DQIWeightConfig{},
		&models.CleanPatientStatus{},
		&models.DQIScoreSubject{},
		&models.DQIScoreSite{},
		&models.DQIScoreStudy{},
		&models.RecomputeRun{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"dim_study",
		"dim_site",
		"dim_subject",
		"fact_query_event",
		"fact_missing_visit",
		"fact_missing_page",
		"fact_sdv_status",
		"fact_pi_signature_status",
		"fact_nonconformant_event",
		"fact_sae_discrepancy",
		"fact_lab_issue",
		"fact_coding_item",
		"fact_edrr_open_issue",
		"dqi_weight_config",
		"mart_clean_patient_status",
		"mart_dqi_score_subject",
		"mart_dqi_score_site",
		"mart_dqi_score_study",
		"dqi_recompute_run",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// StudyOption 研究选项函数类型
type StudyOption func(*models.Study)

// CreateStudy 创建测试研究
func (f *TestDataFactory) CreateStudy(opts ...StudyOption) *models.Study {
	study := &models.Study{
		StudyID:   generateID("STUDY"),
		StudyName: "测试研究",
		Region:    "APAC",
		Status:    "Active",
	}

	for _, opt := range opts {
		opt(study)
	}

	if err := f.DB.Create(study).Error; err != nil {
		panic(fmt.Sprintf("failed to create test study: %v", err))
	}
	return study
}

// SiteOption 中心选项函数类型
type SiteOption func(*models.Site)

// CreateSite 创建测试中心
func (f *TestDataFactory) CreateSite(studyID string, opts ...SiteOption) *models.Site {
	site := &models.Site{
		SiteID:      generateID("SITE"),
		StudyID:     studyID,
		SiteNumber:  generateSuffix(),
		SiteName:    "测试中心",
		CountryCode: "CN",
		Status:      "Active",
		AssignedCRA: "test_cra",
	}

	for _, opt := range opts {
		opt(site)
	}

	if err := f.DB.Create(site).Error; err != nil {
		panic(fmt.Sprintf("failed to create test site: %v", err))
	}
	return site
}

// SubjectOption 受试者选项函数类型
type SubjectOption func(*models.Subject)

// CreateSubject 创建测试受试者
func (f *TestDataFactory) CreateSubject(studyID, siteID string, opts ...SubjectOption) *models.Subject {
	enrollment := time.Now().AddDate(0, -6, 0)
	subject := &models.Subject{
		SubjectID:      generateID("SUBJ"),
		StudyID:        studyID,
		SiteID:         siteID,
		SubjectStatus:  "Enrolled",
		EnrollmentDate: &enrollment,
	}

	for _, opt := range opts {
		opt(subject)
	}

	if err := f.DB.Create(subject).Error; err != nil {
		panic(fmt.Sprintf("failed to create test subject: %v", err))
	}
	return subject
}

// QueryEventOption 质询选项函数类型
type QueryEventOption func(*models.QueryEvent)

// CreateQueryEvent 创建测试质询，默认未决、开启于7天前
func (f *TestDataFactory) CreateQueryEvent(studyID, siteID, subjectID string, opts ...QueryEventOption) *models.QueryEvent {
	openDate := time.Now().AddDate(0, 0, -7)
	q := &models.QueryEvent{
		StudyID:       studyID,
		SiteID:        siteID,
		SubjectID:     subjectID,
		FormName:      "AE",
		QueryStatus:   models.QueryStatusOpen,
		ActionOwner:   "Site",
		QueryOpenDate: &openDate,
	}

	for _, opt := range opts {
		opt(q)
	}

	if err := f.DB.Create(q).Error; err != nil {
		panic(fmt.Sprintf("failed to create test query event: %v", err))
	}
	return q
}

// MissingVisitOption 缺失访视选项函数类型
type MissingVisitOption func(*models.MissingVisit)

// CreateMissingVisit 创建测试缺失访视，默认未解决
func (f *TestDataFactory) CreateMissingVisit(studyID, siteID, subjectID string, opts ...MissingVisitOption) *models.MissingVisit {
	v := &models.MissingVisit{
		StudyID:   studyID,
		SiteID:    siteID,
		SubjectID: subjectID,
		VisitName: "Week 4",
	}

	for _, opt := range opts {
		opt(v)
	}

	if err := f.DB.Create(v).Error; err != nil {
		panic(fmt.Sprintf("failed to create test missing visit: %v", err))
	}
	return v
}

// MissingPageOption 缺失页面选项函数类型
type MissingPageOption func(*models.MissingPage)

// CreateMissingPage 创建测试缺失页面，默认未解决
func (f *TestDataFactory) CreateMissingPage(studyID, siteID, subjectID string, opts ...MissingPageOption) *models.MissingPage {
	p := &models.MissingPage{
		StudyID:   studyID,
		SiteID:    siteID,
		SubjectID: subjectID,
		VisitName: "Week 4",
		PageName:  "Vital Signs",
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := f.DB.Create(p).Error; err != nil {
		panic(fmt.Sprintf("failed to create test missing page: %v", err))
	}
	return p
}

// SDVStatusOption SDV状态选项函数类型
type SDVStatusOption func(*models.SDVStatus)

// CreateSDVStatus 创建测试SDV状态，默认全部核查完成
func (f *TestDataFactory) CreateSDVStatus(studyID, siteID, subjectID string, opts ...SDVStatusOption) *models.SDVStatus {
	s := &models.SDVStatus{
		StudyID:         studyID,
		SiteID:          siteID,
		SubjectID:       subjectID,
		ExpectedRecords: 10,
		VerifiedRecords: 10,
		Status:          "Complete",
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := f.DB.Create(s).Error; err != nil {
		panic(fmt.Sprintf("failed to create test sdv status: %v", err))
	}
	return s
}

// PISignatureOption PI签名状态选项函数类型
type PISignatureOption func(*models.PISignatureStatus)

// CreatePISignatureStatus 创建测试PI签名状态，默认全部签名完成
func (f *TestDataFactory) CreatePISignatureStatus(studyID, siteID, subjectID string, opts ...PISignatureOption) *models.PISignatureStatus {
	p := &models.PISignatureStatus{
		StudyID:           studyID,
		SiteID:            siteID,
		SubjectID:         subjectID,
		ExpectedCasebooks: 5,
		SignedCasebooks:   5,
		Status:            "Complete",
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := f.DB.Create(p).Error; err != nil {
		panic(fmt.Sprintf("failed to create test pi signature status: %v", err))
	}
	return p
}

// NonConformantOption 非一致性事件选项函数类型
type NonConformantOption func(*models.NonConformantEvent)

// CreateNonConformantEvent 创建测试非一致性事件，默认未决
func (f *TestDataFactory) CreateNonConformantEvent(studyID, siteID, subjectID string, opts ...NonConformantOption) *models.NonConformantEvent {
	e := &models.NonConformantEvent{
		StudyID:   studyID,
		SiteID:    siteID,
		SubjectID: subjectID,
		IssueType: "range_check",
		Severity:  "medium",
		Status:    "Open",
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := f.DB.Create(e).Error; err != nil {
		panic(fmt.Sprintf("failed to create test nonconformant event: %v", err))
	}
	return e
}

// SAEDiscrepancyOption SAE差异选项函数类型
type SAEDiscrepancyOption func(*models.SAEDiscrepancy)

// CreateSAEDiscrepancy 创建测试SAE差异，默认未决
func (f *TestDataFactory) CreateSAEDiscrepancy(studyID, siteID, subjectID string, opts ...SAEDiscrepancyOption) *models.SAEDiscrepancy {
	s := &models.SAEDiscrepancy{
		StudyID:          studyID,
		SiteID:           siteID,
		SubjectID:        subjectID,
		DiscrepancyID:    generateID("DISC"),
		FormName:         "AE",
		ResolutionStatus: "Unresolved",
		CaseStatus:       "Open",
		DiscrepancyTime:  time.Now().AddDate(0, 0, -3),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := f.DB.Create(s).Error; err != nil {
		panic(fmt.Sprintf("failed to create test sae discrepancy: %v", err))
	}
	return s
}

// LabIssueOption 实验室问题选项函数类型
type LabIssueOption func(*models.LabIssue)

// CreateLabIssue 创建测试实验室问题
func (f *TestDataFactory) CreateLabIssue(studyID, siteID, subjectID string, opts ...LabIssueOption) *models.LabIssue {
	l := &models.LabIssue{
		StudyID:     studyID,
		SiteID:      siteID,
		SubjectID:   subjectID,
		VisitName:   "Week 4",
		LabCategory: "Chemistry",
		TestName:    "ALT",
		Issue:       "missing_range",
	}

	for _, opt := range opts {
		opt(l)
	}

	if err := f.DB.Create(l).Error; err != nil {
		panic(fmt.Sprintf("failed to create test lab issue: %v", err))
	}
	return l
}

// CodingItemOption 编码条目选项函数类型
type CodingItemOption func(*models.CodingItem)

// CreateCodingItem 创建测试编码条目，默认未编码
func (f *TestDataFactory) CreateCodingItem(studyID, subjectID string, opts ...CodingItemOption) *models.CodingItem {
	c := &models.CodingItem{
		StudyID:        studyID,
		SubjectID:      subjectID,
		DictionaryName: "MedDRA",
		FormOID:        "AE",
		FieldOID:       "AETERM",
		CodingStatus:   "Uncoded",
		RequireCoding:  true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := f.DB.Create(c).Error; err != nil {
		panic(fmt.Sprintf("failed to create test coding item: %v", err))
	}
	return c
}

// EDRROption EDRR选项函数类型
type EDRROption func(*models.EDRROpenIssue)

// CreateEDRROpenIssue 创建测试EDRR未决问题汇总行
func (f *TestDataFactory) CreateEDRROpenIssue(studyID, subjectID string, count int, opts ...EDRROption) *models.EDRROpenIssue {
	e := &models.EDRROpenIssue{
		StudyID:             studyID,
		SubjectID:           subjectID,
		TotalOpenIssueCount: count,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := f.DB.Create(e).Error; err != nil {
		panic(fmt.Sprintf("failed to create test edrr open issue: %v", err))
	}
	return e
}

// WeightOption 权重配置选项函数类型
type WeightOption func(*models.DQIWeightConfig)

// CreateWeightConfig 创建测试权重配置
func (f *TestDataFactory) CreateWeightConfig(metricName string, weight float64, opts ...WeightOption) *models.DQIWeightConfig {
	c := &models.DQIWeightConfig{
		MetricName: metricName,
		Weight:     weight,
		IsActive:   true,
	}

	for _, opt := range opts {
		opt(c)
	}

	// gorm 在 Create 时会把零值的 IsActive 替换为 default:true，
	// 因此显式置 false 需要创建后再单独更新该列
	isActive := c.IsActive
	if err := f.DB.Create(c).Error; err != nil {
		panic(fmt.Sprintf("failed to create test weight config: %v", err))
	}
	if !isActive {
		if err := f.DB.Model(c).Update("is_active", false).Error; err != nil {
			panic(fmt.Sprintf("failed to deactivate test weight config: %v", err))
		}
		c.IsActive = false
	}
	return c
}

// SeedDefaultWeights 写入全套默认权重配置
func (f *TestDataFactory) SeedDefaultWeights() {
	for _, dw := range meta.DefaultWeights {
		f.CreateWeightConfig(dw.MetricName, dw.Weight, func(c *models.DQIWeightConfig) {
			c.Description = dw.Description
			c.IsActive = dw.IsActive
		})
	}
}

var idCounter uint64

// generateID 生成带前缀的唯一测试ID
func generateID(prefix string) string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano()%1000000, n)
}

// generateSuffix 生成唯一后缀
func generateSuffix() string {
	n := atomic.AddUint64(&idCounter, 1)
	return fmt.Sprintf("%d", n)
}
