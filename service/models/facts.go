/*
 * @module service/models/facts
 * @description 事实表模型定义，质量信号的原始事实行（质询、缺失访视/页面、SDV、PI签名、SAE差异、实验室、编码等）
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/model.md
 * @stateFlow 由数据导入层写入，指标计算引擎只读，重算不修改任何事实行
 * @rules 每行引用一个受试者，study/site为冗余外键便于过滤；状态/日期字段按事实种类各异
 * @dependencies gorm.io/gorm
 * @refs service/dqi/facts.go
 */

package models

import (
	"time"
)

// 质询状态
const (
	QueryStatusOpen      = "Open"
	QueryStatusAnswered  = "Answered"
	QueryStatusClosed    = "Closed"
	QueryStatusCancelled = "Cancelled"
)

// QueryEvent 质询事实模型，一行一条质询
type QueryEvent struct {
	QueryID         uint       `gorm:"primaryKey;autoIncrement" json:"query_id"`
	StudyID         string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID          string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID       string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	FolderName      string     `gorm:"type:varchar(200)" json:"folder_name"`
	FormName        string     `gorm:"type:varchar(200)" json:"form_name"`
	FieldOID        string     `gorm:"type:varchar(200)" json:"field_oid"`
	LogNumber       string     `gorm:"type:varchar(50)" json:"log_number"`
	QueryStatus     string     `gorm:"type:varchar(20);not null;index" json:"query_status"`
	ActionOwner     string     `gorm:"type:varchar(20)" json:"action_owner"` // Site/CRA/DM/Sponsor
	QueryOpenDate   *time.Time `gorm:"type:date" json:"query_open_date,omitempty"`
	QueryRepairDate *time.Time `gorm:"type:date" json:"query_repair_date,omitempty"`
	DaysSinceOpen   int        `json:"days_since_open"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (QueryEvent) TableName() string {
	return "fact_query_event"
}

// MissingVisit 缺失访视事实模型
type MissingVisit struct {
	MissingVisitID  uint       `gorm:"primaryKey;autoIncrement" json:"missing_visit_id"`
	StudyID         string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID          string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID       string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	VisitName       string     `gorm:"type:varchar(200)" json:"visit_name"`
	ProjectedDate   *time.Time `gorm:"type:date" json:"projected_date,omitempty"`
	DaysOutstanding int        `json:"days_outstanding"`
	IsResolved      bool       `gorm:"default:false" json:"is_resolved"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (MissingVisit) TableName() string {
	return "fact_missing_visit"
}

// MissingPage 缺失页面事实模型
type MissingPage struct {
	MissingPageID uint       `gorm:"primaryKey;autoIncrement" json:"missing_page_id"`
	StudyID       string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID        string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID     string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	VisitName     string     `gorm:"type:varchar(200)" json:"visit_name"`
	PageName      string     `gorm:"type:varchar(200)" json:"page_name"`
	VisitDate     *time.Time `gorm:"type:date" json:"visit_date,omitempty"`
	DaysMissing   int        `json:"days_missing"`
	IsResolved    bool       `gorm:"default:false" json:"is_resolved"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (MissingPage) TableName() string {
	return "fact_missing_page"
}

// SDVStatus 源数据核查状态事实模型，一受试者一行
type SDVStatus struct {
	SDVID           uint       `gorm:"primaryKey;autoIncrement" json:"sdv_id"`
	StudyID         string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID          string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID       string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	ExpectedRecords int        `json:"expected_records"`
	VerifiedRecords int        `json:"verified_records"`
	Status          string     `gorm:"type:varchar(50)" json:"status"`
	SDVDate         *time.Time `gorm:"type:date" json:"sdv_date,omitempty"`
	VerifiedBy      string     `gorm:"type:varchar(100)" json:"verified_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (SDVStatus) TableName() string {
	return "fact_sdv_status"
}

// PISignatureStatus PI签名状态事实模型，一受试者一行
type PISignatureStatus struct {
	SignatureID       uint       `gorm:"primaryKey;autoIncrement" json:"signature_id"`
	StudyID           string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID            string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID         string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	ExpectedCasebooks int        `json:"expected_casebooks"`
	SignedCasebooks   int        `json:"signed_casebooks"`
	Status            string     `gorm:"type:varchar(50)" json:"status"`
	SignedBy          string     `gorm:"type:varchar(100)" json:"signed_by"`
	SignedDate        *time.Time `gorm:"type:date" json:"signed_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (PISignatureStatus) TableName() string {
	return "fact_pi_signature_status"
}

// NonConformantEvent 非一致性事件事实模型
type NonConformantEvent struct {
	EventID        uint       `gorm:"primaryKey;autoIncrement" json:"event_id"`
	StudyID        string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID         string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID      string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	IssueType      string     `gorm:"type:varchar(100)" json:"issue_type"`
	Severity       string     `gorm:"type:varchar(20)" json:"severity"`
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"` // Open/Resolved
	Description    string     `gorm:"type:text" json:"description"`
	DetectedDate   *time.Time `gorm:"type:date" json:"detected_date,omitempty"`
	ResolutionDate *time.Time `gorm:"type:date" json:"resolution_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (NonConformantEvent) TableName() string {
	return "fact_nonconformant_event"
}

// SAEDiscrepancy SAE对账差异事实模型
type SAEDiscrepancy struct {
	SAEID            uint      `gorm:"primaryKey;autoIncrement" json:"sae_id"`
	StudyID          string    `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID           string    `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID        string    `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	DiscrepancyID    string    `gorm:"type:varchar(100)" json:"discrepancy_id"`
	FormName         string    `gorm:"type:varchar(200)" json:"form_name"`
	ResolutionStatus string    `gorm:"type:varchar(50);index" json:"resolution_status"` // Unresolved/Resolved
	CaseStatus       string    `gorm:"type:varchar(50)" json:"case_status"`
	DiscrepancyTime  time.Time `json:"discrepancy_created_timestamp"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SAEDiscrepancy) TableName() string {
	return "fact_sae_discrepancy"
}

// LabIssue 实验室数据问题事实模型
type LabIssue struct {
	LabIssueID  uint       `gorm:"primaryKey;autoIncrement" json:"lab_issue_id"`
	StudyID     string     `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID      string     `gorm:"type:varchar(50);index" json:"site_id"`
	SubjectID   string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	VisitName   string     `gorm:"type:varchar(200)" json:"visit_name"`
	LabCategory string     `gorm:"type:varchar(200)" json:"lab_category"`
	TestName    string     `gorm:"type:varchar(200)" json:"test_name"`
	Issue       string     `gorm:"type:varchar(100)" json:"issue"`
	LabDate     *time.Time `gorm:"type:date" json:"lab_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (LabIssue) TableName() string {
	return "fact_lab_issue"
}

// CodingItem 医学编码条目事实模型
type CodingItem struct {
	CodingID          uint      `gorm:"primaryKey;autoIncrement" json:"coding_id"`
	StudyID           string    `gorm:"type:varchar(50);index" json:"study_id"`
	SubjectID         string    `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	DictionaryName    string    `gorm:"type:varchar(50)" json:"dictionary_name"` // MedDRA/WHODrug
	DictionaryVersion string    `gorm:"type:varchar(50)" json:"dictionary_version"`
	FormOID           string    `gorm:"type:varchar(200)" json:"form_oid"`
	FieldOID          string    `gorm:"type:varchar(200)" json:"field_oid"`
	CodingStatus      string    `gorm:"type:varchar(50);index" json:"coding_status"` // Uncoded/Pending/Coded
	RequireCoding     bool      `gorm:"default:true" json:"require_coding"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CodingItem) TableName() string {
	return "fact_coding_item"
}

// EDRROpenIssue 第三方对账（EDRR）未决问题事实模型，一受试者一行汇总计数
type EDRROpenIssue struct {
	EDRRID              uint      `gorm:"primaryKey;autoIncrement" json:"edrr_id"`
	StudyID             string    `gorm:"type:varchar(50);index" json:"study_id"`
	SubjectID           string    `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	TotalOpenIssueCount int       `gorm:"default:0" json:"total_open_issue_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName 指定表名
func (EDRROpenIssue) TableName() string {
	return "fact_edrr_open_issue"
}

// ProtocolDeviation 方案偏离事实模型（信息性事实，不参与DQI评分）
type ProtocolDeviation struct {
	DeviationID    uint       `gorm:"primaryKey;autoIncrement" json:"deviation_id"`
	StudyID        string     `gorm:"type:varchar(50);index" json:"study_id"`
	SubjectID      string     `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	DeviationType  string     `gorm:"type:varchar(100)" json:"deviation_type"`
	Status         string     `gorm:"type:varchar(20)" json:"status"`
	Severity       string     `gorm:"type:varchar(20)" json:"severity"`
	Description    string     `gorm:"type:text" json:"description"`
	DeviationDate  *time.Time `gorm:"type:date" json:"deviation_date,omitempty"`
	ResolutionDate *time.Time `gorm:"type:date" json:"resolution_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ProtocolDeviation) TableName() string {
	return "fact_protocol_deviation"
}

// InactivatedRecord 失活记录事实模型（信息性事实，不参与DQI评分）
type InactivatedRecord struct {
	InactivatedID uint      `gorm:"primaryKey;autoIncrement" json:"inactivated_id"`
	StudyID       string    `gorm:"type:varchar(50);index" json:"study_id"`
	SubjectID     string    `gorm:"type:varchar(50);not null;index" json:"subject_id"`
	FolderName    string    `gorm:"type:varchar(200)" json:"folder_name"`
	FormName      string    `gorm:"type:varchar(200)" json:"form_name"`
	AuditAction   string    `gorm:"type:varchar(200)" json:"audit_action"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (InactivatedRecord) TableName() string {
	return "fact_inactivated_record"
}
