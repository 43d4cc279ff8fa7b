/*
 * @module service/models/marts
 * @description 集市层模型定义，权重配置与派生指标表（Clean Patient状态、受试者/中心/研究DQI评分、重算运行记录）
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/model.md
 * @stateFlow 重算运行整体替换集市行 -> 看板/REST只读
 * @rules 集市行完全可重算，按归属实体upsert，一次重算整行替换，绝不部分更新
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dqi/store.go, service/dqi/recompute.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 风险等级
const (
	RiskBandLow      = "Low"
	RiskBandMedium   = "Medium"
	RiskBandHigh     = "High"
	RiskBandCritical = "Critical"
)

// 研究就绪状态
const (
	ReadinessDatabaseLock    = "Ready for Database Lock"
	ReadinessInterimAnalysis = "Ready for Interim Analysis"
	ReadinessInProgress      = "In Progress"
	ReadinessNotReady        = "Not Ready"
)

// DQIWeightConfig DQI权重配置模型
// 管理接口维护，重算期间只读；激活权重之和不要求为1，综合评分按激活权重归一化
type DQIWeightConfig struct {
	ConfigID    string    `gorm:"type:uuid;primary_key" json:"config_id"`
	MetricName  string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"metric_name"`
	Weight      float64   `gorm:"type:decimal(5,3);not null" json:"weight"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DQIWeightConfig) TableName() string {
	return "dqi_weight_config"
}

// BeforeCreate 创建前钩子
func (w *DQIWeightConfig) BeforeCreate(tx *gorm.DB) error {
	if w.ConfigID == "" {
		w.ConfigID = uuid.New().String()
	}
	return nil
}

// CleanPatientStatus Clean Patient状态集市模型，一受试者一行
// is_clean 当且仅当全部阻断条件满足：0缺失访视、0未决质询、0缺失页面、0非一致性、0未决SAE差异、SDV 100%、PI签名100%
type CleanPatientStatus struct {
	CleanStatusID string `gorm:"type:uuid;primary_key" json:"clean_status_id"`
	SubjectID     string `gorm:"type:varchar(50);not null;uniqueIndex" json:"subject_id"`
	StudyID       string `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID        string `gorm:"type:varchar(50);index" json:"site_id"`

	IsClean bool `gorm:"default:false" json:"is_clean"`

	HasMissingVisits   bool `gorm:"default:false" json:"has_missing_visits"`
	MissingVisitsCount int  `gorm:"default:0" json:"missing_visits_count"`

	HasOpenQueries   bool `gorm:"default:false" json:"has_open_queries"`
	OpenQueriesCount int  `gorm:"default:0" json:"open_queries_count"`

	HasMissingPages   bool `gorm:"default:false" json:"has_missing_pages"`
	MissingPagesCount int  `gorm:"default:0" json:"missing_pages_count"`

	HasNonConformant   bool `gorm:"default:false" json:"has_non_conformant"`
	NonConformantCount int  `gorm:"default:0" json:"non_conformant_count"`

	HasSAEDiscrepancies bool `gorm:"default:false" json:"has_sae_discrepancies"`
	SAEDiscrepancyCount int  `gorm:"default:0" json:"sae_discrepancy_count"`

	SDVCompletionPct         float64 `gorm:"type:decimal(5,2);default:0" json:"sdv_completion_pct"`
	PISignatureCompletionPct float64 `gorm:"type:decimal(5,2);default:0" json:"pi_signature_completion_pct"`

	// 信息性积压计数，不参与is_clean判定
	CodingUncodedCount int `gorm:"default:0" json:"coding_uncoded_count"`
	EDRROpenIssueCount int `gorm:"default:0" json:"edrr_open_issue_count"`

	// 有序阻断项列表，固定顺序便于看板展示与快照比对
	Blockers JSONBArray `gorm:"type:jsonb" json:"blockers"`

	LastComputed time.Time `json:"last_computed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (CleanPatientStatus) TableName() string {
	return "mart_clean_patient_status"
}

// BeforeCreate 创建前钩子
func (c *CleanPatientStatus) BeforeCreate(tx *gorm.DB) error {
	if c.CleanStatusID == "" {
		c.CleanStatusID = uuid.New().String()
	}
	return nil
}

// DQIScoreSubject 受试者级DQI评分集市模型，一受试者一行
// 各分项评分0-100，越高越差；综合评分为激活权重的加权平均
type DQIScoreSubject struct {
	DQISubjectID string `gorm:"type:uuid;primary_key" json:"dqi_subject_id"`
	SubjectID    string `gorm:"type:varchar(50);not null;uniqueIndex" json:"subject_id"`
	StudyID      string `gorm:"type:varchar(50);index" json:"study_id"`
	SiteID       string `gorm:"type:varchar(50);index" json:"site_id"`

	SAEUnresolvedScore    float64 `gorm:"type:decimal(5,2);default:0" json:"sae_unresolved_score"`
	MissingVisitsScore    float64 `gorm:"type:decimal(5,2);default:0" json:"missing_visits_score"`
	MissingPagesScore     float64 `gorm:"type:decimal(5,2);default:0" json:"missing_pages_score"`
	OpenQueriesScore      float64 `gorm:"type:decimal(5,2);default:0" json:"open_queries_score"`
	OverdueQueriesScore   float64 `gorm:"type:decimal(5,2);default:0" json:"overdue_queries_score"`
	NonConformantScore    float64 `gorm:"type:decimal(5,2);default:0" json:"non_conformant_score"`
	SDVIncompleteScore    float64 `gorm:"type:decimal(5,2);default:0" json:"sdv_incomplete_score"`
	UnsignedCasebookScore float64 `gorm:"type:decimal(5,2);default:0" json:"unsigned_casebook_score"`
	LabIssuesScore        float64 `gorm:"type:decimal(5,2);default:0" json:"lab_issues_score"`
	CodingIssuesScore     float64 `gorm:"type:decimal(5,2);default:0" json:"coding_issues_score"`
	EDRRIssuesScore       float64 `gorm:"type:decimal(5,2);default:0" json:"edrr_issues_score"`

	CompositeDQIScore float64 `gorm:"type:decimal(5,2);default:0" json:"composite_dqi_score"`
	RiskBand          string  `gorm:"type:varchar(20);default:'Low'" json:"risk_band"`

	LastComputed time.Time `json:"last_computed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (DQIScoreSubject) TableName() string {
	return "mart_dqi_score_subject"
}

// BeforeCreate 创建前钩子
func (d *DQIScoreSubject) BeforeCreate(tx *gorm.DB) error {
	if d.DQISubjectID == "" {
		d.DQISubjectID = uuid.New().String()
	}
	return nil
}

// DQIScoreSite 中心级DQI评分集市模型，由受试者级评分纯派生
type DQIScoreSite struct {
	DQISiteID string `gorm:"type:uuid;primary_key" json:"dqi_site_id"`
	SiteID    string `gorm:"type:varchar(50);not null;uniqueIndex" json:"site_id"`
	StudyID   string `gorm:"type:varchar(50);index" json:"study_id"`

	AvgDQIScore float64 `gorm:"type:decimal(5,2);default:0" json:"avg_dqi_score"`
	MinDQIScore float64 `gorm:"type:decimal(5,2);default:0" json:"min_dqi_score"`
	MaxDQIScore float64 `gorm:"type:decimal(5,2);default:0" json:"max_dqi_score"`

	TotalSubjects   int     `gorm:"default:0" json:"total_subjects"`
	CleanSubjects   int     `gorm:"default:0" json:"clean_subjects"`
	CleanPercentage float64 `gorm:"type:decimal(5,2);default:0" json:"clean_percentage"`
	RiskBand        string  `gorm:"type:varchar(20);default:'Low'" json:"risk_band"`

	LastComputed time.Time `json:"last_computed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (DQIScoreSite) TableName() string {
	return "mart_dqi_score_site"
}

// BeforeCreate 创建前钩子
func (d *DQIScoreSite) BeforeCreate(tx *gorm.DB) error {
	if d.DQISiteID == "" {
		d.DQISiteID = uuid.New().String()
	}
	return nil
}

// DQIScoreStudy 研究级DQI评分集市模型，由中心级评分聚合（按中心加权，非按受试者加权）
type DQIScoreStudy struct {
	DQIStudyID string `gorm:"type:uuid;primary_key" json:"dqi_study_id"`
	StudyID    string `gorm:"type:varchar(50);not null;uniqueIndex" json:"study_id"`

	AvgDQIScore     float64 `gorm:"type:decimal(5,2);default:0" json:"avg_dqi_score"`
	TotalSites      int     `gorm:"default:0" json:"total_sites"`
	TotalSubjects   int     `gorm:"default:0" json:"total_subjects"`
	CleanSubjects   int     `gorm:"default:0" json:"clean_subjects"`
	CleanPercentage float64 `gorm:"type:decimal(5,2);default:0" json:"clean_percentage"`
	RiskBand        string  `gorm:"type:varchar(20);default:'Low'" json:"risk_band"`
	ReadinessStatus string  `gorm:"type:varchar(50);default:'Not Ready'" json:"readiness_status"`

	LastComputed time.Time `json:"last_computed"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (DQIScoreStudy) TableName() string {
	return "mart_dqi_score_study"
}

// BeforeCreate 创建前钩子
func (d *DQIScoreStudy) BeforeCreate(tx *gorm.DB) error {
	if d.DQIStudyID == "" {
		d.DQIStudyID = uuid.New().String()
	}
	return nil
}

// RecomputeRun 重算运行记录模型
type RecomputeRun struct {
	ID                string     `gorm:"type:uuid;primary_key" json:"id"`
	StudyScope        string     `gorm:"type:varchar(50);index" json:"study_scope"` // 空串表示全量
	Status            string     `gorm:"type:varchar(20);not null" json:"status"`   // running/completed/completed_with_skips/failed
	Phase             string     `gorm:"type:varchar(40)" json:"phase"`             // load_weights/score_subjects/rollup_sites_and_studies
	StudiesProcessed  int        `gorm:"default:0" json:"studies_processed"`
	StudiesSkipped    int        `gorm:"default:0" json:"studies_skipped"`
	SkippedStudies    JSONBArray `gorm:"type:jsonb" json:"skipped_studies"` // [{study_id, cause}]
	SitesProcessed    int        `gorm:"default:0" json:"sites_processed"`
	SubjectsProcessed int        `gorm:"default:0" json:"subjects_processed"`
	SubjectsSkipped   int        `gorm:"default:0" json:"subjects_skipped"`
	SkippedSubjects   JSONBArray `gorm:"type:jsonb" json:"skipped_subjects"` // [{subject_id, cause}]
	ErrorMessage      string     `gorm:"type:text" json:"error_message,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	Duration          int64      `json:"duration"` // 运行时长，毫秒
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName 指定表名
func (RecomputeRun) TableName() string {
	return "dqi_recompute_run"
}

// BeforeCreate 创建前钩子
func (r *RecomputeRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
