/*
 * @module service/models/dimension
 * @description 维度模型定义，研究/中心/受试者三级归属树
 * @architecture 分层架构 - 数据模型层
 * @documentReference dev_docs/model.md
 * @stateFlow 由数据导入层写入，指标计算引擎只读
 * @rules 归属关系为严格树结构：Study -> Site -> Subject，不允许环
 * @dependencies gorm.io/gorm
 * @refs service/models/facts.go, service/models/marts.go
 */

package models

import (
	"time"
)

// Study 研究维度模型
type Study struct {
	StudyID      string     `gorm:"type:varchar(50);primaryKey" json:"study_id"`
	StudyName    string     `gorm:"type:varchar(200);not null" json:"study_name"`
	Region       string     `gorm:"type:varchar(100)" json:"region"`
	Status       string     `gorm:"type:varchar(50);default:'Active'" json:"status"`
	SnapshotDate *time.Time `gorm:"type:date" json:"snapshot_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Study) TableName() string {
	return "dim_study"
}

// Site 中心维度模型
type Site struct {
	SiteID      string    `gorm:"type:varchar(50);primaryKey" json:"site_id"`
	StudyID     string    `gorm:"type:varchar(50);not null;index" json:"study_id"`
	SiteNumber  string    `gorm:"type:varchar(50)" json:"site_number"`
	SiteName    string    `gorm:"type:varchar(200)" json:"site_name"`
	CountryCode string    `gorm:"type:varchar(10)" json:"country_code"`
	Status      string    `gorm:"type:varchar(50);default:'Active'" json:"status"`
	AssignedCRA string    `gorm:"type:varchar(100)" json:"assigned_cra"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Site) TableName() string {
	return "dim_site"
}

// Subject 受试者维度模型
type Subject struct {
	SubjectID      string     `gorm:"type:varchar(50);primaryKey" json:"subject_id"`
	StudyID        string     `gorm:"type:varchar(50);not null;index" json:"study_id"`
	SiteID         string     `gorm:"type:varchar(50);not null;index" json:"site_id"`
	SubjectStatus  string     `gorm:"type:varchar(50);default:'Enrolled'" json:"subject_status"`
	EnrollmentDate *time.Time `gorm:"type:date" json:"enrollment_date,omitempty"`
	LatestVisit    string     `gorm:"type:varchar(200)" json:"latest_visit"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Subject) TableName() string {
	return "dim_subject"
}
