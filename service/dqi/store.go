/*
 * @module service/dqi/store
 * @description 集市行持久化：按归属实体（受试者/中心/研究）upsert，整行替换，保持主键与创建时间稳定
 * @architecture 分层架构 - 数据访问层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 内存集市行 -> 按唯一键查旧行 -> 存在则整行替换，不存在则新建
 * @rules 集市行绝不部分更新；重算输出以唯一键幂等覆盖
 * @dependencies gorm.io/gorm, dqi-service/service/models
 * @refs service/dqi/recompute.go
 */

package dqi

import (
	"fmt"

	"gorm.io/gorm"

	"dqi-service/service/models"
)

// UpsertSubjectScore 按subject_id整行替换受试者DQI评分
func UpsertSubjectScore(tx *gorm.DB, row *models.DQIScoreSubject) error {
	var existing models.DQIScoreSubject
	err := tx.Where("subject_id = ?", row.SubjectID).First(&existing).Error
	if err == nil {
		row.DQISubjectID = existing.DQISubjectID
		row.CreatedAt = existing.CreatedAt
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("更新受试者DQI评分失败: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("查询受试者DQI评分失败: %w", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("创建受试者DQI评分失败: %w", err)
	}
	return nil
}

// UpsertCleanStatus 按subject_id整行替换Clean Patient状态
func UpsertCleanStatus(tx *gorm.DB, row *models.CleanPatientStatus) error {
	var existing models.CleanPatientStatus
	err := tx.Where("subject_id = ?", row.SubjectID).First(&existing).Error
	if err == nil {
		row.CleanStatusID = existing.CleanStatusID
		row.CreatedAt = existing.CreatedAt
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("更新Clean Patient状态失败: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("查询Clean Patient状态失败: %w", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("创建Clean Patient状态失败: %w", err)
	}
	return nil
}

// UpsertSiteScore 按site_id整行替换中心DQI汇总
func UpsertSiteScore(tx *gorm.DB, row *models.DQIScoreSite) error {
	var existing models.DQIScoreSite
	err := tx.Where("site_id = ?", row.SiteID).First(&existing).Error
	if err == nil {
		row.DQISiteID = existing.DQISiteID
		row.CreatedAt = existing.CreatedAt
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("更新中心DQI汇总失败: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("查询中心DQI汇总失败: %w", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("创建中心DQI汇总失败: %w", err)
	}
	return nil
}

// UpsertStudyScore 按study_id整行替换研究DQI汇总
func UpsertStudyScore(tx *gorm.DB, row *models.DQIScoreStudy) error {
	var existing models.DQIScoreStudy
	err := tx.Where("study_id = ?", row.StudyID).First(&existing).Error
	if err == nil {
		row.DQIStudyID = existing.DQIStudyID
		row.CreatedAt = existing.CreatedAt
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("更新研究DQI汇总失败: %w", err)
		}
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("查询研究DQI汇总失败: %w", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("创建研究DQI汇总失败: %w", err)
	}
	return nil
}
