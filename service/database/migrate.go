/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建维度/事实/集市表结构并写入默认权重配置
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移 -> 默认权重update-or-create
 * @rules 确保数据库结构与模型定义保持一致；默认权重只补缺不覆盖人工修改
 * @dependencies dqi-service/service/meta, dqi-service/service/models, gorm.io/gorm
 * @refs dev_docs/dqi_requirements.md, service/init.go
 */

package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 维度表
	err := db.AutoMigrate(
		&models.Study{},
		&models.Site{},
		&models.Subject{},
	)
	if err != nil {
		return err
	}

	// 事实表
	err = db.AutoMigrate(
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
	)
	if err != nil {
		return err
	}

	// 权重配置与集市表
	err = db.AutoMigrate(
		&models.DQIWeightConfig{},
		&models.CleanPatientStatus{},
		&models.DQIScoreSubject{},
		&models.DQIScoreSite{},
		&models.DQIScoreStudy{},
		&models.RecomputeRun{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据：默认DQI权重配置
// 按指标名update-or-create：缺失的指标补齐默认值，已存在的行不动，保留人工调整
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化默认权重配置...")

	created := 0
	for _, dw := range meta.DefaultWeights {
		var existing models.DQIWeightConfig
		err := db.Where("metric_name = ?", dw.MetricName).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("查询权重配置 %s 失败: %w", dw.MetricName, err)
		}
		config := models.DQIWeightConfig{
			MetricName:  dw.MetricName,
			Weight:      dw.Weight,
			Description: dw.Description,
			IsActive:    dw.IsActive,
		}
		if err := db.Create(&config).Error; err != nil {
			return fmt.Errorf("创建默认权重配置 %s 失败: %w", dw.MetricName, err)
		}
		created++
	}

	log.Printf("默认权重配置初始化完成，新建 %d 条", created)
	return nil
}
