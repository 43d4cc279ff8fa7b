/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、分布式锁、事件发布器与调度器的装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 应用启动时执行初始化流程：连库 -> 迁移 -> 默认权重 -> 装配重算服务 -> 启动调度器
 * @rules 确保所有依赖服务正常启动后才提供API服务；无Redis时降级为进程内锁
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs dev_docs/model.md
 */

package service

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dqi-service/logger"
	"dqi-service/service/database"
	"dqi-service/service/distributed_lock"
	"dqi-service/service/dqi"
	"dqi-service/service/event"
	"dqi-service/service/scheduler"
)

var (
	DB                       *gorm.DB
	GlobalDQIService         *dqi.Service
	GlobalEventPublisher     event.Publisher
	GlobalRecomputeScheduler *scheduler.RecomputeScheduler
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "dqi")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=UTC",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("默认权重初始化失败: %v", err)
	}
	log.Println("默认权重初始化完成")
}

// initServices 初始化服务
func initServices() {
	// 分布式锁：配置了REDIS_HOST时使用Redis，否则降级为进程内锁
	var lock distributed_lock.DistributedLock
	if os.Getenv("REDIS_HOST") != "" {
		redisLock, err := distributed_lock.NewRedisLock()
		if err != nil {
			log.Fatalf("Redis分布式锁初始化失败: %v", err)
		}
		lock = redisLock
	} else {
		slog.Info("未配置REDIS_HOST，使用进程内锁")
		lock = distributed_lock.NewLocalLock()
	}

	// 事件发布器：配置了KAFKA_BROKERS时使用Kafka，否则空实现
	if os.Getenv("KAFKA_BROKERS") != "" {
		publisher, err := event.NewKafkaPublisher()
		if err != nil {
			log.Fatalf("Kafka事件发布器初始化失败: %v", err)
		}
		GlobalEventPublisher = publisher
	} else {
		slog.Info("未配置KAFKA_BROKERS，事件发布使用空实现")
		GlobalEventPublisher = event.NoopPublisher{}
	}

	GlobalDQIService = dqi.NewService(DB, lock, GlobalEventPublisher)

	// 定时全量重算
	GlobalRecomputeScheduler = scheduler.NewRecomputeScheduler(GlobalDQIService)
	if err := GlobalRecomputeScheduler.StartScheduler(); err != nil {
		log.Fatalf("重算调度器启动失败: %v", err)
	}
}
