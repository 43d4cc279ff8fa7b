/*
 * @module service/event/publisher
 * @description 重算完成事件发布器，通过Kafka通知下游看板与缓存层刷新
 * @architecture 分层架构 - 事件层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 重算成功落库 -> 构造完成事件 -> 写入Kafka主题
 * @rules 事件发布失败只告警不回滚，集市行落库为准
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/init.go, service/dqi/recompute.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// RecomputeCompletedEvent 重算完成事件载荷
type RecomputeCompletedEvent struct {
	RunID             string    `json:"run_id"`
	StudyScope        string    `json:"study_scope"` // 空串表示全量重算
	Status            string    `json:"status"`
	StudiesProcessed  int       `json:"studies_processed"`
	StudiesSkipped    int       `json:"studies_skipped"`
	SubjectsProcessed int       `json:"subjects_processed"`
	SubjectsSkipped   int       `json:"subjects_skipped"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	PublishRecomputeCompleted(ctx context.Context, event *RecomputeCompletedEvent) error
	Close() error
}

// KafkaPublisher 基于Kafka的事件发布实现
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher 创建Kafka事件发布器
// brokers从KAFKA_BROKERS读取（逗号分隔），主题从DQI_EVENT_TOPIC读取
func NewKafkaPublisher() (*KafkaPublisher, error) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS未配置")
	}
	topic := os.Getenv("DQI_EVENT_TOPIC")
	if topic == "" {
		topic = "dqi.recompute.completed"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("Kafka事件发布器初始化成功", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{writer: writer, topic: topic}, nil
}

// PublishRecomputeCompleted 发布重算完成事件，消息键为研究范围，保证同范围事件有序
func (p *KafkaPublisher) PublishRecomputeCompleted(ctx context.Context, event *RecomputeCompletedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化重算完成事件失败: %w", err)
	}

	key := event.StudyScope
	if key == "" {
		key = "all"
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("发布重算完成事件失败: %w", err)
	}

	slog.Info("重算完成事件已发布",
		"run_id", event.RunID,
		"study_scope", event.StudyScope,
		"topic", p.topic)
	return nil
}

// Close 关闭底层writer
func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// NoopPublisher 空实现，未配置Kafka时使用
type NoopPublisher struct{}

// PublishRecomputeCompleted 仅记录日志
func (NoopPublisher) PublishRecomputeCompleted(ctx context.Context, event *RecomputeCompletedEvent) error {
	slog.Debug("事件发布器未配置，跳过重算完成事件", "run_id", event.RunID)
	return nil
}

// Close 无资源可释放
func (NoopPublisher) Close() error {
	return nil
}
