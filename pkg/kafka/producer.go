// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"medi-chat-go/internal/config"
	"medi-chat-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// TurnEvent 是一次完成的问答交互的审计事件。
type TurnEvent struct {
	UserID    uint   `json:"user_id"`
	SessionID uint   `json:"session_id"`
	Fallback  bool   `json:"fallback"`
	ErrorType string `json:"error_type,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。brokers 为空时不启用事件上报。
func InitProducer(cfg config.KafkaConfig) {
	if cfg.Brokers == "" {
		log.Info("Kafka brokers 未配置，对话事件上报已禁用")
		return
	}
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceTurnEvent 发送一个问答交互事件到 Kafka。
// 事件上报是尽力而为的：生产者未启用或发送失败都不影响调用方。
func ProduceTurnEvent(event TurnEvent) {
	if producer == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		log.Warnf("无法序列化对话事件: %v", err)
		return
	}

	err = producer.WriteMessages(context.Background(),
		kafka.Message{
			Value: eventBytes,
		},
	)
	if err != nil {
		log.Warnf("发送对话事件到 Kafka 失败: %v", err)
	}
}
