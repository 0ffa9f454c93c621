// Package kafka 提供了上传完成事件的 Kafka 生产者。
// 事件发布是 best-effort：未配置 broker 时生产者为空操作，
// 发布失败只记录日志，不影响请求结果。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"taible-storage-go/internal/config"
	"taible-storage-go/pkg/log"
)

// UploadCompletedEvent 是文件上传完成后发布的事件负载。
type UploadCompletedEvent struct {
	FileRecordID uint      `json:"file_record_id"`
	FileKey      string    `json:"file_key"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	FileSize     int64     `json:"file_size"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Producer 封装了 Kafka 写入器。零值或未配置时所有方法为空操作。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。brokers 为空时返回禁用的生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	if cfg.Brokers == "" {
		log.Info("Kafka broker 未配置，上传完成事件发布已禁用")
		return &Producer{}
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: writer}
}

// PublishUploadCompleted 发布一条上传完成事件。
func (p *Producer) PublishUploadCompleted(ctx context.Context, event UploadCompletedEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.FileKey),
		Value: payload,
	})
}

// Close 关闭底层写入器。
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
