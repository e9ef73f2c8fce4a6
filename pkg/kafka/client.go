// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"labot-admin-go/internal/config"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/tasks"
)

// Publisher 发布缓存组领域事件。
type Publisher interface {
	PublishCacheGroupSaved(ctx context.Context, event tasks.CacheGroupSavedEvent) error
	Close() error
}

// messageWriter 是 kafka.Writer 中被用到的部分，测试中可替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewPublisher 创建 Kafka 生产者。未配置 brokers 时返回 no-op 实现。
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if strings.TrimSpace(cfg.Brokers) == "" {
		log.Warnf("[Kafka] 未配置 brokers，事件发布已禁用")
		return NopPublisher{}
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Infof("[Kafka] 生产者初始化成功, topic: %s", cfg.Topic)
	return &kafkaPublisher{writer: writer}
}

// PublishCacheGroupSaved 以缓存组 ID 作为 key 发送事件，同一缓存组的事件落在同一分区。
func (p *kafkaPublisher) PublishCacheGroupSaved(ctx context.Context, event tasks.CacheGroupSavedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cache group event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.GroupID), 10)),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write cache group event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) PublishCacheGroupSaved(context.Context, tasks.CacheGroupSavedEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
