// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"whispr-go/internal/config"
	"whispr-go/pkg/log"
	"whispr-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor 定义了处理反馈任务的接口，使消费者与具体的处理流程解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.FeedbackTask) error
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Producer 向 Kafka 发送反馈任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	// 反馈任务量小且要求及时，不等待凑批
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokerList(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// ProduceFeedbackTask 发送一个反馈任务到 Kafka，以用户 ID 作为分区键。
func (p *Producer) ProduceFeedbackTask(ctx context.Context, task tasks.FeedbackTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.UserID),
		Value: taskBytes,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理反馈任务，阻塞直到 ctx 结束。
// 反馈是一次性的：无论处理成功与否都提交 offset，失败不重试。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var task tasks.FeedbackTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := processor.Process(ctx, task); err != nil {
			log.Errorf("处理反馈任务失败: TaskID=%s, Error: %v", task.TaskID, err)
		} else {
			log.Infof("反馈任务处理成功: TaskID=%s", task.TaskID)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
