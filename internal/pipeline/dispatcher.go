package pipeline

import (
	"context"
	"time"

	"whispr-go/pkg/log"
	"whispr-go/pkg/tasks"
)

// backgroundTimeout 限制后台任务的执行时间，后台任务与请求的 ctx 脱离。
const backgroundTimeout = 60 * time.Second

// TaskProducer 将任务写入消息队列，*kafka.Producer 即满足。
type TaskProducer interface {
	ProduceFeedbackTask(ctx context.Context, task tasks.FeedbackTask) error
}

// KafkaDispatcher 把反馈任务交给 Kafka，由消费者调用 Processor。
type KafkaDispatcher struct {
	producer TaskProducer
}

func NewKafkaDispatcher(producer TaskProducer) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer}
}

// Dispatch 在后台写入 Kafka，不阻塞调用方。
func (d *KafkaDispatcher) Dispatch(_ context.Context, task tasks.FeedbackTask) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := d.producer.ProduceFeedbackTask(ctx, task); err != nil {
			log.Errorf("[Dispatcher] 发送反馈任务到 Kafka 失败, TaskID: %s, error: %v", task.TaskID, err)
		}
	}()
	return nil
}

// InProcessDispatcher 在未配置 Kafka 时使用，直接在 goroutine 中执行 Processor。
type InProcessDispatcher struct {
	processor *Processor
}

func NewInProcessDispatcher(processor *Processor) *InProcessDispatcher {
	return &InProcessDispatcher{processor: processor}
}

func (d *InProcessDispatcher) Dispatch(_ context.Context, task tasks.FeedbackTask) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		// 错误已在 Processor 中记录
		_ = d.processor.Process(ctx, task)
	}()
	return nil
}
