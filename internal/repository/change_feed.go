package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"whispr-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// 变更通知的主题。按用户区分的主题通过函数生成。
const (
	TopicPosts        = "posts"
	TopicAdminActions = "adminActions"
)

func ChatTopic(userID string) string     { return "aiChats:" + userID }
func FeedbackTopic(userID string) string { return "feedback:" + userID }
func ErrorTopic(userID string) string    { return "errors:" + userID }

const channelPrefix = "whispr:"

// Change 是一条收到的变更通知。
type Change struct {
	Topic   string
	Payload []byte
}

// ChangeFeed 是存储层的变更通知通道，用于驱动实时订阅。
type ChangeFeed interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	// Subscribe 在 ctx 结束前持续投递通知，ctx 结束后关闭返回的 channel。
	Subscribe(ctx context.Context, topics ...string) (<-chan Change, error)
}

type redisChangeFeed struct {
	redisClient *redis.Client
}

// NewChangeFeed 创建基于 Redis pub/sub 的 ChangeFeed。
func NewChangeFeed(redisClient *redis.Client) ChangeFeed {
	return &redisChangeFeed{redisClient: redisClient}
}

// Publish 发布一条通知，payload 为 nil 时发送空对象。
func (f *redisChangeFeed) Publish(ctx context.Context, topic string, payload interface{}) error {
	data := []byte("{}")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal change payload: %w", err)
		}
		data = b
	}
	if err := f.redisClient.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change on %s: %w", topic, err)
	}
	return nil
}

func (f *redisChangeFeed) Subscribe(ctx context.Context, topics ...string) (<-chan Change, error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = channelPrefix + t
	}
	ps := f.redisClient.Subscribe(ctx, channels...)
	// 等待订阅确认，确保返回后发布的通知不会丢失
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe %v: %w", topics, err)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				change := Change{Topic: strings.TrimPrefix(m.Channel, channelPrefix), Payload: []byte(m.Payload)}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	log.Infof("已订阅变更通知: %v", topics)
	return out, nil
}
