package service

import (
	"context"
	"encoding/json"
	"fmt"

	"whispr-go/internal/repository"
	"whispr-go/pkg/log"
)

// 实时推送的事件类型。
const (
	EventPosts    = "posts"
	EventActions  = "actions"
	EventChat     = "chat"
	EventFeedback = "feedback"
	EventError    = "error"
)

// LiveEvent 是推送给订阅者的一条事件，快照类事件的 Data 为完整的最新结果。
type LiveEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LiveService 提供实时订阅：先推送初始快照，之后每次收到变更通知都重新查询并推送。
// 返回的 channel 在 ctx 结束后关闭。
type LiveService interface {
	WatchFeed(ctx context.Context, userID string) (<-chan LiveEvent, error)
	WatchChat(ctx context.Context, userID string) (<-chan LiveEvent, error)
	WatchAdmin(ctx context.Context) (<-chan LiveEvent, error)
}

type liveService struct {
	feed       repository.ChangeFeed
	whispers   WhisperService
	chats      ChatService
	moderation ModerationService
	actionsCap int
}

// NewLiveService 创建一个新的 LiveService 实例。
func NewLiveService(feed repository.ChangeFeed, whispers WhisperService, chats ChatService, moderation ModerationService) LiveService {
	return &liveService{
		feed:       feed,
		whispers:   whispers,
		chats:      chats,
		moderation: moderation,
		actionsCap: 50,
	}
}

// liveSource 描述一个主题对应的事件。query 为 nil 时直接转发通知载荷。
type liveSource struct {
	topic string
	event string
	query func(ctx context.Context) (interface{}, error)
}

// WatchFeed 订阅公开 feed，以及只属于该用户的 AI 反馈和错误通知。
func (s *liveService) WatchFeed(ctx context.Context, userID string) (<-chan LiveEvent, error) {
	return s.watch(ctx, []liveSource{
		{topic: repository.TopicPosts, event: EventPosts, query: func(ctx context.Context) (interface{}, error) {
			return s.whispers.ListVisible(ctx)
		}},
		{topic: repository.FeedbackTopic(userID), event: EventFeedback},
		{topic: repository.ErrorTopic(userID), event: EventError},
	})
}

// WatchChat 订阅用户自己的聊天会话。
func (s *liveService) WatchChat(ctx context.Context, userID string) (<-chan LiveEvent, error) {
	return s.watch(ctx, []liveSource{
		{topic: repository.ChatTopic(userID), event: EventChat, query: func(ctx context.Context) (interface{}, error) {
			return s.chats.Session(ctx, userID)
		}},
		{topic: repository.ErrorTopic(userID), event: EventError},
	})
}

// WatchAdmin 订阅管理后台：全部 whisper 与最近的审计条目。
func (s *liveService) WatchAdmin(ctx context.Context) (<-chan LiveEvent, error) {
	return s.watch(ctx, []liveSource{
		{topic: repository.TopicPosts, event: EventPosts, query: func(ctx context.Context) (interface{}, error) {
			return s.moderation.ListPosts(ctx)
		}},
		{topic: repository.TopicAdminActions, event: EventActions, query: func(ctx context.Context) (interface{}, error) {
			return s.moderation.ListActions(ctx, s.actionsCap)
		}},
	})
}

func (s *liveService) watch(ctx context.Context, sources []liveSource) (<-chan LiveEvent, error) {
	topics := make([]string, 0, len(sources))
	byTopic := make(map[string]liveSource, len(sources))
	for _, src := range sources {
		topics = append(topics, src.topic)
		byTopic[src.topic] = src
	}
	// 先订阅再查询初始快照，避免两者之间的变更丢失
	changes, err := s.feed.Subscribe(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("subscribe %v: %w", topics, err)
	}

	out := make(chan LiveEvent, 8)
	go func() {
		defer close(out)
		send := func(ev LiveEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, src := range sources {
			if src.query == nil {
				continue
			}
			if ev, ok := snapshot(ctx, src); ok && !send(ev) {
				return
			}
		}

		for change := range changes {
			src, ok := byTopic[change.Topic]
			if !ok {
				continue
			}
			var ev LiveEvent
			if src.query == nil {
				ev = LiveEvent{Type: src.event, Data: json.RawMessage(change.Payload)}
			} else if ev, ok = snapshot(ctx, src); !ok {
				continue
			}
			if !send(ev) {
				return
			}
		}
	}()
	return out, nil
}

func snapshot(ctx context.Context, src liveSource) (LiveEvent, bool) {
	data, err := src.query(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("[LiveService] 查询快照失败, topic: %s, error: %v", src.topic, err)
		}
		return LiveEvent{}, false
	}
	return LiveEvent{Type: src.event, Data: data}, true
}
