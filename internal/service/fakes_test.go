package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"whispr-go/internal/ai"
	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/es"
	"whispr-go/pkg/tasks"

	"gorm.io/gorm"
)

// fakePostRepo 是内存中的 PostRepository。
type fakePostRepo struct {
	mu          sync.Mutex
	posts       map[string]*model.Post
	createErr   error
	findErr     error
	updateErr   error
	lookupCalls int
}

func newFakePostRepo(posts ...*model.Post) *fakePostRepo {
	r := &fakePostRepo{posts: map[string]*model.Post{}}
	for _, p := range posts {
		cp := *p
		r.posts[p.ID] = &cp
	}
	return r
}

func (r *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) FindByID(_ context.Context, id string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) FindByUserAndContent(_ context.Context, userID, content string) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, p := range r.posts {
		if p.UserID == userID && p.Content == content {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePostRepo) list(visibleOnly bool) []model.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Post{}
	for _, p := range r.posts {
		if visibleOnly && p.Hidden {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakePostRepo) ListVisible(context.Context) ([]model.Post, error) { return r.list(true), nil }
func (r *fakePostRepo) ListAll(context.Context) ([]model.Post, error)     { return r.list(false), nil }

func (r *fakePostRepo) update(id string, fn func(p *model.Post)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if p, ok := r.posts[id]; ok {
		fn(p)
	}
	return nil
}

func (r *fakePostRepo) UpdateLabel(_ context.Context, id string, label model.AILabel) error {
	return r.update(id, func(p *model.Post) { p.AILabel = label })
}

func (r *fakePostRepo) SetHidden(_ context.Context, id string, hidden bool) error {
	return r.update(id, func(p *model.Post) { p.Hidden = hidden })
}

func (r *fakePostRepo) SetReply(_ context.Context, id string, reply string) error {
	return r.update(id, func(p *model.Post) { p.Reply = &reply })
}

func (r *fakePostRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

// fakeChatRepo 是内存中的 ChatSessionRepository，读写都做深拷贝以模拟数据库。
// Create 模拟 user_id 唯一索引，Upsert 模拟 escalated 的 OR 合并。
type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.ChatSession
	saveErr  error
	saves    int
	// beforeCreate 在 Create 检查唯一性之前调用，用于模拟并发写入
	beforeCreate func(r *fakeChatRepo)
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{sessions: map[string]*model.ChatSession{}}
}

func copySession(s *model.ChatSession) *model.ChatSession {
	cp := *s
	cp.Messages = append([]model.ChatMessage(nil), s.Messages...)
	return &cp
}

func (r *fakeChatRepo) put(s *model.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = copySession(s)
}

func (r *fakeChatRepo) FindByID(_ context.Context, id string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copySession(s), nil
}

func (r *fakeChatRepo) FindByUser(_ context.Context, userID string) (*model.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID {
			return copySession(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChatRepo) Create(_ context.Context, session *model.ChatSession) error {
	if r.beforeCreate != nil {
		r.beforeCreate(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for id, s := range r.sessions {
		if id == session.ID || s.UserID == session.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.saves++
	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *fakeChatRepo) Upsert(_ context.Context, session *model.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	next := copySession(session)
	if prev, ok := r.sessions[session.ID]; ok {
		next.Escalated = prev.Escalated || session.Escalated
	}
	r.sessions[session.ID] = next
	return nil
}

// fakeActionRepo 是内存中的 AdminActionRepository。
type fakeActionRepo struct {
	mu        sync.Mutex
	actions   []model.AdminAction
	createErr error
}

func (r *fakeActionRepo) Create(_ context.Context, a *model.AdminAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.actions = append(r.actions, *a)
	return nil
}

func (r *fakeActionRepo) List(_ context.Context, limit int) ([]model.AdminAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.AdminAction(nil), r.actions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeActionRepo) ListByTarget(_ context.Context, postID string) ([]model.AdminAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AdminAction
	for _, a := range r.actions {
		if a.TargetID == postID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeGuardian 返回预设的模型输出。
type fakeGuardian struct {
	mu            sync.Mutex
	classify      *ai.Classification
	classifyErr   error
	feedback      *ai.Feedback
	feedbackErr   error
	turns         []*ai.ChatTurn // 按调用顺序依次返回
	chatErr       error
	classifyCalls int
	chatMessages  []string
}

func invocationErr() error {
	return &ai.InvocationError{Stage: "provider", Err: errors.New("upstream unavailable")}
}

func (g *fakeGuardian) Classify(context.Context, string) (*ai.Classification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.classifyCalls++
	if g.classifyErr != nil {
		return nil, g.classifyErr
	}
	return g.classify, nil
}

func (g *fakeGuardian) FeedbackReply(context.Context, string) (*ai.Feedback, error) {
	if g.feedbackErr != nil {
		return nil, g.feedbackErr
	}
	return g.feedback, nil
}

func (g *fakeGuardian) SupportChat(_ context.Context, message string) (*ai.ChatTurn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chatMessages = append(g.chatMessages, message)
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	t := g.turns[0]
	if len(g.turns) > 1 {
		g.turns = g.turns[1:]
	}
	return t, nil
}

// memFeed 是内存中的 ChangeFeed，发布的通知会投递给匹配的订阅者。
type memFeed struct {
	mu         sync.Mutex
	published  []repository.Change
	subs       []*memSub
	publishErr error
}

type memSub struct {
	topics map[string]bool
	ch     chan repository.Change
	done   <-chan struct{}
}

func (f *memFeed) Publish(_ context.Context, topic string, payload interface{}) error {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	c := repository.Change{Topic: topic, Payload: data}
	f.published = append(f.published, c)
	for _, s := range f.subs {
		if !s.topics[topic] {
			continue
		}
		select {
		case s.ch <- c:
		case <-s.done:
		}
	}
	return nil
}

func (f *memFeed) Subscribe(ctx context.Context, topics ...string) (<-chan repository.Change, error) {
	s := &memSub{topics: map[string]bool{}, ch: make(chan repository.Change, 16), done: ctx.Done()}
	for _, t := range topics {
		s.topics[t] = true
	}
	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, sub := range f.subs {
			if sub == s {
				f.subs = append(f.subs[:i], f.subs[i+1:]...)
				break
			}
		}
		close(s.ch)
	}()
	return s.ch, nil
}

func (f *memFeed) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.published {
		out = append(out, c.Topic)
	}
	return out
}

func (f *memFeed) publishedOn(prefix string) []repository.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Change
	for _, c := range f.published {
		if strings.HasPrefix(c.Topic, prefix) {
			out = append(out, c)
		}
	}
	return out
}

type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []tasks.FeedbackTask
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task tasks.FeedbackTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return d.err
}

type notification struct {
	userID, message string
	cause           error
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []notification
}

func (n *fakeNotifier) NotifyError(_ context.Context, userID, message string, cause error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notification{userID, message, cause})
}

// fakeSearchClient 记录写入的文档并按预设返回命中。
type fakeSearchClient struct {
	mu      sync.Mutex
	docs    []es.PostDocument
	hits    []es.Hit
	err     error
	indexed chan es.PostDocument
}

func (c *fakeSearchClient) IndexPost(_ context.Context, doc es.PostDocument) error {
	c.mu.Lock()
	c.docs = append(c.docs, doc)
	c.mu.Unlock()
	if c.indexed != nil {
		c.indexed <- doc
	}
	return c.err
}

func (c *fakeSearchClient) SearchPosts(context.Context, string, int) ([]es.Hit, error) {
	return c.hits, c.err
}

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC)
}
