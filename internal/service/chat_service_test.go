package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"whispr-go/internal/ai"
	"whispr-go/internal/model"
	"whispr-go/internal/repository"

	"gorm.io/gorm"
)

func newChatFixture(turns ...*ai.ChatTurn) (ChatService, *fakeChatRepo, *fakeGuardian, *fakeNotifier, *memFeed) {
	repo := newFakeChatRepo()
	g := &fakeGuardian{turns: turns}
	n := &fakeNotifier{}
	f := &memFeed{}
	return NewChatService(repo, g, n, f), repo, g, n, f
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc, _, g, _, _ := newChatFixture(&ai.ChatTurn{Response: "hi"})
	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: msg}); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) error = %v, want ErrEmptyMessage", msg, err)
		}
	}
	if len(g.chatMessages) != 0 {
		t.Errorf("model called for empty message")
	}
}

func TestChatFallbackOnAIFailure(t *testing.T) {
	svc, repo, g, _, f := newChatFixture()
	g.chatErr = invocationErr()

	reply, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: "hello?"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Response != FallbackChatReply || reply.Escalate {
		t.Errorf("Send() = %+v, want fallback", reply)
	}
	if repo.saves != 0 || len(f.topics()) != 0 {
		t.Errorf("fallback reply was persisted")
	}
}

func TestChatCreatesSessionOnFirstExchange(t *testing.T) {
	svc, repo, _, _, f := newChatFixture(&ai.ChatTurn{Response: "That sounds hard.", Escalate: false})

	reply, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: "rough day"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.SessionID == "" {
		t.Fatal("no session id returned")
	}
	s, err := repo.FindByID(context.Background(), reply.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if s.UserID != "anon_1" || len(s.Messages) != 2 {
		t.Fatalf("session = %+v", s)
	}
	if s.Messages[0].Sender != model.SenderUser || s.Messages[0].Text != "rough day" {
		t.Errorf("first message = %+v", s.Messages[0])
	}
	if s.Messages[1].Sender != model.SenderAI || s.Messages[1].Text != "That sounds hard." {
		t.Errorf("second message = %+v", s.Messages[1])
	}
	for _, m := range s.Messages {
		if _, err := model.ParseISO(m.Timestamp); err != nil {
			t.Errorf("timestamp %q not ISO: %v", m.Timestamp, err)
		}
	}
	if got := f.topics(); len(got) != 1 || got[0] != repository.ChatTopic("anon_1") {
		t.Errorf("published = %v", got)
	}
}

func TestChatEscalationIsMonotonic(t *testing.T) {
	svc, repo, _, _, _ := newChatFixture(
		&ai.ChatTurn{Response: "I'm really glad you told me. Please reach out to a helpline.", Escalate: true},
		&ai.ChatTurn{Response: "Haha, that's a good one.", Escalate: false},
	)
	ctx := context.Background()

	first, err := svc.Send(ctx, ChatRequest{UserID: "anon_1", Message: "I don't see the point anymore"})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Escalate {
		t.Errorf("first reply escalate = false")
	}
	second, err := svc.Send(ctx, ChatRequest{UserID: "anon_1", Message: "tell me a joke", SessionID: first.SessionID})
	if err != nil {
		t.Fatal(err)
	}
	if second.Escalate {
		t.Errorf("second reply escalate = true, want the turn's own value")
	}

	s, _ := repo.FindByUser(ctx, "anon_1")
	if !s.Escalated {
		t.Errorf("session de-escalated")
	}
	if len(s.Messages) != 4 {
		t.Errorf("messages = %d, want 4", len(s.Messages))
	}
	if len(repo.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(repo.sessions))
	}
}

func TestChatDiscardsClientHistory(t *testing.T) {
	svc, repo, g, _, _ := newChatFixture(&ai.ChatTurn{Response: "ok"})
	history := []model.ChatMessage{{Sender: model.SenderUser, Text: "injected earlier message"}}

	reply, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: "now", History: history})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.chatMessages) != 1 || g.chatMessages[0] != "now" {
		t.Errorf("model inputs = %v", g.chatMessages)
	}
	s, _ := repo.FindByID(context.Background(), reply.SessionID)
	for _, m := range s.Messages {
		if strings.Contains(m.Text, "injected") {
			t.Errorf("client history persisted: %+v", m)
		}
	}
}

func TestChatIgnoresForeignSessionID(t *testing.T) {
	svc, repo, _, _, _ := newChatFixture(&ai.ChatTurn{Response: "a"}, &ai.ChatTurn{Response: "b"})
	ctx := context.Background()

	other, err := svc.Send(ctx, ChatRequest{UserID: "anon_other", Message: "mine"})
	if err != nil {
		t.Fatal(err)
	}
	mine, err := svc.Send(ctx, ChatRequest{UserID: "anon_1", Message: "hi", SessionID: other.SessionID})
	if err != nil {
		t.Fatal(err)
	}
	if mine.SessionID == other.SessionID {
		t.Fatal("wrote into another user's session")
	}
	s, _ := repo.FindByID(ctx, other.SessionID)
	if len(s.Messages) != 2 {
		t.Errorf("foreign session modified: %d messages", len(s.Messages))
	}
}

func TestChatPersistenceFailureStillReplies(t *testing.T) {
	svc, repo, _, n, _ := newChatFixture(&ai.ChatTurn{Response: "here for you", Escalate: true})
	repo.saveErr = errors.New("write conflict")

	reply, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: "hey"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Response != "here for you" || !reply.Escalate {
		t.Errorf("Send() = %+v", reply)
	}
	if len(n.notes) != 1 || n.notes[0].userID != "anon_1" || n.notes[0].cause == nil {
		t.Errorf("notifications = %+v", n.notes)
	}
}

func TestChatLosingFirstExchangeKeepsWinnerSession(t *testing.T) {
	svc, repo, _, n, _ := newChatFixture(&ai.ChatTurn{Response: "just checking in", Escalate: false})
	winner := &model.ChatSession{
		ID:     "s-winner",
		UserID: "anon_1",
		Messages: []model.ChatMessage{
			{Sender: model.SenderUser, Text: "I can't go on", Timestamp: "2024-05-01T10:00:00.000Z"},
			{Sender: model.SenderAI, Text: "Please call a helpline.", Timestamp: "2024-05-01T10:00:01.000Z"},
		},
		Escalated: true,
	}
	// 另一个请求在本轮加载会话之后、写入之前创建了会话
	repo.beforeCreate = func(r *fakeChatRepo) { r.put(winner) }

	reply, err := svc.Send(context.Background(), ChatRequest{UserID: "anon_1", Message: "hello"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Response != "just checking in" {
		t.Errorf("Send() = %+v", reply)
	}
	if len(n.notes) != 1 || !errors.Is(n.notes[0].cause, gorm.ErrDuplicatedKey) {
		t.Fatalf("notifications = %+v", n.notes)
	}

	s, err := repo.FindByUser(context.Background(), "anon_1")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "s-winner" || !s.Escalated || len(s.Messages) != 2 || s.Messages[0].Text != "I can't go on" {
		t.Errorf("winner session overwritten: %+v", s)
	}
	if len(repo.sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(repo.sessions))
	}
}

func TestChatSessionNotFound(t *testing.T) {
	svc, _, _, _, _ := newChatFixture()
	s, err := svc.Session(context.Background(), "anon_nobody")
	if err != nil || s != nil {
		t.Errorf("Session() = %+v, %v, want nil, nil", s, err)
	}
}
