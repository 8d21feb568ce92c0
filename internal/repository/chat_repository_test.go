package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"whispr-go/internal/model"
)

func chatSession(escalated bool) *model.ChatSession {
	return &model.ChatSession{
		ID:     "s2",
		UserID: "anon_1",
		Messages: []model.ChatMessage{
			{Sender: model.SenderUser, Text: "tell me a joke", Timestamp: "2024-05-01T10:00:00.000Z"},
			{Sender: model.SenderAI, Text: "Why did the scarecrow win an award?", Timestamp: "2024-05-01T10:00:01.000Z"},
		},
		Escalated:     escalated,
		LastUpdatedAt: time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC),
	}
}

func TestChatSessionUpsertKeepsEscalation(t *testing.T) {
	db, stmts := newDryRunDB(t)
	if err := NewChatSessionRepository(db).Upsert(context.Background(), chatSession(false)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	sql := lastStatement(t, stmts).sql

	_, update, ok := strings.Cut(sql, "ON DUPLICATE KEY UPDATE ")
	if !ok {
		t.Fatalf("sql = %s, want ON DUPLICATE KEY UPDATE", sql)
	}
	for _, want := range []string{
		"`escalated`=`escalated` OR VALUES(`escalated`)",
		"`messages`=VALUES(`messages`)",
		"`last_updated_at`=VALUES(`last_updated_at`)",
	} {
		if !strings.Contains(update, want) {
			t.Errorf("update clause %q missing %q", update, want)
		}
	}
	for _, unwanted := range []string{"`escalated`=VALUES(`escalated`)", "`created_at`", "`id`="} {
		if strings.Contains(update, unwanted) {
			t.Errorf("update clause %q must not contain %q", update, unwanted)
		}
	}
}

func TestChatSessionCreateIsPlainInsert(t *testing.T) {
	db, stmts := newDryRunDB(t)
	if err := NewChatSessionRepository(db).Create(context.Background(), chatSession(true)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sql := lastStatement(t, stmts).sql
	if !strings.HasPrefix(sql, "INSERT INTO `ai_chats`") || strings.Contains(sql, "ON DUPLICATE KEY") {
		t.Errorf("sql = %s", sql)
	}
}

func TestChatSessionFindByUser(t *testing.T) {
	db, stmts := newDryRunDB(t)
	_, _ = NewChatSessionRepository(db).FindByUser(context.Background(), "anon_1")
	st := lastStatement(t, stmts)
	if !strings.Contains(st.sql, "WHERE user_id = ?") || !strings.Contains(st.sql, "LIMIT") {
		t.Errorf("sql = %s", st.sql)
	}
	if len(st.vars) == 0 || st.vars[0] != "anon_1" {
		t.Errorf("vars = %v", st.vars)
	}
}
