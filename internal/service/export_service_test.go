package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"whispr-go/internal/model"
)

type fakeObjectStore struct {
	name        string
	data        []byte
	contentType string
	putErr      error
}

func (s *fakeObjectStore) PutObject(_ context.Context, name string, data []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.name, s.data, s.contentType = name, data, contentType
	return nil
}

func (s *fakeObjectStore) PresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "https://minio.local/whispr-exports/" + name + "?X-Amz-Signature=abc", nil
}

func TestExportUnavailableWithoutStore(t *testing.T) {
	svc := NewExportService(newFakePostRepo(), &fakeActionRepo{}, nil, time.Hour)
	if _, err := svc.Export(context.Background(), "admin"); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("Export() error = %v, want ErrExportUnavailable", err)
	}
}

func TestExportWritesDocument(t *testing.T) {
	posts := newFakePostRepo(
		&model.Post{ID: "p1", UserID: "anon_1", Content: "can't sleep again", CreatedAt: at(1), AILabel: model.LabelStressed},
		&model.Post{ID: "p2", UserID: "anon_2", Content: "hidden one", CreatedAt: at(2), Hidden: true},
	)
	actions := &fakeActionRepo{}
	a, err := model.NewAdminAction("a1", "admin", "p2", model.VisibilityDetails{WasHidden: false}, at(3))
	if err != nil {
		t.Fatal(err)
	}
	_ = actions.Create(context.Background(), a)
	store := &fakeObjectStore{}

	res, err := NewExportService(posts, actions, store, 30*time.Minute).Export(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Posts != 2 || res.Actions != 1 {
		t.Errorf("counts = %d posts, %d actions", res.Posts, res.Actions)
	}
	if !strings.HasPrefix(store.name, "exports/") || res.ObjectName != store.name {
		t.Errorf("object name = %q, result %q", store.name, res.ObjectName)
	}
	if store.contentType != "application/json" || !strings.Contains(res.URL, store.name) {
		t.Errorf("contentType = %q, url = %q", store.contentType, res.URL)
	}

	var doc struct {
		ExportedBy string `json:"exportedBy"`
		Posts      []struct {
			ID string `json:"id"`
		} `json:"posts"`
		Actions []struct {
			Description string `json:"description"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(store.data, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.ExportedBy != "admin" || len(doc.Posts) != 2 || doc.Posts[0].ID != "p2" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Actions) != 1 || doc.Actions[0].Description != "Hid the post from public view." {
		t.Errorf("actions = %+v", doc.Actions)
	}
}

func TestExportUploadFailure(t *testing.T) {
	store := &fakeObjectStore{putErr: errors.New("bucket gone")}
	if _, err := NewExportService(newFakePostRepo(), &fakeActionRepo{}, store, time.Hour).Export(context.Background(), "admin"); err == nil {
		t.Error("Export() error = nil, want upload failure")
	}
}
