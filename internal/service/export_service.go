package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/log"

	"github.com/google/uuid"
)

// ObjectStore 是导出文件的存储，*storage.Client 即满足。
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// ExportResult 描述一次导出。
type ExportResult struct {
	ObjectName string    `json:"objectName"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Posts      int       `json:"posts"`
	Actions    int       `json:"actions"`
}

// exportDocument 是导出文件的内容。
type exportDocument struct {
	ExportedAt string       `json:"exportedAt"`
	ExportedBy string       `json:"exportedBy"`
	Posts      []model.Post `json:"posts"`
	Actions    []ActionView `json:"actions"`
}

// ExportService 将全部 whisper 与审计日志导出为 JSON 文件。
type ExportService interface {
	Export(ctx context.Context, adminID string) (*ExportResult, error)
}

type exportService struct {
	postRepo   repository.PostRepository
	actionRepo repository.AdminActionRepository
	store      ObjectStore
	urlExpiry  time.Duration
}

// NewExportService 创建一个新的 ExportService 实例。store 为 nil 时导出不可用。
func NewExportService(postRepo repository.PostRepository, actionRepo repository.AdminActionRepository, store ObjectStore, urlExpiry time.Duration) ExportService {
	return &exportService{postRepo: postRepo, actionRepo: actionRepo, store: store, urlExpiry: urlExpiry}
}

func (s *exportService) Export(ctx context.Context, adminID string) (*ExportResult, error) {
	if s.store == nil {
		return nil, ErrExportUnavailable
	}
	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	actions, err := s.actionRepo.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}

	now := time.Now().UTC()
	doc := exportDocument{
		ExportedAt: model.FormatISO(now),
		ExportedBy: adminID,
		Posts:      posts,
		Actions:    NewActionViews(actions),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	objectName := fmt.Sprintf("exports/%s-%s.json", now.Format("20060102T150405Z"), uuid.NewString()[:8])
	if err := s.store.PutObject(ctx, objectName, data, "application/json"); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.store.PresignedURL(ctx, objectName, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	log.Infow("[ExportService] 导出完成", "adminId", adminID, "object", objectName, "posts", len(posts), "actions", len(actions))
	return &ExportResult{
		ObjectName: objectName,
		URL:        url,
		ExpiresAt:  now.Add(s.urlExpiry),
		Posts:      len(posts),
		Actions:    len(actions),
	}, nil
}
