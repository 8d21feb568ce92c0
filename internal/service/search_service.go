package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/es"
	"whispr-go/pkg/log"

	"gorm.io/gorm"
)

// PostIndexer 将 whisper 写入搜索索引。
type PostIndexer interface {
	IndexPost(ctx context.Context, doc es.PostDocument) error
}

// PostSearcher 在搜索索引中检索 whisper。
type PostSearcher interface {
	SearchPosts(ctx context.Context, query string, size int) ([]es.Hit, error)
}

const indexTimeout = 10 * time.Second

func toDocument(p *model.Post) es.PostDocument {
	return es.PostDocument{
		PostID:    p.ID,
		UserID:    p.UserID,
		Content:   p.Content,
		AILabel:   string(p.AILabel),
		Hidden:    p.Hidden,
		CreatedAt: model.FormatISO(p.CreatedAt),
	}
}

// indexPostAsync 在后台写入索引，与请求的 ctx 脱离，失败只记录日志。
func indexPostAsync(indexer PostIndexer, post *model.Post) {
	if indexer == nil || post == nil {
		return
	}
	doc := toDocument(post)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		defer cancel()
		if err := indexer.IndexPost(ctx, doc); err != nil {
			log.Warnf("[SearchIndex] 索引 whisper 失败, postId: %s, error: %v", doc.PostID, err)
		}
	}()
}

// SearchService 接口定义了管理员的 whisper 全文检索。
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]model.Post, error)
	Reindex(ctx context.Context) (int, error)
}

type searchService struct {
	client   SearchClient
	postRepo repository.PostRepository
}

// SearchClient 同时具备写入与检索能力，*es.Client 即满足。
type SearchClient interface {
	PostIndexer
	PostSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。client 为 nil 时检索不可用。
func NewSearchService(client SearchClient, postRepo repository.PostRepository) SearchService {
	return &searchService{client: client, postRepo: postRepo}
}

// Search 按相关度返回匹配的 whisper（包括已隐藏的）。
// 索引中存在但数据库里已不存在的条目会被跳过。
func (s *searchService) Search(ctx context.Context, query string, limit int) ([]model.Post, error) {
	if s.client == nil {
		return nil, ErrSearchUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Post{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	log.Infof("[SearchService] 开始检索, query: '%s', limit: %d", query, limit)
	hits, err := s.client.SearchPosts(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}

	posts := make([]model.Post, 0, len(hits))
	for _, h := range hits {
		p, err := s.postRepo.FindByID(ctx, h.PostID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[SearchService] 索引中的 whisper 在数据库中不存在, postId: %s", h.PostID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load post %s: %w", h.PostID, err)
		}
		posts = append(posts, *p)
	}
	log.Infof("[SearchService] 检索完成, 返回 %d 条结果", len(posts))
	return posts, nil
}

// Reindex 将数据库中的全部 whisper 写入索引，返回成功写入的数量。
func (s *searchService) Reindex(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, ErrSearchUnavailable
	}
	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list posts: %w", err)
	}
	n := 0
	for i := range posts {
		if err := s.client.IndexPost(ctx, toDocument(&posts[i])); err != nil {
			log.Warnf("[SearchService] 重建索引失败, postId: %s, error: %v", posts[i].ID, err)
			continue
		}
		n++
	}
	log.Infof("[SearchService] 重建索引完成, %d/%d", n, len(posts))
	return n, nil
}
