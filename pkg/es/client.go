// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"whispr-go/internal/config"
	"whispr-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// PostDocument 是写入搜索索引的 whisper 文档。
type PostDocument struct {
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	AILabel   string `json:"ai_label"`
	Hidden    bool   `json:"hidden"`
	CreatedAt string `json:"created_at"`
}

// Hit 是一条搜索命中。
type Hit struct {
	PostID string
	Score  float64
}

// Client 封装了 Elasticsearch 客户端与索引名。
type Client struct {
	es        *elasticsearch.Client
	indexName string
}

const postMapping = `{
	"mappings": {
		"properties": {
			"post_id":    { "type": "keyword" },
			"user_id":    { "type": "keyword" },
			"content":    { "type": "text", "analyzer": "standard" },
			"ai_label":   { "type": "keyword" },
			"hidden":     { "type": "boolean" },
			"created_at": { "type": "date" }
		}
	}
}`

// NewClient 初始化 Elasticsearch 客户端并确保索引存在。
func NewClient(esCfg config.ElasticsearchConfig) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{es: client, indexName: esCfg.IndexName}
	if err := c.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return c, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (c *Client) createIndexIfNotExists() error {
	res, err := c.es.Indices.Exists([]string{c.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(
		c.indexName,
		c.es.Indices.Create.WithBody(strings.NewReader(postMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}
	log.Infof("索引 '%s' 创建成功", c.indexName)
	return nil
}

// IndexPost 写入或覆盖一条 whisper 文档。
func (c *Client) IndexPost(ctx context.Context, doc PostDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      c.indexName,
		DocumentID: doc.PostID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index post")
	}
	return nil
}

// BuildSearchQuery 构建全文检索查询，短语匹配额外加权。
func BuildSearchQuery(query string, size int) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{
						"content": query,
					},
				},
				"should": []map[string]interface{}{
					{
						"match_phrase": map[string]interface{}{
							"content": map[string]interface{}{
								"query": query,
								"boost": 3.0,
							},
						},
					},
				},
			},
		},
		"size": size,
	}
}

// SearchPosts 执行全文检索，按得分返回命中的 whisper ID。
func (c *Client) SearchPosts(ctx context.Context, query string, size int) ([]Hit, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(BuildSearchQuery(query, size)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(body))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}
	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]Hit, error) {
	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}
	hits := make([]Hit, 0, len(esResponse.Hits.Hits))
	for _, h := range esResponse.Hits.Hits {
		hits = append(hits, Hit{PostID: h.ID, Score: h.Score})
	}
	return hits, nil
}
