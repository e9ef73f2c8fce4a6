// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"labot-admin-go/internal/config"
	"labot-admin-go/internal/model"
	"labot-admin-go/pkg/log"
)

// CacheGroupIndex 维护缓存组的向量索引，用于查找语义相近的已缓存问题。
type CacheGroupIndex interface {
	IndexCacheGroup(ctx context.Context, doc model.CacheGroupDocument) error
	SearchSimilar(ctx context.Context, vector []float32, k int) ([]model.SimilarQuestion, error)
}

type esCacheGroupIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewCacheGroupIndex 初始化 Elasticsearch 客户端并确保索引存在。
// 未配置地址时返回 NopIndex。
func NewCacheGroupIndex(esCfg config.ElasticsearchConfig, dims int) (CacheGroupIndex, error) {
	if strings.TrimSpace(esCfg.Addresses) == "" {
		log.Warnf("[ES] 未配置地址，相似问题索引已禁用")
		return NopIndex{}, nil
	}
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
	idx := &esCacheGroupIndex{client: client, indexName: esCfg.IndexName}
	if err := idx.createIndexIfNotExists(dims); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (e *esCacheGroupIndex) createIndexIfNotExists(dims int) error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", e.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"group_id": { "type": "long" },
				"question": { "type": "text", "analyzer": "spanish" },
				"oposicion": { "type": "keyword" },
				"regions": { "type": "keyword" },
				"topics": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", e.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", e.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", e.indexName)
	return nil
}

// IndexCacheGroup 以缓存组 ID 为文档 ID 写入（覆盖）索引。
func (e *esCacheGroupIndex) IndexCacheGroup(ctx context.Context, doc model.CacheGroupDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      e.indexName,
		DocumentID: strconv.FormatUint(uint64(doc.GroupID), 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("索引缓存组到 Elasticsearch 出错: %s", res.String())
		return fmt.Errorf("failed to index cache group %d", doc.GroupID)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64                  `json:"_score"`
			Source model.CacheGroupDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchSimilar 使用 kNN 检索与 vector 最接近的 k 个缓存组。
func (e *esCacheGroupIndex) SearchSimilar(ctx context.Context, vector []float32, k int) ([]model.SimilarQuestion, error) {
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"_source": []string{"group_id", "question", "regions"},
		"size":    k,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("failed to encode knn query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knn search returned error: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode knn response: %w", err)
	}
	results := make([]model.SimilarQuestion, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		results = append(results, model.SimilarQuestion{
			GroupID:  hit.Source.GroupID,
			Question: hit.Source.Question,
			Regions:  hit.Source.Regions,
			Score:    hit.Score,
		})
	}
	return results, nil
}

// NopIndex 在未配置 Elasticsearch 时使用。
type NopIndex struct{}

func (NopIndex) IndexCacheGroup(context.Context, model.CacheGroupDocument) error { return nil }

func (NopIndex) SearchSimilar(context.Context, []float32, int) ([]model.SimilarQuestion, error) {
	return []model.SimilarQuestion{}, nil
}
