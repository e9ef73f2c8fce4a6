package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"labot-admin-go/internal/model"
	"labot-admin-go/pkg/log"
)

const (
	chunkCatalogKey     = "chunkedData"
	catalogPreviewRunes = 50
)

// ChunkRepository 读取数据库中的法规切片。
type ChunkRepository interface {
	FindSubchunks(ctx context.Context, ids []string) ([]model.Subchunk, error)
	// Catalog 返回切片选择器使用的完整目录，启用 Redis 时缓存 ttl 时长。
	Catalog(ctx context.Context) (model.ChunkCatalog, error)
}

type chunkRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	ttl         time.Duration
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。db 指向数据库（data_dsn）。
func NewChunkRepository(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) ChunkRepository {
	return &chunkRepository{db: db, redisClient: redisClient, ttl: ttl}
}

func (r *chunkRepository) FindSubchunks(ctx context.Context, ids []string) ([]model.Subchunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Subchunk
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("find subchunks: %w", err)
	}
	return chunks, nil
}

func (r *chunkRepository) Catalog(ctx context.Context) (model.ChunkCatalog, error) {
	if r.redisClient != nil {
		raw, err := r.redisClient.Get(ctx, chunkCatalogKey).Bytes()
		switch {
		case err == nil:
			var catalog model.ChunkCatalog
			if jsonErr := json.Unmarshal(raw, &catalog); jsonErr == nil {
				return catalog, nil
			}
			log.Warnf("[ChunkRepository] 缓存中的切片目录无法解析，重新加载")
		case err != redis.Nil:
			log.Warnf("[ChunkRepository] 读取切片目录缓存失败: %v", err)
		}
	}

	log.Info("[ChunkRepository] 切片目录缓存未命中，从数据库加载")
	catalog, err := r.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	if r.redisClient != nil {
		if raw, err := json.Marshal(catalog); err == nil {
			if err := r.redisClient.Set(ctx, chunkCatalogKey, raw, r.ttl).Err(); err != nil {
				log.Warnf("[ChunkRepository] 写入切片目录缓存失败: %v", err)
			}
		}
	}
	return catalog, nil
}

func (r *chunkRepository) loadCatalog(ctx context.Context) (model.ChunkCatalog, error) {
	db := r.db.WithContext(ctx)

	var rows []model.RegionData
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load region data: %w", err)
	}
	var nationalIDs []string
	if err := db.Model(&model.NationalDocument{}).Pluck("document_id", &nationalIDs).Error; err != nil {
		return nil, fmt.Errorf("load national documents: %w", err)
	}
	national := make(map[string]struct{}, len(nationalIDs))
	for _, id := range nationalIDs {
		national[id] = struct{}{}
	}
	return BuildCatalog(rows, national), nil
}

// BuildCatalog 将 region_data 行分组为 区域 -> 文档 -> 标题 的目录。
// 属于全国性文档的行归入 "nacional"，切片文本只保留前 50 个字符。
func BuildCatalog(rows []model.RegionData, national map[string]struct{}) model.ChunkCatalog {
	catalog := model.ChunkCatalog{}
	for _, row := range rows {
		region := row.Region
		if _, ok := national[row.DocumentID]; ok {
			region = model.NationalRegion
		}
		docs, ok := catalog[region]
		if !ok {
			docs = map[string]map[string]*model.CatalogSection{}
			catalog[region] = docs
		}
		titles, ok := docs[row.Document]
		if !ok {
			titles = map[string]*model.CatalogSection{}
			docs[row.Document] = titles
		}
		section, ok := titles[row.Title]
		if !ok {
			section = &model.CatalogSection{Subtitle: row.Subtitle}
			titles[row.Title] = section
		}
		section.Chunks = append(section.Chunks, model.CatalogChunk{
			ID:    row.ID,
			Chunk: row.Chunk,
			Text:  preview(row.Text, catalogPreviewRunes),
		})
	}
	return catalog
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
