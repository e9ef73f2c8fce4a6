package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"labot-admin-go/pkg/log"
)

// RegionResolver 根据主题 ID 解析出提问所属的区域。未知主题返回空字符串。
type RegionResolver interface {
	RegionForTopic(ctx context.Context, topicID int) (string, error)
}

type sqlRegionResolver struct {
	db          *gorm.DB
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRegionResolver 创建基于 search_oposicion_by_topic_id 函数的解析器。
// redisClient 为 nil 时每次都查询数据库。
func NewRegionResolver(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) RegionResolver {
	return &sqlRegionResolver{db: db, redisClient: redisClient, ttl: ttl}
}

func regionCacheKey(topicID int) string {
	return fmt.Sprintf("labot:topic:%d:region", topicID)
}

func (r *sqlRegionResolver) RegionForTopic(ctx context.Context, topicID int) (string, error) {
	if r.redisClient != nil {
		region, err := r.redisClient.Get(ctx, regionCacheKey(topicID)).Result()
		if err == nil {
			return region, nil
		}
		if err != redis.Nil {
			log.Warnf("[RegionResolver] 读取缓存失败, topic_id: %d, error: %v", topicID, err)
		}
	}

	var region string
	err := r.db.WithContext(ctx).
		Raw("SELECT region FROM search_oposicion_by_topic_id(?)", topicID).
		Scan(&region).Error
	if err != nil {
		return "", fmt.Errorf("resolve region of topic %d: %w", topicID, err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Set(ctx, regionCacheKey(topicID), region, r.ttl).Err(); err != nil {
			log.Warnf("[RegionResolver] 写入缓存失败, topic_id: %d, error: %v", topicID, err)
		}
	}
	return region, nil
}

// StaticRegionResolver 使用固定的 主题 -> 区域 映射，供本地开发（SQLite）使用。
type StaticRegionResolver map[int]string

func (s StaticRegionResolver) RegionForTopic(_ context.Context, topicID int) (string, error) {
	return s[topicID], nil
}
