package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"labot-admin-go/internal/model"
)

// CatalogRepository 提供主题、备考方向与消息类型等只读目录。
type CatalogRepository interface {
	ListTopics(ctx context.Context, kbFolderID int) ([]model.Topic, error)
	// FindTopicByTitle 查找指定知识库目录下的主题，不存在时返回 nil。
	FindTopicByTitle(ctx context.Context, title string, kbFolderID int) (*model.Topic, error)
	ListExamTracks(ctx context.Context) ([]model.ExamTrack, error)
	ListMessageTypes(ctx context.Context) ([]string, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建一个新的 CatalogRepository 实例。
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListTopics(ctx context.Context, kbFolderID int) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.db.WithContext(ctx).
		Where("kb_folder_id = ?", kbFolderID).
		Order("id ASC").
		Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (r *catalogRepository) FindTopicByTitle(ctx context.Context, title string, kbFolderID int) (*model.Topic, error) {
	var topic model.Topic
	err := r.db.WithContext(ctx).
		Where("title = ? AND kb_folder_id = ?", title, kbFolderID).
		First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find topic %q: %w", title, err)
	}
	return &topic, nil
}

func (r *catalogRepository) ListExamTracks(ctx context.Context) ([]model.ExamTrack, error) {
	var tracks []model.ExamTrack
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list exam tracks: %w", err)
	}
	return tracks, nil
}

func (r *catalogRepository) ListMessageTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("api_type IS NOT NULL AND api_type <> ''").
		Distinct().
		Order("api_type ASC").
		Pluck("api_type", &types).Error
	if err != nil {
		return nil, fmt.Errorf("list message types: %w", err)
	}
	return types, nil
}
