package service

import (
	"context"
	"sort"

	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
)

// CatalogService 提供前端选择器使用的只读目录。
type CatalogService interface {
	Topics(ctx context.Context) ([]model.Topic, error)
	ExamTracks(ctx context.Context) ([]model.ExamTrack, error)
	MessageTypes(ctx context.Context) ([]string, error)
	ChunkCatalog(ctx context.Context) (model.ChunkCatalog, error)
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
	chunkRepo   repository.ChunkRepository
	kbFolderID  int
}

// NewCatalogService 创建一个新的 CatalogService 实例。
func NewCatalogService(catalogRepo repository.CatalogRepository, chunkRepo repository.ChunkRepository, kbFolderID int) CatalogService {
	return &catalogService{catalogRepo: catalogRepo, chunkRepo: chunkRepo, kbFolderID: kbFolderID}
}

// Topics 返回配置的知识库目录下的主题，按 ID 升序。
func (s *catalogService) Topics(ctx context.Context) ([]model.Topic, error) {
	topics, err := s.catalogRepo.ListTopics(ctx, s.kbFolderID)
	if err != nil {
		return nil, err
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *catalogService) ExamTracks(ctx context.Context) ([]model.ExamTrack, error) {
	return s.catalogRepo.ListExamTracks(ctx)
}

func (s *catalogService) MessageTypes(ctx context.Context) ([]string, error) {
	return s.catalogRepo.ListMessageTypes(ctx)
}

func (s *catalogService) ChunkCatalog(ctx context.Context) (model.ChunkCatalog, error) {
	return s.chunkRepo.Catalog(ctx)
}
