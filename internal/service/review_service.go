package service

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"labot-admin-go/internal/apperr"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/pkg/log"
)

// 审核列表的展示范围。
const (
	ShowingAll       = "all"
	ShowingCached    = "cached"
	ShowingNonCached = "non-cached"
)

// ReviewFilter 是审核列表的查询条件。Page 从 1 开始。
type ReviewFilter struct {
	Showing         string
	Page            int
	OnlyLegislative bool
	APIType         string
	Search          string
}

// ReviewService 把已缓存的问题和待处理的用户提问合并成一个列表。
type ReviewService interface {
	List(ctx context.Context, filter ReviewFilter) ([]model.ReviewItem, error)
}

type reviewService struct {
	cacheRepo   repository.CacheGroupRepository
	pendingRepo repository.PendingQuestionRepository
	resolver    repository.RegionResolver
	pageSize    int
}

// NewReviewService 创建一个新的 ReviewService 实例。
func NewReviewService(cacheRepo repository.CacheGroupRepository, pendingRepo repository.PendingQuestionRepository,
	resolver repository.RegionResolver, pageSize int) ReviewService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &reviewService{cacheRepo: cacheRepo, pendingRepo: pendingRepo, resolver: resolver, pageSize: pageSize}
}

// List 读取同一页码的缓存组与待处理提问，按创建时间倒序合并。
func (s *reviewService) List(ctx context.Context, filter ReviewFilter) ([]model.ReviewItem, error) {
	showing := strings.TrimSpace(filter.Showing)
	if showing == "" {
		showing = ShowingAll
	}
	if showing != ShowingAll && showing != ShowingCached && showing != ShowingNonCached {
		return nil, apperr.Validation("Valor de 'showing' no válido")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var groups []model.CacheGroup
	var pending []model.PendingQuestion
	g, gctx := errgroup.WithContext(ctx)
	if showing != ShowingNonCached {
		g.Go(func() error {
			var err error
			groups, err = s.cacheRepo.List(gctx, filter.Search, page-1, s.pageSize)
			return err
		})
	}
	if showing != ShowingCached {
		g.Go(func() error {
			var err error
			pending, err = s.pendingRepo.List(gctx, repository.PendingFilter{
				OnlyLegislative: filter.OnlyLegislative,
				APIType:         filter.APIType,
				Page:            page - 1,
				Size:            s.pageSize,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]model.ReviewItem, 0, len(groups)+len(pending))
	for i := range groups {
		items = append(items, model.CachedItem(&groups[i]))
	}
	for i := range pending {
		s.fillRegion(ctx, &pending[i])
		items = append(items, model.PendingItem(&pending[i]))
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreatedAt().After(items[b].CreatedAt())
	})
	return items, nil
}

// fillRegion 解析提问所属区域，失败时保持为空。
func (s *reviewService) fillRegion(ctx context.Context, q *model.PendingQuestion) {
	if q.TopicID == nil || q.Region != "" {
		return
	}
	region, err := s.resolver.RegionForTopic(ctx, *q.TopicID)
	if err != nil {
		log.Warnf("[ReviewService] 解析提问 %d 的区域失败: %v", q.ID, err)
		return
	}
	q.Region = region
}
