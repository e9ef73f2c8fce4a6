package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"labot-admin-go/internal/apperr"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/pkg/embedding"
	"labot-admin-go/pkg/es"
	"labot-admin-go/pkg/kafka"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/metrics"
	"labot-admin-go/pkg/tasks"
)

const (
	ActionCreate = "create"
	ActionEdit   = "edit"
)

// 面向用户的提示信息。
const (
	MsgCreated          = "Pregunta guardada correctamente"
	MsgEdited           = "Pregunta editada correctamente"
	msgEmbeddingFailed  = "No se pudo calcular el embedding de la pregunta"
	msgSaveFailed       = "No se pudo guardar la pregunta"
	msgNotifyFailedTmpl = "La respuesta se ha guardado, pero fallaron %d de %d notificaciones"
	msgSimilarEmptyText = "El texto de búsqueda no puede estar vacío"
)

// SaveCacheGroupInput 是创建或编辑缓存组的输入。
type SaveCacheGroupInput struct {
	Question         string
	Answers          model.AnswerByRegion
	Chunks           model.ChunksByRegion
	Topics           []string
	ExamTrack        string
	RelatedQuestions []uint
	ActorMail        string
}

// SaveResult 是一次保存的结果。Group 是提交后重新读取的缓存组。
type SaveResult struct {
	Action string            `json:"action"`
	Group  *model.CacheGroup `json:"group"`
	Report *ReconcileReport  `json:"reconcile"`
}

// CacheGroupService 接口定义了缓存组的业务操作。
type CacheGroupService interface {
	// Create 按问题文本创建或合并缓存组。
	Create(ctx context.Context, in SaveCacheGroupInput) (*SaveResult, error)
	// Edit 按 ID 编辑缓存组。
	// 通知失败时缓存组已经提交，此时同时返回结果和 Upstream 错误。
	Edit(ctx context.Context, id uint, in SaveCacheGroupInput) (*SaveResult, error)
	Get(ctx context.Context, id uint) (*model.CacheGroup, error)
	List(ctx context.Context, search string, page int) ([]model.CacheGroup, error)
	SimilarQuestions(ctx context.Context, text string, k int) ([]model.SimilarQuestion, error)
}

type cacheGroupService struct {
	repo       repository.CacheGroupRepository
	embedder   embedding.Client
	reconciler ReconcileService
	publisher  kafka.Publisher
	index      es.CacheGroupIndex
	pageSize   int
	similarK   int
}

// NewCacheGroupService 创建一个新的 CacheGroupService 实例。
func NewCacheGroupService(repo repository.CacheGroupRepository, embedder embedding.Client, reconciler ReconcileService,
	publisher kafka.Publisher, index es.CacheGroupIndex, pageSize, similarK int) CacheGroupService {
	if pageSize <= 0 {
		pageSize = 50
	}
	if similarK <= 0 {
		similarK = 5
	}
	return &cacheGroupService{
		repo:       repo,
		embedder:   embedder,
		reconciler: reconciler,
		publisher:  publisher,
		index:      index,
		pageSize:   pageSize,
		similarK:   similarK,
	}
}

func (s *cacheGroupService) Create(ctx context.Context, in SaveCacheGroupInput) (*SaveResult, error) {
	return s.save(ctx, ActionCreate, 0, in)
}

func (s *cacheGroupService) Edit(ctx context.Context, id uint, in SaveCacheGroupInput) (*SaveResult, error) {
	return s.save(ctx, ActionEdit, id, in)
}

func (s *cacheGroupService) save(ctx context.Context, action string, id uint, in SaveCacheGroupInput) (*SaveResult, error) {
	question := model.NormalizeQuestion(in.Question)
	if question == "" {
		metrics.CacheGroupSavesTotal.WithLabelValues(action, "invalid").Inc()
		return nil, apperr.Validation("La pregunta no puede estar vacía")
	}
	log.Infof("[CacheGroupService] 开始保存缓存组, action: %s, id: %d, regions: %v", action, id, sortedKeys(in.Answers))

	// 1. 事务外计算向量，失败时不写入任何数据
	vector, err := s.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		log.Errorf("[CacheGroupService] 计算问题向量失败: %v", err)
		metrics.CacheGroupSavesTotal.WithLabelValues(action, "upstream_error").Inc()
		return nil, apperr.Upstream(msgEmbeddingFailed, err)
	}

	params := repository.UpsertParams{
		Question:    question,
		AnswerPatch: in.Answers,
		ExamTrack:   in.ExamTrack,
		Topics:      in.Topics,
		Embedding:   vector,
	}

	// 2. 缓存组、切片与关联提问在同一个事务中保存
	var groupID uint
	err = s.repo.Transaction(ctx, func(repo repository.CacheGroupRepository) error {
		var group *model.CacheGroup
		var txErr error
		if action == ActionEdit {
			group, txErr = repo.Update(ctx, id, params)
		} else {
			group, txErr = repo.Upsert(ctx, params)
		}
		if txErr != nil {
			return txErr
		}
		if txErr = repo.ReplaceChunks(ctx, group.ID, in.Chunks); txErr != nil {
			return txErr
		}
		if txErr = repo.LinkRelatedQuestions(ctx, group.ID, in.RelatedQuestions); txErr != nil {
			return txErr
		}
		groupID = group.ID
		return nil
	})
	if err != nil {
		log.Errorf("[CacheGroupService] 保存缓存组失败, action: %s, error: %v", action, err)
		metrics.CacheGroupSavesTotal.WithLabelValues(action, apperr.KindOf(err).String()).Inc()
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, apperr.Internal(msgSaveFailed, err)
		}
		return nil, err
	}
	log.Infof("[CacheGroupService] 缓存组 %d 已提交", groupID)

	// 3. 提交后重新读取一次，所有提问者看到的都是已提交的答案
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal(msgSaveFailed, err)
	}
	result := &SaveResult{Action: action, Group: group}

	report, reconcileErr := s.reconciler.Reconcile(ctx, group)
	result.Report = report

	s.afterCommit(ctx, result, vector, in.ActorMail)

	if reconcileErr != nil {
		metrics.CacheGroupSavesTotal.WithLabelValues(action, "notification_failed").Inc()
		if report == nil {
			log.Errorf("[CacheGroupService] 查找历史提问失败, group_id: %d, error: %v", groupID, reconcileErr)
			return result, apperr.Upstream("La respuesta se ha guardado, pero no se pudo notificar a los usuarios", reconcileErr)
		}
		attempted := report.Notified + len(report.Failures)
		return result, apperr.Upstream(fmt.Sprintf(msgNotifyFailedTmpl, len(report.Failures), attempted), reconcileErr)
	}
	metrics.CacheGroupSavesTotal.WithLabelValues(action, "ok").Inc()
	return result, nil
}

// afterCommit 发布领域事件并刷新相似检索索引，失败只记录日志。
func (s *cacheGroupService) afterCommit(ctx context.Context, result *SaveResult, vector []float32, actor string) {
	group := result.Group
	regions := sortedKeys(group.Answers())

	event := tasks.CacheGroupSavedEvent{
		GroupID:   group.ID,
		Action:    result.Action,
		Question:  group.Question,
		Regions:   regions,
		ActorMail: actor,
		SavedAt:   time.Now(),
	}
	if result.Report != nil {
		event.Notified = result.Report.Notified
		event.Failed = len(result.Report.Failures)
	}
	if err := s.publisher.PublishCacheGroupSaved(ctx, event); err != nil {
		log.Warnf("[CacheGroupService] 发布保存事件失败, group_id: %d, error: %v", group.ID, err)
	}

	doc := model.CacheGroupDocument{
		GroupID:   group.ID,
		Question:  group.Question,
		ExamTrack: group.ExamTrack,
		Regions:   regions,
		Topics:    []string(group.Topics),
		Vector:    vector,
	}
	if err := s.index.IndexCacheGroup(ctx, doc); err != nil {
		log.Warnf("[CacheGroupService] 更新相似检索索引失败, group_id: %d, error: %v", group.ID, err)
	}
}

func (s *cacheGroupService) Get(ctx context.Context, id uint) (*model.CacheGroup, error) {
	return s.repo.FindByID(ctx, id)
}

// List 返回第 page 页（从 1 开始）的缓存组。
func (s *cacheGroupService) List(ctx context.Context, search string, page int) ([]model.CacheGroup, error) {
	if page < 1 {
		page = 1
	}
	return s.repo.List(ctx, strings.TrimSpace(search), page-1, s.pageSize)
}

func (s *cacheGroupService) SimilarQuestions(ctx context.Context, text string, k int) ([]model.SimilarQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(msgSimilarEmptyText)
	}
	if k <= 0 {
		k = s.similarK
	}
	vector, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, apperr.Upstream(msgEmbeddingFailed, err)
	}
	results, err := s.index.SearchSimilar(ctx, vector, k)
	if err != nil {
		return nil, apperr.Upstream("La búsqueda de preguntas similares ha fallado", err)
	}
	return results, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
