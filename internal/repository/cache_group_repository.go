// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"labot-admin-go/internal/apperr"
	"labot-admin-go/internal/model"
)

// 面向用户的错误信息。
const (
	msgEmptyQuestion     = "La pregunta no puede estar vacía"
	msgGroupNotFound     = "Pregunta cacheada no encontrada"
	msgDuplicateQuestion = "Ya existe otra pregunta cacheada con el mismo texto"
)

// UpsertParams 描述一次保存缓存组的输入。AnswerPatch 会浅合并到已存储的答案上。
type UpsertParams struct {
	Question    string
	AnswerPatch model.AnswerByRegion
	ExamTrack   string
	Topics      []string
	Embedding   []float32
}

// CacheGroupRepository 定义了 cache_group 及其关联表的操作接口。
type CacheGroupRepository interface {
	// Transaction 在同一个数据库事务中执行 fn，fn 返回错误时整体回滚。
	Transaction(ctx context.Context, fn func(repo CacheGroupRepository) error) error
	Upsert(ctx context.Context, params UpsertParams) (*model.CacheGroup, error)
	Update(ctx context.Context, id uint, params UpsertParams) (*model.CacheGroup, error)
	ReplaceChunks(ctx context.Context, groupID uint, chunks model.ChunksByRegion) error
	LinkRelatedQuestions(ctx context.Context, groupID uint, messageDataIDs []uint) error
	FindByID(ctx context.Context, id uint) (*model.CacheGroup, error)
	FindByQuestion(ctx context.Context, question string) (*model.CacheGroup, error)
	List(ctx context.Context, search string, page, size int) ([]model.CacheGroup, error)
}

type cacheGroupRepository struct {
	db           *gorm.DB
	defaultTrack string
}

// NewCacheGroupRepository 创建一个新的 CacheGroupRepository 实例。
// defaultTrack 在请求未指定备考方向时使用。
func NewCacheGroupRepository(db *gorm.DB, defaultTrack string) CacheGroupRepository {
	return &cacheGroupRepository{db: db, defaultTrack: defaultTrack}
}

func (r *cacheGroupRepository) Transaction(ctx context.Context, fn func(repo CacheGroupRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&cacheGroupRepository{db: tx, defaultTrack: r.defaultTrack})
	})
}

// Upsert 按问题文本插入或更新缓存组。
func (r *cacheGroupRepository) Upsert(ctx context.Context, params UpsertParams) (*model.CacheGroup, error) {
	question := model.NormalizeQuestion(params.Question)
	if question == "" {
		return nil, apperr.Validation(msgEmptyQuestion)
	}
	db := r.db.WithContext(ctx)

	existing, err := r.findByHash(db, model.QuestionHash(question))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, r.applyPatch(db, existing, question, params)
	}

	group := &model.CacheGroup{
		Question:     question,
		QuestionHash: model.QuestionHash(question),
		Status:       model.StatusEnabled,
	}
	r.fill(group, params)
	group.SetAnswers(model.AnswerByRegion{}.Merge(params.AnswerPatch))

	res := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "question_hash"}}, DoNothing: true}).
		Create(group)
	if res.Error != nil {
		return nil, fmt.Errorf("create cache group: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return group, nil
	}

	// 并发插入了同一问题，退回到合并路径。
	existing, err = r.findByHash(db, group.QuestionHash)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("cache group %q vanished after conflicting insert", question)
	}
	return existing, r.applyPatch(db, existing, question, params)
}

// Update 按 ID 编辑缓存组，问题文本可以被修改。
func (r *cacheGroupRepository) Update(ctx context.Context, id uint, params UpsertParams) (*model.CacheGroup, error) {
	question := model.NormalizeQuestion(params.Question)
	if question == "" {
		return nil, apperr.Validation(msgEmptyQuestion)
	}
	db := r.db.WithContext(ctx)

	var group model.CacheGroup
	if err := db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(msgGroupNotFound)
		}
		return nil, fmt.Errorf("find cache group %d: %w", id, err)
	}
	owner, err := r.findByHash(db, model.QuestionHash(question))
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.ID != group.ID {
		return nil, apperr.Conflict(msgDuplicateQuestion, fmt.Errorf("question owned by cache group %d", owner.ID))
	}
	if err := r.applyPatch(db, &group, question, params); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *cacheGroupRepository) fill(group *model.CacheGroup, params UpsertParams) {
	track := params.ExamTrack
	if track == "" {
		track = r.defaultTrack
	}
	topics := params.Topics
	if topics == nil {
		topics = []string{}
	}
	group.ExamTrack = track
	group.Topics = datatypes.NewJSONSlice(topics)
	group.Embedding = model.NewEmbedding(params.Embedding)
}

func (r *cacheGroupRepository) applyPatch(db *gorm.DB, group *model.CacheGroup, question string, params UpsertParams) error {
	group.Question = question
	group.QuestionHash = model.QuestionHash(question)
	group.SetAnswers(group.Answers().Merge(params.AnswerPatch))
	r.fill(group, params)

	if err := db.Omit(clause.Associations).Save(group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict(msgDuplicateQuestion, err)
		}
		return fmt.Errorf("update cache group %d: %w", group.ID, err)
	}
	return nil
}

func (r *cacheGroupRepository) findByHash(db *gorm.DB, hash string) (*model.CacheGroup, error) {
	var group model.CacheGroup
	err := db.Where("question_hash = ?", hash).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cache group by question: %w", err)
	}
	return &group, nil
}

// ReplaceChunks 用 chunks 完整替换缓存组的切片关联。chunks 为空时不做任何修改。
func (r *cacheGroupRepository) ReplaceChunks(ctx context.Context, groupID uint, chunks model.ChunksByRegion) error {
	if len(chunks) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	if err := db.Where("group_id = ?", groupID).Delete(&model.CacheGroupChunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks of group %d: %w", groupID, err)
	}

	regions := make([]string, 0, len(chunks))
	for region := range chunks {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var rows []model.CacheGroupChunk
	for _, region := range regions {
		for _, chunkID := range chunks[region] {
			rows = append(rows, model.CacheGroupChunk{GroupID: groupID, ChunkID: chunkID, Region: region})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("insert chunks of group %d: %w", groupID, err)
	}
	return nil
}

// LinkRelatedQuestions 关联缓存组与用户提问，已存在的关联会被跳过。
func (r *cacheGroupRepository) LinkRelatedQuestions(ctx context.Context, groupID uint, messageDataIDs []uint) error {
	seen := make(map[uint]struct{}, len(messageDataIDs))
	var rows []model.CacheGroupRelatedQuestion
	for _, id := range messageDataIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, model.CacheGroupRelatedQuestion{GroupID: groupID, MessageDataID: id})
	}
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "message_data_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("link related questions of group %d: %w", groupID, err)
	}
	return nil
}

// FindByID 根据 ID 查找缓存组，并预加载切片与关联提问。
func (r *cacheGroupRepository) FindByID(ctx context.Context, id uint) (*model.CacheGroup, error) {
	var group model.CacheGroup
	err := r.db.WithContext(ctx).
		Preload("Chunks").
		Preload("RelatedQuestions").
		First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find cache group %d: %w", id, err)
	}
	return &group, nil
}

// FindByQuestion 根据问题文本查找缓存组，不存在时返回 NotFound。
func (r *cacheGroupRepository) FindByQuestion(ctx context.Context, question string) (*model.CacheGroup, error) {
	group, err := r.findByHash(r.db.WithContext(ctx), model.QuestionHash(question))
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperr.NotFound(msgGroupNotFound)
	}
	return group, nil
}

// List 分页列出缓存组，search 非空时按问题文本做不区分大小写的子串匹配。
// page 从 0 开始，结果按 ID 倒序，不返回向量列。
func (r *cacheGroupRepository) List(ctx context.Context, search string, page, size int) ([]model.CacheGroup, error) {
	if page < 0 {
		page = 0
	}
	query := r.db.WithContext(ctx).
		Omit("question_embeddings").
		Preload("Chunks").
		Preload("RelatedQuestions").
		Order("id DESC").
		Limit(size).
		Offset(page * size)
	if search != "" {
		query = query.Where("LOWER(question) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var groups []model.CacheGroup
	if err := query.Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list cache groups: %w", err)
	}
	return groups, nil
}
