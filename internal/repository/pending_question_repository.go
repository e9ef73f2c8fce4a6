package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"labot-admin-go/internal/model"
)

// PendingFilter 过滤待审核的用户提问。Page 从 0 开始。
type PendingFilter struct {
	OnlyLegislative bool
	APIType         string
	Page            int
	Size            int
}

// PendingQuestionRepository 列出未命中缓存且尚未被缓存的用户提问。
type PendingQuestionRepository interface {
	List(ctx context.Context, filter PendingFilter) ([]model.PendingQuestion, error)
}

type pendingQuestionRepository struct {
	db *gorm.DB
}

// NewPendingQuestionRepository 创建一个新的 PendingQuestionRepository 实例。
func NewPendingQuestionRepository(db *gorm.DB) PendingQuestionRepository {
	return &pendingQuestionRepository{db: db}
}

// jsonExprs 是各方言下读取 message_data.data 的表达式。
type jsonExprs struct {
	cacheHit   string
	classified string
}

func exprsFor(dialect string) jsonExprs {
	switch dialect {
	case "postgres":
		return jsonExprs{
			cacheHit:   "COALESCE((message_data.data -> 'cache' ->> 'hit')::boolean, FALSE)",
			classified: "(message_data.data ->> 'classified_question')",
		}
	case "mysql":
		return jsonExprs{
			cacheHit:   "COALESCE(JSON_UNQUOTE(JSON_EXTRACT(message_data.data, '$.cache.hit')) = 'true', FALSE)",
			classified: "JSON_UNQUOTE(JSON_EXTRACT(message_data.data, '$.classified_question'))",
		}
	default:
		return jsonExprs{
			cacheHit:   "(COALESCE(json_extract(message_data.data, '$.cache.hit'), 0) = 1)",
			classified: "json_extract(message_data.data, '$.classified_question')",
		}
	}
}

func (r *pendingQuestionRepository) List(ctx context.Context, filter PendingFilter) ([]model.PendingQuestion, error) {
	db := r.db.WithContext(ctx)
	exprs := exprsFor(db.Dialector.Name())
	// 没有分类结果的提问视为非法规类。
	legislative := fmt.Sprintf("(COALESCE(%s, 'N/A') NOT LIKE '%%N/A%%')", exprs.classified)

	cachedQuestions := db.Model(&model.CacheGroup{}).Select("TRIM(question)")

	query := db.Table("message_data").
		Select(`message_data.id AS id,
			questions.id AS question_id,
			answers.id AS response_id,
			questions.content AS question,
			answers.content AS response,
			users.email AS user_email,
			questions.topic_id AS topic_id,
			topics.title AS topic_title,
			questions.api_type AS api_type,
			` + legislative + ` AS legislative,
			message_data.created_at AS created_at,
			message_data.updated_at AS updated_at`).
		Joins("JOIN messages AS questions ON questions.id = message_data.question_id").
		Joins("JOIN messages AS answers ON answers.id = message_data.response_id").
		Joins("JOIN users ON users.id = questions.user_id").
		Joins("LEFT JOIN topics ON topics.id = questions.topic_id").
		Where("NOT " + exprs.cacheHit).
		Where("TRIM(questions.content) NOT IN (?)", cachedQuestions).
		Where("questions.content IS NOT NULL OR answers.content IS NOT NULL")
	if filter.OnlyLegislative {
		query = query.Where(legislative)
	}
	if filter.APIType != "" {
		query = query.Where("questions.api_type = ?", filter.APIType)
	}

	page := filter.Page
	if page < 0 {
		page = 0
	}
	var rows []model.PendingQuestion
	err := query.
		Order("message_data.id DESC").
		Limit(filter.Size).
		Offset(page * filter.Size).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending questions: %w", err)
	}
	return rows, nil
}
