package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"labot-admin-go/internal/model"
)

// HistoricalQuestionRepository 查找曾经提出过同一问题的用户。
type HistoricalQuestionRepository interface {
	// FindByQuestion 返回去除首尾空白后与 question 完全相同（区分大小写）的历史提问。
	FindByQuestion(ctx context.Context, question string) ([]model.HistoricalQuestion, error)
}

type historicalQuestionRepository struct {
	db *gorm.DB
}

// NewHistoricalQuestionRepository 创建一个新的 HistoricalQuestionRepository 实例。
func NewHistoricalQuestionRepository(db *gorm.DB) HistoricalQuestionRepository {
	return &historicalQuestionRepository{db: db}
}

// likeEscaper 转义 LIKE 通配符，'!' 作为转义符在 postgres、mysql 与 sqlite 中含义一致。
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FindByQuestion 先用 LIKE 缩小候选范围，再在 Go 中按 NormalizeQuestion 精确比较（换行与制表符同样被去除）。
func (r *historicalQuestionRepository) FindByQuestion(ctx context.Context, question string) ([]model.HistoricalQuestion, error) {
	question = model.NormalizeQuestion(question)
	if question == "" {
		return nil, nil
	}
	var candidates []model.HistoricalQuestion
	err := r.db.WithContext(ctx).
		Table("messages").
		Select(`messages.id AS message_id,
			messages.user_id AS user_id,
			messages.content AS content,
			messages.created_at AS created_at,
			messages.topic_id AS topic_id,
			topics.title AS topic_title`).
		Joins("JOIN topics ON topics.id = messages.topic_id").
		Where("messages.content LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(question)+"%").
		Order("messages.created_at ASC, messages.id ASC").
		Scan(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("find historical questions: %w", err)
	}

	rows := candidates[:0]
	for _, row := range candidates {
		if model.NormalizeQuestion(row.Content) == question {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
