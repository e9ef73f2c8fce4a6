package model

import "time"

// ReviewItemKind 区分审核列表中的两种条目。
type ReviewItemKind string

const (
	ReviewItemCached          ReviewItemKind = "cached"
	ReviewItemPendingQuestion ReviewItemKind = "pending_question"
)

// PendingQuestion 是尚未进入缓存的用户提问及其当时得到的回答。
type PendingQuestion struct {
	ID          uint      `json:"id"`
	QuestionID  uint      `json:"question_id"`
	ResponseID  uint      `json:"response_id"`
	Question    string    `json:"question"`
	Response    string    `json:"response"`
	UserEmail   string    `json:"user_email"`
	TopicID     *int      `json:"topic_id"`
	TopicTitle  string    `json:"topic_title"`
	Region      string    `json:"region"`
	APIType     string    `json:"api_type"`
	Legislative bool      `json:"legislative"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewItem 是带判别字段的联合类型：Kind 决定 Cached 与 Pending 中哪一个有值。
type ReviewItem struct {
	Kind    ReviewItemKind   `json:"kind"`
	Cached  *CacheGroup      `json:"cached,omitempty"`
	Pending *PendingQuestion `json:"pending,omitempty"`
}

func CachedItem(g *CacheGroup) ReviewItem {
	return ReviewItem{Kind: ReviewItemCached, Cached: g}
}

func PendingItem(q *PendingQuestion) ReviewItem {
	return ReviewItem{Kind: ReviewItemPendingQuestion, Pending: q}
}

// CreatedAt 返回条目的创建时间，用于合并排序。
func (r ReviewItem) CreatedAt() time.Time {
	switch r.Kind {
	case ReviewItemCached:
		if r.Cached != nil {
			return r.Cached.CreatedAt
		}
	case ReviewItemPendingQuestion:
		if r.Pending != nil {
			return r.Pending.CreatedAt
		}
	}
	return time.Time{}
}
