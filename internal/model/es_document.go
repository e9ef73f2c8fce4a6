package model

// CacheGroupDocument 是缓存组在 Elasticsearch 中的文档结构，用于相似问题检索。
type CacheGroupDocument struct {
	GroupID   uint      `json:"group_id"`
	Question  string    `json:"question"`
	ExamTrack string    `json:"oposicion"`
	Regions   []string  `json:"regions"`
	Topics    []string  `json:"topics"`
	Vector    []float32 `json:"vector"`
}

// SimilarQuestion 是相似检索返回给前端的结果。
type SimilarQuestion struct {
	GroupID  uint     `json:"groupId"`
	Question string   `json:"question"`
	Regions  []string `json:"regions"`
	Score    float64  `json:"score"`
}
