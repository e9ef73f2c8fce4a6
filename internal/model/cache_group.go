// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// NationalRegion 是答案的兜底区域。
const NationalRegion = "nacional"

// StatusEnabled 是缓存组的默认状态。
const StatusEnabled = "enabled"

// AnswerByRegion 保存 区域 -> 答案文本。它的 key 集合即为已回答区域的权威集合。
type AnswerByRegion map[string]string

// Merge 浅合并：patch 中的 key 覆盖或新增，未出现的 key 保留。返回新的 map。
func (a AnswerByRegion) Merge(patch AnswerByRegion) AnswerByRegion {
	merged := make(AnswerByRegion, len(a)+len(patch))
	for region, answer := range a {
		merged[region] = answer
	}
	for region, answer := range patch {
		merged[region] = answer
	}
	return merged
}

// ChunksByRegion 保存 区域 -> 切片 ID 列表。
type ChunksByRegion map[string][]string

// Embedding 是问题的向量表示。PostgreSQL 下使用 pgvector 的 vector(1536)，
// 其它方言以 "[x,y,...]" 文本形式存储。
type Embedding struct {
	pgvector.Vector
}

func NewEmbedding(v []float32) Embedding {
	return Embedding{Vector: pgvector.NewVector(v)}
}

// Scan 实现 sql.Scanner。
func (e *Embedding) Scan(src interface{}) error {
	return e.Vector.Scan(src)
}

// Value 实现 driver.Valuer。
func (e Embedding) Value() (driver.Value, error) {
	return e.Vector.Value()
}

// GormDBDataType 根据方言选择列类型。
func (Embedding) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "vector(1536)"
	case "mysql":
		return "JSON"
	default:
		return "TEXT"
	}
}

// CacheGroup 对应 cache_group 表：一个被缓存的问题及其分区域答案。
type CacheGroup struct {
	ID               uint                               `gorm:"primaryKey;autoIncrement" json:"id"`
	Question         string                             `gorm:"type:text;not null" json:"question"`
	QuestionHash     string                             `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Embedding        Embedding                          `gorm:"column:question_embeddings;not null" json:"-"`
	Answer           datatypes.JSONType[AnswerByRegion] `gorm:"column:answer" json:"answer"`
	Status           string                             `gorm:"type:varchar(32);not null;default:enabled" json:"status"`
	ExamTrack        string                             `gorm:"column:oposicion;type:varchar(64);not null;default:infantil" json:"oposicion"`
	Topics           datatypes.JSONSlice[string]        `gorm:"column:topics" json:"topics"`
	CreatedAt        time.Time                          `json:"created_at"`
	UpdatedAt        time.Time                          `json:"updated_at"`
	Chunks           []CacheGroupChunk                  `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"chunks"`
	RelatedQuestions []CacheGroupRelatedQuestion        `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"related_questions"`
}

func (CacheGroup) TableName() string {
	return "cache_group"
}

// Answers 返回答案 map，永远不为 nil。
func (g *CacheGroup) Answers() AnswerByRegion {
	answers := g.Answer.Data()
	if answers == nil {
		return AnswerByRegion{}
	}
	return answers
}

// SetAnswers 设置答案 map。
func (g *CacheGroup) SetAnswers(answers AnswerByRegion) {
	g.Answer = datatypes.NewJSONType(answers)
}

// ChunksByRegion 将已关联的切片按区域分组。
func (g *CacheGroup) ChunksByRegion() ChunksByRegion {
	out := ChunksByRegion{}
	for _, c := range g.Chunks {
		out[c.Region] = append(out[c.Region], c.ChunkID)
	}
	return out
}

// CacheGroupChunk 对应 cache_group_chunks 表。
type CacheGroupChunk struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	ChunkID   string    `gorm:"type:varchar(255);not null" json:"chunk_id"`
	Region    string    `gorm:"type:varchar(64);not null" json:"region"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CacheGroupChunk) TableName() string {
	return "cache_group_chunks"
}

// CacheGroupRelatedQuestion 对应 cache_group_related_questions 表，
// 将缓存组与它所回答的用户提问（message_data）关联起来。
type CacheGroupRelatedQuestion struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID       uint      `gorm:"not null;uniqueIndex:idx_group_message_data" json:"group_id"`
	MessageDataID uint      `gorm:"column:message_data_id;not null;uniqueIndex:idx_group_message_data" json:"message_data_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CacheGroupRelatedQuestion) TableName() string {
	return "cache_group_related_questions"
}

// NormalizeQuestion 去除首尾空白，作为缓存组的键。
func NormalizeQuestion(question string) string {
	return strings.TrimSpace(question)
}

// QuestionHash 返回规范化问题文本的 sha256 十六进制值，用于唯一索引。
func QuestionHash(question string) string {
	sum := sha256.Sum256([]byte(NormalizeQuestion(question)))
	return hex.EncodeToString(sum[:])
}

// CacheTables 返回本服务拥有的表，用于 AutoMigrate。
func CacheTables() []interface{} {
	return []interface{}{&CacheGroup{}, &CacheGroupChunk{}, &CacheGroupRelatedQuestion{}}
}
