package model

import (
	"time"

	"gorm.io/datatypes"
)

// 以下结构体映射的是聊天应用拥有的表，本服务只读取它们。

// Message 代表聊天应用中的一条消息（用户提问或助手回答）。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TopicID   *int      `gorm:"index" json:"topic_id"`
	Content   string    `gorm:"type:text" json:"content"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"type:varchar(32)" json:"type"`
	APIType   string    `gorm:"column:api_type;type:varchar(64)" json:"api_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageData 将一次提问与它的回答关联起来，Data 中保存分类与缓存命中信息。
type MessageData struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	QuestionID uint           `gorm:"index" json:"question_id"`
	ResponseID uint           `gorm:"index" json:"response_id"`
	Data       datatypes.JSON `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (MessageData) TableName() string {
	return "message_data"
}

// Topic 是知识库中的一个主题（法规专题）。
type Topic struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Title      string `gorm:"type:varchar(255)" json:"title"`
	KBFolderID int    `gorm:"column:kb_folder_id;index" json:"kb_folder_id"`
	Summary    string `gorm:"type:text" json:"summary,omitempty"`
}

func (Topic) TableName() string {
	return "topics"
}

// ExamTrack 对应 oposiciones 表，即备考方向。
type ExamTrack struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Title      string `gorm:"type:varchar(255)" json:"title"`
	PineconeID string `gorm:"column:pinecone_id;type:varchar(255)" json:"pinecone_id"`
}

func (ExamTrack) TableName() string {
	return "oposiciones"
}

// ChatUser 是聊天应用的用户，只用到邮箱。
type ChatUser struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"type:varchar(255)" json:"email"`
}

func (ChatUser) TableName() string {
	return "users"
}

// HistoricalQuestion 是一条与缓存组问题完全相同的历史提问。
// Region 不在查询结果中，由 RegionResolver 根据 TopicID 解析后填入。
type HistoricalQuestion struct {
	MessageID  uint      `json:"message_id"`
	UserID     uint      `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	TopicID    int       `json:"topic_id"`
	TopicTitle string    `json:"topic_title"`
	Region     string    `json:"region"`
}

// ChatTables 返回聊天应用拥有的表，仅在本地开发与测试中迁移。
func ChatTables() []interface{} {
	return []interface{}{&Message{}, &MessageData{}, &Topic{}, &ExamTrack{}, &ChatUser{}}
}
