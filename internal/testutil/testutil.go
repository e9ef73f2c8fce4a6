// Package testutil 提供测试用的内存数据库与通用夹具。
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"labot-admin-go/internal/model"
)

var dbSeq atomic.Int64

// DB 打开一个独立的内存 SQLite 数据库并迁移全部表。
// 连接池限制为 1，事务内的查询必须使用事务句柄。
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	models := append(model.CacheTables(), model.ChatTables()...)
	models = append(models, model.DataTables()...)
	if err := db.AutoMigrate(models...); err != nil {
		tb.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// Embedding 返回一个维度为 1536 的确定性向量。
func Embedding(seed float32) []float32 {
	v := make([]float32, 1536)
	for i := range v {
		v[i] = seed
	}
	return v
}

// AskedQuestion 插入一条历史提问（topic + message），返回 message。
func AskedQuestion(tb testing.TB, db *gorm.DB, userID uint, topicTitle, content string, at time.Time) *model.Message {
	tb.Helper()

	topic := model.Topic{Title: topicTitle, KBFolderID: 5}
	if err := db.Where("title = ?", topicTitle).FirstOrCreate(&topic).Error; err != nil {
		tb.Fatalf("failed to create topic: %v", err)
	}
	topicID := int(topic.ID)
	msg := model.Message{
		TopicID:   &topicID,
		Content:   content,
		UserID:    userID,
		Type:      "question",
		APIType:   "qa",
		CreatedAt: at,
	}
	if err := db.Create(&msg).Error; err != nil {
		tb.Fatalf("failed to create message: %v", err)
	}
	return &msg
}
