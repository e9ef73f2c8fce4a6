package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"labot-admin-go/internal/model"
	"labot-admin-go/internal/testutil"
)

func seedExchange(t *testing.T, db *gorm.DB, question, answer, apiType, data string) model.MessageData {
	t.Helper()
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	q := testutil.AskedQuestion(t, db, 1, "Tema 1", question, at)
	require.NoError(t, db.Model(q).Update("api_type", apiType).Error)
	a := model.Message{Content: answer, UserID: 1, Type: "answer", APIType: apiType, CreatedAt: at}
	require.NoError(t, db.Create(&a).Error)
	md := model.MessageData{QuestionID: q.ID, ResponseID: a.ID, Data: datatypes.JSON(data)}
	require.NoError(t, db.Create(&md).Error)
	return md
}

func TestPendingQuestionsExcludeCachedAndHits(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.ChatUser{ID: 1, Email: "ana@example.com"}).Error)

	legal := seedExchange(t, db, "¿Cuántas plazas hay?", "Hay 100.", "qa", `{"classified_question":"LOE art. 3"}`)
	generic := seedExchange(t, db, "Hola", "¡Hola!", "qa", `{"classified_question":"N/A"}`)
	seedExchange(t, db, "Pregunta con hit", "r", "qa", `{"cache":{"hit":true}}`)
	seedExchange(t, db, "Ya cacheada", "r", "qa", `{}`)
	other := seedExchange(t, db, "Unidad", "r", "unidades_didacticas", `{}`)

	cacheRepo := NewCacheGroupRepository(db, "infantil")
	_, err := cacheRepo.Upsert(ctx, UpsertParams{
		Question:    "Ya cacheada",
		AnswerPatch: model.AnswerByRegion{"nacional": "x"},
		Embedding:   testutil.Embedding(0.3),
	})
	require.NoError(t, err)

	repo := NewPendingQuestionRepository(db)

	all, err := repo.List(ctx, PendingFilter{Size: 50})
	require.NoError(t, err)
	ids := make([]uint, 0, len(all))
	for _, q := range all {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []uint{other.ID, generic.ID, legal.ID}, ids)
	last := all[len(all)-1]
	assert.Equal(t, "¿Cuántas plazas hay?", last.Question)
	assert.Equal(t, "Hay 100.", last.Response)
	assert.Equal(t, "ana@example.com", last.UserEmail)
	assert.Equal(t, "Tema 1", last.TopicTitle)
	assert.True(t, last.Legislative)

	qa, err := repo.List(ctx, PendingFilter{APIType: "qa", OnlyLegislative: true, Size: 50})
	require.NoError(t, err)
	require.Len(t, qa, 1)
	assert.Equal(t, legal.ID, qa[0].ID)

	paged, err := repo.List(ctx, PendingFilter{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, legal.ID, paged[0].ID)
}
