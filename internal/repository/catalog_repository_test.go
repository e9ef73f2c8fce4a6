package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"labot-admin-go/internal/model"
	"labot-admin-go/internal/testutil"
)

func TestBuildCatalogGroupsNationalDocuments(t *testing.T) {
	long := strings.Repeat("á", 80)
	rows := []model.RegionData{
		{ID: "1", DocumentID: "boe-1", Document: "LOE", Title: "Título I", Subtitle: "Principios", Chunk: "art. 1", Region: "madrid", Text: long},
		{ID: "2", DocumentID: "boe-1", Document: "LOE", Title: "Título I", Subtitle: "Principios", Chunk: "art. 2", Region: "andalucia", Text: "corto"},
		{ID: "3", DocumentID: "bocm-7", Document: "Decreto 7", Title: "Cap. 1", Subtitle: "Objeto", Chunk: "art. 1", Region: "madrid", Text: "texto"},
	}

	catalog := BuildCatalog(rows, map[string]struct{}{"boe-1": {}})

	assert.Equal(t, []string{"madrid", "nacional"}, catalog.Regions())
	section := catalog["nacional"]["LOE"]["Título I"]
	require.NotNil(t, section)
	assert.Equal(t, "Principios", section.Subtitle)
	require.Len(t, section.Chunks, 2)
	assert.Equal(t, strings.Repeat("á", 50), section.Chunks[0].Text)
	assert.Equal(t, "corto", section.Chunks[1].Text)
	assert.Equal(t, "art. 1", catalog["madrid"]["Decreto 7"]["Cap. 1"].Chunks[0].Chunk)
}

func TestChunkRepositoryWithoutRedis(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.RegionData{ID: "r1", DocumentID: "d1", Document: "Doc", Title: "T", Region: "madrid", Text: "x"}).Error)
	require.NoError(t, db.Create(&model.Subchunk{
		ID:             "s1",
		Text:           "Artículo 1. Objeto.",
		ItemIdentifier: datatypes.NewJSONType(model.SubchunkIdentifier{DocumentID: "d1", Title: "T", Subtitle: "S"}),
	}).Error)

	repo := NewChunkRepository(db, nil, time.Hour)

	catalog, err := repo.Catalog(ctx)
	require.NoError(t, err)
	assert.Contains(t, catalog, "madrid")

	chunks, err := repo.FindSubchunks(ctx, []string{"s1", "missing"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "d1", chunks[0].ItemIdentifier.Data().DocumentID)

	none, err := repo.FindSubchunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalogRepositoryLookups(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&[]model.Topic{
		{Title: "Tema 1", KBFolderID: 5, Summary: "Resumen"},
		{Title: "Tema 2", KBFolderID: 5},
		{Title: "Otro", KBFolderID: 9},
	}).Error)
	require.NoError(t, db.Create(&model.ExamTrack{Name: "infantil", Title: "Educación Infantil", PineconeID: "oposicion_infantil"}).Error)
	for _, apiType := range []string{"qa", "unidades_didacticas", "qa"} {
		require.NoError(t, db.Create(&model.Message{Content: "x", UserID: 1, APIType: apiType}).Error)
	}
	repo := NewCatalogRepository(db)

	topics, err := repo.ListTopics(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	topic, err := repo.FindTopicByTitle(ctx, "Tema 1", 5)
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Equal(t, "Resumen", topic.Summary)

	missing, err := repo.FindTopicByTitle(ctx, "Otro", 5)
	require.NoError(t, err)
	assert.Nil(t, missing)

	tracks, err := repo.ListExamTracks(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)

	types, err := repo.ListMessageTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"qa", "unidades_didacticas"}, types)
}

func TestRegionResolversStatic(t *testing.T) {
	resolver := StaticRegionResolver{1: "madrid"}
	region, err := resolver.RegionForTopic(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "madrid", region)

	region, err = resolver.RegionForTopic(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, region)
}
