package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"labot-admin-go/internal/apperr"
	"labot-admin-go/internal/config"
	"labot-admin-go/internal/model"
)

func subchunk(id, documentID, text string) model.Subchunk {
	return model.Subchunk{
		ID:   id,
		Text: text,
		ItemIdentifier: datatypes.NewJSONType(model.SubchunkIdentifier{
			DocumentID: documentID,
			Title:      "Título " + documentID,
			Subtitle:   "Artículo 1",
		}),
	}
}

func newDraftFixture(topics ...model.Topic) (DraftService, *fakeLLM, *fakeChunkRepo) {
	chunks := &fakeChunkRepo{subchunks: map[string]model.Subchunk{
		"c1": subchunk("c1", "LOE", "texto uno"),
		"c2": subchunk("c2", "LOE", "texto dos"),
		"c3": subchunk("c3", "BOJA", "texto tres"),
	}}
	llmClient := &fakeLLM{}
	cfg := config.LLMConfig{
		Prompt: config.LLMPromptConfig{
			System:    "sistema",
			Summarize: "CONTENIDO: {content_docs} PREGUNTA: {q}",
		},
		Generation: config.LLMGenerationConfig{SummaryTemperature: 0.5},
	}
	return NewDraftService(chunks, &fakeCatalogRepo{topics: topics}, llmClient, cfg, 5), llmClient, chunks
}

func TestDraftBoundsConcurrentLLMCalls(t *testing.T) {
	subchunks := map[string]model.Subchunk{}
	byRegion := model.ChunksByRegion{}
	for r := 0; r < 3; r++ {
		region := fmt.Sprintf("region%d", r)
		for i := 0; i < 6; i++ {
			id := fmt.Sprintf("%s-c%d", region, i)
			subchunks[id] = subchunk(id, "LOE", "texto")
			byRegion[region] = append(byRegion[region], id)
		}
	}
	llmClient := &fakeLLM{delay: 5 * time.Millisecond}
	cfg := config.LLMConfig{
		Prompt:     config.LLMPromptConfig{System: "sistema", Summarize: "{content_docs} {q}"},
		Generation: config.LLMGenerationConfig{MaxConcurrency: 2},
	}
	svc := NewDraftService(&fakeChunkRepo{subchunks: subchunks}, &fakeCatalogRepo{}, llmClient, cfg, 5)

	answers, err := svc.Draft(context.Background(), DraftInput{Question: "¿Plazos?", Chunks: byRegion})
	require.NoError(t, err)
	assert.Len(t, answers, 3)
	assert.Len(t, llmClient.prompts, 18)
	assert.Len(t, llmClient.chats, 3)
	assert.LessOrEqual(t, llmClient.maxInFlight, 2)
	assert.Positive(t, llmClient.maxInFlight)
}

func TestDraftGeneratesAnswerPerRegion(t *testing.T) {
	svc, llmClient, _ := newDraftFixture()

	answers, err := svc.Draft(context.Background(), DraftInput{
		Question: "¿Qué es una oposición?",
		Chunks:   model.ChunksByRegion{"nacional": {"c1", "c2"}, "andalucia": {"c3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.AnswerByRegion{
		"nacional":  "respuesta para ¿Qué es una oposición?",
		"andalucia": "respuesta para ¿Qué es una oposición?",
	}, answers)

	assert.Len(t, llmClient.prompts, 3)
	for _, p := range llmClient.prompts {
		assert.Contains(t, p, "PREGUNTA: ¿Qué es una oposición?")
	}
	require.Len(t, llmClient.chats, 2)
	for _, chat := range llmClient.chats {
		require.Len(t, chat, 3)
		assert.Equal(t, "sistema", chat[0].Content)
		assert.True(t, strings.HasPrefix(chat[1].Content, "DATOS RELEVANTES\n### MARCO LEGAL \n"))
		assert.NotContains(t, chat[1].Content, "RESUMEN DEL TEMA")
	}
}

func TestDraftAddsSummaryOfSingleTopic(t *testing.T) {
	svc, llmClient, _ := newDraftFixture(model.Topic{ID: 1, Title: "Tema 1", Summary: "Resumen del tema 1"})

	_, err := svc.Draft(context.Background(), DraftInput{
		Question: "¿Qué es una oposición?",
		Chunks:   model.ChunksByRegion{"nacional": {"c1"}},
		Topics:   []string{"Tema 1"},
	})
	require.NoError(t, err)
	require.Len(t, llmClient.chats, 1)
	assert.Contains(t, llmClient.chats[0][1].Content, "### RESUMEN DEL TEMA \nResumen del tema 1")
}

func TestDraftFailsWhenAnyRegionFails(t *testing.T) {
	svc, llmClient, _ := newDraftFixture()
	llmClient.completeErr = errors.New("rate limited")

	_, err := svc.Draft(context.Background(), DraftInput{
		Question: "q",
		Chunks:   model.ChunksByRegion{"nacional": {"c1"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestDraftValidatesInput(t *testing.T) {
	svc, _, _ := newDraftFixture()

	_, err := svc.Draft(context.Background(), DraftInput{Question: " ", Chunks: model.ChunksByRegion{"nacional": {"c1"}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Draft(context.Background(), DraftInput{Question: "q"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
