package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labot-admin-go/internal/config"
)

func TestChatMessagesAndComplete(t *testing.T) {
	var chatBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&chatBody))
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Es un proceso selectivo."},"finish_reason":"stop"}]}`))
		case "/completions":
			_, _ = w.Write([]byte(`{"id":"2","object":"text_completion","choices":[{"index":0,"text":"resumen","finish_reason":"stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{
		APIKey:          "k",
		BaseURL:         srv.URL,
		Model:           "gpt-4-1106-preview",
		CompletionModel: "gpt-3.5-turbo-instruct",
		Generation:      config.LLMGenerationConfig{Temperature: 0.2},
	})

	answer, err := client.ChatMessages(context.Background(), []Message{
		{Role: RoleSystem, Content: "sistema"},
		{Role: RoleUser, Content: "¿Qué es una oposición?"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Es un proceso selectivo.", answer)
	assert.Equal(t, "gpt-4-1106-preview", chatBody["model"])
	assert.InDelta(t, 0.2, chatBody["temperature"], 1e-6)
	assert.Len(t, chatBody["messages"], 2)

	summary, err := client.Complete(context.Background(), "resume", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "resumen", summary)
}

func TestChatMessagesNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
	_, err := client.ChatMessages(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, &GenerationParams{})
	require.Error(t, err)
}
