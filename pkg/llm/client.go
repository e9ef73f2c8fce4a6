// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"labot-admin-go/internal/config"
	"labot-admin-go/pkg/log"
)

// Client defines the interface for an LLM client.
type Client interface {
	// ChatMessages 以 role-based 消息调用聊天接口并返回完整回答。
	ChatMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
	// Complete 调用文本补全接口，用于切片摘要。
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

// NewClient creates a new LLM client for an OpenAI-compatible API.
func NewClient(cfg config.LLMConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// defaultParams 从配置注入生成参数（非零值才生效）。
func (c *openAIClient) defaultParams() *GenerationParams {
	gen := &GenerationParams{}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		gen.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		gen.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		gen.MaxTokens = &m
	}
	return gen
}

func (c *openAIClient) ChatMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	if gen == nil {
		gen = c.defaultParams()
	}
	req := openai.ChatCompletionRequest{Model: c.cfg.Model}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if gen.Temperature != nil {
		req.Temperature = float32(*gen.Temperature)
	}
	if gen.TopP != nil {
		req.TopP = float32(*gen.TopP)
	}
	if gen.MaxTokens != nil {
		req.MaxTokens = *gen.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Errorf("[LLMClient] 调用 Chat API 失败, model: %s, error: %v", c.cfg.Model, err)
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	req := openai.CompletionRequest{
		Model:       c.cfg.CompletionModel,
		Prompt:      prompt,
		Temperature: float32(temperature),
	}
	if c.cfg.Generation.MaxTokens != 0 {
		req.MaxTokens = c.cfg.Generation.MaxTokens
	}

	resp, err := c.client.CreateCompletion(ctx, req)
	if err != nil {
		log.Errorf("[LLMClient] 调用 Completion API 失败, model: %s, error: %v", c.cfg.CompletionModel, err)
		return "", fmt.Errorf("failed to call completion api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion api returned no choices")
	}
	return resp.Choices[0].Text, nil
}
