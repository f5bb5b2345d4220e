// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"medi-chat-go/internal/config"
)

// ErrAuthentication 表示补全服务拒绝了我们的 API 凭证（401/403）。
var ErrAuthentication = errors.New("llm: authentication failed")

// RateLimitError 表示补全服务返回了限流/配额错误（429）。
// Body 保留了原始错误文本，供上层区分 quota 与普通限流。
type RateLimitError struct {
	Body string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limited: %s", e.Body)
}

// APIError 表示其他非 2xx 的服务端错误。
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: api returned status %d: %s", e.StatusCode, e.Body)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Client 定义了 LLM 客户端的接口。
type Client interface {
	// ChatCompletion 以 role-based 消息与可选生成参数调用补全接口，返回首个补全的文本。
	// 首个补全内容为空时返回空字符串而非错误，是否兜底由调用方决定。
	ChatCompletion(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

type openaiClient struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.OpenAIConfig) Client {
	return &openaiClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion 调用 OpenAI 兼容的 /chat/completions 接口（非流式）。
func (c *openaiClient) ChatCompletion(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	}
	// 从配置或传参注入生成参数（传参优先生效）
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
	} else {
		// 从全局配置注入（若非零值）
		if c.cfg.Generation.Temperature != 0 {
			t := c.cfg.Generation.Temperature
			reqBody.Temperature = &t
		}
		if c.cfg.Generation.TopP != 0 {
			p := c.cfg.Generation.TopP
			reqBody.TopP = &p
		}
		if c.cfg.Generation.MaxTokens != 0 {
			m := c.cfg.Generation.MaxTokens
			reqBody.MaxTokens = &m
		}
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	// 按状态码归类错误：401/403 为凭证问题，429 为限流/配额，其余非 200 为服务端错误
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrAuthentication, string(bodyBytes))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitError{Body: string(bodyBytes)}
	case resp.StatusCode != http.StatusOK:
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var chunk chatResponse
	if err := json.Unmarshal(bodyBytes, &chunk); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Message.Content, nil
}
