package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"web3-token-agent/internal/worker/config"

	"github.com/bytedance/sonic"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("llm api key not configured")
	ErrEmptyResponse = errors.New("llm returned no choices")
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		logger:      logger,
	}
	if c.model == "" {
		c.model = openai.GPT4oMini
	}
	if c.timeout <= 0 {
		c.timeout = time.Minute
	}
	if cfg.APIKey == "" {
		logger.Warn("OpenAI api key not set, llm calls will fail")
		return c
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(oc)
	return c
}

func (c *Client) complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("LLM completion done",
		zap.String("model", c.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("cost", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// Complete 返回纯文本回答
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	text, err := c.complete(ctx, system, prompt, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// CompleteJSON 要求模型返回 JSON 对象并解码到 out
func (c *Client) CompleteJSON(ctx context.Context, system, prompt string, out any) error {
	text, err := c.complete(ctx, system, prompt, true)
	if err != nil {
		return err
	}
	return DecodeJSON(text, out)
}

// DecodeJSON 去掉 ``` 代码块后解析第一个 JSON 对象
func DecodeJSON(text string, out any) error {
	body := ExtractJSON(text)
	if body == "" {
		return fmt.Errorf("no json object in llm response: %q", truncate(text, 120))
	}
	if err := sonic.UnmarshalString(body, out); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
