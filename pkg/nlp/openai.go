package nlp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// jsonOnlyHint is appended for compatible services, which often ignore
// response_format.
const jsonOnlyHint = "\n\nPlease respond with valid JSON only."

// OpenAIClient talks to the OpenAI chat API or, when Config.BaseURL is set,
// to an OpenAI-compatible service.
type OpenAIClient struct {
	api      *openai.Client
	settings Config
	service  string
}

// NewOpenAIClient validates the base URL and appends /v1 when it carries no
// API path. Compatible services may run without an API key.
func NewOpenAIClient(apiKey string, settings Config) (*OpenAIClient, error) {
	clientConfig := openai.DefaultConfig(apiKey)
	service := "openai"

	if settings.BaseURL != "" {
		base, err := apiBaseURL(settings.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		clientConfig.BaseURL = base
		if apiKey == "" {
			clientConfig.AuthToken = "none"
		}
		service = "openai-compatible"
	}
	if settings.Model == "" {
		settings.Model = openai.GPT4o
	}

	return &OpenAIClient{
		api:      openai.NewClientWithConfig(clientConfig),
		settings: settings,
		service:  service,
	}, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.settings.Model
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.complete(ctx, c.request(messages, false))
}

// ChatWithStructuredOutput asks for a JSON object. The schema is described in
// the prompt; the API only enforces JSON syntax.
func (c *OpenAIClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, _ any) (*types.Response, error) {
	return c.complete(ctx, c.request(messages, true))
}

func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (*types.Response, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", c.service, classifyError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned from %s", ErrEmptyResponse, c.service)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, fmt.Errorf("%w: %s content filter", ErrRefusal, c.service)
	}

	out := &types.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
	}
	// Some compatible services do not report usage.
	if u := resp.Usage; u.TotalTokens > 0 {
		out.TokensUsed = &types.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return out, nil
}

func (c *OpenAIClient) request(messages []types.Message, jsonObject bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.settings.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stop:     c.settings.Stop,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if t := c.settings.Temperature; t != nil {
		req.Temperature = *t
	}
	if n := c.settings.MaxTokens; n != nil {
		req.MaxTokens = *n
	}
	if p := c.settings.TopP; p != nil {
		req.TopP = *p
	}

	if !jsonObject {
		return req
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	if c.settings.BaseURL != "" && len(req.Messages) > 0 {
		if last := &req.Messages[len(req.Messages)-1]; last.Role == string(RoleUser) {
			last.Content += jsonOnlyHint
		}
	}
	return req
}

// apiBaseURL checks the scheme and adds the /v1 path unless the URL already
// ends in /v1 or /api.
func apiBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%q must use the http or https scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q has no host", raw)
	}

	trimmed := strings.TrimRight(raw, "/")
	if strings.HasSuffix(trimmed, "/v1") || strings.HasSuffix(trimmed, "/api") {
		return trimmed, nil
	}
	return trimmed + "/v1", nil
}
