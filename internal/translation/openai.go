package translation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"horse.fit/lisan/internal/config"
)

const openAIConfidence = 0.92

// OpenAIProvider translates with chat completions on OpenAI or any
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	cfg    config.ProviderConfig
	client *openai.Client
}

func NewOpenAIProvider(cfg config.ProviderConfig, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(cfg.Credential)
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		clientConfig.BaseURL = endpoint
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIProvider{cfg: cfg, client: openai.NewClientWithConfig(clientConfig)}
}

func (p *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

func (p *OpenAIProvider) ModelName() string {
	return p.cfg.Model
}

func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	return p.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: translationSystemPrompt(req.TargetLang)},
		{Role: openai.ChatMessageRoleUser, Content: buildTranslationPrompt(req)},
	})
}

func (p *OpenAIProvider) TranslateWithHistory(ctx context.Context, req Request, history []Message) (*Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: translationSystemPrompt(req.TargetLang)})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: buildTranslationPrompt(req)})

	result, err := p.complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	result.Metadata["context"] = "aware"
	return result, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (*Result, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: float32(p.cfg.Temperature),
	})
	if err != nil {
		return nil, openAIError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, newProviderError(p.Name(), 0, "response contained no choices")
	}

	return &Result{
		Translation: strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider:    p.Name(),
		Confidence:  openAIConfidence,
		Metadata: map[string]any{
			"model":       p.cfg.Model,
			"tokens_used": resp.Usage.TotalTokens,
		},
	}, nil
}

func openAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		perr := newProviderError(provider, apiErr.HTTPStatusCode, "%s", apiErr.Message)
		perr.cause = err
		return perr
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		perr := newProviderError(provider, reqErr.HTTPStatusCode, "%s", reqErr.Error())
		perr.cause = err
		return perr
	}
	return asProviderError(provider, err)
}
