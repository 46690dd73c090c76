package translation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
)

const claudeConfidence = 0.95

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewClaudeProvider(cfg config.ProviderConfig, client *http.Client) *ClaudeProvider {
	if client == nil {
		client = newHTTPClient()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-06-01"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &ClaudeProvider{cfg: cfg, client: client}
}

func (p *ClaudeProvider) Name() string {
	return config.ProviderClaude
}

func (p *ClaudeProvider) ModelName() string {
	return p.cfg.Model
}

func (p *ClaudeProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	messages := []claudeMessage{{Role: "user", Content: buildTranslationPrompt(req)}}
	temperature := p.cfg.Temperature
	return p.send(ctx, messages, &temperature, "")
}

// TranslateWithHistory appends the request to prior conversation turns.
func (p *ClaudeProvider) TranslateWithHistory(ctx context.Context, req Request, history []Message) (*Result, error) {
	messages := make([]claudeMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, claudeMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, claudeMessage{
		Role:    "user",
		Content: fmt.Sprintf("Translate to %s: %s", req.TargetLang.Name(), req.Text),
	})
	return p.send(ctx, messages, nil, "aware")
}

func (p *ClaudeProvider) send(ctx context.Context, messages []claudeMessage, temperature *float64, contextMode string) (*Result, error) {
	httpReq, err := newJSONRequest(ctx, http.MethodPost, p.cfg.Endpoint, claudeRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.cfg.Credential)
	httpReq.Header.Set("anthropic-version", p.cfg.APIVersion)

	var parsed claudeResponse
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, nestedErrorMessage); err != nil {
		return nil, err
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "" || block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		return nil, newProviderError(p.Name(), 0, "response contained no text content")
	}

	metadata := map[string]any{
		"model":       p.cfg.Model,
		"tokens_used": parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	if contextMode != "" {
		metadata["context"] = contextMode
	}
	return &Result{
		Translation: text,
		Provider:    p.Name(),
		Confidence:  claudeConfidence,
		Metadata:    metadata,
	}, nil
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// buildTranslationPrompt is shared by the LLM adapters.
func buildTranslationPrompt(req Request) string {
	return fmt.Sprintf(
		"Translate the following %s text to %s.\nProvide ONLY the translation, nothing else. No explanations, no additional text.\n\nText to translate: %s",
		req.SourceLang.Name(),
		req.TargetLang.Name(),
		req.Text,
	)
}

func translationSystemPrompt(target language.Lang) string {
	return fmt.Sprintf("You are a professional Arabic-English translator. Reply with the %s translation only.", target.Name())
}
