package translation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"horse.fit/lisan/internal/config"
)

const geminiConfidence = 0.92

// GeminiProvider translates with the Gemini API through the genai SDK.
type GeminiProvider struct {
	cfg    config.ProviderConfig
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, cfg config.ProviderConfig, httpClient *http.Client) (*GeminiProvider, error) {
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.Credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{cfg: cfg, client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return config.ProviderGemini
}

func (p *GeminiProvider) ModelName() string {
	return p.cfg.Model
}

func (p *GeminiProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	generateConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(translationSystemPrompt(req.TargetLang), genai.RoleUser),
		Temperature:       genai.Ptr(float32(p.cfg.Temperature)),
	}
	if p.cfg.MaxTokens > 0 {
		generateConfig.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(buildTranslationPrompt(req)), generateConfig)
	if err != nil {
		return nil, asProviderError(p.Name(), err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, newProviderError(p.Name(), 0, "response contained no text")
	}

	metadata := map[string]any{"model": p.cfg.Model}
	if resp.UsageMetadata != nil {
		metadata["tokens_used"] = resp.UsageMetadata.TotalTokenCount
	}
	return &Result{
		Translation: text,
		Provider:    p.Name(),
		Confidence:  geminiConfidence,
		Metadata:    metadata,
	}, nil
}
