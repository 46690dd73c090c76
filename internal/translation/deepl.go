package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
)

const deeplConfidence = 0.93

// DeepLProvider calls the DeepL v2 translate endpoint with a form body.
type DeepLProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewDeepLProvider(cfg config.ProviderConfig, client *http.Client) *DeepLProvider {
	if client == nil {
		client = newHTTPClient()
	}
	return &DeepLProvider{cfg: cfg, client: client}
}

func (p *DeepLProvider) Name() string {
	return config.ProviderDeepL
}

func (p *DeepLProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("source_lang", deeplLangCode(req.SourceLang))
	form.Set("target_lang", deeplLangCode(req.TargetLang))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.cfg.Credential)

	var parsed struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, deeplErrorMessage); err != nil {
		return nil, err
	}
	if len(parsed.Translations) == 0 {
		return nil, newProviderError(p.Name(), 0, "response contained no translations")
	}

	first := parsed.Translations[0]
	metadata := map[string]any{}
	if first.DetectedSourceLanguage != "" {
		metadata["detected_source_language"] = first.DetectedSourceLanguage
	}
	return &Result{
		Translation: strings.TrimSpace(first.Text),
		Provider:    p.Name(),
		Confidence:  deeplConfidence,
		Metadata:    metadata,
	}, nil
}

func deeplLangCode(lang language.Lang) string {
	return strings.ToUpper(string(lang))
}

func deeplErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
