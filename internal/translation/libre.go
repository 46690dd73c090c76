package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"horse.fit/lisan/internal/config"
)

const libreConfidence = 0.80

// LibreProvider calls a LibreTranslate instance.
type LibreProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewLibreProvider(cfg config.ProviderConfig, client *http.Client) *LibreProvider {
	if client == nil {
		client = newHTTPClient()
	}
	return &LibreProvider{cfg: cfg, client: client}
}

func (p *LibreProvider) Name() string {
	return config.ProviderLibre
}

func (p *LibreProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := newJSONRequest(ctx, http.MethodPost, p.cfg.Endpoint, libreRequest{
		Q:      req.Text,
		Source: string(req.SourceLang),
		Target: string(req.TargetLang),
		Format: "text",
		APIKey: p.cfg.Credential,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, libreErrorMessage); err != nil {
		return nil, err
	}

	return &Result{
		Translation: strings.TrimSpace(parsed.TranslatedText),
		Provider:    p.Name(),
		Confidence:  libreConfidence,
		Metadata:    map[string]any{},
	}, nil
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key"`
}

func libreErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}
