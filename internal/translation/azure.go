package translation

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"horse.fit/lisan/internal/config"
)

const azureConfidence = 0.92

// AzureProvider calls the Azure AI Translator v3 REST API.
type AzureProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAzureProvider(cfg config.ProviderConfig, client *http.Client) *AzureProvider {
	if client == nil {
		client = newHTTPClient()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "3.0"
	}
	return &AzureProvider{cfg: cfg, client: client}
}

func (p *AzureProvider) Name() string {
	return config.ProviderAzure
}

func (p *AzureProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	endpoint, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, newProviderError(p.Name(), 0, "invalid endpoint: %v", err)
	}
	query := endpoint.Query()
	query.Set("api-version", p.cfg.APIVersion)
	query.Set("from", string(req.SourceLang))
	query.Set("to", string(req.TargetLang))
	endpoint.RawQuery = query.Encode()

	httpReq, err := newJSONRequest(ctx, http.MethodPost, endpoint.String(), []map[string]string{{"Text": req.Text}})
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.Credential)
	if region := strings.TrimSpace(p.cfg.Region); region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", region)
	}

	var parsed []struct {
		DetectedLanguage *struct {
			Language string  `json:"language"`
			Score    float64 `json:"score"`
		} `json:"detectedLanguage"`
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, nestedErrorMessage); err != nil {
		return nil, err
	}
	if len(parsed) == 0 || len(parsed[0].Translations) == 0 {
		return nil, newProviderError(p.Name(), 0, "response contained no translations")
	}

	metadata := map[string]any{}
	if detected := parsed[0].DetectedLanguage; detected != nil {
		metadata["detected_language"] = detected.Language
	}
	return &Result{
		Translation: strings.TrimSpace(parsed[0].Translations[0].Text),
		Provider:    p.Name(),
		Confidence:  azureConfidence,
		Metadata:    metadata,
	}, nil
}
