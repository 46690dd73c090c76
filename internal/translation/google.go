package translation

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"strings"

	"horse.fit/lisan/internal/config"
)

const googleConfidence = 0.90

// GoogleProvider calls the Cloud Translation v2 REST API.
type GoogleProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewGoogleProvider(cfg config.ProviderConfig, client *http.Client) *GoogleProvider {
	if client == nil {
		client = newHTTPClient()
	}
	return &GoogleProvider{cfg: cfg, client: client}
}

func (p *GoogleProvider) Name() string {
	return config.ProviderGoogle
}

func (p *GoogleProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	endpoint, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, newProviderError(p.Name(), 0, "invalid endpoint: %v", err)
	}
	query := endpoint.Query()
	query.Set("key", p.cfg.Credential)
	query.Set("q", req.Text)
	query.Set("source", string(req.SourceLang))
	query.Set("target", string(req.TargetLang))
	query.Set("format", "text")
	endpoint.RawQuery = query.Encode()

	httpReq, err := newJSONRequest(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Translations []struct {
				TranslatedText         string `json:"translatedText"`
				DetectedSourceLanguage string `json:"detectedSourceLanguage"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, nestedErrorMessage); err != nil {
		return nil, err
	}
	if len(parsed.Data.Translations) == 0 {
		return nil, newProviderError(p.Name(), 0, "response contained no translations")
	}

	first := parsed.Data.Translations[0]
	metadata := map[string]any{}
	if first.DetectedSourceLanguage != "" {
		metadata["detected_source_language"] = first.DetectedSourceLanguage
	}
	return &Result{
		Translation: strings.TrimSpace(html.UnescapeString(first.TranslatedText)),
		Provider:    p.Name(),
		Confidence:  googleConfidence,
		Metadata:    metadata,
	}, nil
}
