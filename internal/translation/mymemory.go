package translation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"horse.fit/lisan/internal/config"
)

// MyMemoryProvider calls the free MyMemory API. The credential, when set, is
// the contact email that raises the daily allowance.
type MyMemoryProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewMyMemoryProvider(cfg config.ProviderConfig, client *http.Client) *MyMemoryProvider {
	if client == nil {
		client = newHTTPClient()
	}
	return &MyMemoryProvider{cfg: cfg, client: client}
}

func (p *MyMemoryProvider) Name() string {
	return config.ProviderMyMemory
}

func (p *MyMemoryProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	endpoint, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, newProviderError(p.Name(), 0, "invalid endpoint: %v", err)
	}
	query := endpoint.Query()
	query.Set("q", req.Text)
	query.Set("langpair", string(req.SourceLang)+"|"+string(req.TargetLang))
	if email := strings.TrimSpace(p.cfg.Credential); email != "" {
		query.Set("de", email)
	}
	endpoint.RawQuery = query.Encode()

	httpReq, err := newJSONRequest(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ResponseData struct {
			TranslatedText string      `json:"translatedText"`
			Match          json.Number `json:"match"`
		} `json:"responseData"`
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
	}
	if err := doJSON(p.client, p.Name(), httpReq, &parsed, nil); err != nil {
		return nil, err
	}

	status, _ := strconv.Atoi(parsed.ResponseStatus.String())
	if status != http.StatusOK {
		message := strings.TrimSpace(parsed.ResponseDetails)
		if message == "" {
			message = "translation failed"
		}
		return nil, newProviderError(p.Name(), status, "%s", message)
	}

	match, _ := parsed.ResponseData.Match.Float64()
	return &Result{
		Translation: strings.TrimSpace(parsed.ResponseData.TranslatedText),
		Provider:    p.Name(),
		Confidence:  clampConfidence(match),
		Metadata:    map[string]any{"match": match, "source": "free-api"},
	}, nil
}
