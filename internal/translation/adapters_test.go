package translation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
)

func enToAr(text string) Request {
	return Request{Text: text, SourceLang: language.English, TargetLang: language.Arabic}
}

func TestClaudeProviderTranslate(t *testing.T) {
	t.Parallel()

	var gotBody claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":" صباح الخير "}],"usage":{"input_tokens":30,"output_tokens":5}}`)
	}))
	defer server.Close()

	provider := NewClaudeProvider(config.ProviderConfig{
		ID:          config.ProviderClaude,
		Credential:  "sk-ant-test",
		Endpoint:    server.URL,
		Model:       "claude-test",
		Temperature: 0.3,
	}, server.Client())

	result, err := provider.Translate(context.Background(), enToAr("Good morning"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "صباح الخير" {
		t.Fatalf("translation = %q", result.Translation)
	}
	if result.Confidence != claudeConfidence {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if result.Metadata["tokens_used"] != 35 {
		t.Fatalf("tokens_used = %v", result.Metadata["tokens_used"])
	}
	if gotBody.Model != "claude-test" || gotBody.MaxTokens != 1000 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if gotBody.Temperature == nil || *gotBody.Temperature != 0.3 {
		t.Fatalf("temperature not sent: %+v", gotBody.Temperature)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
}

func TestClaudeProviderTranslateWithHistory(t *testing.T) {
	t.Parallel()

	var gotBody claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"وأنت؟"}]}`)
	}))
	defer server.Close()

	provider := NewClaudeProvider(config.ProviderConfig{Credential: "k", Endpoint: server.URL}, server.Client())
	result, err := provider.TranslateWithHistory(context.Background(), enToAr("And you?"), []Message{
		{Role: "user", Content: "How are you?"},
		{Role: "assistant", Content: "كيف حالك؟"},
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Metadata["context"] != "aware" {
		t.Fatalf("context metadata = %v", result.Metadata["context"])
	}
	if len(gotBody.Messages) != 3 {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
	if gotBody.Messages[2].Content != "Translate to Arabic: And you?" {
		t.Fatalf("final message = %q", gotBody.Messages[2].Content)
	}
	if gotBody.Temperature != nil {
		t.Fatalf("history requests should not send temperature")
	}
}

func TestClaudeProviderErrorCarriesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer server.Close()

	provider := NewClaudeProvider(config.ProviderConfig{Credential: "bad", Endpoint: server.URL}, server.Client())
	_, err := provider.Translate(context.Background(), enToAr("hi"))

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
	if providerErr.StatusCode != http.StatusUnauthorized || providerErr.Message != "invalid x-api-key" {
		t.Fatalf("unexpected provider error: %+v", providerErr)
	}
	if !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("expected ErrProviderFailed")
	}
}

func TestGoogleProviderTranslate(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"data":{"translations":[{"translatedText":"Tom &amp; Jerry"}]}}`)
	}))
	defer server.Close()

	provider := NewGoogleProvider(config.ProviderConfig{Credential: "AIza-test", Endpoint: server.URL}, server.Client())
	result, err := provider.Translate(context.Background(), Request{Text: "توم وجيري", SourceLang: language.Arabic, TargetLang: language.English})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "Tom & Jerry" {
		t.Fatalf("translation = %q", result.Translation)
	}
	if gotQuery.Get("key") != "AIza-test" || gotQuery.Get("source") != "ar" || gotQuery.Get("target") != "en" || gotQuery.Get("format") != "text" {
		t.Fatalf("query = %v", gotQuery)
	}
}

func TestAzureProviderTranslate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "azure-key" {
			t.Errorf("missing subscription key")
		}
		if r.Header.Get("Ocp-Apim-Subscription-Region") != "westeurope" {
			t.Errorf("region header = %q", r.Header.Get("Ocp-Apim-Subscription-Region"))
		}
		if r.URL.Query().Get("api-version") != "3.0" || r.URL.Query().Get("to") != "ar" {
			t.Errorf("query = %v", r.URL.Query())
		}
		var body []map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) != 1 || body[0]["Text"] != "peace" {
			t.Errorf("body = %v (%v)", body, err)
		}
		_, _ = io.WriteString(w, `[{"translations":[{"text":"سلام","to":"ar"}]}]`)
	}))
	defer server.Close()

	provider := NewAzureProvider(config.ProviderConfig{
		Credential: "azure-key",
		Endpoint:   server.URL,
		APIVersion: "3.0",
		Region:     "westeurope",
	}, server.Client())
	result, err := provider.Translate(context.Background(), enToAr("peace"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "سلام" || result.Confidence != azureConfidence {
		t.Fatalf("result = %+v", result)
	}
}

func TestDeepLProviderTranslate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "DeepL-Auth-Key deepl-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("source_lang") != "EN" || r.PostForm.Get("target_lang") != "AR" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"translations":[{"detected_source_language":"EN","text":"قطة"}]}`)
	}))
	defer server.Close()

	provider := NewDeepLProvider(config.ProviderConfig{Credential: "deepl-key", Endpoint: server.URL}, server.Client())
	result, err := provider.Translate(context.Background(), enToAr("cat"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "قطة" {
		t.Fatalf("translation = %q", result.Translation)
	}
}

func TestDeepLProviderQuotaError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(456)
		_, _ = io.WriteString(w, `{"message":"Quota exceeded"}`)
	}))
	defer server.Close()

	provider := NewDeepLProvider(config.ProviderConfig{Credential: "deepl-key", Endpoint: server.URL}, server.Client())
	_, err := provider.Translate(context.Background(), enToAr("cat"))

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.StatusCode != 456 || providerErr.Message != "Quota exceeded" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLibreProviderTranslate(t *testing.T) {
	t.Parallel()

	var gotBody libreRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"translatedText":"بيت"}`)
	}))
	defer server.Close()

	provider := NewLibreProvider(config.ProviderConfig{Credential: "libre-key", Endpoint: server.URL}, server.Client())
	result, err := provider.Translate(context.Background(), enToAr("house"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "بيت" || result.Confidence != libreConfidence {
		t.Fatalf("result = %+v", result)
	}
	if gotBody.Q != "house" || gotBody.APIKey != "libre-key" || gotBody.Format != "text" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestMyMemoryProviderTranslate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("langpair") != "en|ar" {
			t.Errorf("langpair = %q", r.URL.Query().Get("langpair"))
		}
		if r.URL.Query().Get("de") != "me@example.com" {
			t.Errorf("de = %q", r.URL.Query().Get("de"))
		}
		_, _ = io.WriteString(w, `{"responseData":{"translatedText":"كتاب","match":0.85},"responseStatus":200}`)
	}))
	defer server.Close()

	provider := NewMyMemoryProvider(config.ProviderConfig{Credential: "me@example.com", Endpoint: server.URL}, server.Client())
	result, err := provider.Translate(context.Background(), enToAr("book"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "كتاب" || result.Confidence != 0.85 {
		t.Fatalf("result = %+v", result)
	}
	if result.Metadata["source"] != "free-api" {
		t.Fatalf("metadata = %v", result.Metadata)
	}
}

func TestMyMemoryProviderRejectsNon200Status(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"responseData":{"translatedText":""},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`)
	}))
	defer server.Close()

	provider := NewMyMemoryProvider(config.ProviderConfig{Endpoint: server.URL}, server.Client())
	_, err := provider.Translate(context.Background(), enToAr("book"))

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
	if providerErr.Message != "INVALID LANGUAGE PAIR" {
		t.Fatalf("message = %q", providerErr.Message)
	}
}

func TestOpenAIProviderTranslate(t *testing.T) {
	t.Parallel()

	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"شمس"},"finish_reason":"stop"}],"usage":{"prompt_tokens":20,"completion_tokens":2,"total_tokens":22}}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{
		Credential: "sk-test",
		Endpoint:   server.URL,
		Model:      "gpt-4o-mini",
		MaxTokens:  100,
	}, server.Client())
	result, err := provider.Translate(context.Background(), enToAr("sun"))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Translation != "شمس" || result.Metadata["tokens_used"] != 22 {
		t.Fatalf("result = %+v", result)
	}
	if gotBody.Model != "gpt-4o-mini" || len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestOpenAIProviderErrorCarriesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Credential: "sk-test", Endpoint: server.URL}, server.Client())
	_, err := provider.Translate(context.Background(), enToAr("sun"))

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildRegistryRegistersConfiguredAdapters(t *testing.T) {
	t.Parallel()

	table := config.DefaultProviders()
	claude := table.Providers[config.ProviderClaude]
	claude.Credential = "sk-ant-test"
	table.Providers[config.ProviderClaude] = claude

	registry, err := BuildRegistry(context.Background(), table, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	available := registry.AvailableProviders()
	want := []string{"claude", "mymemory", "dictionary"}
	if len(available) != len(want) {
		t.Fatalf("available = %v, want %v", available, want)
	}
	for idx := range want {
		if available[idx] != want[idx] {
			t.Fatalf("available = %v, want %v", available, want)
		}
	}
	if _, err := registry.Provider("gemini"); !errors.Is(err, ErrProviderNotReady) {
		t.Fatalf("gemini without key: %v", err)
	}
}
