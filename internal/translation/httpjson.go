package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// newHTTPClient is the client shared by the REST adapters. Deadlines come from
// the per-call context; the client timeout is only a backstop.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// doJSON sends req and decodes a 2xx JSON body into out. Non-2xx responses
// become *ProviderError carrying the status and the provider's error message.
func doJSON(client *http.Client, provider string, req *http.Request, out any, errMessage func([]byte) string) error {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := ""
		if errMessage != nil {
			message = strings.TrimSpace(errMessage(body))
		}
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return newProviderError(provider, resp.StatusCode, "%s", truncate(message, 300))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return newProviderError(provider, resp.StatusCode, "decode response: %v", err)
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// nestedErrorMessage reads {"error":{"message":"..."}} bodies.
func nestedErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
