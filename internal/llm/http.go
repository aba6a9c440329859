package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient forwards completion requests to a generic HTTP endpoint,
// accepting either a single JSON object or an SSE/ndjson delta stream.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type httpCompletionPayload struct {
	TurnID  string         `json:"turn_id"`
	Persona string         `json:"persona"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	FewShot []httpExchange `json:"few_shot,omitempty"`
}

type httpExchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest, onDelta DeltaHandler) (CompletionResponse, error) {
	body := httpCompletionPayload{
		TurnID:  req.TurnID,
		Persona: req.PersonaName,
		System:  req.System,
		Prompt:  req.Prompt,
	}
	for _, ex := range req.FewShot {
		body.FewShot = append(body.FewShot, httpExchange{User: ex.User, Assistant: ex.Assistant})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return CompletionResponse{}, fmt.Errorf("completion http status %d: %s", res.StatusCode, string(msg))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		return c.consumeStreaming(res.Body, onDelta)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return CompletionResponse{}, nil
		}
		if onDelta != nil {
			if err := onDelta(text); err != nil {
				return CompletionResponse{}, err
			}
		}
		return CompletionResponse{Text: text}, nil
	}

	text := extractText(obj)
	if text != "" && onDelta != nil {
		if err := onDelta(text); err != nil {
			return CompletionResponse{}, err
		}
	}
	return CompletionResponse{Text: text, Usage: extractUsage(obj)}, nil
}

func (c *HTTPClient) consumeStreaming(body io.Reader, onDelta DeltaHandler) (CompletionResponse, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	var usage *Usage
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}

		delta := line
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err == nil {
			delta = strings.TrimSpace(extractText(obj))
			if u := extractUsage(obj); u != nil {
				usage = u
			}
		}

		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return CompletionResponse{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return CompletionResponse{}, fmt.Errorf("stream read: %w", err)
	}

	return CompletionResponse{Text: out.String(), Usage: usage}, nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "delta", "output", "message"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func extractUsage(obj map[string]any) *Usage {
	raw, ok := obj["usage"].(map[string]any)
	if !ok {
		return nil
	}
	asInt := func(key string) int {
		if f, ok := raw[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	u := Usage{
		PromptTokens:     asInt("prompt_tokens"),
		CompletionTokens: asInt("completion_tokens"),
	}
	if u.PromptTokens == 0 && u.CompletionTokens == 0 {
		return nil
	}
	return &u
}
