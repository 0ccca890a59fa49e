package intel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CompletionClient produces a narrative summary from a prompt. The brief
// degrades gracefully without one, so implementations may fail freely.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HTTPCompletionClient consumes a streaming completion endpoint that emits
// newline-delimited JSON chunks and assembles them into the final text.
type HTTPCompletionClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPCompletion constructs a streaming completion client.
func NewHTTPCompletion(baseURL string, timeout time.Duration) *HTTPCompletionClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPCompletionClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type completionChunk struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Complete streams chunks from the endpoint and concatenates their text
// until the terminal chunk arrives.
func (c *HTTPCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"prompt": prompt, "stream": true})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request: unexpected status %d", resp.StatusCode)
	}

	var assembled strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk completionChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode completion chunk: %w", err)
		}
		assembled.WriteString(chunk.Text)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read completion stream: %w", err)
	}
	return assembled.String(), nil
}
