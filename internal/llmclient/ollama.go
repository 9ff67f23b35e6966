// File: internal/llmclient/ollama.go
package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/drover/internal/config"
)

// ErrorKind labels the failure classes a generate call can surface. They are
// delivered inside the response text as a JSON envelope, never as a Go error,
// so the loop controller treats an unreachable server and model garbage
// through the same recovery path.
const (
	ErrKindRequest = "RequestError"
	ErrKindDecode  = "DecodeError"
	ErrKindStatus  = "HTTPStatusError"
)

// Client talks to a local Ollama-compatible inference server. One Client is
// reused for a whole run; requests are strictly sequential and paced by the
// rate limiter.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	maxElapsed time.Duration

	// OnToken, when set, receives each streamed token as it arrives.
	OnToken func(token string)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type streamFragment struct {
	Token string `json:"token"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// New builds a Client from the model configuration.
func New(cfg config.ModelConfig, logger *zap.Logger) *Client {
	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	maxElapsed := cfg.MaxRetryElapsed
	if maxElapsed <= 0 {
		maxElapsed = 2 * time.Minute
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Name,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger.Named("llm_client"),
		maxElapsed: maxElapsed,
	}
}

// Envelope renders a failure as the JSON error payload the loop expects.
func Envelope(kind, details string) string {
	data, err := json.Marshal(errorEnvelope{Error: kind, Details: details})
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"details":"marshal failure"}`, kind)
	}
	return string(data)
}

// IsErrorEnvelope reports whether a response string is one of our failure
// envelopes rather than model output.
func IsErrorEnvelope(response string) bool {
	var env errorEnvelope
	if err := json.Unmarshal([]byte(response), &env); err != nil {
		return false
	}
	return env.Error != ""
}

// Generate sends the prompt and returns the model's text. Failures never
// propagate as errors: they come back as an error envelope string.
func (c *Client) Generate(ctx context.Context, prompt string, stream bool) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return Envelope(ErrKindRequest, err.Error())
	}

	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
		Format: "json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope(ErrKindRequest, fmt.Sprintf("marshal request: %v", err))
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	b.MaxInterval = 30 * time.Second

	var text string
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.endpoint+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during generate, retrying", zap.Error(err))
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return c.statusError(resp.StatusCode, respBody)
		}

		if stream {
			text, err = c.readStream(resp.Body)
		} else {
			text, err = c.readSingle(resp.Body)
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		c.logger.Debug("Generate complete",
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_len", len(text)),
			zap.Bool("stream", stream))
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		c.logger.Error("Generate failed", zap.Error(err))
		kind := ErrKindRequest
		if strings.Contains(err.Error(), "decode") {
			kind = ErrKindDecode
		} else if strings.Contains(err.Error(), "status") {
			kind = ErrKindStatus
		}
		return Envelope(kind, err.Error())
	}
	return text
}

func (c *Client) readSingle(r io.Reader) (string, error) {
	respBody, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	var payload generateResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", fmt.Errorf("decode response payload: %w", err)
	}
	return payload.Response, nil
}

// readStream concatenates newline-delimited fragments. A line that does not
// decode as JSON is taken verbatim, matching the server's fallback behavior.
func (c *Client) readStream(r io.Reader) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		token := line
		var frag streamFragment
		if err := json.Unmarshal([]byte(line), &frag); err == nil && frag.Token != "" {
			token = frag.Token
		}
		if c.OnToken != nil {
			c.OnToken(token)
		}
		sb.WriteString(token)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return sb.String(), nil
}

func (c *Client) statusError(statusCode int, body []byte) error {
	err := fmt.Errorf("server returned status %d: %s", statusCode, string(body))
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient, retry.
	default:
		return backoff.Permanent(err)
	}
}

// CheckHealth verifies the server is reachable and the configured model is
// installed. Unlike Generate, setup failures here are real errors.
func (c *Client) CheckHealth(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("inference server unreachable at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	available := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name == c.model {
			return nil
		}
		available = append(available, m.Name)
	}
	return fmt.Errorf("model %q not found; available: %s", c.model, strings.Join(available, ", "))
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }
