package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/prepforge/prepai/internal/adapter/ai/tokencount"
	"github.com/prepforge/prepai/internal/config"
	"github.com/prepforge/prepai/internal/domain"
	"github.com/prepforge/prepai/internal/observability"
)

// Fixed sampling parameters. These are contract constants of the
// prompts, not user-configurable knobs.
const (
	temperature = 0.3
	maxTokens   = 8000
	topP        = 0.7
)

// Client implements domain.AIClient against the OpenRouter
// chat-completions endpoint.
type Client struct {
	baseURL string
	model   string
	referer string
	title   string

	hc      *http.Client
	rotator *KeyRotator
	counter *tokencount.Counter

	maxAttempts int
	// newBackOff is swappable in tests to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// New constructs a Client from configuration. The credential pool must
// be non-empty.
func New(cfg config.Config) (*Client, error) {
	rotator, err := NewKeyRotator(cfg.OpenRouterAPIKeys)
	if err != nil {
		return nil, fmt.Errorf("op=openrouter.New: %w", err)
	}
	initial, max, multiplier := cfg.AIBackoff()
	attempts := cfg.AIMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL: cfg.OpenRouterBaseURL,
		model:   cfg.ChatModel,
		referer: cfg.OpenRouterReferer,
		title:   cfg.OpenRouterTitle,
		hc: &http.Client{
			Timeout:   120 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		rotator:     rotator,
		counter:     tokencount.NewCounter(),
		maxAttempts: attempts,
		newBackOff: func() backoff.BackOff {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = initial
			expo.MaxInterval = max
			expo.Multiplier = multiplier
			expo.MaxElapsedTime = 0 // attempt count is the only bound
			return expo
		},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends the conversation and returns the first completion's text.
// Rate limits (429), server errors, malformed response envelopes, and
// detected truncation are retried with exponential backoff; other 4xx
// statuses fail fast. After the attempt budget is exhausted the last
// cause is wrapped in domain.ErrTransport.
func (c *Client) Chat(ctx domain.Context, conv domain.Conversation) (string, error) {
	if len(conv) == 0 {
		return "", fmt.Errorf("%w: empty conversation", domain.ErrInvalidArgument)
	}

	msgs := make([]chatMessage, len(conv))
	promptChars := 0
	for i, m := range conv {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
		promptChars += len(m.Content)
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("op=openrouter.chat: marshal: %w", err)
	}

	if n, err := c.counter.CountConversation(c.model, conv); err == nil {
		observability.AIPromptTokens.WithLabelValues("chat").Observe(float64(n))
		slog.Debug("prompt token count", slog.Int("tokens", n), slog.Int("chars", promptChars))
	}

	var content string
	start := time.Now()
	op := func() error {
		apiKey := c.rotator.Next()

		// Recreate the request each attempt to avoid reusing consumed bodies.
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+apiKey)
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("HTTP-Referer", c.referer)
		r.Header.Set("X-Title", c.title)

		resp, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			slog.Warn("ai provider rate limited", slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client error: retrying an identical request would only burn
			// the attempt budget.
			slog.Warn("ai provider 4xx", slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("body", snippet(respBody, 512)))
			return backoff.Permanent(fmt.Errorf("chat status %d %s", resp.StatusCode, resp.Status))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			slog.Error("ai provider non-2xx", slog.Int("status", resp.StatusCode), slog.String("model", c.model), slog.String("body", snippet(respBody, 512)))
			return fmt.Errorf("chat status %d %s", resp.StatusCode, resp.Status)
		}

		var out chatResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			slog.Error("ai provider decode error", slog.Any("error", err))
			return err
		}
		if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
			return fmt.Errorf("invalid response format")
		}
		text := out.Choices[0].Message.Content
		if LooksTruncated(text) {
			slog.Warn("response appears truncated, retrying", slog.Int("length", len(text)))
			return fmt.Errorf("response was truncated")
		}
		content = text
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	err = backoff.Retry(op, bo)
	observability.AIRequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AIRequestsTotal.WithLabelValues("chat", "error").Inc()
		slog.Error("openrouter chat failed after retries", slog.Int("max_attempts", c.maxAttempts), slog.Any("error", err))
		return "", fmt.Errorf("op=openrouter.chat: %w: %w", domain.ErrTransport, err)
	}
	observability.AIRequestsTotal.WithLabelValues("chat", "ok").Inc()
	return content, nil
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
