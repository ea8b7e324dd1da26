package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiko-app/kiko-matching/pkg/circuitbreaker"
	"github.com/kiko-app/kiko-matching/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSATION SERVICE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ConversationClientConfig contains configuration for the conversation
// service client.
type ConversationClientConfig struct {
	// BaseURL is the conversation service base URL.
	BaseURL string

	// APIKey is sent as a bearer token (if set).
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConversationClientConfig returns sensible defaults.
func DefaultConversationClientConfig(baseURL string) ConversationClientConfig {
	return ConversationClientConfig{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ConversationClient implements command.ConversationNotifier against the
// external conversation service. The remote side is idempotent on
// (userA, userB, weekKey), so retrying a channel call is always safe.
type ConversationClient struct {
	config     ConversationClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewConversationClient creates a new conversation service client.
func NewConversationClient(config ConversationClientConfig) *ConversationClient {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger.With(slog.String("component", "conversation_client"))

	return &ConversationClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.ConversationRetrier(),
		breaker: circuitbreaker.ConversationBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	}
}

// ensureChannelRequest is the wire request for channel creation.
type ensureChannelRequest struct {
	UserA   string `json:"user_a"`
	UserB   string `json:"user_b"`
	WeekKey string `json:"week_key"`
}

// ensureChannelResponse is the wire response for channel creation.
type ensureChannelResponse struct {
	ChannelRef string `json:"channel_ref"`
}

// EnsureChannel establishes (or finds) the conversation channel for a
// matched pair. Returns an opaque channel reference.
func (c *ConversationClient) EnsureChannel(ctx context.Context, userAID, userBID string, weekKey string) (string, error) {
	body, err := json.Marshal(ensureChannelRequest{
		UserA:   userAID,
		UserB:   userBID,
		WeekKey: weekKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal channel request: %w", err)
	}

	var channelRef string

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			ref, err := c.postChannel(ctx, body)
			if err != nil {
				return err
			}
			channelRef = ref
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("conversation channel ensured",
		"user_a", userAID,
		"user_b", userBID,
		"week_key", weekKey,
		"channel_ref", channelRef,
	)

	return channelRef, nil
}

// postChannel performs a single channel creation request.
func (c *ConversationClient) postChannel(ctx context.Context, body []byte) (string, error) {
	fullURL := c.config.BaseURL + "/api/v1/channels"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("channel request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Parsed below.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", retry.Retryable(fmt.Errorf("conversation service returned %d", resp.StatusCode))
	default:
		// 4xx other than 429 will not heal on retry.
		return "", retry.Permanent(fmt.Errorf("conversation service returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed ensureChannelResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to parse channel response: %w", err))
	}
	if parsed.ChannelRef == "" {
		return "", retry.Permanent(fmt.Errorf("conversation service returned empty channel_ref"))
	}

	return parsed.ChannelRef, nil
}
