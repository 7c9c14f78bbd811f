// Package nestorapi talks to the Nestor messaging API.
package nestorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nestor/internal/domain"
)

const (
	DefaultBaseURL   = "https://v2.asknestor.me"
	defaultUserAgent = "nestor-go/0.1"
	maxErrorBody     = 8 << 10
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Token      TokenSource // defaults to EnvToken(DefaultTokenEnv)
	HTTPClient *http.Client
	Timeout    time.Duration // ignored when HTTPClient is set; 0 means none
	UserAgent  string
	Logger     *slog.Logger
}

// Client posts responses to the messaging endpoint of a team.
type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

var _ domain.Poster = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("nestorapi: invalid base URL %q: %w", baseURL, err)
	}

	token := cfg.Token
	if token == nil {
		token = EnvToken(DefaultTokenEnv)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = SharedHTTPClient(cfg.Timeout)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}, nil
}

type messageEnvelope struct {
	Message domain.WireMessage `json:"message"`
}

// PostMessage sends msg to POST /teams/<teamID>/messages. Any 2xx status is
// success. Failures come back as *TransportError or *APIError; nothing is
// retried.
func (c *Client) PostMessage(ctx context.Context, teamID string, msg domain.WireMessage) error {
	if strings.TrimSpace(teamID) == "" {
		return errors.New("nestorapi: team id required")
	}
	token, err := c.token.Token()
	if err != nil {
		return err
	}

	body, err := json.Marshal(messageEnvelope{Message: msg})
	if err != nil {
		return fmt.Errorf("nestorapi: marshal message: %w", err)
	}

	endpoint := c.baseURL + "/teams/" + url.PathEscape(teamID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("nestorapi: build request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	// Drain so the connection goes back to the pool.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	c.logger.Debug("nestor message posted",
		"team", teamID,
		"user", msg.UserUID,
		"channel", msg.ChannelUID,
		"reply", msg.Reply,
		"status", resp.StatusCode,
	)
	return nil
}
