package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultActivationTimeout = 5 * time.Second

var (
	ErrActivationFailed  = errors.New("number activation failed")
	ErrActivationTimeout = errors.New("number activation timed out")
)

// Ack is the telecom backend's acknowledgement of an activation.
type Ack struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Activator activates a number on the telecom backend.
type Activator interface {
	Activate(ctx context.Context, number, region string) (*Ack, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultActivationTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type activateRequest struct {
	PhoneNumber string `json:"phone_number"`
	Region      string `json:"region"`
}

// Activate makes a single bounded attempt. Callers decide whether a failure matters.
func (c *Client) Activate(ctx context.Context, number, region string) (*Ack, error) {
	payload, err := json.Marshal(activateRequest{PhoneNumber: number, Region: region})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrActivationFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/numbers/activate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrActivationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w after %s: %v", ErrActivationTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrActivationFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: backend returned %d: %s", ErrActivationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	ack := &Ack{Status: "accepted"}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, ack); err != nil {
			c.logger.Debug("activation ack body not understood", "number", number, "error", err)
		}
	}

	c.logger.Info("number activated on telecom backend",
		"number", number,
		"region", region,
		"reference", ack.Reference)
	return ack, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
