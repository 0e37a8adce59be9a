package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/heliodesk/heliodesk-backend/internal/pkg/httpx"
	"github.com/heliodesk/heliodesk-backend/internal/platform/envutil"
	"github.com/heliodesk/heliodesk-backend/internal/platform/logger"
)

// Client is the outbound delivery collaborator. It is invoked after message
// persistence, asynchronously; the caller writes the resulting status back
// onto the message row.
type Client interface {
	SendText(ctx context.Context, toPhone string, body string) (*DeliveryResult, error)
}

type DeliveryResult struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("WHATSAPP_BASE_URL")),
		Token:      strings.TrimSpace(os.Getenv("WHATSAPP_API_TOKEN")),
		Timeout:    time.Duration(envutil.Int("WHATSAPP_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("WHATSAPP_MAX_RETRIES", 3),
	}
}

func NewFromEnv(baseLog *logger.Logger) (Client, error) {
	return New(baseLog, ConfigFromEnv())
}

func New(baseLog *logger.Logger, cfg Config) (Client, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing WHATSAPP_BASE_URL")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing WHATSAPP_API_TOKEN")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:  baseLog.With("client", "WhatsappClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("whatsapp api status %d: %s", e.StatusCode, e.Body)
}

func (e *apiError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) SendText(ctx context.Context, toPhone string, body string) (*DeliveryResult, error) {
	toPhone = strings.TrimSpace(toPhone)
	if toPhone == "" {
		return nil, fmt.Errorf("missing destination phone")
	}

	payload, err := json.Marshal(map[string]string{
		"to":   toPhone,
		"type": "text",
		"body": body,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * time.Second)):
			}
		}
		res, err := c.send(ctx, payload)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			return nil, err
		}
		c.log.Warn("Delivery attempt failed, retrying", "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (c *client) send(ctx context.Context, payload []byte) (*DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out DeliveryResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode delivery response: %w", err)
	}
	if out.Status == "" {
		out.Status = "sent"
	}
	return &out, nil
}
