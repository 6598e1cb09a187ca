package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notifykit/notify/pkg/notification"
)

var (
	ErrFailedToSend  = errors.New("sms.errors.failed_to_send")
	ErrInvalidConfig = errors.New("sms.errors.invalid_config")
	ErrInvalidParams = errors.New("sms.errors.invalid_params")
)

// Config holds SMS gateway configuration.
type Config struct {
	GatewayURL string        `env:"SMS_GATEWAY_URL,required"`
	APIKey     string        `env:"SMS_API_KEY,required"`
	SenderID   string        `env:"SMS_SENDER_ID" envDefault:"notify"`
	Timeout    time.Duration `env:"SMS_TIMEOUT" envDefault:"10s"`
}

// Message is one outbound SMS.
type Message struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

// Sender represents an interface for sending a single SMS message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client is an HTTP SMS-gateway sender.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates an SMS gateway client, validating configuration up
// front so a misconfigured service fails at startup instead of per call.
func NewClient(cfg Config) (*Client, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: GatewayURL is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Send delivers one message through the gateway. Transport failures and 5xx
// responses map to the transient channel-unavailable kind so the resilience
// layer retries them; 4xx responses are permanent rejections.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("%w: destination number is required", ErrInvalidParams)
	}
	if msg.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	if msg.From == "" {
		msg.From = c.cfg.SenderID
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Join(ErrFailedToSend, notification.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errors.Join(ErrFailedToSend, notification.ErrChannelUnavailable,
			fmt.Errorf("gateway responded %d: %s", resp.StatusCode, readBody(resp.Body)))
	default:
		return errors.Join(ErrFailedToSend, notification.ErrPermanentRejection,
			fmt.Errorf("gateway responded %d: %s", resp.StatusCode, readBody(resp.Body)))
	}
}

// readBody captures a bounded response snippet for error context.
func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
