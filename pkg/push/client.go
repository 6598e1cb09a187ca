package push

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
	ErrFailedToSend  = errors.New("push.errors.failed_to_send")
	ErrInvalidConfig = errors.New("push.errors.invalid_config")
	ErrInvalidParams = errors.New("push.errors.invalid_params")
)

// Config holds push gateway configuration.
type Config struct {
	GatewayURL string        `env:"PUSH_GATEWAY_URL,required"`
	APIKey     string        `env:"PUSH_API_KEY,required"`
	Timeout    time.Duration `env:"PUSH_TIMEOUT" envDefault:"10s"`
}

// Message is one outbound push notification.
type Message struct {
	Token string `json:"token"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// Sender represents an interface for sending a single push message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client is an HTTP push-gateway sender.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a push gateway client, failing fast on incomplete
// configuration.
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

// Send delivers one message through the gateway. An invalid or expired
// device token comes back as 4xx and is a permanent rejection; transport
// failures and 5xx map to the transient channel-unavailable kind.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: device token is required", ErrInvalidParams)
	}
	if msg.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
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

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
