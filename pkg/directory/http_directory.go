package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid directory configuration")

	// ErrLookupFailed is returned when the remote contact service misbehaves.
	ErrLookupFailed = errors.New("contact lookup failed")
)

// Config holds HTTP directory client configuration.
type Config struct {
	BaseURL string        `env:"DIRECTORY_BASE_URL,required"`
	APIKey  string        `env:"DIRECTORY_API_KEY"`
	Timeout time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"5s"`
}

// HTTPDirectory is a JSON client for a remote contact service exposing
// GET {base}/contacts/{id}. A 404 response maps to "unknown identifier"
// rather than an error.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPDirectory creates a directory client. The HTTP client is reused
// across requests for connection pooling.
func NewHTTPDirectory(cfg Config) (*HTTPDirectory, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPDirectory{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
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

// GetContact implements Directory.
func (d *HTTPDirectory) GetContact(ctx context.Context, id int64) (*Contact, error) {
	url := d.baseURL + "/contacts/" + strconv.FormatInt(id, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Stale identifier, not an error.
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, resp.StatusCode)
	}

	var contact Contact
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	if contact.UserID == 0 {
		contact.UserID = id
	}

	return &contact, nil
}
