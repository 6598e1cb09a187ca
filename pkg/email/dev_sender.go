package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements Sender for local development. It saves outbound mail
// as text and JSON files to a directory instead of calling an email service.
type DevSender struct {
	dir string
}

// NewDevSender creates a development email sender that saves mail to disk.
// The directory will be created if it doesn't exist.
func NewDevSender(dir string) Sender {
	return &DevSender{dir: dir}
}

type devMessage struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

// Send saves the message body and metadata to the configured directory.
func (d *DevSender) Send(_ context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSend, err)
	}

	now := time.Now()
	identifier := params.Tag
	if identifier == "" {
		identifier = params.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(identifier))

	bodyPath := filepath.Join(d.dir, base+".txt")
	if err := os.WriteFile(bodyPath, []byte(params.Body), 0644); err != nil {
		return fmt.Errorf("%w: failed to write body file: %v", ErrFailedToSend, err)
	}

	meta, err := json.MarshalIndent(devMessage{
		Timestamp: now.Format(time.RFC3339),
		To:        params.To,
		Subject:   params.Subject,
		Tag:       params.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSend, err)
	}

	metaPath := filepath.Join(d.dir, base+".json")
	if err := os.WriteFile(metaPath, meta, 0644); err != nil {
		return fmt.Errorf("%w: failed to write metadata file: %v", ErrFailedToSend, err)
	}

	return nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
