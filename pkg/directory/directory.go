package directory

import (
	"context"
	"sync"
)

// Contact is the attribute set the directory knows about one user. Any field
// may be empty when the user has not registered that contact method.
type Contact struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PushToken string `json:"push_token,omitempty"`
}

// Directory looks up contact attributes for upstream user identifiers.
type Directory interface {
	// GetContact returns the contact record for id, or nil when the
	// identifier is unknown. A non-nil error indicates the lookup itself
	// failed, not that the user is missing.
	GetContact(ctx context.Context, id int64) (*Contact, error)
}

// MemoryDirectory is a thread-safe in-memory Directory for tests and local
// development.
type MemoryDirectory struct {
	mu       sync.RWMutex
	contacts map[int64]Contact
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{contacts: make(map[int64]Contact)}
}

// Seed adds or replaces contact records.
func (d *MemoryDirectory) Seed(contacts ...Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range contacts {
		d.contacts[c.UserID] = c
	}
}

// GetContact implements Directory.
func (d *MemoryDirectory) GetContact(_ context.Context, id int64) (*Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
