package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/notifykit/notify/pkg/directory"
	"github.com/notifykit/notify/pkg/notification"
)

// ErrDirectoryNil is returned when a nil directory is provided.
var ErrDirectoryNil = errors.New("directory cannot be nil")

// Resolver resolves notification requests into contact fan-out entries.
type Resolver struct {
	dir directory.Directory
}

// New creates a resolver backed by the given identity directory.
func New(dir directory.Directory) (*Resolver, error) {
	if dir == nil {
		return nil, ErrDirectoryNil
	}
	return &Resolver{dir: dir}, nil
}

// Resolve returns the fan-out entries for one concrete channel.
func (r *Resolver) Resolve(ctx context.Context, req notification.Request, ch notification.Channel) ([]notification.Contact, error) {
	if !ch.Concrete() {
		return nil, fmt.Errorf("%w: %q", notification.ErrInvalidChannel, ch)
	}

	var contacts []notification.Contact

	for _, id := range req.UserIDs {
		rec, err := r.dir.GetContact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup user %d: %w", id, err)
		}
		if rec == nil {
			// Stale identifier, skip silently.
			continue
		}
		if c, ok := contactFor(rec, ch); ok {
			contacts = append(contacts, c)
		}
	}

	switch ch {
	case notification.ChannelEmail:
		for _, email := range req.Emails {
			contacts = append(contacts, notification.EmailContact(email))
		}
	case notification.ChannelSMS:
		for _, phone := range req.SMSNumbers {
			contacts = append(contacts, notification.SMSContact(phone))
		}
	}

	return contacts, nil
}

// ResolveAll resolves every concrete channel concurrently and concatenates
// the results. Entries from different channels are never merged even when
// they originate from the same identifier. The concatenation order follows
// the channel order, but callers must not rely on entry ordering.
func (r *Resolver) ResolveAll(ctx context.Context, req notification.Request) ([]notification.Contact, error) {
	channels := notification.ConcreteChannels()

	var (
		wg      sync.WaitGroup
		results = make([][]notification.Contact, len(channels))
		errs    = make([]error, len(channels))
	)

	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(ctx, req, ch)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var all []notification.Contact
	for _, part := range results {
		all = append(all, part...)
	}
	return all, nil
}

// contactFor projects a directory record onto the single field the channel
// requires. The second return is false when the record lacks that field.
func contactFor(rec *directory.Contact, ch notification.Channel) (notification.Contact, bool) {
	userID := rec.UserID

	switch ch {
	case notification.ChannelEmail:
		if rec.Email != "" {
			email := rec.Email
			return notification.Contact{UserID: &userID, Email: &email}, true
		}
	case notification.ChannelSMS:
		if rec.Phone != "" {
			phone := rec.Phone
			return notification.Contact{UserID: &userID, Phone: &phone}, true
		}
	case notification.ChannelPush:
		if rec.PushToken != "" {
			token := rec.PushToken
			return notification.Contact{UserID: &userID, PushToken: &token}, true
		}
	}
	return notification.Contact{}, false
}
