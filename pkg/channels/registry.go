package channels

import (
	"errors"
	"fmt"

	"github.com/notifykit/notify/pkg/notification"
)

// ErrSenderNil is returned when a dispatcher is constructed without its
// underlying sender.
var ErrSenderNil = errors.New("sender cannot be nil")

// Registry maps the channel enum to its dispatcher. It is built once at
// process start; requesting an unregistered channel is a configuration
// error, not a runtime one.
type Registry struct {
	dispatchers map[notification.Channel]Dispatcher
}

// NewRegistry builds a registry from the given dispatchers. Every dispatcher
// must serve a distinct concrete channel.
func NewRegistry(dispatchers ...Dispatcher) (*Registry, error) {
	r := &Registry{dispatchers: make(map[notification.Channel]Dispatcher, len(dispatchers))}

	for _, d := range dispatchers {
		if d == nil {
			return nil, errors.New("dispatcher cannot be nil")
		}
		ch := d.Channel()
		if !ch.Concrete() {
			return nil, fmt.Errorf("%w: %q is not a concrete channel", notification.ErrInvalidChannel, ch)
		}
		if _, exists := r.dispatchers[ch]; exists {
			return nil, fmt.Errorf("duplicate dispatcher for channel %q", ch)
		}
		r.dispatchers[ch] = d
	}

	return r, nil
}

// Get resolves a concrete channel to its dispatcher.
func (r *Registry) Get(ch notification.Channel) (Dispatcher, error) {
	d, ok := r.dispatchers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: no dispatcher registered for %q", notification.ErrInvalidChannel, ch)
	}
	return d, nil
}

// Channels lists the concrete channels the registry can dispatch to, in the
// canonical order.
func (r *Registry) Channels() []notification.Channel {
	var out []notification.Channel
	for _, ch := range notification.ConcreteChannels() {
		if _, ok := r.dispatchers[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}
