package event

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("event bus closed")

// Sink consumes events. Close is called once when the run is over.
type Sink interface {
	OnEvent(Event) error
	Close() error
}

// SinkFunc adapts a function to a Sink with a no-op Close.
type SinkFunc func(Event) error

func (f SinkFunc) OnEvent(e Event) error { return f(e) }
func (f SinkFunc) Close() error          { return nil }

// Bus delivers each event to every subscribed sink in subscription order.
// It is not safe for concurrent use; one goroutine emits.
type Bus struct {
	sinks  []Sink
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds a sink. Events already emitted are not replayed.
func (b *Bus) Subscribe(s Sink) {
	b.sinks = append(b.sinks, s)
}

// Emit delivers e to every sink. A sink error does not stop delivery to the
// remaining sinks; all errors are combined.
func (b *Bus) Emit(e Event) error {
	if b.closed {
		return ErrClosed
	}
	var err error
	for i, s := range b.sinks {
		if serr := s.OnEvent(e); serr != nil {
			err = multierr.Append(err, fmt.Errorf("sink %d handling %s: %w", i, e.Type, serr))
		}
	}
	return err
}

// Close closes every sink once and combines their errors.
func (b *Bus) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	var err error
	for _, s := range b.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
