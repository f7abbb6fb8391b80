// Package event carries domain notifications out of the services once the
// database work that produced them has committed.
package event

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Type string

const (
	StockMoved        Type = "stock_moved"
	LowStock          Type = "low_stock"
	ProductChanged    Type = "product_changed"
	SaleStatusChanged Type = "sale_status_changed"
)

type Event struct {
	Type       Type      `json:"type"`
	Action     string    `json:"action"`
	Payload    any       `json:"payload"`
	Actor      string    `json:"actor,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(t Type, action string, payload any, actor, message string) Event {
	return Event{
		Type:       t,
		Action:     action,
		Payload:    payload,
		Actor:      actor,
		Message:    message,
		OccurredAt: time.Now(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type noop struct{}

// Noop discards every event.
var Noop Publisher = noop{}

func (noop) Publish(context.Context, Event) error { return nil }

type multi []Publisher

// Multi fans an event out to every publisher and joins their errors.
func Multi(publishers ...Publisher) Publisher {
	var list multi
	for _, p := range publishers {
		if p != nil {
			list = append(list, p)
		}
	}
	return list
}

func (m multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory; tests use it to assert on
// what a service emitted.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// OfType returns the recorded events of one type in publish order.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
