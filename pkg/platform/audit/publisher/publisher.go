// Package publisher fronts an audit.Store with optional asynchronous
// buffering. Compliance-category events always bypass the buffer and are
// written synchronously so that the caller sees persistence failures.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "kycgate/pkg/domain"
	audit "kycgate/pkg/platform/audit"
)

var (
	ErrBufferFull = errors.New("audit buffer full")
	ErrClosed     = errors.New("audit publisher closed")
	ErrNoListing  = errors.New("audit store does not support listing")
)

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	bufferSize int
	events     chan audit.Event
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables background delivery of non-compliance events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.events = make(chan audit.Event, p.bufferSize)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit stamps the event and hands it to the store.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if p.events == nil || event.Category == audit.CategoryCompliance {
		return p.store.Append(ctx, event)
	}

	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"request_id", event.RequestID,
			)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"user_id", event.UserID,
				"error", err,
			)
		}
	}
}

// List reads a user's events back when the store supports it.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	lister, ok := p.store.(Lister)
	if !ok {
		return nil, ErrNoListing
	}
	return lister.ListByUser(ctx, userID)
}

// Close stops accepting events and drains the buffer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.events != nil {
		close(p.events)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
