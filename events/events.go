package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBetPlaced     EventType = "bet_placed"
	EventTypeBetCancelled  EventType = "bet_cancelled"
	EventTypeResultSettled EventType = "result_settled"
	EventTypeQuotasReset   EventType = "quotas_reset"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BetPlacedEvent represents a composite bet that was placed
type BetPlacedEvent struct {
	BetID       int64
	AccountID   int64
	Receipt     string
	TotalAmount int64
	LegCount    int
	DrawDate    time.Time
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetCancelledEvent represents a pending bet that was cancelled and refunded
type BetCancelledEvent struct {
	BetID          int64
	AccountID      int64
	RefundedAmount int64
}

func (e BetCancelledEvent) Type() EventType {
	return EventTypeBetCancelled
}

// ResultSettledEvent represents a draw result that finished processing
type ResultSettledEvent struct {
	ResultID      int64
	ProviderID    int64
	LegsProcessed int
	LegsWon       int
	TotalPaid     int64
}

func (e ResultSettledEvent) Type() EventType {
	return EventTypeResultSettled
}

// QuotasResetEvent represents a completed periodic quota reset
type QuotasResetEvent struct {
	AffectedAccounts int
	TotalReset       int64
}

func (e QuotasResetEvent) Type() EventType {
	return EventTypeQuotasReset
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously so a slow subscriber cannot block a ledger operation.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and
// flushes them to the real bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit; events
// are best-effort once the transaction is durable, so a background context
// is used rather than the (possibly expired) transaction context.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
