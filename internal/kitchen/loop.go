package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expeditor/internal/models"
	"expeditor/internal/monitoring"
)

// DefaultInterval is the polling cadence used when none is configured.
const DefaultInterval = 3 * time.Second

// Transport is the backend surface the loop depends on. internal/api.Client
// satisfies it; tests substitute fakes.
type Transport interface {
	FetchOrders(ctx context.Context, status string) ([]models.Order, error)
	SetItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus) error
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, notes string) (*models.Order, error)
}

// State is the loop's scheduler state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventType tags the notifications the loop emits for the display.
type EventType int

const (
	// EventSnapshot: the snapshot was replaced by a successful poll.
	EventSnapshot EventType = iota
	// EventPollFailed: a poll failed; the snapshot is unchanged.
	EventPollFailed
)

// Event is a loop notification. Err is set for EventPollFailed.
type Event struct {
	Type EventType
	Err  error
}

var (
	// ErrUnknownOrder is returned when a mutation names an order the
	// snapshot does not contain.
	ErrUnknownOrder = errors.New("order not in snapshot")
	// ErrUnknownItem is returned when a mutation names an item its order
	// does not contain.
	ErrUnknownItem = errors.New("item not in order")
	// ErrIllegalTransition is returned when the requested status change is
	// not the forward step the state machine offers.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrStopped is returned for operations on a stopped loop.
	ErrStopped = errors.New("loop stopped")
)

// Loop owns the local snapshot of kitchen-visible orders and keeps it
// consistent with the backend by polling. All mutations funnel through it:
// confirm with the backend first, then force a refresh. Nothing is flipped
// locally ahead of the backend's answer.
type Loop struct {
	transport Transport
	interval  time.Duration
	collector *monitoring.Collector

	mu       sync.Mutex
	state    State
	snapshot map[string]models.Order
	lastErr  error

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	events   chan Event
	stopOnce sync.Once
}

// NewLoop creates a synchronization loop over the given transport. A zero
// or negative interval falls back to DefaultInterval. The collector may be
// nil.
func NewLoop(transport Transport, interval time.Duration, collector *monitoring.Collector) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		transport: transport,
		interval:  interval,
		collector: collector,
		state:     StateIdle,
		snapshot:  make(map[string]models.Order),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		events:    make(chan Event, 16),
	}
}

// Start begins polling: one immediate fetch, then one per interval. Call
// once; Stop tears the loop down.
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop moves the loop to its terminal state. The timer is cancelled; an
// in-flight fetch is allowed to complete but its result is discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.state = StateStopped
		l.mu.Unlock()
		close(l.stop)
	})
}

// Wait blocks until the polling goroutine has exited after Stop.
func (l *Loop) Wait() {
	<-l.done
}

// Refresh queues one out-of-band poll. If a fetch is already in flight the
// refresh runs immediately after it resolves; multiple pending requests
// coalesce into one.
func (l *Loop) Refresh() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// State returns the loop's scheduler state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// LastError returns the most recent poll failure, or nil after a
// successful poll.
func (l *Loop) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Snapshot returns a copy of the current order set, oldest first.
func (l *Loop) Snapshot() []models.Order {
	l.mu.Lock()
	orders := make([]models.Order, 0, len(l.snapshot))
	for _, o := range l.snapshot {
		orders = append(orders, o)
	}
	l.mu.Unlock()
	return SortByAge(orders)
}

// Get returns one order from the snapshot.
func (l *Loop) Get(orderID string) (models.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.snapshot[orderID]
	return o, ok
}

// Events returns the loop's notification channel. Sends never block; when
// the consumer lags, notifications are dropped and the next snapshot event
// carries the current state anyway.
func (l *Loop) Events() <-chan Event {
	return l.events
}

// RequestOrderStatus asks the backend to advance an order, validating the
// transition against the snapshot's view first. Item statuses are not
// consulted: marking an order ready with unfinished items is allowed, as
// kitchen staff confirm readiness themselves. On success exactly one forced
// refresh is queued. Failures leave the snapshot untouched; retrying is the
// caller's decision.
func (l *Loop) RequestOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, notes string) error {
	current, ok := l.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrUnknownOrder)
	}
	if !models.CanAdvanceOrder(current.Status, status) {
		return fmt.Errorf("order %s: %s -> %s: %w", orderID, current.Status, status, ErrIllegalTransition)
	}

	_, err := l.transport.SetOrderStatus(ctx, orderID, status, notes)
	l.collector.RecordMutation("order", err == nil)
	if err != nil {
		return err
	}

	l.Refresh()
	return nil
}

// RequestItemStatus asks the backend to advance a single item. The parent
// order is never auto-advanced; that takes a separate order-status action.
func (l *Loop) RequestItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus) error {
	order, ok := l.Get(orderID)
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrUnknownOrder)
	}

	var current models.ItemStatus
	found := false
	for _, item := range order.Items {
		if item.ID == itemID {
			current = item.Status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("item %s in order %s: %w", itemID, orderID, ErrUnknownItem)
	}
	if !models.CanAdvanceItem(current, status) {
		return fmt.Errorf("item %s: %s -> %s: %w", itemID, current, status, ErrIllegalTransition)
	}

	err := l.transport.SetItemStatus(ctx, orderID, itemID, status)
	l.collector.RecordMutation("item", err == nil)
	if err != nil {
		return err
	}

	l.Refresh()
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	// Initial fetch so the board fills without waiting a full interval.
	l.fetchOnce(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.wake:
			l.fetchOnce(ctx)
		case <-ticker.C:
			l.fetchOnce(ctx)
		}

		// A tick that landed while the fetch was running would fire
		// immediately on the next select; drain it instead so ticks
		// coalesce and polls never stack up.
		select {
		case <-ticker.C:
			l.collector.RecordCoalescedTick()
		default:
		}
	}
}

// fetchOnce performs a single poll. The snapshot is always fetched
// unfiltered; filtered views are derived at read time.
func (l *Loop) fetchOnce(ctx context.Context) {
	l.mu.Lock()
	if l.state == StateStopped {
		l.mu.Unlock()
		return
	}
	l.state = StateFetching
	l.mu.Unlock()

	start := time.Now()
	orders, err := l.transport.FetchOrders(ctx, "")
	l.collector.RecordPoll(time.Since(start), err == nil)

	l.mu.Lock()
	if l.state == StateStopped {
		// The view is gone; whatever came back is discarded.
		l.mu.Unlock()
		return
	}
	l.state = StateIdle

	if err != nil {
		// Keep the last-known-good board; a failed poll must never blank
		// the display.
		l.lastErr = err
		l.mu.Unlock()
		l.emit(Event{Type: EventPollFailed, Err: err})
		return
	}

	next := make(map[string]models.Order, len(orders))
	for _, o := range orders {
		next[o.ID] = o
	}
	l.snapshot = next
	l.lastErr = nil
	l.mu.Unlock()

	l.collector.SetSnapshotSize(len(next))
	l.emit(Event{Type: EventSnapshot})
}

func (l *Loop) emit(e Event) {
	select {
	case l.events <- e:
	default:
	}
}
