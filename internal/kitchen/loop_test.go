package kitchen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"expeditor/internal/api"
	"expeditor/internal/models"
)

// fakeTransport lets tests script fetch results and observe mutation calls.
type fakeTransport struct {
	mu          sync.Mutex
	fetchCalls  int
	fetchFn     func(call int) ([]models.Order, error)
	gate        chan struct{} // when set, fetches block until it is closed
	orderCalls  []orderCall
	itemCalls   []itemCall
	mutationErr error
}

type orderCall struct {
	orderID string
	status  models.OrderStatus
	notes   string
}

type itemCall struct {
	orderID string
	itemID  string
	status  models.ItemStatus
}

func (f *fakeTransport) FetchOrders(ctx context.Context, status string) ([]models.Order, error) {
	f.mu.Lock()
	f.fetchCalls++
	call := f.fetchCalls
	gate := f.gate
	fn := f.fetchFn
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fn != nil {
		return fn(call)
	}
	return nil, nil
}

func (f *fakeTransport) SetItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls = append(f.itemCalls, itemCall{orderID, itemID, status})
	return f.mutationErr
}

func (f *fakeTransport) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, notes string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls = append(f.orderCalls, orderCall{orderID, status, notes})
	if f.mutationErr != nil {
		return nil, f.mutationErr
	}
	return &models.Order{ID: orderID, Status: status}, nil
}

func (f *fakeTransport) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func waitEvent(t *testing.T, l *Loop, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-l.Events():
			if e.Type == want {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %v", want)
		}
	}
}

func confirmedOrder(id string, age time.Duration) models.Order {
	return models.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Status:      models.OrderStatusConfirmed,
		OrderType:   models.OrderTypeDineIn,
		CreatedAt:   time.Now().Add(-age),
	}
}

// A failed poll must leave the snapshot exactly as it was.
func TestFailedPollKeepsSnapshot(t *testing.T) {
	transport := &fakeTransport{
		fetchFn: func(call int) ([]models.Order, error) {
			if call == 1 {
				return []models.Order{confirmedOrder("1", 2*time.Minute)}, nil
			}
			return nil, &api.APIError{Message: "db down"}
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()

	waitEvent(t, loop, EventSnapshot)
	before := loop.Snapshot()
	assert.Len(t, before, 1)

	loop.Refresh()
	e := waitEvent(t, loop, EventPollFailed)

	var apiErr *api.APIError
	assert.ErrorAs(t, e.Err, &apiErr)
	assert.Equal(t, "db down", apiErr.Message)

	after := loop.Snapshot()
	assert.Equal(t, before, after, "snapshot must survive a failed poll")
	assert.ErrorAs(t, loop.LastError(), &apiErr)
}

// While a fetch is in flight, timer ticks must not issue a second request.
func TestTicksCoalesceDuringFetch(t *testing.T) {
	gate := make(chan struct{})
	transport := &fakeTransport{gate: gate}

	loop := NewLoop(transport, 20*time.Millisecond, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()

	// The initial fetch is blocked; several intervals pass.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, transport.fetches(), "no poll may start while one is in flight")

	close(gate)
	waitEvent(t, loop, EventSnapshot)
}

// A successful mutation triggers exactly one out-of-band refresh.
func TestMutationForcesSingleRefresh(t *testing.T) {
	transport := &fakeTransport{
		fetchFn: func(call int) ([]models.Order, error) {
			if call == 1 {
				return []models.Order{confirmedOrder("1", 2*time.Minute)}, nil
			}
			preparing := confirmedOrder("1", 2*time.Minute)
			preparing.Status = models.OrderStatusPreparing
			return []models.Order{preparing}, nil
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()

	waitEvent(t, loop, EventSnapshot)
	assert.Equal(t, 1, transport.fetches())

	err := loop.RequestOrderStatus(context.Background(), "1", models.OrderStatusPreparing, "")
	assert.NoError(t, err)

	waitEvent(t, loop, EventSnapshot)
	assert.Equal(t, 2, transport.fetches(), "exactly one forced refresh after the mutation")

	// No further polls sneak in before the (distant) next tick.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, transport.fetches())

	order, ok := loop.Get("1")
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusPreparing, order.Status)

	// The transport saw the mutation exactly once, with no notes.
	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, []orderCall{{"1", models.OrderStatusPreparing, ""}}, transport.orderCalls)
}

// Actions outside the state machine's single forward step are rejected
// before the transport is touched.
func TestIllegalOrderTransitionsRejected(t *testing.T) {
	ready := confirmedOrder("1", time.Minute)
	ready.Status = models.OrderStatusReady

	transport := &fakeTransport{
		fetchFn: func(int) ([]models.Order, error) {
			return []models.Order{confirmedOrder("c", time.Minute), ready}, nil
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()
	waitEvent(t, loop, EventSnapshot)

	// "Start Cooking" only applies to confirmed orders.
	err := loop.RequestOrderStatus(context.Background(), "1", models.OrderStatusPreparing, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// "Mark Ready" only applies to preparing orders.
	err = loop.RequestOrderStatus(context.Background(), "c", models.OrderStatusReady, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// "Complete Order" only applies to ready orders.
	err = loop.RequestOrderStatus(context.Background(), "c", models.OrderStatusCompleted, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	// Unknown orders are rejected too.
	err = loop.RequestOrderStatus(context.Background(), "nope", models.OrderStatusPreparing, "")
	assert.ErrorIs(t, err, ErrUnknownOrder)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Empty(t, transport.orderCalls, "rejected actions must not reach the backend")
}

// An item can advance while its parent order stays put; the order is never
// auto-advanced by an item change.
func TestItemAdvanceDoesNotTouchOrderStatus(t *testing.T) {
	order := confirmedOrder("1", time.Minute)
	order.Status = models.OrderStatusPreparing
	order.Items = []models.OrderItem{
		{ID: "i1", Quantity: 2, Status: models.ItemStatusPreparing, Product: models.Product{Name: "Cheeseburger"}},
	}

	transport := &fakeTransport{
		fetchFn: func(int) ([]models.Order, error) {
			return []models.Order{order}, nil
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()
	waitEvent(t, loop, EventSnapshot)

	err := loop.RequestItemStatus(context.Background(), "1", "i1", models.ItemStatusReady)
	assert.NoError(t, err)

	transport.mu.Lock()
	assert.Equal(t, []itemCall{{"1", "i1", models.ItemStatusReady}}, transport.itemCalls)
	assert.Empty(t, transport.orderCalls, "order status must be advanced by a separate action")
	transport.mu.Unlock()

	// Illegal item jumps are rejected.
	err = loop.RequestItemStatus(context.Background(), "1", "i1", models.ItemStatusServed)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	err = loop.RequestItemStatus(context.Background(), "1", "missing", models.ItemStatusReady)
	assert.ErrorIs(t, err, ErrUnknownItem)
}

// A failed mutation surfaces its error and does not force a refresh.
func TestFailedMutationLeavesSnapshotAlone(t *testing.T) {
	transport := &fakeTransport{
		fetchFn: func(int) ([]models.Order, error) {
			return []models.Order{confirmedOrder("1", time.Minute)}, nil
		},
		mutationErr: &api.APIError{Message: "order already completed"},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()
	waitEvent(t, loop, EventSnapshot)
	assert.Equal(t, 1, transport.fetches())

	err := loop.RequestOrderStatus(context.Background(), "1", models.OrderStatusPreparing, "")
	var apiErr *api.APIError
	assert.ErrorAs(t, err, &apiErr)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, transport.fetches(), "no refresh after a failed mutation")

	order, _ := loop.Get("1")
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

// After Stop, an in-flight fetch resolves but its result is discarded.
func TestStopDiscardsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	transport := &fakeTransport{
		gate: gate,
		fetchFn: func(int) ([]models.Order, error) {
			return []models.Order{confirmedOrder("1", time.Minute)}, nil
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())

	// Initial fetch is blocked; stop the loop underneath it.
	time.Sleep(20 * time.Millisecond)
	loop.Stop()
	close(gate)
	loop.Wait()

	assert.Equal(t, StateStopped, loop.State())
	assert.Empty(t, loop.Snapshot(), "result of an in-flight fetch must be discarded after Stop")
}

// Polls keep retrying on the regular cadence after failures.
func TestPollingContinuesAfterFailure(t *testing.T) {
	transport := &fakeTransport{
		fetchFn: func(int) ([]models.Order, error) {
			return nil, &api.NetworkError{Err: errors.New("connection refused")}
		},
	}

	loop := NewLoop(transport, 15*time.Millisecond, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()

	waitEvent(t, loop, EventPollFailed)
	waitEvent(t, loop, EventPollFailed)
	waitEvent(t, loop, EventPollFailed)

	assert.GreaterOrEqual(t, transport.fetches(), 3)
}

// Context cancellation tears the loop down like Stop.
func TestContextCancelStopsLoop(t *testing.T) {
	transport := &fakeTransport{}

	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(transport, 10*time.Millisecond, nil)
	loop.Start(ctx)

	waitEvent(t, loop, EventSnapshot)
	cancel()
	loop.Wait()

	assert.Equal(t, StateStopped, loop.State())
}

// The derived views partition the snapshot with no overlap, purely from
// the status field.
func TestViewsPartitionSnapshot(t *testing.T) {
	statuses := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusServed,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	}

	var orders []models.Order
	for i, status := range statuses {
		o := confirmedOrder(string(rune('a'+i)), time.Duration(i)*time.Minute)
		o.Status = status
		orders = append(orders, o)
	}

	active := Active(orders)
	ready := Ready(orders)
	byStatus := ByStatus(orders)

	assert.Len(t, active, 2)
	assert.Len(t, ready, 1)

	seen := make(map[string]int)
	for _, group := range byStatus {
		for _, o := range group {
			seen[o.ID]++
		}
	}
	assert.Len(t, seen, len(orders), "every order appears in exactly one partition")
	for id, count := range seen {
		assert.Equal(t, 1, count, "order %s appears %d times", id, count)
	}

	// active and ready never overlap
	readyIDs := make(map[string]bool)
	for _, o := range ready {
		readyIDs[o.ID] = true
	}
	for _, o := range active {
		assert.False(t, readyIDs[o.ID])
	}

	stats := Summarize(orders)
	assert.Equal(t, Stats{Confirmed: 1, Preparing: 1, Ready: 1, Total: 3}, stats)
}

func TestFilterTab(t *testing.T) {
	orders := []models.Order{
		{ID: "a", Status: models.OrderStatusConfirmed},
		{ID: "b", Status: models.OrderStatusPreparing},
		{ID: "c", Status: models.OrderStatusReady},
		{ID: "d", Status: models.OrderStatusCompleted},
	}

	assert.Len(t, FilterTab(orders, "all"), 4)
	assert.Len(t, FilterTab(orders, "active"), 2)
	assert.Len(t, FilterTab(orders, "ready"), 1)
	assert.Len(t, FilterTab(orders, "confirmed"), 1)
	assert.Empty(t, FilterTab(orders, "cancelled"))
}

func TestSnapshotSortedOldestFirst(t *testing.T) {
	transport := &fakeTransport{
		fetchFn: func(int) ([]models.Order, error) {
			return []models.Order{
				confirmedOrder("young", 1*time.Minute),
				confirmedOrder("old", 30*time.Minute),
				confirmedOrder("middle", 10*time.Minute),
			}, nil
		},
	}

	loop := NewLoop(transport, time.Hour, nil)
	loop.Start(context.Background())
	defer func() { loop.Stop(); loop.Wait() }()
	waitEvent(t, loop, EventSnapshot)

	snapshot := loop.Snapshot()
	assert.Equal(t, "old", snapshot[0].ID)
	assert.Equal(t, "middle", snapshot[1].ID)
	assert.Equal(t, "young", snapshot[2].ID)
}
