package models

// OrderAction is the single forward transition the kitchen may apply to an
// order in its current state.
type OrderAction struct {
	Label string
	Next  OrderStatus
}

// ItemAction is the single forward transition available for an order item.
type ItemAction struct {
	Label string
	Next  ItemStatus
}

// Kitchen-initiated transitions only move forward through
// confirmed -> preparing -> ready -> completed. Cancellation is an upstream
// action and is never offered here.
var orderActions = map[OrderStatus]OrderAction{
	OrderStatusConfirmed: {Label: "Start Cooking", Next: OrderStatusPreparing},
	OrderStatusPreparing: {Label: "Mark Ready", Next: OrderStatusReady},
	OrderStatusReady:     {Label: "Complete Order", Next: OrderStatusCompleted},
}

var itemActions = map[ItemStatus]ItemAction{
	ItemStatusPreparing: {Label: "Mark Ready", Next: ItemStatusReady},
	ItemStatusReady:     {Label: "Mark Served", Next: ItemStatusServed},
}

// NextOrderAction returns the action the kitchen may take on an order with
// the given status. The second return is false for display-only states
// (pending, served, completed, cancelled).
func NextOrderAction(status OrderStatus) (OrderAction, bool) {
	action, ok := orderActions[status]
	return action, ok
}

// NextItemAction returns the action available for an item with the given
// status. Pending and served items have no kitchen action.
func NextItemAction(status ItemStatus) (ItemAction, bool) {
	action, ok := itemActions[status]
	return action, ok
}

// CanAdvanceOrder reports whether moving an order from one status to another
// is a legal kitchen transition. Only the single forward step defined for
// the current status is legal; an order marked ready is allowed regardless
// of its item statuses (the backend owns that invariant, if any).
func CanAdvanceOrder(from, to OrderStatus) bool {
	action, ok := orderActions[from]
	return ok && action.Next == to
}

// CanAdvanceItem reports whether moving an item from one status to another
// is a legal kitchen transition.
func CanAdvanceItem(from, to ItemStatus) bool {
	action, ok := itemActions[from]
	return ok && action.Next == to
}
