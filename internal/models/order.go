package models

import "time"

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ItemStatus represents the lifecycle state of a single order item
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
)

// OrderType classifies how an order is fulfilled
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

// Table references the dining table an order belongs to
type Table struct {
	TableNumber string `json:"table_number"`
	Location    string `json:"location,omitempty"`
}

// Product is the menu item an order line refers to, read-only from the
// kitchen's perspective
type Product struct {
	Name string `json:"name"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID                  string     `json:"id"`
	Quantity            int        `json:"quantity"`
	Status              ItemStatus `json:"status"`
	Product             Product    `json:"product"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
}

// Order represents one customer order visible to the kitchen
type Order struct {
	ID           string      `json:"id"`
	OrderNumber  string      `json:"order_number"`
	Status       OrderStatus `json:"status"`
	OrderType    OrderType   `json:"order_type"`
	CreatedAt    time.Time   `json:"created_at"`
	Table        *Table      `json:"table,omitempty"`
	CustomerName string      `json:"customer_name,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Items        []OrderItem `json:"items"`
}

// WaitTime returns how long the order has been open, truncated to whole
// minutes. Measured with the caller's clock against the server-issued
// created_at; no clock-skew compensation is applied.
func (o Order) WaitTime(now time.Time) int {
	return int(now.Sub(o.CreatedAt) / time.Minute)
}

// User is the authenticated operator of the display
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Envelope is the response wrapper every backend endpoint uses
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is the credential payload for /auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the authenticated user
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
