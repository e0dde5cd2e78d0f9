package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"expeditor/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderRecord is the persisted form of an order.
type OrderRecord struct {
	ID           string `gorm:"primaryKey"`
	OrderNumber  string `gorm:"uniqueIndex"`
	Status       string
	OrderType    string
	TableNumber  string
	Location     string
	CustomerName string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []ItemRecord `gorm:"foreignKey:OrderID"`
}

// ItemRecord is the persisted form of an order line item.
type ItemRecord struct {
	ID                  string `gorm:"primaryKey"`
	OrderID             string `gorm:"index"`
	ProductName         string
	Quantity            int
	Status              string
	SpecialInstructions string
}

// Store wraps the simulator's database.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the sqlite database and migrates the schema.
// Use ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&OrderRecord{}, &ItemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// ListOrders returns orders for the kitchen display, optionally filtered by
// status, oldest first.
func (s *Store) ListOrders(status string) ([]models.Order, error) {
	q := s.db.Preload("Items").Order("created_at asc")
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	} else {
		// The kitchen board never shows terminal orders.
		q = q.Where("status NOT IN ?", []string{
			string(models.OrderStatusCompleted),
			string(models.OrderStatusCancelled),
		})
	}

	var records []OrderRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(records))
	for _, r := range records {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}

// GetOrder returns one order with its items.
func (s *Store) GetOrder(orderID string) (*models.Order, error) {
	var record OrderRecord
	err := s.db.Preload("Items").First(&record, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	order := record.toModel()
	return &order, nil
}

// AdvanceOrder updates an order's status after validating the transition
// server-side. Stale clients asking for a transition the order has moved past
// get ErrInvalidTransition.
func (s *Store) AdvanceOrder(orderID string, status models.OrderStatus, notes string) (*models.Order, error) {
	var record OrderRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&record, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
			}
			return err
		}
		if !models.CanAdvanceOrder(models.OrderStatus(record.Status), status) {
			return fmt.Errorf("order %s: %s -> %s: %w", orderID, record.Status, status, ErrInvalidTransition)
		}

		updates := map[string]any{"status": string(status)}
		if notes != "" {
			updates["notes"] = notes
		}
		if err := tx.Model(&record).Updates(updates).Error; err != nil {
			return err
		}
		record.Status = string(status)
		if notes != "" {
			record.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order := record.toModel()
	return &order, nil
}

// AdvanceItem updates a single item's status after validating the transition.
// The parent order is left alone.
func (s *Store) AdvanceItem(orderID, itemID string, status models.ItemStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var item ItemRecord
		err := tx.First(&item, "id = ? AND order_id = ?", itemID, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if !models.CanAdvanceItem(models.ItemStatus(item.Status), status) {
			return fmt.Errorf("item %s: %s -> %s: %w", itemID, item.Status, status, ErrInvalidTransition)
		}
		return tx.Model(&item).Update("status", string(status)).Error
	})
}

// CreateOrder persists a new order and returns it in wire form.
func (s *Store) CreateOrder(order models.Order) (*models.Order, error) {
	record := fromModel(order)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	for i := range record.Items {
		if record.Items[i].ID == "" {
			record.Items[i].ID = uuid.NewString()
		}
		record.Items[i].OrderID = record.ID
		if record.Items[i].Status == "" {
			record.Items[i].Status = string(models.ItemStatusPending)
		}
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}
	created := record.toModel()
	return &created, nil
}

// Seed loads a handful of dine-in and takeout orders at staggered ages so
// every urgency tier shows up on a fresh board.
func (s *Store) Seed(now time.Time) error {
	seeds := []models.Order{
		{
			OrderNumber:  "ORD-1001",
			Status:       models.OrderStatusConfirmed,
			OrderType:    models.OrderTypeDineIn,
			CreatedAt:    now.Add(-2 * time.Minute),
			Table:        &models.Table{TableNumber: "12", Location: "patio"},
			CustomerName: "Alvarez",
			Items: []models.OrderItem{
				{Quantity: 2, Status: models.ItemStatusPending, Product: models.Product{Name: "Margherita Pizza"}},
				{Quantity: 1, Status: models.ItemStatusPending, Product: models.Product{Name: "Caesar Salad"}, SpecialInstructions: "dressing on the side"},
			},
		},
		{
			OrderNumber: "ORD-1002",
			Status:      models.OrderStatusPreparing,
			OrderType:   models.OrderTypeTakeout,
			CreatedAt:   now.Add(-12 * time.Minute),
			Notes:       "call on arrival",
			Items: []models.OrderItem{
				{Quantity: 1, Status: models.ItemStatusPreparing, Product: models.Product{Name: "Pad Thai"}, SpecialInstructions: "extra spicy"},
			},
		},
		{
			OrderNumber:  "ORD-1003",
			Status:       models.OrderStatusPreparing,
			OrderType:    models.OrderTypeDineIn,
			CreatedAt:    now.Add(-17 * time.Minute),
			Table:        &models.Table{TableNumber: "4", Location: "main"},
			CustomerName: "Chen",
			Items: []models.OrderItem{
				{Quantity: 1, Status: models.ItemStatusReady, Product: models.Product{Name: "Ribeye"}},
				{Quantity: 1, Status: models.ItemStatusPreparing, Product: models.Product{Name: "Mashed Potatoes"}},
			},
		},
		{
			OrderNumber: "ORD-1004",
			Status:      models.OrderStatusReady,
			OrderType:   models.OrderTypeDelivery,
			CreatedAt:   now.Add(-22 * time.Minute),
			Items: []models.OrderItem{
				{Quantity: 3, Status: models.ItemStatusReady, Product: models.Product{Name: "California Roll"}},
			},
		},
	}

	for _, seed := range seeds {
		if _, err := s.CreateOrder(seed); err != nil {
			return err
		}
	}
	return nil
}

func (r OrderRecord) toModel() models.Order {
	order := models.Order{
		ID:           r.ID,
		OrderNumber:  r.OrderNumber,
		Status:       models.OrderStatus(r.Status),
		OrderType:    models.OrderType(r.OrderType),
		CustomerName: r.CustomerName,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
	}
	if r.TableNumber != "" || r.Location != "" {
		order.Table = &models.Table{TableNumber: r.TableNumber, Location: r.Location}
	}
	for _, item := range r.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:                  item.ID,
			Quantity:            item.Quantity,
			Status:              models.ItemStatus(item.Status),
			Product:             models.Product{Name: item.ProductName},
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return order
}

func fromModel(o models.Order) OrderRecord {
	record := OrderRecord{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       string(o.Status),
		OrderType:    string(o.OrderType),
		CustomerName: o.CustomerName,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
	}
	if o.Table != nil {
		record.TableNumber = o.Table.TableNumber
		record.Location = o.Table.Location
	}
	for _, item := range o.Items {
		record.Items = append(record.Items, ItemRecord{
			ID:                  item.ID,
			ProductName:         item.Product.Name,
			Quantity:            item.Quantity,
			Status:              string(item.Status),
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return record
}
