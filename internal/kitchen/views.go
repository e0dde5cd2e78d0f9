package kitchen

import (
	"sort"

	"expeditor/internal/models"
)

// Derived views are always recomputed from the snapshot's status fields at
// read time. Nothing here is cached, so filtered subsets can never diverge
// from the snapshot.

// Active returns orders the kitchen is working on: confirmed or preparing.
func Active(orders []models.Order) []models.Order {
	return filter(orders, func(o models.Order) bool {
		return o.Status == models.OrderStatusConfirmed || o.Status == models.OrderStatusPreparing
	})
}

// Ready returns orders waiting to be picked up.
func Ready(orders []models.Order) []models.Order {
	return filter(orders, func(o models.Order) bool {
		return o.Status == models.OrderStatusReady
	})
}

// ByStatus partitions orders by their status field.
func ByStatus(orders []models.Order) map[models.OrderStatus][]models.Order {
	out := make(map[models.OrderStatus][]models.Order)
	for _, o := range orders {
		out[o.Status] = append(out[o.Status], o)
	}
	return out
}

// FilterTab applies the display's tab filter: "all", "active", or a literal
// status value.
func FilterTab(orders []models.Order, tab string) []models.Order {
	switch tab {
	case "", "all":
		return filter(orders, func(models.Order) bool { return true })
	case "active":
		return Active(orders)
	default:
		return filter(orders, func(o models.Order) bool {
			return o.Status == models.OrderStatus(tab)
		})
	}
}

// Stats summarizes the board for the display header.
type Stats struct {
	Confirmed int
	Preparing int
	Ready     int
	Total     int
}

// Summarize counts orders per kitchen-relevant status. Total counts the
// orders the kitchen still has to deal with: active plus ready.
func Summarize(orders []models.Order) Stats {
	var s Stats
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusConfirmed:
			s.Confirmed++
		case models.OrderStatusPreparing:
			s.Preparing++
		case models.OrderStatusReady:
			s.Ready++
		}
	}
	s.Total = s.Confirmed + s.Preparing + s.Ready
	return s
}

// SortByAge orders a slice oldest first so the longest-waiting orders lead
// the board. The input is sorted in place and returned.
func SortByAge(orders []models.Order) []models.Order {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders
}

func filter(orders []models.Order, keep func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
