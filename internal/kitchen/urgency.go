package kitchen

import "time"

// Tier is the urgency bucket derived from an order's age.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierUrgent   Tier = "urgent"
	TierCritical Tier = "critical"
)

// Urgency pairs a tier with its display label.
type Urgency struct {
	Tier  Tier
	Label string
}

// Classify maps an order's age to an urgency tier. Wait time is truncated
// to whole minutes before comparison, so an order at 10.9 minutes still
// counts as 10. Boundaries are exact: 20 minutes is urgent, not critical;
// 15 is warning; 10 is normal. Recomputed from the wall clock on every
// read; there is no hysteresis.
func Classify(createdAt, now time.Time) Urgency {
	wait := int(now.Sub(createdAt) / time.Minute)
	switch {
	case wait > 20:
		return Urgency{Tier: TierCritical, Label: "CRITICAL"}
	case wait > 15:
		return Urgency{Tier: TierUrgent, Label: "URGENT"}
	case wait > 10:
		return Urgency{Tier: TierWarning, Label: "NEED ATTENTION"}
	default:
		return Urgency{Tier: TierNormal, Label: "NEW"}
	}
}
