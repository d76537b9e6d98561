package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/lingua/pkg/models"
)

// PriorityWeights holds the tunable constants of the due-ranking policy
type PriorityWeights struct {
	OverdueBase   float64       // priority of an item that just became overdue
	OverduePerDay float64       // added per day overdue, capped at 1
	DueSoonWindow time.Duration // items due within this window count as "due soon"
	DueSoonBase   float64
	DueSoonScale  float64 // multiplied by the confidence component
	DueSoonCap    float64
	NotDueScale   float64 // multiplied by the confidence component
}

// DefaultPriorityWeights returns the production ranking weights
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		OverdueBase:   0.8,
		OverduePerDay: 0.1,
		DueSoonWindow: 2 * Day,
		DueSoonBase:   0.5,
		DueSoonScale:  0.3,
		DueSoonCap:    0.8,
		NotDueScale:   0.4,
	}
}

// Priority ranks s for a review session at now. The result is in [0, 1], higher is more urgent.
//
// Ordering classes: never reviewed (1.0) >= overdue >= due soon >= not due.
// Within the last two classes less confident items rank higher.
func (sm *SM2) Priority(s models.ReviewState, now time.Time) float64 {
	w := sm.Weights

	if !s.Reviewed() {
		return 1.0
	}

	if s.NextReviewDate.Before(now) {
		daysOverdue := now.Sub(s.NextReviewDate).Hours() / 24
		return math.Min(1.0, w.OverdueBase+daysOverdue*w.OverduePerDay)
	}

	c := confidenceComponent(s.ConfidenceLevel)
	if s.NextReviewDate.Sub(now) < w.DueSoonWindow {
		return clamp(math.Min(w.DueSoonCap, w.DueSoonBase+c*w.DueSoonScale), 0, 1)
	}
	return clamp(c*w.NotDueScale, 0, 1)
}

// confidenceComponent maps confidence 1 -> 1.0 through 5 -> 0.0.
// An unset level counts as the least confident.
func confidenceComponent(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	return 1 - float64(level-1)/4
}

// IsDue reports whether the item's next review date has passed
func IsDue(s models.ReviewState, now time.Time) bool {
	return !s.NextReviewDate.After(now)
}
