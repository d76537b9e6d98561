package models

import "time"

// Default scheduling values for an item the learner has never reviewed
const (
	DefaultEaseFactor = 2.5
	DefaultInterval   = 0
)

// ReviewEntry is one line of the append-only review audit trail
type ReviewEntry struct {
	Date        time.Time     `json:"date"`
	Performance int           `json:"performance"` // 0-5 quality of the review
	TimeSpent   time.Duration `json:"time_spent"`
}

// ReviewState tracks a learner's scheduling data for one learning item using the SM-2 algorithm
type ReviewState struct {
	ID              int64         `json:"id" db:"id"`
	OwnerID         int64         `json:"owner_id" db:"owner_id"`
	ItemID          int64         `json:"item_id" db:"item_id"`
	EaseFactor      float64       `json:"ease_factor" db:"ease_factor"`           // SM-2 EF parameter
	Interval        int           `json:"interval" db:"interval_days"`            // Current interval in days
	Repetitions     int           `json:"repetitions" db:"repetitions"`           // Consecutive qualifying reviews
	LastReviewDate  *time.Time    `json:"last_review_date" db:"last_review_date"` // nil until the first review
	NextReviewDate  time.Time     `json:"next_review_date" db:"next_review_date"`
	ConfidenceLevel int           `json:"confidence_level" db:"confidence_level"` // 1-5, 0 when unset
	History         []ReviewEntry `json:"history" db:"-"`
	Version         int64         `json:"version" db:"version"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// NewReviewState returns the state of an item the owner has just encountered.
// It is due immediately.
func NewReviewState(ownerID, itemID int64, now time.Time) ReviewState {
	return ReviewState{
		OwnerID:        ownerID,
		ItemID:         itemID,
		EaseFactor:     DefaultEaseFactor,
		Interval:       DefaultInterval,
		NextReviewDate: now,
		History:        []ReviewEntry{},
	}
}

// Reviewed reports whether the item has been reviewed at least once
func (s ReviewState) Reviewed() bool {
	return s.LastReviewDate != nil
}

// LastEntry returns the most recent history entry
func (s ReviewState) LastEntry() (ReviewEntry, bool) {
	if len(s.History) == 0 {
		return ReviewEntry{}, false
	}
	return s.History[len(s.History)-1], true
}
