package models

// Statistics summarises an owner's review states
type Statistics struct {
	OwnerID       int64   `json:"owner_id" db:"owner_id"`
	TotalItems    int     `json:"total_items" db:"total_items"`
	DueItems      int     `json:"due_items" db:"due_items"`
	NewItems      int     `json:"new_items" db:"new_items"` // never reviewed
	MasteredItems int     `json:"mastered_items" db:"mastered_items"`
	AvgEaseFactor float64 `json:"avg_ease_factor" db:"avg_ease_factor"`
}
