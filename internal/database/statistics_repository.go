package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingua/internal/spaced_repetition"
	"github.com/example/lingua/pkg/models"
)

// StatisticsRepository handles aggregate queries over review states
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// GetOwnerStatistics returns statistics about an owner's review states at now.
// mastered_items applies the rule of SM2.IsMastered to the stored columns; last_quality is
// the performance of the last history entry.
func (r *StatisticsRepository) GetOwnerStatistics(ctx context.Context, ownerID int64, now time.Time) (*models.Statistics, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total_items,
			COALESCE(SUM(CASE WHEN next_review_date <= ? THEN 1 ELSE 0 END), 0) AS due_items,
			COALESCE(SUM(CASE WHEN last_review_date IS NULL THEN 1 ELSE 0 END), 0) AS new_items,
			COALESCE(SUM(CASE WHEN repetitions >= ? AND last_quality >= ? AND interval_days >= ? THEN 1 ELSE 0 END), 0) AS mastered_items,
			COALESCE(AVG(ease_factor), ?) AS avg_ease_factor
		FROM review_states
		WHERE owner_id = ?
	`)

	stats := models.Statistics{OwnerID: ownerID}
	err := r.db.GetContext(ctx, &stats, query,
		now.UTC(),
		spaced_repetition.MasteredRepetitions,
		int(spaced_repetition.MasteredQuality),
		spaced_repetition.MasteredInterval,
		models.DefaultEaseFactor,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner statistics: %w", err)
	}
	return &stats, nil
}
