package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingua/pkg/models"
)

const stateColumns = `id, owner_id, item_id, ease_factor, interval_days, repetitions,
	last_review_date, next_review_date, confidence_level, version, created_at, updated_at`

// ReviewStateRepository handles database operations for review states, their history and applied events
type ReviewStateRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewReviewStateRepository creates a new repository instance
func NewReviewStateRepository(db *sqlx.DB) *ReviewStateRepository {
	return &ReviewStateRepository{db: db, now: time.Now}
}

type historyRow struct {
	StateID     int64     `db:"state_id"`
	Position    int       `db:"position"`
	ReviewedAt  time.Time `db:"reviewed_at"`
	Quality     int       `db:"quality"`
	TimeSpentMS int64     `db:"time_spent_ms"`
}

// Get returns the state for an owner and item, with its full history
func (r *ReviewStateRepository) Get(ctx context.Context, ownerID, itemID int64) (*models.ReviewState, error) {
	var state models.ReviewState
	query := r.db.Rebind(`SELECT ` + stateColumns + ` FROM review_states WHERE owner_id = ? AND item_id = ?`)
	err := r.db.GetContext(ctx, &state, query, ownerID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review state: %w", err)
	}

	history, err := r.history(ctx, `h.state_id = ?`, state.ID)
	if err != nil {
		return nil, err
	}
	state.History = history[state.ID]
	if state.History == nil {
		state.History = []models.ReviewEntry{}
	}
	normalizeTimes(&state)
	return &state, nil
}

// ListByOwner returns every state of an owner ordered by next review date
func (r *ReviewStateRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.ReviewState, error) {
	var states []models.ReviewState
	query := r.db.Rebind(`SELECT ` + stateColumns + ` FROM review_states WHERE owner_id = ? ORDER BY next_review_date ASC, item_id ASC`)
	if err := r.db.SelectContext(ctx, &states, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list review states: %w", err)
	}

	history, err := r.history(ctx, `s.owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range states {
		states[i].History = history[states[i].ID]
		if states[i].History == nil {
			states[i].History = []models.ReviewEntry{}
		}
		normalizeTimes(&states[i])
	}
	return states, nil
}

// history loads review entries grouped by state id, in insertion order
func (r *ReviewStateRepository) history(ctx context.Context, where string, args ...interface{}) (map[int64][]models.ReviewEntry, error) {
	var rows []historyRow
	query := r.db.Rebind(`
		SELECT h.state_id, h.position, h.reviewed_at, h.quality, h.time_spent_ms
		FROM review_history h
		JOIN review_states s ON s.id = h.state_id
		WHERE ` + where + `
		ORDER BY h.state_id, h.position
	`)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}

	result := make(map[int64][]models.ReviewEntry)
	for _, row := range rows {
		result[row.StateID] = append(result[row.StateID], models.ReviewEntry{
			Date:        row.ReviewedAt.UTC(),
			Performance: row.Quality,
			TimeSpent:   time.Duration(row.TimeSpentMS) * time.Millisecond,
		})
	}
	return result, nil
}

// HasEvent reports whether a review event id was already applied
func (r *ReviewStateRepository) HasEvent(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM review_events WHERE event_id = ?`), eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check review event: %w", err)
	}
	return count > 0, nil
}

// Save persists state in one transaction: records eventID (when not empty), inserts or updates the state
// row guarded by its version, and appends the history entries that are not stored yet.
// On success state.ID, Version, CreatedAt and UpdatedAt are refreshed.
func (r *ReviewStateRepository) Save(ctx context.Context, state *models.ReviewState, eventID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if eventID != "" {
		var count int
		err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM review_events WHERE event_id = ?`), eventID)
		if err != nil {
			return fmt.Errorf("failed to check review event: %w", err)
		}
		if count > 0 {
			return ErrDuplicateEvent
		}
	}

	now := r.now().UTC()
	id, version, createdAt := state.ID, state.Version, state.CreatedAt
	lastQuality := sql.NullInt64{}
	if last, ok := state.LastEntry(); ok {
		lastQuality = sql.NullInt64{Int64: int64(last.Performance), Valid: true}
	}

	if id == 0 {
		query := tx.Rebind(`
			INSERT INTO review_states (
				owner_id, item_id, ease_factor, interval_days, repetitions,
				last_review_date, next_review_date, confidence_level, last_quality,
				version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			RETURNING id
		`)
		err := tx.QueryRowxContext(ctx, query,
			state.OwnerID,
			state.ItemID,
			state.EaseFactor,
			state.Interval,
			state.Repetitions,
			utcPtr(state.LastReviewDate),
			state.NextReviewDate.UTC(),
			state.ConfidenceLevel,
			lastQuality,
			now,
			now,
		).Scan(&id)
		if isUniqueViolation(err) {
			// another writer created the state first
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to create review state: %w", err)
		}
		version, createdAt = 1, now
	} else {
		query := tx.Rebind(`
			UPDATE review_states SET
				ease_factor = ?,
				interval_days = ?,
				repetitions = ?,
				last_review_date = ?,
				next_review_date = ?,
				confidence_level = ?,
				last_quality = ?,
				version = version + 1,
				updated_at = ?
			WHERE id = ? AND version = ?
		`)
		result, err := tx.ExecContext(ctx, query,
			state.EaseFactor,
			state.Interval,
			state.Repetitions,
			utcPtr(state.LastReviewDate),
			state.NextReviewDate.UTC(),
			state.ConfidenceLevel,
			lastQuality,
			now,
			id,
			version,
		)
		if err != nil {
			return fmt.Errorf("failed to update review state: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrVersionConflict
		}
		version++
	}

	if eventID != "" {
		_, err := tx.ExecContext(ctx,
			tx.Rebind(`INSERT INTO review_events (event_id, state_id, applied_at) VALUES (?, ?, ?)`),
			eventID, id, now)
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		if err != nil {
			return fmt.Errorf("failed to record review event: %w", err)
		}
	}

	var stored int
	if err := tx.GetContext(ctx, &stored, tx.Rebind(`SELECT COUNT(*) FROM review_history WHERE state_id = ?`), id); err != nil {
		return fmt.Errorf("failed to count review history: %w", err)
	}
	if stored > len(state.History) {
		return fmt.Errorf("%w: %d entries stored, %d given", ErrHistoryRewritten, stored, len(state.History))
	}
	for i := stored; i < len(state.History); i++ {
		entry := state.History[i]
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO review_history (state_id, position, reviewed_at, quality, time_spent_ms)
			VALUES (?, ?, ?, ?, ?)
		`), id, i, entry.Date.UTC(), entry.Performance, entry.TimeSpent.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to append review history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review state: %w", err)
	}

	state.ID = id
	state.Version = version
	state.CreatedAt = createdAt
	state.UpdatedAt = now
	return nil
}

// Delete removes a state together with its history and events
func (r *ReviewStateRepository) Delete(ctx context.Context, ownerID, itemID int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM review_states WHERE owner_id = ? AND item_id = ?`), ownerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete review state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DueCountsByOwner returns, for every owner with due items, how many are due at now
func (r *ReviewStateRepository) DueCountsByOwner(ctx context.Context, now time.Time) (map[int64]int, error) {
	var rows []struct {
		OwnerID int64 `db:"owner_id"`
		Due     int   `db:"due"`
	}
	query := r.db.Rebind(`
		SELECT owner_id, COUNT(*) AS due
		FROM review_states
		WHERE next_review_date <= ?
		GROUP BY owner_id
	`)
	if err := r.db.SelectContext(ctx, &rows, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("failed to get due counts: %w", err)
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.OwnerID] = row.Due
	}
	return counts, nil
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// normalizeTimes drops driver-specific locations so states compare equal across drivers
func normalizeTimes(s *models.ReviewState) {
	if s.LastReviewDate != nil {
		last := s.LastReviewDate.UTC()
		s.LastReviewDate = &last
	}
	s.NextReviewDate = s.NextReviewDate.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
}
