// Package review applies learners' review events to their persisted review states.
//
// Callers must honour two rules the scheduler itself cannot enforce:
//   - every review event carries a client-generated ID, so a retried request is not scored twice;
//   - updates to one (owner, item) state are serialized. Service does this with a per-key lock
//     inside the process and relies on the store's version check across processes.
package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/example/lingua/internal/database"
	"github.com/example/lingua/internal/spaced_repetition"
	"github.com/example/lingua/pkg/models"
)

// maxSaveAttempts bounds how often a review is re-scored after losing a version race
const maxSaveAttempts = 3

// Store is the persistence the service needs
type Store interface {
	Get(ctx context.Context, ownerID, itemID int64) (*models.ReviewState, error)
	Save(ctx context.Context, state *models.ReviewState, eventID string) error
	ListByOwner(ctx context.Context, ownerID int64) ([]models.ReviewState, error)
	HasEvent(ctx context.Context, eventID string) (bool, error)
}

// Event is one review of one item by one owner.
// The first set of Quality, Accuracy (fraction answered right, 0-1) and Correct is used.
type Event struct {
	ID        string
	OwnerID   int64
	ItemID    int64
	Quality   *int
	Accuracy  *float64
	Correct   *bool
	TimeSpent time.Duration
	At        time.Time // zero means now
}

// Result is the outcome of one event of a session
type Result struct {
	Event Event
	State *models.ReviewState
	Err   error
}

// SessionItem is a ranked candidate for a review session
type SessionItem struct {
	State    models.ReviewState
	Priority float64
	Mastered bool
}

type itemKey struct {
	ownerID int64
	itemID  int64
}

// Service applies review events and builds review sessions
type Service struct {
	store   Store
	sm2     *spaced_repetition.SM2
	log     logrus.FieldLogger
	locks   *keyLocker
	workers int
	now     func() time.Time
}

// NewService creates a review service. workers bounds the items scored concurrently by ApplySession.
func NewService(store Store, sm2 *spaced_repetition.SM2, log logrus.FieldLogger, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:   store,
		sm2:     sm2,
		log:     log,
		locks:   newKeyLocker(),
		workers: workers,
		now:     time.Now,
	}
}

func (e Event) quality() (spaced_repetition.QualityResponse, error) {
	switch {
	case e.Quality != nil:
		return spaced_repetition.ParseQuality(*e.Quality)
	case e.Accuracy != nil:
		return spaced_repetition.QualityFromAccuracy(*e.Accuracy)
	case e.Correct != nil:
		return spaced_repetition.QualityFromCorrect(*e.Correct), nil
	default:
		return 0, fmt.Errorf("%w: event has no quality, accuracy or correctness", spaced_repetition.ErrInvalidInput)
	}
}

// ApplyReview scores one event against the stored state and persists the result.
// An event ID that was already applied yields database.ErrDuplicateEvent.
func (s *Service) ApplyReview(ctx context.Context, ev Event) (*models.ReviewState, error) {
	logger := s.log.WithFields(logrus.Fields{
		"owner_id": ev.OwnerID,
		"item_id":  ev.ItemID,
		"event_id": ev.ID,
	})

	quality, err := ev.quality()
	if err != nil {
		logger.WithError(err).Warn("Rejected review event")
		return nil, err
	}
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	unlock := s.locks.Lock(itemKey{ev.OwnerID, ev.ItemID})
	defer unlock()

	if ev.ID != "" {
		applied, err := s.store.HasEvent(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		if applied {
			logger.Info("Review event already applied, skipping")
			return nil, database.ErrDuplicateEvent
		}
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current, err := s.load(ctx, ev.OwnerID, ev.ItemID, at)
		if err != nil {
			return nil, err
		}

		next, err := s.sm2.Score(*current, quality, at, ev.TimeSpent)
		if err != nil {
			entry := logger.WithError(err).WithField("quality", int(quality))
			if errors.Is(err, spaced_repetition.ErrCorruptState) {
				entry.Error("Stored review state is corrupt")
			} else {
				entry.Warn("Rejected review event")
			}
			return nil, err
		}

		err = s.store.Save(ctx, &next, ev.ID)
		if errors.Is(err, database.ErrVersionConflict) && attempt < maxSaveAttempts {
			logger.WithField("attempt", attempt).Debug("Review state changed concurrently, retrying")
			continue
		}
		if errors.Is(err, database.ErrDuplicateEvent) {
			logger.Info("Review event already applied, skipping")
			return nil, err
		}
		if err != nil {
			logger.WithError(err).Error("Failed to save review state")
			return nil, err
		}

		logger.WithFields(logrus.Fields{
			"quality":     int(quality),
			"interval":    next.Interval,
			"repetitions": next.Repetitions,
			"ease_factor": next.EaseFactor,
			"next_review": next.NextReviewDate,
		}).Info("Review applied")
		return &next, nil
	}
}

// Enroll records that the owner has met an item, making it a new item for the next session.
// An item that already has a state is returned unchanged and the second result is false.
func (s *Service) Enroll(ctx context.Context, ownerID, itemID int64, now time.Time) (*models.ReviewState, bool, error) {
	logger := s.log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"item_id":  itemID,
	})

	unlock := s.locks.Lock(itemKey{ownerID, itemID})
	defer unlock()

	existing, err := s.store.Get(ctx, ownerID, itemID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, false, err
	}

	fresh := models.NewReviewState(ownerID, itemID, now)
	err = s.store.Save(ctx, &fresh, "")
	if errors.Is(err, database.ErrVersionConflict) {
		// enrolled by another process in the meantime
		existing, err := s.store.Get(ctx, ownerID, itemID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		logger.WithError(err).Error("Failed to enroll item")
		return nil, false, err
	}

	logger.Info("Item enrolled")
	return &fresh, true, nil
}

// load returns the stored state or a fresh one for an item seen for the first time
func (s *Service) load(ctx context.Context, ownerID, itemID int64, now time.Time) (*models.ReviewState, error) {
	state, err := s.store.Get(ctx, ownerID, itemID)
	if errors.Is(err, database.ErrNotFound) {
		fresh := models.NewReviewState(ownerID, itemID, now)
		return &fresh, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ApplySession applies a batch of events. Events of the same item are applied in their given order;
// different items are scored concurrently. A failing event only affects its own Result.
func (s *Service) ApplySession(ctx context.Context, events []Event) []Result {
	results := make([]Result, len(events))
	groups := lo.GroupBy(lo.Range(len(events)), func(i int) itemKey {
		return itemKey{events[i].OwnerID, events[i].ItemID}
	})

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, indexes := range groups {
		indexes := indexes
		g.Go(func() error {
			for _, i := range indexes {
				state, err := s.ApplyReview(ctx, events[i])
				results[i] = Result{Event: events[i], State: state, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := lo.CountBy(results, func(r Result) bool { return r.Err != nil })
	s.log.WithFields(logrus.Fields{
		"events": len(events),
		"items":  len(groups),
		"failed": failed,
	}).Info("Review session applied")
	return results
}

// BuildSession ranks an owner's items by priority at now and returns at most limit of them.
// limit <= 0 returns every item.
func (s *Service) BuildSession(ctx context.Context, ownerID int64, limit int, now time.Time) ([]SessionItem, error) {
	return s.buildSession(ctx, ownerID, limit, now, false)
}

// BuildDueSession is BuildSession restricted to items due at now. Enrolled items are due from the moment they were added.
func (s *Service) BuildDueSession(ctx context.Context, ownerID int64, limit int, now time.Time) ([]SessionItem, error) {
	return s.buildSession(ctx, ownerID, limit, now, true)
}

func (s *Service) buildSession(ctx context.Context, ownerID int64, limit int, now time.Time, dueOnly bool) ([]SessionItem, error) {
	states, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if dueOnly {
		states = lo.Filter(states, func(st models.ReviewState, _ int) bool {
			return spaced_repetition.IsDue(st, now)
		})
	}

	items := lo.Map(states, func(st models.ReviewState, _ int) SessionItem {
		return SessionItem{
			State:    st,
			Priority: s.sm2.Priority(st, now),
			Mastered: s.sm2.IsMastered(st),
		}
	})
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.State.NextReviewDate.Equal(b.State.NextReviewDate) {
			return a.State.NextReviewDate.Before(b.State.NextReviewDate)
		}
		return a.State.ItemID < b.State.ItemID
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
