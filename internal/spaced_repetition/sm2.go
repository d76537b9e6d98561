package spaced_repetition

import (
	"fmt"
	"math"
	"time"

	"github.com/example/lingua/pkg/models"
)

// Day is the unit of Interval
const Day = 24 * time.Hour

// Thresholds an item has to reach to count as mastered
const (
	MasteredRepetitions = 5
	MasteredQuality     = QualityCorrectHesitation
	MasteredInterval    = 30
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Пороговое значение "хорошего ответа"
	PassThreshold QualityResponse
	// Максимальный интервал повторения в днях
	MaxInterval int
	// Bounds of the easiness factor
	MinEaseFactor float64
	MaxEaseFactor float64
	// Fixed intervals for the first qualifying repetitions, indexed by repetition number - 1
	InitialIntervals []int
	// Priority weights used to rank items for a session
	Weights PriorityWeights
}

// NewSM2 создает новый экземпляр SM2 с настройками по умолчанию
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:    QualityCorrectDifficult, // Ответы 3 и выше считаются успешными
		MaxInterval:      365,                     // Максимальный интервал - 1 год
		MinEaseFactor:    1.3,
		MaxEaseFactor:    2.5,
		InitialIntervals: []int{1, 6},
		Weights:          DefaultPriorityWeights(),
	}
}

// Score applies one review of the given quality to current and returns the next state.
// current is never modified. The result either satisfies every scheduling invariant
// or an error is returned.
func (sm *SM2) Score(current models.ReviewState, quality QualityResponse, now time.Time, timeSpent time.Duration) (models.ReviewState, error) {
	if !quality.Valid() {
		return models.ReviewState{}, fmt.Errorf("%w: quality %d is outside [0, 5]", ErrInvalidInput, quality)
	}
	if timeSpent < 0 {
		return models.ReviewState{}, fmt.Errorf("%w: negative time spent %s", ErrInvalidInput, timeSpent)
	}
	if err := sm.checkState(current); err != nil {
		return models.ReviewState{}, err
	}

	next := current
	next.EaseFactor = sm.nextEaseFactor(current.EaseFactor, quality)

	if quality >= sm.PassThreshold {
		next.Repetitions = current.Repetitions + 1
		next.Interval = sm.nextInterval(next.Repetitions, current.Interval, next.EaseFactor)
	} else {
		// Ответ был неправильным - сбрасываем прогресс, повторение на следующий день
		next.Repetitions = 0
		next.Interval = 1
	}
	if next.Interval > sm.MaxInterval {
		next.Interval = sm.MaxInterval
	}

	reviewed := now
	next.LastReviewDate = &reviewed
	next.NextReviewDate = AddDays(now, next.Interval)
	next.ConfidenceLevel = deriveConfidence(quality, next.Repetitions, sm.PassThreshold)

	history := make([]models.ReviewEntry, len(current.History), len(current.History)+1)
	copy(history, current.History)
	next.History = append(history, models.ReviewEntry{
		Date:        now,
		Performance: int(quality),
		TimeSpent:   timeSpent,
	})

	return next, nil
}

// nextEaseFactor is the classic SM-2 easiness update, clamped to [MinEaseFactor, MaxEaseFactor]
func (sm *SM2) nextEaseFactor(current float64, quality QualityResponse) float64 {
	q := float64(quality)
	ef := current + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	// 4 decimals are enough and stop float drift from accumulating in storage
	ef = math.Round(ef*1e4) / 1e4
	return clamp(ef, sm.MinEaseFactor, sm.MaxEaseFactor)
}

// nextInterval returns the interval after a qualifying review.
// repetitions is the already incremented count.
func (sm *SM2) nextInterval(repetitions, current int, ef float64) int {
	if repetitions <= len(sm.InitialIntervals) {
		return sm.InitialIntervals[repetitions-1]
	}
	interval := int(math.Round(float64(current) * ef))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// checkState rejects states that could not have been produced by Score
func (sm *SM2) checkState(s models.ReviewState) error {
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < sm.MinEaseFactor || s.EaseFactor > sm.MaxEaseFactor {
		return fmt.Errorf("%w: ease factor %v is outside [%v, %v]", ErrCorruptState, s.EaseFactor, sm.MinEaseFactor, sm.MaxEaseFactor)
	}
	if s.Interval < 0 || s.Interval > sm.MaxInterval {
		return fmt.Errorf("%w: interval %d is outside [0, %d]", ErrCorruptState, s.Interval, sm.MaxInterval)
	}
	if s.Repetitions < 0 {
		return fmt.Errorf("%w: negative repetitions %d", ErrCorruptState, s.Repetitions)
	}
	if s.ConfidenceLevel < 0 || s.ConfidenceLevel > 5 {
		return fmt.Errorf("%w: confidence level %d is outside [0, 5]", ErrCorruptState, s.ConfidenceLevel)
	}
	return nil
}

// IsMastered determines if an item is considered "mastered"
func (sm *SM2) IsMastered(s models.ReviewState) bool {
	// An item is considered mastered if:
	// 1. It has been reviewed successfully at least 5 times in a row
	// 2. The latest quality response was 4 or 5
	// 3. The interval is at least 30 days
	last, ok := s.LastEntry()
	return ok &&
		s.Repetitions >= MasteredRepetitions &&
		last.Performance >= int(MasteredQuality) &&
		s.Interval >= MasteredInterval
}

// AddDays moves t forward by n scheduling days
func AddDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * Day)
}

// deriveConfidence maps review performance to the UI-facing 1-5 confidence level.
// A failed review always drops to 1; success is bounded by both quality and streak length.
func deriveConfidence(quality QualityResponse, repetitions int, pass QualityResponse) int {
	if quality < pass {
		return 1
	}
	level := int(quality)
	if repetitions+1 < level {
		level = repetitions + 1
	}
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	return level
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
