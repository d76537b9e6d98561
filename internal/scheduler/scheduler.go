package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/example/lingua/internal/config"
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(ctx context.Context, ownerID int64, count int) error
}

// DueCounter reports how many items each owner has due
type DueCounter interface {
	DueCountsByOwner(ctx context.Context, now time.Time) (map[int64]int, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	counter   DueCounter
	notifier  Notifier
	cfg       config.ReminderConfig
	limit     int
	log       logrus.FieldLogger
	now       func() time.Time
}

// New creates a new scheduler instance. limit caps the count announced per reminder.
func New(counter DueCounter, notifier Notifier, cfg config.ReminderConfig, limit int, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		counter:   counter,
		notifier:  notifier,
		cfg:       cfg,
		limit:     limit,
		log:       log.WithField("component", "reminders"),
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.cfg.Every).Do(func() {
		if err := s.checkAndSendReminders(ctx); err != nil {
			s.log.WithError(err).Error("Reminder check failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.WithField("every", s.cfg.Every).Info("Reminder scheduler started")
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("Reminder scheduler stopped")
}

// inNotificationHours checks whether hour is inside the configured window.
// A window with StartHour > EndHour wraps around midnight.
func (s *Scheduler) inNotificationHours(hour int) bool {
	if s.cfg.StartHour <= s.cfg.EndHour {
		return hour >= s.cfg.StartHour && hour <= s.cfg.EndHour
	}
	return hour >= s.cfg.StartHour || hour <= s.cfg.EndHour
}

// checkAndSendReminders checks for owners with due items and sends them a reminder
func (s *Scheduler) checkAndSendReminders(ctx context.Context) error {
	now := s.now().UTC()

	// Проверяем, находится ли текущий час в диапазоне времени для отправки уведомлений
	if !s.inNotificationHours(now.Hour()) {
		s.log.Debugf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			now.Hour(), s.cfg.StartHour, s.cfg.EndHour)
		return nil
	}

	counts, err := s.counter.DueCountsByOwner(ctx, now)
	if err != nil {
		return err
	}

	owners := make([]int64, 0, len(counts))
	for ownerID := range counts {
		owners = append(owners, ownerID)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.remind(ctx, ownerID, counts[ownerID]); err != nil {
			s.log.WithError(err).WithField("owner_id", ownerID).Error("Error sending reminder")
		}
	}
	return nil
}

func (s *Scheduler) remind(ctx context.Context, ownerID int64, due int) error {
	if due <= 0 {
		return nil
	}
	// Don't announce more than one session's worth
	count := due
	if s.limit > 0 && count > s.limit {
		count = s.limit
	}
	return s.notifier.SendReminders(ctx, ownerID, count)
}

// RunManualCheck forces a check for a specific owner, ignoring notification hours
func (s *Scheduler) RunManualCheck(ctx context.Context, ownerID int64) error {
	counts, err := s.counter.DueCountsByOwner(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	return s.remind(ctx, ownerID, counts[ownerID])
}

// LogNotifier delivers reminders to the log
type LogNotifier struct {
	Log logrus.FieldLogger
}

// SendReminders implements Notifier
func (n LogNotifier) SendReminders(ctx context.Context, ownerID int64, count int) error {
	n.Log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"due":      count,
	}).Info("Items are due for review")
	return nil
}
