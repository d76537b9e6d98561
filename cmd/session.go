package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/example/lingua/internal/review"
)

type sessionEntry struct {
	ItemID          int64     `json:"item_id"`
	Priority        float64   `json:"priority"`
	NextReviewDate  time.Time `json:"next_review_date"`
	Interval        int       `json:"interval"`
	Repetitions     int       `json:"repetitions"`
	ConfidenceLevel int       `json:"confidence_level"`
	Mastered        bool      `json:"mastered"`
}

// eventInput is one line of a session file
type eventInput struct {
	ID        string     `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	ItemID    int64      `json:"item_id"`
	Quality   *int       `json:"quality,omitempty"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Correct   *bool      `json:"correct,omitempty"`
	TimeSpent float64    `json:"time_spent_seconds"`
	At        *time.Time `json:"at,omitempty"`
}

type resultOutput struct {
	EventID        string     `json:"event_id"`
	ItemID         int64      `json:"item_id"`
	Interval       int        `json:"interval,omitempty"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "List the items an owner should review next, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetInt64("owner")
			limit, _ := cmd.Flags().GetInt("limit")
			dueOnly, _ := cmd.Flags().GetBool("due-only")
			now, err := timeFlag(cmd, "now")
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit == 0 {
				limit = a.cfg.Session.Size
			}
			if now.IsZero() {
				now = time.Now()
			}

			svc := a.service()
			build := svc.BuildSession
			if dueOnly {
				build = svc.BuildDueSession
			}
			items, err := build(cmd.Context(), owner, limit, now)
			if err != nil {
				return fmt.Errorf("build session: %w", err)
			}
			return printJSON(cmd, lo.Map(items, func(it review.SessionItem, _ int) sessionEntry {
				return sessionEntry{
					ItemID:          it.State.ItemID,
					Priority:        it.Priority,
					NextReviewDate:  it.State.NextReviewDate,
					Interval:        it.State.Interval,
					Repetitions:     it.State.Repetitions,
					ConfidenceLevel: it.State.ConfidenceLevel,
					Mastered:        it.Mastered,
				}
			}))
		},
	}
	cmd.Flags().Int64("owner", 0, "owner (learner) id")
	cmd.Flags().Int("limit", 0, "maximum items, defaults to session.size; negative lists all")
	cmd.Flags().String("now", "", "rank as of this time (RFC3339), defaults to now")
	cmd.Flags().Bool("due-only", false, "only items due at --now, new items included")
	_ = cmd.MarkFlagRequired("owner")

	cmd.AddCommand(newSessionApplyCmd())
	return cmd
}

func newSessionApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a finished session from a JSON array of review events",
		Long: "Reads a JSON array of events ({id, owner_id, item_id, quality|accuracy|correct, time_spent_seconds, at})\n" +
			"from --file or stdin. Events of one item are applied in order; failures are reported per event.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			events, err := readEvents(cmd, path)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.service().ApplySession(cmd.Context(), events)
			out := lo.Map(results, func(r review.Result, _ int) resultOutput {
				o := resultOutput{EventID: r.Event.ID, ItemID: r.Event.ItemID}
				if r.Err != nil {
					o.Error = r.Err.Error()
					return o
				}
				o.Interval = r.State.Interval
				o.NextReviewDate = &r.State.NextReviewDate
				return o
			})
			if err := printJSON(cmd, out); err != nil {
				return err
			}

			if failed := lo.CountBy(results, func(r review.Result) bool { return r.Err != nil }); failed > 0 {
				return fmt.Errorf("%d of %d events failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().String("file", "-", "session file, - reads stdin")
	return cmd
}

func readEvents(cmd *cobra.Command, path string) ([]review.Event, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var inputs []eventInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}

	return lo.Map(inputs, func(in eventInput, _ int) review.Event {
		ev := review.Event{
			ID:        in.ID,
			OwnerID:   in.OwnerID,
			ItemID:    in.ItemID,
			Quality:   in.Quality,
			Accuracy:  in.Accuracy,
			Correct:   in.Correct,
			TimeSpent: time.Duration(in.TimeSpent * float64(time.Second)),
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if in.At != nil {
			ev.At = *in.At
		}
		return ev
	}), nil
}
