package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/lingua/internal/review"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Record one review of an item and print its new state",
		Long: "Scores a single review with SM-2 and persists it. Pass one of --quality (0-5), --accuracy (0-1) or --correct.\n" +
			"Re-running with the same --event-id is rejected instead of being scored twice.",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetInt64("owner")
			item, _ := cmd.Flags().GetInt64("item")
			eventID, _ := cmd.Flags().GetString("event-id")
			timeSpent, _ := cmd.Flags().GetDuration("time-spent")
			at, err := timeFlag(cmd, "at")
			if err != nil {
				return err
			}

			ev := review.Event{
				ID:        eventID,
				OwnerID:   owner,
				ItemID:    item,
				TimeSpent: timeSpent,
				At:        at,
			}
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
			if cmd.Flags().Changed("quality") {
				q, _ := cmd.Flags().GetInt("quality")
				ev.Quality = &q
			}
			if cmd.Flags().Changed("accuracy") {
				acc, _ := cmd.Flags().GetFloat64("accuracy")
				ev.Accuracy = &acc
			}
			if cmd.Flags().Changed("correct") {
				c, _ := cmd.Flags().GetBool("correct")
				ev.Correct = &c
			}
			if ev.Quality == nil && ev.Accuracy == nil && ev.Correct == nil {
				return fmt.Errorf("one of --quality, --accuracy or --correct is required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.service().ApplyReview(cmd.Context(), ev)
			if err != nil {
				return fmt.Errorf("apply review %s: %w", ev.ID, err)
			}
			return printJSON(cmd, state)
		},
	}

	cmd.Flags().Int64("owner", 0, "owner (learner) id")
	cmd.Flags().Int64("item", 0, "item (word) id")
	cmd.Flags().Int("quality", 0, "recall quality 0-5")
	cmd.Flags().Float64("accuracy", 0, "fraction of the exercise answered right, used when --quality is not given")
	cmd.Flags().Bool("correct", false, "binary outcome, used when neither --quality nor --accuracy is given")
	cmd.Flags().String("event-id", "", "client event id, generated when empty")
	cmd.Flags().Duration("time-spent", 0, "time spent answering")
	cmd.Flags().String("at", "", "review time (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}
