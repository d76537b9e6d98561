package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/lingua/internal/database"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetInt64("owner")
			now, err := timeFlag(cmd, "now")
			if err != nil {
				return err
			}
			if now.IsZero() {
				now = time.Now()
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := database.NewStatisticsRepository(a.db).GetOwnerStatistics(cmd.Context(), owner, now)
			if err != nil {
				return fmt.Errorf("get statistics: %w", err)
			}
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().Int64("owner", 0, "owner (learner) id")
	cmd.Flags().String("now", "", "count due items as of this time (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
