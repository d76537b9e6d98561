package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item the owner has just met so it leads the next session",
		Long:  "Stores a new review state for the item, due now. Adding an item that already has a state changes nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetInt64("owner")
			items, _ := cmd.Flags().GetInt64Slice("item")
			now, err := timeFlag(cmd, "at")
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

			svc := a.service()
			added := make([]int64, 0, len(items))
			for _, item := range items {
				_, created, err := svc.Enroll(cmd.Context(), owner, item, now)
				if err != nil {
					return fmt.Errorf("add item %d: %w", item, err)
				}
				if created {
					added = append(added, item)
				}
			}
			return printJSON(cmd, map[string][]int64{"added": added})
		},
	}
	cmd.Flags().Int64("owner", 0, "owner (learner) id")
	cmd.Flags().Int64Slice("item", nil, "item id, repeat or comma-separate for several")
	cmd.Flags().String("at", "", "time the owner met the items (RFC3339), defaults to now")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}
