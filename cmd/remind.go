package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/lingua/internal/scheduler"
)

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the due-review reminder job until interrupted",
		Long:  "Runs the reminder job on reminder.every inside reminder.start_hour-end_hour.\nWith --owner it checks that owner once and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			notifier := scheduler.LogNotifier{Log: a.log}
			s := scheduler.New(a.states, notifier, a.cfg.Reminder, a.cfg.Session.Size, a.log)

			if cmd.Flags().Changed("owner") {
				owner, _ := cmd.Flags().GetInt64("owner")
				return s.RunManualCheck(cmd.Context(), owner)
			}

			if !a.cfg.Reminder.Enabled {
				a.log.Info("Reminders are disabled, nothing to do")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := s.Start(ctx); err != nil {
				return err
			}
			a.log.Info("Reminder job started. Press Ctrl+C to stop.")

			<-ctx.Done()
			a.log.Info("Received shutdown signal")
			s.Stop()
			return nil
		},
	}
	cmd.Flags().Int64("owner", 0, "check a single owner once and exit")
	return cmd
}
