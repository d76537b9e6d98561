package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/lingua/internal/config"
	"github.com/example/lingua/internal/database"
	"github.com/example/lingua/internal/logger"
	"github.com/example/lingua/internal/review"
	"github.com/example/lingua/internal/spaced_repetition"
)

// NewRootCmd builds the lingua command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lingua",
		Short:         "Spaced-repetition review engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newAddCmd(),
		newReviewCmd(),
		newSessionCmd(),
		newStatsCmd(),
		newRemindCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

// app is what every subcommand needs: config, logger and an open database
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	db     *sqlx.DB
	states *database.ReviewStateRepository
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	log.WithField("driver", cfg.Database.Driver).Debug("Database connected")

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		states: database.NewReviewStateRepository(db),
	}, nil
}

func (a *app) service() *review.Service {
	return review.NewService(a.states, spaced_repetition.NewSM2(), a.log, a.cfg.Session.Workers)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// timeFlag parses an RFC3339 flag; an empty value yields the zero time
func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}
