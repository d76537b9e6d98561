package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingua/internal/database"
	"github.com/example/lingua/pkg/models"
)

type cli struct {
	t       *testing.T
	envFile string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "lingua.db"))
	t.Setenv("LOG_LEVEL", "error")
	return &cli{t: t, envFile: filepath.Join(dir, "missing.env")}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--env-file", c.envFile))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) decode(out string, v interface{}) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal([]byte(out), v), out)
}

func TestReviewCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "review", "--owner", "1", "--item", "10", "--quality", "5",
		"--event-id", "ev-1", "--at", "2024-03-01T09:00:00Z", "--time-spent", "2s")
	require.NoError(t, err)

	var state models.ReviewState
	c.decode(out, &state)
	assert.Equal(t, 1, state.Interval)
	assert.Equal(t, 1, state.Repetitions)
	assert.InDelta(t, 2.5, state.EaseFactor, 1e-9)
	require.Len(t, state.History, 1)
	assert.Equal(t, 5, state.History[0].Performance)

	// the same event is not scored twice
	_, err = c.run("", "review", "--owner", "1", "--item", "10", "--quality", "5",
		"--event-id", "ev-1", "--at", "2024-03-01T09:00:00Z")
	assert.True(t, errors.Is(err, database.ErrDuplicateEvent), "got %v", err)

	out, err = c.run("", "review", "--owner", "1", "--item", "10", "--correct=false",
		"--at", "2024-03-02T09:00:00Z")
	require.NoError(t, err)
	c.decode(out, &state)
	assert.Equal(t, 0, state.Repetitions)
	assert.Len(t, state.History, 2)
}

func TestReviewCommand_Validation(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "review", "--owner", "1", "--item", "10")
	assert.EqualError(t, err, "one of --quality, --accuracy or --correct is required")

	_, err = c.run("", "review", "--owner", "1", "--item", "10", "--quality", "9")
	assert.Error(t, err)

	_, err = c.run("", "review", "--owner", "1", "--item", "10", "--quality", "3", "--at", "yesterday")
	assert.Error(t, err)
}

func TestSessionAndStatsCommands(t *testing.T) {
	c := newCLI(t)

	events := `[
		{"id": "a", "owner_id": 1, "item_id": 1, "quality": 5, "at": "2024-03-01T09:00:00Z"},
		{"id": "b", "owner_id": 1, "item_id": 1, "quality": 4, "at": "2024-03-02T09:00:00Z"},
		{"id": "c", "owner_id": 1, "item_id": 2, "correct": false, "at": "2024-03-01T09:00:00Z"},
		{"id": "d", "owner_id": 1, "item_id": 3, "at": "2024-03-01T09:00:00Z"}
	]`
	out, err := c.run(events, "session", "apply")
	assert.EqualError(t, err, "1 of 4 events failed")

	var results []resultOutput
	c.decode(out, &results)
	require.Len(t, results, 4)
	assert.Equal(t, 1, results[0].Interval)
	assert.Equal(t, 6, results[1].Interval)
	assert.Equal(t, 1, results[2].Interval)
	assert.NotEmpty(t, results[3].Error)

	out, err = c.run("", "session", "--owner", "1", "--now", "2024-03-04T09:00:00Z")
	require.NoError(t, err)
	var entries []sessionEntry
	c.decode(out, &entries)
	require.Len(t, entries, 2)
	// item 2 is overdue, item 1 is not due for days
	assert.Equal(t, int64(2), entries[0].ItemID)
	assert.Equal(t, int64(1), entries[1].ItemID)
	assert.Greater(t, entries[0].Priority, entries[1].Priority)

	out, err = c.run("", "session", "--owner", "1", "--limit", "1", "--now", "2024-03-04T09:00:00Z")
	require.NoError(t, err)
	c.decode(out, &entries)
	assert.Len(t, entries, 1)

	out, err = c.run("", "stats", "--owner", "1", "--now", "2024-03-04T09:00:00Z")
	require.NoError(t, err)
	var stats models.Statistics
	c.decode(out, &stats)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.DueItems)
	assert.Equal(t, 0, stats.MasteredItems)
}

func TestRemindCommand_ManualCheck(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "review", "--owner", "7", "--item", "1", "--quality", "1", "--at", "2024-03-01T09:00:00Z")
	require.NoError(t, err)

	_, err = c.run("", "remind", "--owner", "7")
	assert.NoError(t, err)
}

func TestAddCommand(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "review", "--owner", "1", "--item", "1", "--accuracy", "0.9",
		"--at", "2024-03-01T09:00:00Z")
	require.NoError(t, err)

	out, err := c.run("", "add", "--owner", "1", "--item", "1,2", "--item", "3", "--at", "2024-03-02T09:00:00Z")
	require.NoError(t, err)
	var added map[string][]int64
	c.decode(out, &added)
	// item 1 already has a state
	assert.Equal(t, []int64{2, 3}, added["added"])

	out, err = c.run("", "session", "--owner", "1", "--due-only", "--now", "2024-03-02T09:00:00Z")
	require.NoError(t, err)
	var entries []sessionEntry
	c.decode(out, &entries)
	require.Len(t, entries, 3)
	// new items lead at priority 1, then the reviewed item falling due right now
	assert.Equal(t, int64(2), entries[0].ItemID)
	assert.Equal(t, int64(3), entries[1].ItemID)
	assert.Equal(t, 1.0, entries[0].Priority)
	assert.Equal(t, int64(1), entries[2].ItemID)
	assert.False(t, entries[2].Mastered)

	out, err = c.run("", "session", "--owner", "1", "--due-only", "--now", "2024-03-01T12:00:00Z")
	require.NoError(t, err)
	c.decode(out, &entries)
	assert.Empty(t, entries)

	out, err = c.run("", "stats", "--owner", "1", "--now", "2024-03-02T09:00:00Z")
	require.NoError(t, err)
	var stats models.Statistics
	c.decode(out, &stats)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 2, stats.NewItems)
}
