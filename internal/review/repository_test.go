package review

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingua/internal/config"
	"github.com/example/lingua/internal/database"
	"github.com/example/lingua/internal/spaced_repetition"
)

func newSQLiteService(t *testing.T) (*Service, *database.ReviewStateRepository) {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "lingua.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewReviewStateRepository(db)
	log, _ := logtest.NewNullLogger()
	svc := NewService(repo, spaced_repetition.NewSM2(), log, 2)
	svc.now = func() time.Time { return t0 }
	return svc, repo
}

func TestEnroll_NewItemLeadsSession(t *testing.T) {
	svc, repo := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.ApplyReview(ctx, Event{ID: "a", OwnerID: 1, ItemID: 1, Quality: intPtr(4), At: t0.Add(-spaced_repetition.Day)})
	require.NoError(t, err)

	enrolled, created, err := svc.Enroll(ctx, 1, 2, t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, enrolled.ID)

	stored, err := repo.Get(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, stored.Reviewed())
	assert.Empty(t, stored.History)

	items, err := svc.BuildSession(ctx, 1, 0, t0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].State.ItemID)
	assert.Equal(t, 1.0, items[0].Priority)
	assert.Equal(t, int64(1), items[1].State.ItemID)
	assert.Less(t, items[1].Priority, 1.0)

	// enrolling again is a no-op
	_, created, err = svc.Enroll(ctx, 1, 2, t0.Add(spaced_repetition.Day))
	require.NoError(t, err)
	assert.False(t, created)

	// the first review of an enrolled item updates the stored row
	reviewed, err := svc.ApplyReview(ctx, Event{ID: "b", OwnerID: 1, ItemID: 2, Quality: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, enrolled.ID, reviewed.ID)
	assert.Equal(t, 1, reviewed.Interval)
	assert.Equal(t, int64(2), reviewed.Version)
}
