package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolvebot/resolvebot/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestRunCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &models.Run{
		IssueNumber:  7,
		Repo:         "acme/widgets",
		Branch:       "resolvebot/issue-7",
		Model:        "anthropic/claude-sonnet-4-5",
		CoderBackend: "claude",
	}
	require.NoError(t, s.CreateRun(ctx, run))
	assert.NotEmpty(t, run.ID, "ULID assigned on create")
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.IssueNumber)
	assert.Equal(t, "acme/widgets", got.Repo)
	assert.Nil(t, got.EndedAt)

	ended := time.Now().UTC()
	run.Status = models.RunStatusSucceeded
	run.FixAttempts = 2
	run.TestsPassed = true
	run.PRURL = "https://github.com/acme/widgets/pull/42"
	run.CommitMessage = "fix: guard empty input"
	run.EndedAt = &ended
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, got.Status)
	assert.Equal(t, 2, got.FixAttempts)
	assert.True(t, got.TestsPassed)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42", got.PRURL)
	require.NotNil(t, got.EndedAt)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "01AAAAAAAAAAAAAAAAAAAAAAAA")
	assert.Error(t, err)
}

func TestUpdateRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateRun(context.Background(), &models.Run{ID: "missing"})
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, status := range []models.RunStatus{models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusSucceeded} {
		run := &models.Run{
			IssueNumber: 10 + i,
			Status:      status,
			StartedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.CreateRun(ctx, run))
	}

	t.Run("all newest first", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunListFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, 12, runs[0].IssueNumber)
		assert.Equal(t, 10, runs[2].IssueNumber)
	})

	t.Run("by status", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunListFilter{Status: models.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 11, runs[0].IssueNumber)
	})

	t.Run("by issue number", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunListFilter{IssueNumber: 12})
		require.NoError(t, err)
		require.Len(t, runs, 1)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := s.ListRuns(ctx, RunListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})
}
