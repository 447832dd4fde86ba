package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *ProgressStore {
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	store := NewProgressStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestProgressStore_SaveAndLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	progress := &recalculation.Progress{
		ProcessID:         "run-1",
		Status:            recalculation.StatusInProgress,
		StartDate:         "2024-06-01",
		EndDate:           "2024-06-30",
		Filter:            attendance.Filter{EmployeeCodes: []string{"EMP001"}},
		Months:            []string{"2024-06"},
		CurrentMonth:      "2024-06",
		LastCompletedDate: "2024-06-05",
		Stats:             recalculation.Stats{DaysProcessed: 5, EmployeesProcessed: 1},
		Employees:         []string{"EMP001"},
		StartedAt:         at,
		UpdatedAt:         at,
	}
	require.NoError(t, store.Save(ctx, progress))

	got, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recalculation.StatusInProgress, got.Status)
	assert.Equal(t, "2024-06-05", got.LastCompletedDate)
	assert.Equal(t, []string{"EMP001"}, got.Filter.EmployeeCodes)
	assert.Equal(t, 5, got.Stats.DaysProcessed)
	assert.True(t, at.Equal(got.StartedAt))
}

func TestProgressStore_SaveOverwrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	progress := &recalculation.Progress{ProcessID: "run-1", Status: recalculation.StatusInProgress, UpdatedAt: at}
	require.NoError(t, store.Save(ctx, progress))

	progress.Status = recalculation.StatusCompleted
	progress.CompletedMonths = []string{"2024-06"}
	progress.UpdatedAt = at.Add(time.Minute)
	require.NoError(t, store.Save(ctx, progress))

	got, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, recalculation.StatusCompleted, got.Status)
	assert.Equal(t, []string{"2024-06"}, got.CompletedMonths)

	var count int64
	require.NoError(t, store.db.Model(&progressRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProgressStore_Latest(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, recalculation.ErrProgressNotFound)

	require.NoError(t, store.Save(ctx, &recalculation.Progress{ProcessID: "older", UpdatedAt: at}))
	require.NoError(t, store.Save(ctx, &recalculation.Progress{ProcessID: "newer", UpdatedAt: at.Add(time.Hour)}))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.ProcessID)
}

func TestProgressStore_LoadMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.Load(context.Background(), "missing")

	assert.ErrorIs(t, err, recalculation.ErrProgressNotFound)
}
