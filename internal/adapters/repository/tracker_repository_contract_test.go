package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func d(s string) domain.Date {
	return domain.MustParseDate(s)
}

func dp(s string) *domain.Date {
	date := domain.MustParseDate(s)
	return &date
}

// runTrackerRepositoryContract checks the behaviour every gateway shares.
// newRepo must return an empty store.
func runTrackerRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.TrackerRepository) {
	ctx := context.Background()

	t.Run("Journal entries", func(t *testing.T) {
		repo := newRepo(t)

		first, err := repo.SelectFirstJournalEntry(ctx)
		require.NoError(t, err)
		assert.Nil(t, first, "empty store has no first entry")

		require.NoError(t, repo.InsertJournalEntries(ctx, []domain.Date{d("2026-10-14"), d("2026-10-15")}))
		require.NoError(t, repo.InsertJournalEntry(ctx, d("2026-10-16")))
		require.NoError(t, repo.InsertJournalEntry(ctx, d("2026-10-16")), "inserting twice is a no-op")

		first, err = repo.SelectFirstJournalEntry(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, d("2026-10-14"), first.Date)

		latest, err := repo.SelectLatestJournalEntry(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, d("2026-10-16"), latest.Date)
		assert.False(t, latest.HabitsCalculated)
		assert.Nil(t, latest.Mood)

		mood := domain.MoodGood
		require.NoError(t, repo.UpdateJournalEntry(ctx, domain.JournalEntry{
			Date:             d("2026-10-15"),
			Note:             "walked by the river",
			IsStarred:        true,
			Mood:             &mood,
			HabitsCalculated: true,
		}))

		entry, err := repo.SelectJournalEntry(ctx, d("2026-10-15"))
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "walked by the river", entry.Note)
		assert.True(t, entry.IsStarred)
		require.NotNil(t, entry.Mood)
		assert.Equal(t, domain.MoodGood, *entry.Mood)
		assert.False(t, entry.HabitsCalculated, "update never writes the calculated flag")

		missing, err := repo.SelectJournalEntry(ctx, d("2026-01-01"))
		require.NoError(t, err)
		assert.Nil(t, missing)

		between, err := repo.SelectJournalEntriesBetween(ctx, d("2026-10-15"), d("2026-10-16"))
		require.NoError(t, err)
		require.Len(t, between, 2)
		assert.Equal(t, d("2026-10-15"), between[0].Date)
		assert.Equal(t, d("2026-10-16"), between[1].Date)

		withoutStatuses, err := repo.SelectJournalDatesWithoutHabitStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Date{d("2026-10-14"), d("2026-10-15"), d("2026-10-16")}, withoutStatuses)
	})

	t.Run("Tasks", func(t *testing.T) {
		repo := newRepo(t)

		stored, err := repo.InsertTask(ctx, domain.NewTask{Name: "File taxes", DateCreated: d("2026-10-10"), Priority: domain.TaskPriorityHigh, Deadline: dp("2026-10-20")})
		require.NoError(t, err)
		assert.NotZero(t, stored.ID)
		assert.Nil(t, stored.DateCompleted)

		plain, err := repo.InsertTask(ctx, domain.NewTask{DateCreated: d("2026-10-11")})
		require.NoError(t, err)
		assert.Equal(t, domain.TaskPriorityMedium, plain.Priority)

		stored.DateCompleted = dp("2026-10-16")
		stored.Name = "File taxes (done)"
		require.NoError(t, repo.UpdateTask(ctx, *stored))

		tasks, err := repo.SelectAllTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, *stored, tasks[0])
		assert.Nil(t, tasks[1].Deadline)

		require.NoError(t, repo.DeleteTask(ctx, plain.ID))
		tasks, err = repo.SelectAllTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})

	t.Run("Habits and performances", func(t *testing.T) {
		repo := newRepo(t)

		run, err := repo.InsertHabit(ctx, "Run")
		require.NoError(t, err)
		assert.True(t, run.CurrentlyTracking)
		assert.False(t, run.CurrentlyBuilding)

		read, err := repo.InsertHabit(ctx, "Read")
		require.NoError(t, err)

		require.NoError(t, repo.UpdateHabitName(ctx, run.ID, "Run 5k"))
		require.NoError(t, repo.UpdateHabitIsBuilding(ctx, run.ID, true))
		require.NoError(t, repo.UpdateHabitIsTracked(ctx, read.ID, false))

		habits, err := repo.SelectAllHabits(ctx)
		require.NoError(t, err)
		require.Len(t, habits, 2)
		assert.Equal(t, domain.Habit{ID: run.ID, Name: "Run 5k", CurrentlyTracking: true, CurrentlyBuilding: true}, habits[0])
		assert.False(t, habits[1].CurrentlyTracking)

		for _, date := range []string{"2026-10-10", "2026-10-12", "2026-10-14", "2026-10-16"} {
			require.NoError(t, repo.InsertHabitPerformed(ctx, run.ID, d(date)))
		}
		require.NoError(t, repo.InsertHabitPerformed(ctx, run.ID, d("2026-10-16")), "duplicate performance is ignored")
		require.NoError(t, repo.InsertHabitPerformed(ctx, read.ID, d("2026-10-16")))

		ids, err := repo.SelectHabitIDsPerformedOnDate(ctx, d("2026-10-16"))
		require.NoError(t, err)
		assert.Equal(t, []int64{run.ID, read.ID}, ids)

		count, err := repo.CountHabitPerformedDuring(ctx, run.ID, []domain.Date{d("2026-10-12"), d("2026-10-13"), d("2026-10-14"), d("2026-10-14")})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = repo.CountHabitPerformedDuring(ctx, run.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, count)

		recent, err := repo.SelectMostRecentDatesHabitPerformed(ctx, run.ID, 3, d("2026-10-15"))
		require.NoError(t, err)
		assert.Equal(t, []domain.Date{d("2026-10-14"), d("2026-10-12"), d("2026-10-10")}, recent)

		between, err := repo.SelectHabitPerformancesBetween(ctx, d("2026-10-14"), d("2026-10-16"))
		require.NoError(t, err)
		assert.Equal(t, []domain.HabitPerformed{
			{HabitID: run.ID, Date: d("2026-10-14")},
			{HabitID: run.ID, Date: d("2026-10-16")},
			{HabitID: read.ID, Date: d("2026-10-16")},
		}, between)

		require.NoError(t, repo.DeleteHabitPerformed(ctx, run.ID, d("2026-10-16")))
		ids, err = repo.SelectHabitIDsPerformedOnDate(ctx, d("2026-10-16"))
		require.NoError(t, err)
		assert.Equal(t, []int64{read.ID}, ids)
	})

	t.Run("Habit statuses", func(t *testing.T) {
		repo := newRepo(t)

		run, err := repo.InsertHabit(ctx, "Run")
		require.NoError(t, err)
		stretch, err := repo.InsertHabit(ctx, "Stretch")
		require.NoError(t, err)
		require.NoError(t, repo.InsertJournalEntries(ctx, []domain.Date{d("2026-10-15"), d("2026-10-16")}))
		require.NoError(t, repo.InsertHabitPerformed(ctx, run.ID, d("2026-10-13")))
		require.NoError(t, repo.InsertHabitPerformed(ctx, run.ID, d("2026-10-16")))

		exists, err := repo.DoesAnyHabitStatusExistForHabit(ctx, run.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.InsertHabitStatusesForDate(ctx, d("2026-10-15"), []domain.HabitStatus{
			{HabitID: run.ID, Date: d("2026-10-15"), Frequency: domain.HabitFrequencyWeekly, Trend: domain.HabitTrendUp, WasBuilding: true},
			{HabitID: stretch.ID, Date: d("2026-10-15"), Frequency: domain.HabitFrequencyNone, Trend: domain.HabitTrendNone},
		}))

		pending, err := repo.SelectJournalDatesWithoutHabitStatuses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Date{d("2026-10-16")}, pending)

		details, err := repo.SelectHabitStatusesForDate(ctx, d("2026-10-15"))
		require.NoError(t, err)
		require.Len(t, details, 2)
		assert.Equal(t, "Run", details[0].Name)
		assert.Equal(t, domain.HabitTrendUp, details[0].Trend)
		assert.True(t, details[0].WasBuilding)
		require.NotNil(t, details[0].LastPerformed)
		assert.Equal(t, d("2026-10-13"), *details[0].LastPerformed, "later performances are not visible")
		assert.Nil(t, details[1].LastPerformed)

		require.NoError(t, repo.InsertOrReplaceHabitStatuses(ctx, []domain.HabitStatus{
			{HabitID: run.ID, Date: d("2026-10-15"), Frequency: domain.HabitFrequencyDaily, Trend: domain.HabitTrendDown, WasBuilding: true},
		}))
		status, err := repo.SelectHabitStatus(ctx, run.ID, d("2026-10-15"))
		require.NoError(t, err)
		require.NotNil(t, status)
		assert.Equal(t, domain.HabitFrequencyDaily, status.Frequency)
		assert.Equal(t, domain.HabitTrendDown, status.Trend)

		missing, err := repo.SelectHabitStatus(ctx, run.ID, d("2026-10-16"))
		require.NoError(t, err)
		assert.Nil(t, missing)

		err = repo.InsertHabitStatusesForDate(ctx, d("2026-10-16"), []domain.HabitStatus{{HabitID: run.ID, Date: d("2026-10-15")}})
		assert.ErrorIs(t, err, domain.ErrPersistence, "mismatched dates are rejected")

		require.NoError(t, repo.DeleteHabitStatus(ctx, stretch.ID, d("2026-10-15")))
		exists, err = repo.DoesAnyHabitStatusExistForHabit(ctx, stretch.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.DeleteHabit(ctx, run.ID))
		exists, err = repo.DoesAnyHabitStatusExistForHabit(ctx, run.ID)
		require.NoError(t, err)
		assert.False(t, exists, "deleting a habit drops its statuses")
		recent, err := repo.SelectMostRecentDatesHabitPerformed(ctx, run.ID, 5, d("2026-10-16"))
		require.NoError(t, err)
		assert.Empty(t, recent, "deleting a habit drops its performances")
	})
}
