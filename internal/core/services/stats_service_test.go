package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

// MockStatsRepo stubs the reads GetWeeklyStats makes. Any other call panics
// on the nil embedded interface.
type MockStatsRepo struct {
	domain.TrackerRepository
	mock.Mock
}

func (m *MockStatsRepo) SelectAllHabits(ctx context.Context) ([]domain.Habit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Habit), args.Error(1)
}

func (m *MockStatsRepo) SelectHabitPerformancesBetween(ctx context.Context, from, to domain.Date) ([]domain.HabitPerformed, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HabitPerformed), args.Error(1)
}

func (m *MockStatsRepo) SelectJournalEntriesBetween(ctx context.Context, from, to domain.Date) ([]domain.JournalEntry, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalEntry), args.Error(1)
}

func (m *MockStatsRepo) SelectAllTasks(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}

func ptr[T any](v T) *T {
	return &v
}

func TestStatsService_GetWeeklyStats(t *testing.T) {
	ctx := context.Background()

	startDate := domain.MustParseDate("2024-01-10")
	endDate := domain.MustParseDate("2024-01-12")

	t.Run("Success: Calculates rates, streaks and fills missing days", func(t *testing.T) {
		repo := new(MockStatsRepo)
		svc := services.NewStatsService(repo)

		habits := []domain.Habit{
			{ID: 1, Name: "Drink Water", CurrentlyTracking: true},
			{ID: 2, Name: "Read", CurrentlyTracking: true},
			{ID: 3, Name: "Paused", CurrentlyTracking: false},
		}
		repo.On("SelectAllHabits", ctx).Return(habits, nil)

		performances := []domain.HabitPerformed{
			{HabitID: 1, Date: domain.MustParseDate("2024-01-09")},
			{HabitID: 1, Date: startDate},
			{HabitID: 1, Date: domain.MustParseDate("2024-01-11")},
			{HabitID: 1, Date: endDate},
			{HabitID: 2, Date: startDate},
		}
		repo.On("SelectHabitPerformancesBetween", ctx, mock.Anything, endDate).Return(performances, nil)

		entries := []domain.JournalEntry{
			{Date: startDate, IsStarred: true, Mood: ptr(domain.MoodGood)},
			{Date: domain.MustParseDate("2024-01-11"), Mood: ptr(domain.MoodBad)},
			{Date: endDate, IsStarred: true},
		}
		repo.On("SelectJournalEntriesBetween", ctx, startDate, endDate).Return(entries, nil)

		tasks := []domain.Task{
			{ID: 1, DateCompleted: ptr(startDate)},
			{ID: 2, DateCompleted: ptr(domain.MustParseDate("2024-01-20"))},
			{ID: 3},
		}
		repo.On("SelectAllTasks", ctx).Return(tasks, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{StartDate: startDate, EndDate: endDate})

		require.NoError(t, err)
		require.NotNil(t, stats)

		assert.Equal(t, 2, stats.TotalHabits)
		assert.Equal(t, "2024-01-10", stats.StartDate)
		assert.Equal(t, "2024-01-12", stats.EndDate)

		h1 := findHabitStat(stats.HabitStats, 1)
		require.NotNil(t, h1)
		assert.Equal(t, 3, h1.DaysCompleted)
		assert.InDelta(t, 100.0, h1.CompletionRate, 0.01)
		assert.Equal(t, []int{1, 1, 1}, h1.DailyProgress)
		assert.Equal(t, 4, h1.CurrentStreak)
		assert.Equal(t, 4, h1.LongestStreak)

		h2 := findHabitStat(stats.HabitStats, 2)
		require.NotNil(t, h2)
		assert.Equal(t, []int{1, 0, 0}, h2.DailyProgress)
		assert.Equal(t, 0, h2.CurrentStreak)
		assert.Equal(t, 1, h2.LongestStreak)

		assert.Nil(t, findHabitStat(stats.HabitStats, 3))
		assert.InDelta(t, 66.67, stats.OverallRate, 0.1)

		assert.Equal(t, 2, stats.StarredDays)
		require.NotNil(t, stats.AverageMood)
		assert.InDelta(t, 3.0, *stats.AverageMood, 0.001)
		assert.Equal(t, 1, stats.TasksCompleted)

		repo.AssertExpectations(t)
	})

	t.Run("Edge Case: No Habits returns zero stats", func(t *testing.T) {
		repo := new(MockStatsRepo)
		svc := services.NewStatsService(repo)

		repo.On("SelectAllHabits", ctx).Return([]domain.Habit{}, nil)
		repo.On("SelectHabitPerformancesBetween", ctx, mock.Anything, mock.Anything).Return([]domain.HabitPerformed{}, nil)
		repo.On("SelectJournalEntriesBetween", ctx, mock.Anything, mock.Anything).Return([]domain.JournalEntry{}, nil)
		repo.On("SelectAllTasks", ctx).Return([]domain.Task{}, nil)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{StartDate: startDate, EndDate: endDate})

		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalHabits)
		assert.Equal(t, 0.0, stats.OverallRate)
		assert.Empty(t, stats.HabitStats)
		assert.Nil(t, stats.AverageMood)
	})

	t.Run("Fail: Inverted range is rejected", func(t *testing.T) {
		repo := new(MockStatsRepo)
		svc := services.NewStatsService(repo)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{StartDate: endDate, EndDate: startDate})

		assert.Error(t, err)
		assert.Nil(t, stats)
		repo.AssertNotCalled(t, "SelectAllHabits", mock.Anything)
	})

	t.Run("Fail: Habit Repo Error propagates", func(t *testing.T) {
		repo := new(MockStatsRepo)
		svc := services.NewStatsService(repo)

		dbErr := domain.NewPersistenceError("select all habits", errors.New("db connection lost"))
		repo.On("SelectAllHabits", ctx).Return(nil, dbErr)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{StartDate: startDate, EndDate: endDate})

		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.Nil(t, stats)
	})

	t.Run("Fail: Performance Repo Error propagates", func(t *testing.T) {
		repo := new(MockStatsRepo)
		svc := services.NewStatsService(repo)

		repo.On("SelectAllHabits", ctx).Return([]domain.Habit{{ID: 1, CurrentlyTracking: true}}, nil)
		dbErr := errors.New("query timeout")
		repo.On("SelectHabitPerformancesBetween", ctx, mock.Anything, mock.Anything).Return(nil, dbErr)

		stats, err := svc.GetWeeklyStats(ctx, domain.StatsInput{StartDate: startDate, EndDate: endDate})

		assert.ErrorIs(t, err, dbErr)
		assert.Nil(t, stats)
	})
}

func findHabitStat(stats []domain.HabitStat, habitID int64) *domain.HabitStat {
	for _, s := range stats {
		if s.HabitID == habitID {
			return &s
		}
	}
	return nil
}
