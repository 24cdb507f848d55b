package services

import (
	"context"
	"fmt"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/derivation"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

const streakLookbackDays = 365

type StatsService struct {
	repo domain.TrackerRepository
}

func NewStatsService(repo domain.TrackerRepository) *StatsService {
	return &StatsService{
		repo: repo,
	}
}

func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	startDate := input.StartDate
	endDate := input.EndDate
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("stats: end date %s is before start date %s", endDate, startDate)
	}

	habits, err := s.repo.SelectAllHabits(ctx)
	if err != nil {
		return nil, err
	}

	// Streaks need history older than the window itself.
	historyStart := endDate.AddDays(-streakLookbackDays)
	if startDate.Before(historyStart) {
		historyStart = startDate
	}
	performances, err := s.repo.SelectHabitPerformancesBetween(ctx, historyStart, endDate)
	if err != nil {
		return nil, err
	}

	performedMap := make(map[int64]map[domain.Date]bool)
	historyMap := make(map[int64][]domain.Date)
	for _, p := range performances {
		if _, exists := performedMap[p.HabitID]; !exists {
			performedMap[p.HabitID] = make(map[domain.Date]bool)
		}
		performedMap[p.HabitID][p.Date] = true
		historyMap[p.HabitID] = append(historyMap[p.HabitID], p.Date)
	}

	stats := &domain.WeeklyStats{
		StartDate:  startDate.String(),
		EndDate:    endDate.String(),
		HabitStats: make([]domain.HabitStat, 0, len(habits)),
	}

	totalDaysPossible := 0
	totalDaysCompleted := 0

	for _, h := range habits {
		if !h.CurrentlyTracking {
			continue
		}

		hStat := domain.HabitStat{
			HabitID:       h.ID,
			HabitName:     h.Name,
			DailyProgress: make([]int, 0),
		}

		daysInPeriod := 0
		daysAchieved := 0

		for _, currentDate := range domain.DatesBetween(startDate, endDate.NextDay()) {
			val := 0
			if performedMap[h.ID][currentDate] {
				val = 1
				daysAchieved++
				totalDaysCompleted++
			}
			hStat.DailyProgress = append(hStat.DailyProgress, val)

			daysInPeriod++
			totalDaysPossible++
		}

		hStat.DaysCompleted = daysAchieved
		if daysInPeriod > 0 {
			hStat.CompletionRate = float64(daysAchieved) / float64(daysInPeriod) * 100
		}
		hStat.CurrentStreak, hStat.LongestStreak = derivation.Streaks(historyMap[h.ID], endDate)

		stats.HabitStats = append(stats.HabitStats, hStat)
	}
	stats.TotalHabits = len(stats.HabitStats)

	if totalDaysPossible > 0 {
		stats.OverallRate = float64(totalDaysCompleted) / float64(totalDaysPossible) * 100
	}

	if err := s.addJournalStats(ctx, stats, startDate, endDate); err != nil {
		return nil, err
	}
	if err := s.addTaskStats(ctx, stats, startDate, endDate); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *StatsService) addJournalStats(ctx context.Context, stats *domain.WeeklyStats, startDate, endDate domain.Date) error {
	entries, err := s.repo.SelectJournalEntriesBetween(ctx, startDate, endDate)
	if err != nil {
		return err
	}

	moodTotal, moodCount := 0, 0
	for _, e := range entries {
		if e.IsStarred {
			stats.StarredDays++
		}
		if e.Mood != nil {
			moodTotal += int(*e.Mood)
			moodCount++
		}
	}
	if moodCount > 0 {
		avg := float64(moodTotal) / float64(moodCount)
		stats.AverageMood = &avg
	}
	return nil
}

func (s *StatsService) addTaskStats(ctx context.Context, stats *domain.WeeklyStats, startDate, endDate domain.Date) error {
	tasks, err := s.repo.SelectAllTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.DateCompleted != nil && !t.DateCompleted.Before(startDate) && !t.DateCompleted.After(endDate) {
			stats.TasksCompleted++
		}
	}
	return nil
}
