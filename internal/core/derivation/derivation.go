// Package derivation computes habit classifications and journal suggestions
// from performance history. Every calculation as of a date only looks at
// records on or before that date.
package derivation

import (
	"context"
	"math"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

const (
	shortTermPropensityDays  = 14
	mediumTermPropensityDays = 42
	trendSampleSize          = 3
	consistentIntervalMargin = 0.25
)

// PerformanceHistory is the slice of the gateway the derivations read.
type PerformanceHistory interface {
	CountHabitPerformedDuring(ctx context.Context, habitID int64, dates []domain.Date) (int, error)
	SelectMostRecentDatesHabitPerformed(ctx context.Context, habitID int64, n int, asOf domain.Date) ([]domain.Date, error)
}

func Frequency(ctx context.Context, history PerformanceHistory, habitID int64, date domain.Date) (domain.HabitFrequency, error) {
	daily, err := performedInWeek(ctx, history, habitID, date)
	if err != nil {
		return domain.HabitFrequencyNone, err
	}
	if daily >= 5 {
		return domain.HabitFrequencyDaily, nil
	}

	weeksWithPerformance := 0
	for week := 0; week < 4; week++ {
		n := daily
		if week > 0 {
			n, err = performedInWeek(ctx, history, habitID, date.AddDays(-week*domain.DaysInWeek))
			if err != nil {
				return domain.HabitFrequencyNone, err
			}
		}
		if n >= 1 {
			weeksWithPerformance++
		}
	}
	if weeksWithPerformance >= 3 {
		return domain.HabitFrequencyWeekly, nil
	}

	thisMonth, err := history.CountHabitPerformedDuring(ctx, habitID, date.PreviousDaysInclusive(domain.AvgDaysInMonth))
	if err != nil {
		return domain.HabitFrequencyNone, err
	}
	if thisMonth >= 1 {
		lastMonth, err := history.CountHabitPerformedDuring(ctx, habitID,
			date.AddDays(-domain.AvgDaysInMonth).PreviousDaysInclusive(domain.AvgDaysInMonth))
		if err != nil {
			return domain.HabitFrequencyNone, err
		}
		if lastMonth >= 1 {
			return domain.HabitFrequencyMonthly, nil
		}
	}

	return domain.HabitFrequencyNone, nil
}

func performedInWeek(ctx context.Context, history PerformanceHistory, habitID int64, end domain.Date) (int, error) {
	return history.CountHabitPerformedDuring(ctx, habitID, end.PreviousDaysInclusive(domain.DaysInWeek))
}

func Trend(ctx context.Context, history PerformanceHistory, habitID int64, date domain.Date) (domain.HabitTrend, error) {
	recent, err := history.SelectMostRecentDatesHabitPerformed(ctx, habitID, trendSampleSize, date)
	if err != nil {
		return domain.HabitTrendNone, err
	}
	return TrendFromRecentDates(recent, date), nil
}

// TrendFromRecentDates classifies the trend from the most recent performance
// dates on or before date, most recent first.
func TrendFromRecentDates(recent []domain.Date, date domain.Date) domain.HabitTrend {
	if len(recent) < trendSampleSize {
		return domain.HabitTrendNone
	}
	recent = recent[:trendSampleSize]

	avgInterval := domain.AvgDaysBetween(recent)
	moreRecentInterval := domain.AvgDaysBetween(recent[:2])
	lessRecentInterval := domain.AvgDaysBetween(recent[1:])

	margin := avgInterval * consistentIntervalMargin
	lower, upper := avgInterval-margin, avgInterval+margin
	within := func(v float64) bool { return v >= lower && v <= upper }
	isConsistent := within(moreRecentInterval) && within(lessRecentInterval)

	daysSince := float64(recent[0].DaysUntil(date))

	switch {
	case moreRecentInterval < lessRecentInterval && daysSince <= moreRecentInterval:
		return domain.HabitTrendUp
	case isConsistent && daysSince <= upper:
		return domain.HabitTrendNeutral
	case isConsistent:
		return domain.HabitTrendDown
	case daysSince <= math.Max(moreRecentInterval, lessRecentInterval):
		return domain.HabitTrendNeutral
	default:
		return domain.HabitTrendDown
	}
}

// Status computes the persisted classification of a habit as of date.
func Status(ctx context.Context, history PerformanceHistory, habitID int64, date domain.Date, wasBuilding bool) (domain.HabitStatus, error) {
	frequency, err := Frequency(ctx, history, habitID, date)
	if err != nil {
		return domain.HabitStatus{}, err
	}
	trend, err := Trend(ctx, history, habitID, date)
	if err != nil {
		return domain.HabitStatus{}, err
	}
	return domain.HabitStatus{
		HabitID:     habitID,
		Date:        date,
		Frequency:   frequency,
		Trend:       trend,
		WasBuilding: wasBuilding,
	}, nil
}

// LastPerformed returns the most recent performance on or before date.
func LastPerformed(ctx context.Context, history PerformanceHistory, habitID int64, date domain.Date) (*domain.Date, error) {
	dates, err := history.SelectMostRecentDatesHabitPerformed(ctx, habitID, 1, date)
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	return &dates[0], nil
}

// IsTaskSuggested reports whether task should surface in the journal of
// date. Suggestions only exist for the latest tracked day.
func IsTaskSuggested(task domain.Task, date, latestTrackedDay domain.Date, all []domain.Task) bool {
	if date != latestTrackedDay {
		return false
	}
	if task.HasDeadline(date) && !task.IsOlderAsOf(date) {
		return true
	}
	if task.IsOverdueAsOf(date) {
		return true
	}

	var oldestHighPriority *domain.Task
	for i := range all {
		t := &all[i]
		if t.IsCompletedAsOf(date) || t.Priority != domain.TaskPriorityHigh {
			continue
		}
		if oldestHighPriority == nil || t.DateCreated.Before(oldestHighPriority.DateCreated) {
			oldestHighPriority = t
		}
	}
	if oldestHighPriority != nil && oldestHighPriority.ID == task.ID {
		return true
	}

	for _, t := range all {
		if t.HasDeadline(date) || t.IsOverdueAsOf(date) {
			return false
		}
	}

	mostUrgent, ok := mostUrgentUncompleted(all, date)
	return ok && mostUrgent.ID == task.ID
}

func mostUrgentUncompleted(all []domain.Task, date domain.Date) (domain.Task, bool) {
	less := domain.TaskUrgencyLess(date)
	var best domain.Task
	found := false
	for _, t := range all {
		if t.IsCompletedAsOf(date) {
			continue
		}
		if !found || less(t, best) {
			best, found = t, true
		}
	}
	return best, found
}

// IsHabitSuggested reports whether a tracked habit should surface in the
// journal of date. Like tasks, only the latest tracked day gets suggestions.
func IsHabitSuggested(ctx context.Context, history PerformanceHistory, habit domain.TrackedHabit, date, latestTrackedDay domain.Date) (bool, error) {
	if date != latestTrackedDay {
		return false, nil
	}
	if habit.Trend == domain.HabitTrendDown {
		return true, nil
	}

	shortTerm, err := weekdayPropensity(ctx, history, habit.ID, date, shortTermPropensityDays, date.Weekday())
	if err != nil {
		return false, err
	}
	if shortTerm == 1.0 {
		return true, nil
	}

	mediumTerm, err := weekdayPropensity(ctx, history, habit.ID, date, mediumTermPropensityDays, date.Weekday())
	if err != nil {
		return false, err
	}
	if mediumTerm >= 0.5 {
		return true, nil
	}

	if mediumTerm > 0.3 {
		onlyThisWeekday := true
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if wd == date.Weekday() {
				continue
			}
			other, err := weekdayPropensity(ctx, history, habit.ID, date, mediumTermPropensityDays, wd)
			if err != nil {
				return false, err
			}
			if other != 0 {
				onlyThisWeekday = false
				break
			}
		}
		if onlyThisWeekday {
			return true, nil
		}
	}

	recent, err := history.SelectMostRecentDatesHabitPerformed(ctx, habit.ID, trendSampleSize, date)
	if err != nil {
		return false, err
	}
	daysSince := math.MaxInt
	if len(recent) > 0 {
		daysSince = recent[0].DaysUntil(date)
	}

	switch habit.Frequency {
	case domain.HabitFrequencyDaily:
		return daysSince >= 1, nil
	case domain.HabitFrequencyWeekly:
		return daysSince >= domain.DaysInWeek, nil
	case domain.HabitFrequencyMonthly:
		return daysSince >= domain.AvgDaysInMonth, nil
	default:
		return len(recent) >= trendSampleSize && float64(daysSince) >= domain.AvgDaysBetween(recent), nil
	}
}

// weekdayPropensity is the share of the given weekday's occurrences in the
// numDays before date on which the habit was performed.
func weekdayPropensity(ctx context.Context, history PerformanceHistory, habitID int64, date domain.Date, numDays int, weekday time.Weekday) (float64, error) {
	var reference []domain.Date
	for _, d := range date.PreviousDays(numDays) {
		if d.Weekday() == weekday {
			reference = append(reference, d)
		}
	}
	if len(reference) == 0 {
		return 0, nil
	}
	n, err := history.CountHabitPerformedDuring(ctx, habitID, reference)
	if err != nil {
		return 0, err
	}
	return float64(n) / float64(len(reference)), nil
}
