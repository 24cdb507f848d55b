package derivation

import (
	"sort"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// Streaks returns the current and longest runs of consecutive performance
// days. The current streak is still alive when the last performance was on
// asOf or the day before.
func Streaks(performed []domain.Date, asOf domain.Date) (int, int) {
	if len(performed) == 0 {
		return 0, 0
	}

	uniqueDays := make(map[domain.Date]bool)
	var sortedDates []domain.Date
	for _, d := range performed {
		if d.After(asOf) || uniqueDays[d] {
			continue
		}
		uniqueDays[d] = true
		sortedDates = append(sortedDates, d)
	}

	if len(sortedDates) == 0 {
		return 0, 0
	}

	sort.Slice(sortedDates, func(i, j int) bool {
		return sortedDates[i].After(sortedDates[j])
	})

	currentStreak := 0
	if sortedDates[0].DaysUntil(asOf) <= 1 {
		currentStreak = 1
		for i := 0; i < len(sortedDates)-1; i++ {
			if sortedDates[i+1].DaysUntil(sortedDates[i]) == 1 {
				currentStreak++
			} else {
				break
			}
		}
	}

	longestStreak := 0
	tempStreak := 1
	for i := 0; i < len(sortedDates)-1; i++ {
		if sortedDates[i+1].DaysUntil(sortedDates[i]) == 1 {
			tempStreak++
		} else {
			if tempStreak > longestStreak {
				longestStreak = tempStreak
			}
			tempStreak = 1
		}
	}
	if tempStreak > longestStreak {
		longestStreak = tempStreak
	}

	return currentStreak, longestStreak
}
