package services

import (
	"context"
	"fmt"
	"log"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/derivation"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func (e *TrackerEngine) dayDetailsOrError(ctx context.Context, state domain.TrackerState, date domain.Date) domain.DayDetails {
	details, err := e.computeDayDetails(ctx, state, date)
	if err != nil {
		log.Printf("[ENGINE] Failed to load details for %s: %v", date, err)
		return domain.ErrorDayDetails()
	}
	return details
}

// computeDayDetails builds the view of one tracked day. The latest tracked
// day derives habit classifications live, earlier days read the statuses
// that were finalized for them.
func (e *TrackerEngine) computeDayDetails(ctx context.Context, state domain.TrackerState, date domain.Date) (domain.DayDetails, error) {
	latest, _ := state.LatestTrackedDay()

	entry, err := e.repo.SelectJournalEntry(ctx, date)
	if err != nil {
		return domain.DayDetails{}, err
	}
	if entry == nil {
		return domain.DayDetails{}, fmt.Errorf("no journal entry for %s", date)
	}

	performedIDs, err := e.repo.SelectHabitIDsPerformedOnDate(ctx, date)
	if err != nil {
		return domain.DayDetails{}, err
	}
	performed := make(map[int64]bool, len(performedIDs))
	for _, id := range performedIDs {
		performed[id] = true
	}

	habits, err := e.repo.SelectAllHabits(ctx)
	if err != nil {
		return domain.DayDetails{}, err
	}

	var tracked []domain.TrackedHabit
	var untracked []domain.Habit
	if date == latest {
		tracked, untracked, err = e.liveHabits(ctx, habits, performed, date)
	} else {
		tracked, untracked, err = e.finalizedHabits(ctx, habits, performed, date)
	}
	if err != nil {
		return domain.DayDetails{}, err
	}

	journalTaskIDs := []int64{}
	var suggestedTasks []int64
	for _, t := range state.Tasks {
		switch {
		case t.IsCompletedOn(date):
			journalTaskIDs = append(journalTaskIDs, t.ID)
		case derivation.IsTaskSuggested(t, date, latest, state.Tasks):
			suggestedTasks = append(suggestedTasks, t.ID)
		}
	}
	journalTaskIDs = append(journalTaskIDs, suggestedTasks...)

	journalHabitIDs := []int64{}
	var suggestedHabits []int64
	for _, h := range tracked {
		if h.WasPerformed {
			journalHabitIDs = append(journalHabitIDs, h.ID)
			continue
		}
		suggested, err := derivation.IsHabitSuggested(ctx, e.repo, h, date, latest)
		if err != nil {
			return domain.DayDetails{}, err
		}
		if suggested {
			suggestedHabits = append(suggestedHabits, h.ID)
		}
	}
	journalHabitIDs = append(journalHabitIDs, suggestedHabits...)

	return domain.DayDetails{
		JournalEntry:    *entry,
		JournalTaskIDs:  journalTaskIDs,
		JournalHabitIDs: journalHabitIDs,
		TrackedHabits:   tracked,
		UntrackedHabits: untracked,
	}, nil
}

func (e *TrackerEngine) liveHabits(ctx context.Context, habits []domain.Habit, performed map[int64]bool, date domain.Date) ([]domain.TrackedHabit, []domain.Habit, error) {
	tracked := []domain.TrackedHabit{}
	untracked := []domain.Habit{}

	for _, h := range habits {
		if !h.CurrentlyTracking {
			untracked = append(untracked, h)
			continue
		}

		status, err := derivation.Status(ctx, e.repo, h.ID, date, h.CurrentlyBuilding)
		if err != nil {
			return nil, nil, err
		}
		lastPerformed, err := derivation.LastPerformed(ctx, e.repo, h.ID, date)
		if err != nil {
			return nil, nil, err
		}
		hasHistory, err := e.repo.DoesAnyHabitStatusExistForHabit(ctx, h.ID)
		if err != nil {
			return nil, nil, err
		}

		tracked = append(tracked, domain.TrackedHabit{
			ID:            h.ID,
			Name:          h.Name,
			Frequency:     status.Frequency,
			Trend:         status.Trend,
			WasBuilding:   h.CurrentlyBuilding,
			WasPerformed:  performed[h.ID],
			LastPerformed: lastPerformed,
			IsNew:         !hasHistory,
		})
	}
	return tracked, untracked, nil
}

func (e *TrackerEngine) finalizedHabits(ctx context.Context, habits []domain.Habit, performed map[int64]bool, date domain.Date) ([]domain.TrackedHabit, []domain.Habit, error) {
	statuses, err := e.repo.SelectHabitStatusesForDate(ctx, date)
	if err != nil {
		return nil, nil, err
	}

	tracked := make([]domain.TrackedHabit, 0, len(statuses))
	withStatus := make(map[int64]bool, len(statuses))
	for _, s := range statuses {
		withStatus[s.HabitID] = true
		tracked = append(tracked, domain.TrackedHabit{
			ID:            s.HabitID,
			Name:          s.Name,
			Frequency:     s.Frequency,
			Trend:         s.Trend,
			WasBuilding:   s.WasBuilding,
			WasPerformed:  performed[s.HabitID],
			LastPerformed: s.LastPerformed,
		})
	}

	untracked := []domain.Habit{}
	for _, h := range habits {
		if !withStatus[h.ID] {
			untracked = append(untracked, h)
		}
	}
	return tracked, untracked, nil
}
