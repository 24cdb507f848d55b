package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestTrackerState_FocusedDayDetails(t *testing.T) {
	day := domain.MustParseDate("2026-10-16")
	state := domain.NewTrackerState(day)

	details := state.FocusedDayDetails()
	assert.Equal(t, domain.TrackerErrorFailedToLoad, details.Error, "missing details resolve to the error sentinel")

	state.DayDetails[day] = domain.DayDetails{JournalEntry: domain.JournalEntry{Date: day, Note: "hi"}}
	details = state.FocusedDayDetails()
	assert.Equal(t, domain.TrackerErrorNone, details.Error)
	assert.Equal(t, "hi", details.JournalEntry.Note)
}

func TestTrackerState_LatestTrackedDay(t *testing.T) {
	state := domain.NewTrackerState(domain.MustParseDate("2026-10-16"))

	_, ok := state.LatestTrackedDay()
	assert.False(t, ok)

	state.TrackedDays = domain.DatesBetween(domain.MustParseDate("2026-10-10"), domain.MustParseDate("2026-10-17"))
	latest, ok := state.LatestTrackedDay()
	assert.True(t, ok)
	assert.Equal(t, "2026-10-16", latest.String())
	assert.True(t, state.IsTracked(domain.MustParseDate("2026-10-12")))
	assert.False(t, state.IsTracked(domain.MustParseDate("2026-10-17")))
}

func TestTrackerState_CloneIsIndependent(t *testing.T) {
	day := domain.MustParseDate("2026-10-16")
	state := domain.NewTrackerState(day)
	state.Tasks = []domain.Task{{ID: 1, Name: "a"}}
	state.PendingChanges[domain.PendingTask(1)] = struct{}{}
	state.DayDetails[day] = domain.DayDetails{
		JournalTaskIDs: []int64{1},
		TrackedHabits:  []domain.TrackedHabit{{ID: 3, Name: "Run"}},
	}

	clone := state.Clone()
	clone.Tasks[0].Name = "b"
	delete(clone.PendingChanges, domain.PendingTask(1))
	clone.DayDetails[day].TrackedHabits[0].Name = "Walk"
	clone.DayDetails[day].JournalTaskIDs[0] = 99

	assert.Equal(t, "a", state.Tasks[0].Name)
	assert.True(t, state.HasPendingChange(domain.PendingTask(1)))
	assert.Equal(t, "Run", state.DayDetails[day].TrackedHabits[0].Name)
	assert.Equal(t, int64(1), state.DayDetails[day].JournalTaskIDs[0])
}

func TestDayDetails_JournalItemsSkipUnknownIDs(t *testing.T) {
	details := domain.DayDetails{
		JournalTaskIDs:  []int64{2, 7, 1},
		JournalHabitIDs: []int64{5, 4},
		TrackedHabits:   []domain.TrackedHabit{{ID: 4}, {ID: 5}},
	}
	tasks := []domain.Task{{ID: 1}, {ID: 2}}

	journalTasks := details.JournalTasks(tasks)
	assert.Len(t, journalTasks, 2)
	assert.Equal(t, int64(2), journalTasks[0].ID)

	journalHabits := details.JournalHabits()
	assert.Len(t, journalHabits, 2)
	assert.Equal(t, int64(5), journalHabits[0].ID)
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := fmt.Errorf("saving: %w", domain.NewPersistenceError("update task", cause))

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.True(t, domain.IsPersistenceError(err))
	assert.Contains(t, err.Error(), "update task")
	assert.Contains(t, err.Error(), "disk I/O error")

	assert.False(t, domain.IsPersistenceError(cause))
}
