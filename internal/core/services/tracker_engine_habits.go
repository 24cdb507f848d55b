package services

import (
	"context"
	"log"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/derivation"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func (e *TrackerEngine) addTrackedHabit(ctx context.Context, position int) {
	e.jobs.enqueue(ctx, "add habit", func(ctx context.Context) {
		habit, err := e.repo.InsertHabit(ctx, "")
		if err != nil {
			e.failSave("add habit", err)
			return
		}

		e.update(func(s *domain.TrackerState) {
			id := habit.ID
			s.HabitIDToFocus = &id
			if details, ok := s.DayDetails[s.FocusedDay]; ok {
				details.TrackedHabits = insertAt(details.TrackedHabits, position, domain.NewTrackedHabit(*habit))
				s.DayDetails[s.FocusedDay] = details
			}
		})
	})
}

// deleteHabit drops the habit with its whole history, so it disappears from
// every loaded day.
func (e *TrackerEngine) deleteHabit(ctx context.Context, id int64) {
	e.update(func(s *domain.TrackerState) {
		for date, details := range s.DayDetails {
			details.TrackedHabits = removeTrackedHabit(details.TrackedHabits, id)
			details.UntrackedHabits = removeHabit(details.UntrackedHabits, id)
			details.JournalHabitIDs = removeID(details.JournalHabitIDs, id)
			s.DayDetails[date] = details
		}
		delete(s.PendingChanges, domain.PendingHabit(id))
	})
	e.jobs.enqueue(ctx, "delete habit", func(ctx context.Context) {
		if err := e.repo.DeleteHabit(ctx, id); err != nil {
			e.failSave("delete habit", err)
		}
	})
}

func (e *TrackerEngine) deleteHabitAndMoveFocus(ctx context.Context, id int64) {
	before := e.State().FocusedDayDetails()
	trackedIndex := domain.IndexOfTrackedHabit(before.TrackedHabits, id)
	untrackedIndex := domain.IndexOfHabit(before.UntrackedHabits, id)

	e.deleteHabit(ctx, id)
	e.update(func(s *domain.TrackerState) {
		s.HabitIDToFocus = nil
		details := s.FocusedDayDetails()
		switch {
		case trackedIndex >= 0:
			if previous := trackedIndex - 1; previous >= 0 && previous < len(details.TrackedHabits) {
				focus := details.TrackedHabits[previous].ID
				s.HabitIDToFocus = &focus
			}
		case untrackedIndex >= 0:
			if previous := untrackedIndex - 1; previous >= 0 && previous < len(details.UntrackedHabits) {
				focus := details.UntrackedHabits[previous].ID
				s.HabitIDToFocus = &focus
			}
		}
	})
}

// toggleHabitPerformed flips the performance of the focused day and then
// recomputes the finalized statuses of every later day. When that cascade
// fails the performance write is undone, so records and statuses agree, and
// the day is reloaded from storage.
func (e *TrackerEngine) toggleHabitPerformed(ctx context.Context, id int64) {
	var day domain.Date
	var nowPerformed, found bool
	e.update(func(s *domain.TrackerState) {
		details, ok := s.DayDetails[s.FocusedDay]
		if !ok {
			return
		}
		i := domain.IndexOfTrackedHabit(details.TrackedHabits, id)
		if i < 0 {
			return
		}
		found = true
		day = s.FocusedDay

		habit := &details.TrackedHabits[i]
		nowPerformed = !habit.WasPerformed
		habit.WasPerformed = nowPerformed
		if nowPerformed {
			performedOn := day
			habit.LastPerformed = &performedOn
		}
		details.JournalHabitIDs = appendIDOnce(details.JournalHabitIDs, id)
		s.DayDetails[day] = details
	})
	if !found {
		return
	}

	e.jobs.enqueue(ctx, "toggle habit performed", func(ctx context.Context) {
		if err := e.setHabitPerformed(ctx, id, day, nowPerformed); err != nil {
			e.failSave("record habit performance", err)
			return
		}

		if err := e.recomputeHabitStatuses(ctx, id, day); err != nil {
			if undoErr := e.setHabitPerformed(ctx, id, day, !nowPerformed); undoErr != nil {
				log.Printf("[ENGINE] Failed to undo performance of habit %d on %s: %v", id, day, undoErr)
			}
			e.failSave("update habit statuses", err)
			e.loadDay(ctx, day)
			return
		}

		e.refreshHabitDerivations(ctx, id, day)
	})
}

func (e *TrackerEngine) setHabitPerformed(ctx context.Context, id int64, day domain.Date, performed bool) error {
	if performed {
		return e.repo.InsertHabitPerformed(ctx, id, day)
	}
	return e.repo.DeleteHabitPerformed(ctx, id, day)
}

// recomputeHabitStatuses rewrites the finalized statuses of the habit from
// day up to, not including, the latest tracked day. Days on which the habit
// had no status stay without one. All rows are written in one transaction.
func (e *TrackerEngine) recomputeHabitStatuses(ctx context.Context, id int64, day domain.Date) error {
	latest, ok := e.State().LatestTrackedDay()
	if !ok {
		return nil
	}

	var statuses []domain.HabitStatus
	for _, date := range domain.DatesBetween(day, latest) {
		existing, err := e.repo.SelectHabitStatus(ctx, id, date)
		if err != nil {
			return err
		}
		if existing == nil {
			continue
		}
		status, err := derivation.Status(ctx, e.repo, id, date, existing.WasBuilding)
		if err != nil {
			return err
		}
		statuses = append(statuses, status)
	}
	if len(statuses) == 0 {
		return nil
	}
	return e.repo.InsertOrReplaceHabitStatuses(ctx, statuses)
}

type habitDerivations struct {
	date          domain.Date
	frequency     domain.HabitFrequency
	trend         domain.HabitTrend
	lastPerformed *domain.Date
}

// refreshHabitDerivations reloads frequency, trend and last performance of
// the habit on every loaded day from since onwards.
func (e *TrackerEngine) refreshHabitDerivations(ctx context.Context, id int64, since domain.Date) {
	snapshot := e.State()
	latest, _ := snapshot.LatestTrackedDay()

	var refreshed []habitDerivations
	for date, details := range snapshot.DayDetails {
		if date.Before(since) || domain.IndexOfTrackedHabit(details.TrackedHabits, id) < 0 {
			continue
		}
		d, err := e.readHabitDerivations(ctx, id, date, date == latest)
		if err != nil {
			log.Printf("[ENGINE] Failed to refresh habit %d on %s: %v", id, date, err)
			continue
		}
		refreshed = append(refreshed, d)
	}

	e.update(func(s *domain.TrackerState) {
		for _, d := range refreshed {
			details, ok := s.DayDetails[d.date]
			if !ok {
				continue
			}
			i := domain.IndexOfTrackedHabit(details.TrackedHabits, id)
			if i < 0 {
				continue
			}
			details.TrackedHabits[i].Frequency = d.frequency
			details.TrackedHabits[i].Trend = d.trend
			details.TrackedHabits[i].LastPerformed = d.lastPerformed
			s.DayDetails[d.date] = details
		}
	})
}

func (e *TrackerEngine) readHabitDerivations(ctx context.Context, id int64, date domain.Date, live bool) (habitDerivations, error) {
	d := habitDerivations{date: date}

	if live {
		status, err := derivation.Status(ctx, e.repo, id, date, false)
		if err != nil {
			return d, err
		}
		d.frequency, d.trend = status.Frequency, status.Trend
	} else {
		status, err := e.repo.SelectHabitStatus(ctx, id, date)
		if err != nil {
			return d, err
		}
		if status != nil {
			d.frequency, d.trend = status.Frequency, status.Trend
		}
	}

	last, err := derivation.LastPerformed(ctx, e.repo, id, date)
	if err != nil {
		return d, err
	}
	d.lastPerformed = last
	return d, nil
}

// toggleBuildingHabit only applies to the latest tracked day, whose value
// becomes the habit's current building flag.
func (e *TrackerEngine) toggleBuildingHabit(ctx context.Context, id int64) {
	var building, found bool
	e.update(func(s *domain.TrackerState) {
		latest, ok := s.LatestTrackedDay()
		if !ok || s.FocusedDay != latest {
			return
		}
		details, ok := s.DayDetails[latest]
		if !ok {
			return
		}
		i := domain.IndexOfTrackedHabit(details.TrackedHabits, id)
		if i < 0 {
			return
		}
		found = true
		building = !details.TrackedHabits[i].WasBuilding
		details.TrackedHabits[i].WasBuilding = building
		s.DayDetails[latest] = details
	})
	if !found {
		return
	}
	e.jobs.enqueue(ctx, "toggle building habit", func(ctx context.Context) {
		if err := e.repo.UpdateHabitIsBuilding(ctx, id, building); err != nil {
			e.failSave("update habit building", err)
		}
	})
}

func (e *TrackerEngine) toggleTrackingHabit(ctx context.Context, id int64) {
	var day domain.Date
	var nowTracked, changed bool
	e.update(func(s *domain.TrackerState) {
		details, ok := s.DayDetails[s.FocusedDay]
		if !ok {
			return
		}
		day = s.FocusedDay

		if j := domain.IndexOfHabit(details.UntrackedHabits, id); j >= 0 {
			habit := details.UntrackedHabits[j]
			habit.CurrentlyTracking = true
			habit.CurrentlyBuilding = false
			resumed := domain.NewTrackedHabit(habit)
			resumed.IsNew = false

			details.TrackedHabits = append(details.TrackedHabits, resumed)
			details.UntrackedHabits = removeHabit(details.UntrackedHabits, id)
			nowTracked, changed = true, true
		} else if i := domain.IndexOfTrackedHabit(details.TrackedHabits, id); i >= 0 {
			stopped := domain.Habit{ID: id, Name: details.TrackedHabits[i].Name}

			details.UntrackedHabits = append(details.UntrackedHabits, stopped)
			details.TrackedHabits = removeTrackedHabit(details.TrackedHabits, id)
			changed = true
		}
		s.DayDetails[day] = details
	})
	if !changed {
		return
	}

	e.jobs.enqueue(ctx, "toggle tracking habit", func(ctx context.Context) {
		if err := e.repo.UpdateHabitIsTracked(ctx, id, nowTracked); err != nil {
			e.failSave("update habit tracking", err)
			return
		}
		if nowTracked {
			e.refreshHabitDerivations(ctx, id, day)
		}
	})
}

// updateHabitName renames the habit on every loaded day. The name is saved
// later, with the other pending changes.
func (e *TrackerEngine) updateHabitName(id int64, name string) {
	e.update(func(s *domain.TrackerState) {
		renamed := false
		for date, details := range s.DayDetails {
			if i := domain.IndexOfTrackedHabit(details.TrackedHabits, id); i >= 0 {
				details.TrackedHabits[i].Name = name
				renamed = true
			}
			if i := domain.IndexOfHabit(details.UntrackedHabits, id); i >= 0 {
				details.UntrackedHabits[i].Name = name
				renamed = true
			}
			s.DayDetails[date] = details
		}
		if renamed {
			s.PendingChanges[domain.PendingHabit(id)] = struct{}{}
		}
	})
}

// saveHabitName persists the name the habit has in from, the details of the
// day the edit was made on.
func (e *TrackerEngine) saveHabitName(ctx context.Context, id int64, from domain.DayDetails) {
	name, ok := "", false
	if i := domain.IndexOfTrackedHabit(from.TrackedHabits, id); i >= 0 {
		name, ok = from.TrackedHabits[i].Name, true
	} else if i := domain.IndexOfHabit(from.UntrackedHabits, id); i >= 0 {
		name, ok = from.UntrackedHabits[i].Name, true
	}

	if !ok {
		return
	}
	if err := e.repo.UpdateHabitName(ctx, id, name); err != nil {
		e.failSave("save habit name", err)
		return
	}
	e.update(func(s *domain.TrackerState) {
		delete(s.PendingChanges, domain.PendingHabit(id))
	})
}

func removeTrackedHabit(habits []domain.TrackedHabit, id int64) []domain.TrackedHabit {
	kept := make([]domain.TrackedHabit, 0, len(habits))
	for _, h := range habits {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	return kept
}

func removeHabit(habits []domain.Habit, id int64) []domain.Habit {
	kept := make([]domain.Habit, 0, len(habits))
	for _, h := range habits {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	return kept
}
