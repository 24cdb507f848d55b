package domain

import (
	"context"
)

// TrackerRepository is the persistence gateway of the tracker. Every method
// either succeeds or fails with a *PersistenceError.
type TrackerRepository interface {
	// Ping checks that the underlying store is reachable.
	Ping(ctx context.Context) error

	// InsertJournalEntry creates an empty entry for date unless one exists.
	InsertJournalEntry(ctx context.Context, date Date) error

	// InsertJournalEntries creates entries for every date in one transaction.
	InsertJournalEntries(ctx context.Context, dates []Date) error

	// UpdateJournalEntry writes note, mood and starred. The habits-calculated
	// flag is owned by InsertHabitStatusesForDate and never written here.
	UpdateJournalEntry(ctx context.Context, entry JournalEntry) error

	// SelectJournalEntry returns nil without error when no entry exists.
	SelectJournalEntry(ctx context.Context, date Date) (*JournalEntry, error)
	SelectJournalEntriesBetween(ctx context.Context, from, to Date) ([]JournalEntry, error)
	SelectFirstJournalEntry(ctx context.Context) (*JournalEntry, error)
	SelectLatestJournalEntry(ctx context.Context) (*JournalEntry, error)

	// SelectJournalDatesWithoutHabitStatuses lists tracked dates whose habit
	// statuses were never calculated, oldest first.
	SelectJournalDatesWithoutHabitStatuses(ctx context.Context) ([]Date, error)

	InsertTask(ctx context.Context, task NewTask) (*Task, error)
	UpdateTask(ctx context.Context, task Task) error
	DeleteTask(ctx context.Context, id int64) error
	SelectAllTasks(ctx context.Context) ([]Task, error)

	InsertHabit(ctx context.Context, name string) (*Habit, error)
	UpdateHabitName(ctx context.Context, id int64, name string) error
	UpdateHabitIsTracked(ctx context.Context, id int64, isTracked bool) error
	UpdateHabitIsBuilding(ctx context.Context, id int64, isBuilding bool) error

	// DeleteHabit removes the habit together with its whole history:
	// performance records and statuses go in the same transaction.
	DeleteHabit(ctx context.Context, id int64) error
	SelectAllHabits(ctx context.Context) ([]Habit, error)

	InsertHabitPerformed(ctx context.Context, habitID int64, date Date) error
	DeleteHabitPerformed(ctx context.Context, habitID int64, date Date) error
	SelectHabitIDsPerformedOnDate(ctx context.Context, date Date) ([]int64, error)

	// CountHabitPerformedDuring counts the distinct dates among dates on
	// which the habit was performed.
	CountHabitPerformedDuring(ctx context.Context, habitID int64, dates []Date) (int, error)

	// SelectMostRecentDatesHabitPerformed returns up to n performance dates
	// on or before asOf, most recent first.
	SelectMostRecentDatesHabitPerformed(ctx context.Context, habitID int64, n int, asOf Date) ([]Date, error)
	SelectHabitPerformancesBetween(ctx context.Context, from, to Date) ([]HabitPerformed, error)

	// InsertHabitStatusesForDate replaces the statuses of date and marks the
	// journal entry of date as calculated, atomically.
	InsertHabitStatusesForDate(ctx context.Context, date Date, statuses []HabitStatus) error

	// InsertOrReplaceHabitStatuses writes all statuses or none.
	InsertOrReplaceHabitStatuses(ctx context.Context, statuses []HabitStatus) error

	// SelectHabitStatus returns nil without error when no status exists.
	SelectHabitStatus(ctx context.Context, habitID int64, date Date) (*HabitStatus, error)

	// SelectHabitStatusesForDate joins each status with the habit's current
	// name and the last date it was performed on or before date.
	SelectHabitStatusesForDate(ctx context.Context, date Date) ([]HabitStatusDetails, error)
	DoesAnyHabitStatusExistForHabit(ctx context.Context, habitID int64) (bool, error)
	DeleteHabitStatus(ctx context.Context, habitID int64, date Date) error
}
