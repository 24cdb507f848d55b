package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskPriority falls back to Medium for anything it does not recognise.
func ParseTaskPriority(s string) TaskPriority {
	switch TaskPriority(strings.ToUpper(strings.TrimSpace(s))) {
	case TaskPriorityLow:
		return TaskPriorityLow
	case TaskPriorityHigh:
		return TaskPriorityHigh
	default:
		return TaskPriorityMedium
	}
}

func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 0
	case TaskPriorityHigh:
		return 2
	default:
		return 1
	}
}

func (p TaskPriority) Value() (driver.Value, error) {
	return string(ParseTaskPriority(string(p))), nil
}

func (p *TaskPriority) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*p = ParseTaskPriority(v)
	case []byte:
		*p = ParseTaskPriority(string(v))
	case nil:
		*p = TaskPriorityMedium
	default:
		return fmt.Errorf("cannot scan %T into TaskPriority", src)
	}
	return nil
}

type Task struct {
	ID            int64        `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	DateCreated   Date         `json:"date_created" db:"date_created"`
	DateCompleted *Date        `json:"date_completed,omitempty" db:"date_completed"`
	Deadline      *Date        `json:"deadline,omitempty" db:"deadline"`
	Priority      TaskPriority `json:"priority" db:"priority"`
}

type NewTask struct {
	Name        string
	DateCreated Date
	Priority    TaskPriority
	Deadline    *Date
}

// IsCompletedAsOf reports whether the task had been completed on or before
// date, which makes completion evaluable for past days.
func (t Task) IsCompletedAsOf(date Date) bool {
	return t.DateCompleted != nil && !t.DateCompleted.After(date)
}

// IsOlderAsOf reports whether the task was already done before date began.
func (t Task) IsOlderAsOf(date Date) bool {
	return t.IsCompletedAsOf(date.PreviousDay())
}

func (t Task) IsDueThisWeekAsOf(date Date) bool {
	return t.Deadline != nil && !t.Deadline.Before(date) && t.Deadline.Before(date.AddDays(DaysInWeek))
}

func (t Task) IsOverdueAsOf(date Date) bool {
	return t.Deadline != nil && t.Deadline.Before(date) && !t.IsCompletedAsOf(date)
}

func (t Task) WasOverdueButCompletedOn(date Date) bool {
	return t.Deadline != nil && t.Deadline.Before(date) && t.DateCompleted != nil && *t.DateCompleted == date
}

func (t Task) IsCompletedOn(date Date) bool {
	return t.DateCompleted != nil && *t.DateCompleted == date
}

func (t Task) HasDeadline(date Date) bool {
	return t.Deadline != nil && *t.Deadline == date
}

func (t Task) Clone() Task {
	clone := t
	if t.DateCompleted != nil {
		completed := *t.DateCompleted
		clone.DateCompleted = &completed
	}
	if t.Deadline != nil {
		deadline := *t.Deadline
		clone.Deadline = &deadline
	}
	return clone
}

// TaskUrgencyLess orders tasks by urgency as of date: uncompleted first, then
// most recently completed; then deadlines inside the coming week, soonest
// first; then higher priority; then any deadline, soonest first. Missing
// deadlines sort last in both deadline comparisons.
func TaskUrgencyLess(date Date) func(a, b Task) bool {
	weekLimit := date.AddDays(DaysInWeek)
	deadlineWithinWeek := func(t Task) *Date {
		if t.Deadline == nil || !t.Deadline.Before(weekLimit) {
			return nil
		}
		return t.Deadline
	}

	return func(a, b Task) bool {
		if c := compareDatesDescNilsFirst(a.DateCompleted, b.DateCompleted); c != 0 {
			return c < 0
		}
		if c := compareDatesAscNilsLast(deadlineWithinWeek(a), deadlineWithinWeek(b)); c != 0 {
			return c < 0
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return compareDatesAscNilsLast(a.Deadline, b.Deadline) < 0
	}
}

func SortTasksByUrgency(tasks []Task, date Date) {
	less := TaskUrgencyLess(date)
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

func compareDatesAscNilsLast(a, b *Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func compareDatesDescNilsFirst(a, b *Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return b.Compare(*a)
	}
}

func IndexOfTask(tasks []Task, id int64) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
