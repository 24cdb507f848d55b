package domain

type TrackerError string

const (
	TrackerErrorNone         TrackerError = ""
	TrackerErrorFailedToSave TrackerError = "failed_to_save"
	TrackerErrorFailedToLoad TrackerError = "failed_to_load"
)

func (e TrackerError) Message() string {
	switch e {
	case TrackerErrorFailedToSave:
		return "Failed to save your changes"
	case TrackerErrorFailedToLoad:
		return "Failed to load your tracker"
	default:
		return ""
	}
}

type PendingChangeKind string

const (
	PendingChangeTask  PendingChangeKind = "task"
	PendingChangeHabit PendingChangeKind = "habit"
)

// PendingChange marks an unsaved name edit. It is cleared only once the name
// for that exact id has been persisted.
type PendingChange struct {
	Kind PendingChangeKind `json:"kind"`
	ID   int64             `json:"id"`
}

func PendingTask(id int64) PendingChange {
	return PendingChange{Kind: PendingChangeTask, ID: id}
}

func PendingHabit(id int64) PendingChange {
	return PendingChange{Kind: PendingChangeHabit, ID: id}
}

type TaskEditingState struct {
	TaskID            int64 `json:"task_id"`
	IsEditingPriority bool  `json:"is_editing_priority"`
	IsEditingDeadline bool  `json:"is_editing_deadline"`
}

// DayDetails is the materialized view of one tracked day. It is rebuilt from
// storage on demand and never persisted as such.
type DayDetails struct {
	JournalEntry           JournalEntry   `json:"journal_entry"`
	JournalTaskIDs         []int64        `json:"journal_task_ids"`
	JournalHabitIDs        []int64        `json:"journal_habit_ids"`
	TrackedHabits          []TrackedHabit `json:"tracked_habits"`
	UntrackedHabits        []Habit        `json:"untracked_habits"`
	ViewingUntrackedHabits bool           `json:"viewing_untracked_habits"`
	ViewingOlderTasks      bool           `json:"viewing_older_tasks"`
	Error                  TrackerError   `json:"error,omitempty"`
}

// ErrorDayDetails stands in for a day whose details could not be read.
func ErrorDayDetails() DayDetails {
	return DayDetails{Error: TrackerErrorFailedToLoad}
}

func (d DayDetails) JournalTasks(all []Task) []Task {
	tasks := make([]Task, 0, len(d.JournalTaskIDs))
	for _, id := range d.JournalTaskIDs {
		if i := IndexOfTask(all, id); i >= 0 {
			tasks = append(tasks, all[i])
		}
	}
	return tasks
}

func (d DayDetails) JournalHabits() []TrackedHabit {
	habits := make([]TrackedHabit, 0, len(d.JournalHabitIDs))
	for _, id := range d.JournalHabitIDs {
		if i := IndexOfTrackedHabit(d.TrackedHabits, id); i >= 0 {
			habits = append(habits, d.TrackedHabits[i])
		}
	}
	return habits
}

func (d DayDetails) Clone() DayDetails {
	clone := d
	clone.JournalEntry = d.JournalEntry.Clone()
	clone.JournalTaskIDs = append([]int64(nil), d.JournalTaskIDs...)
	clone.JournalHabitIDs = append([]int64(nil), d.JournalHabitIDs...)
	clone.UntrackedHabits = append([]Habit(nil), d.UntrackedHabits...)
	if d.TrackedHabits != nil {
		clone.TrackedHabits = make([]TrackedHabit, len(d.TrackedHabits))
		for i, h := range d.TrackedHabits {
			clone.TrackedHabits[i] = h.Clone()
		}
	}
	return clone
}

// TrackerState is the root in-memory aggregate owned by the tracker engine.
// TrackedDays is ascending and contiguous.
type TrackerState struct {
	TrackedDays     []Date                     `json:"tracked_days"`
	FocusedDay      Date                       `json:"focused_day"`
	DayDetails      map[Date]DayDetails        `json:"-"`
	Tasks           []Task                     `json:"tasks"`
	TaskIDToFocus   *int64                     `json:"task_id_to_focus,omitempty"`
	HabitIDToFocus  *int64                     `json:"habit_id_to_focus,omitempty"`
	TaskEditing     *TaskEditingState          `json:"task_editing,omitempty"`
	PendingChanges  map[PendingChange]struct{} `json:"-"`
	IsSelectingDate bool                       `json:"is_selecting_date"`
	IsLoading       bool                       `json:"is_loading"`
	Error           TrackerError               `json:"error,omitempty"`
}

func NewTrackerState(focusedDay Date) TrackerState {
	return TrackerState{
		FocusedDay:     focusedDay,
		DayDetails:     make(map[Date]DayDetails),
		PendingChanges: make(map[PendingChange]struct{}),
		IsLoading:      true,
	}
}

// FocusedDayDetails always resolves: a focused day without resident details
// yields the error sentinel.
func (s TrackerState) FocusedDayDetails() DayDetails {
	return s.DetailsFor(s.FocusedDay)
}

func (s TrackerState) DetailsFor(date Date) DayDetails {
	if details, ok := s.DayDetails[date]; ok {
		return details
	}
	return ErrorDayDetails()
}

// LatestTrackedDay reports false while nothing is tracked yet.
func (s TrackerState) LatestTrackedDay() (Date, bool) {
	if len(s.TrackedDays) == 0 {
		return Date{}, false
	}
	return s.TrackedDays[len(s.TrackedDays)-1], true
}

func (s TrackerState) IsTracked(date Date) bool {
	return ContainsDate(s.TrackedDays, date)
}

func (s TrackerState) HasPendingChange(change PendingChange) bool {
	_, ok := s.PendingChanges[change]
	return ok
}

func (s TrackerState) FindTask(id int64) (Task, bool) {
	if i := IndexOfTask(s.Tasks, id); i >= 0 {
		return s.Tasks[i], true
	}
	return Task{}, false
}

func (s TrackerState) Clone() TrackerState {
	clone := s
	clone.TrackedDays = append([]Date(nil), s.TrackedDays...)
	clone.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		clone.Tasks[i] = t.Clone()
	}
	clone.DayDetails = make(map[Date]DayDetails, len(s.DayDetails))
	for date, details := range s.DayDetails {
		clone.DayDetails[date] = details.Clone()
	}
	clone.PendingChanges = make(map[PendingChange]struct{}, len(s.PendingChanges))
	for change := range s.PendingChanges {
		clone.PendingChanges[change] = struct{}{}
	}
	if s.TaskIDToFocus != nil {
		id := *s.TaskIDToFocus
		clone.TaskIDToFocus = &id
	}
	if s.HabitIDToFocus != nil {
		id := *s.HabitIDToFocus
		clone.HabitIDToFocus = &id
	}
	if s.TaskEditing != nil {
		editing := *s.TaskEditing
		clone.TaskEditing = &editing
	}
	return clone
}
