package services

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// Event is one user or system intent handled by TrackerEngine.Process. The
// set is closed: every implementation lives in this file.
type Event interface {
	EventType() string
}

const (
	EventInitializeTracker    = "initialize_tracker"
	EventChangeFocusedDay     = "change_focused_day"
	EventToggleSelectingDate  = "toggle_selecting_date"
	EventSavePendingChanges   = "save_pending_changes"
	EventRefreshTrackedDays   = "refresh_tracked_days"
	EventUpdateJournalNote    = "update_journal_note"
	EventToggleJournalStarred = "toggle_journal_entry_starred"
	EventSetMood              = "set_mood"
	EventHideTaskFromJournal  = "hide_task_from_journal"
	EventHideHabitFromJournal = "hide_habit_from_journal"

	EventAddTask                   = "add_task"
	EventInsertTaskAfter           = "insert_task_after"
	EventDeleteTask                = "delete_task"
	EventDeleteTaskAndMoveFocus    = "delete_task_and_move_focus"
	EventToggleTaskCompleted       = "toggle_task_completed"
	EventUpdateTaskName            = "update_task_name"
	EventSaveCurrentTaskName       = "save_current_task_name"
	EventClearTaskIDToFocus        = "clear_task_id_to_focus"
	EventUpdateTaskPriority        = "update_task_priority"
	EventUpdateTaskDeadline        = "update_task_deadline"
	EventToggleEditingTask         = "toggle_editing_task"
	EventToggleEditingTaskPriority = "toggle_editing_task_priority"
	EventToggleEditingTaskDeadline = "toggle_editing_task_deadline"
	EventToggleViewingOlderTasks   = "toggle_viewing_older_tasks"

	EventAddTrackedHabit              = "add_tracked_habit"
	EventInsertHabitAfter             = "insert_habit_after"
	EventDeleteHabit                  = "delete_habit"
	EventDeleteHabitAndMoveFocus      = "delete_habit_and_move_focus"
	EventToggleHabitPerformed         = "toggle_habit_performed"
	EventToggleBuildingHabit          = "toggle_building_habit"
	EventToggleTrackingHabit          = "toggle_tracking_habit"
	EventUpdateHabitName              = "update_habit_name"
	EventSaveCurrentHabitName         = "save_current_habit_name"
	EventClearHabitIDToFocus          = "clear_habit_id_to_focus"
	EventToggleViewingUntrackedHabits = "toggle_viewing_untracked_habits"
)

type InitializeTracker struct{}

type ChangeFocusedDay struct {
	Date domain.Date `json:"date" validate:"required"`
}

type ToggleSelectingDate struct{}

type SavePendingChanges struct{}

// RefreshTrackedDays asks the engine to extend the tracked days when the
// perceived day moved past the latest one.
type RefreshTrackedDays struct{}

type UpdateJournalNote struct {
	Note string `json:"note"`
}

type ToggleJournalEntryStarred struct{}

// SetMood clears the mood when Mood is nil.
type SetMood struct {
	Mood *domain.Mood `json:"mood" validate:"omitempty,min=1,max=5"`
}

type HideTaskFromJournal struct {
	ID int64 `json:"id" validate:"required"`
}

type HideHabitFromJournal struct {
	ID int64 `json:"id" validate:"required"`
}

type AddTask struct{}

type InsertTaskAfter struct {
	OtherTaskID int64 `json:"id" validate:"required"`
}

type DeleteTask struct {
	ID int64 `json:"id" validate:"required"`
}

type DeleteTaskAndMoveFocus struct {
	ID int64 `json:"id" validate:"required"`
}

type ToggleTaskCompleted struct {
	ID int64 `json:"id" validate:"required"`
}

type UpdateTaskName struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

type SaveCurrentTaskName struct {
	ID int64 `json:"id" validate:"required"`
}

type ClearTaskIDToFocus struct{}

type UpdateTaskPriority struct {
	ID       int64               `json:"id" validate:"required"`
	Priority domain.TaskPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
}

// UpdateTaskDeadline removes the deadline when Deadline is nil.
type UpdateTaskDeadline struct {
	ID       int64        `json:"id" validate:"required"`
	Deadline *domain.Date `json:"deadline"`
}

type ToggleEditingTask struct {
	ID int64 `json:"id" validate:"required"`
}

type ToggleEditingTaskPriority struct{}

type ToggleEditingTaskDeadline struct{}

type ToggleViewingOlderTasks struct{}

type AddTrackedHabit struct{}

type InsertHabitAfter struct {
	OtherHabitID int64 `json:"id" validate:"required"`
}

type DeleteHabit struct {
	ID int64 `json:"id" validate:"required"`
}

type DeleteHabitAndMoveFocus struct {
	ID int64 `json:"id" validate:"required"`
}

type ToggleHabitPerformed struct {
	ID int64 `json:"id" validate:"required"`
}

type ToggleBuildingHabit struct {
	ID int64 `json:"id" validate:"required"`
}

type ToggleTrackingHabit struct {
	ID int64 `json:"id" validate:"required"`
}

type UpdateHabitName struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

type SaveCurrentHabitName struct {
	ID int64 `json:"id" validate:"required"`
}

type ClearHabitIDToFocus struct{}

type ToggleViewingUntrackedHabits struct{}

func (InitializeTracker) EventType() string            { return EventInitializeTracker }
func (ChangeFocusedDay) EventType() string             { return EventChangeFocusedDay }
func (ToggleSelectingDate) EventType() string          { return EventToggleSelectingDate }
func (SavePendingChanges) EventType() string           { return EventSavePendingChanges }
func (RefreshTrackedDays) EventType() string           { return EventRefreshTrackedDays }
func (UpdateJournalNote) EventType() string            { return EventUpdateJournalNote }
func (ToggleJournalEntryStarred) EventType() string    { return EventToggleJournalStarred }
func (SetMood) EventType() string                      { return EventSetMood }
func (HideTaskFromJournal) EventType() string          { return EventHideTaskFromJournal }
func (HideHabitFromJournal) EventType() string         { return EventHideHabitFromJournal }
func (AddTask) EventType() string                      { return EventAddTask }
func (InsertTaskAfter) EventType() string              { return EventInsertTaskAfter }
func (DeleteTask) EventType() string                   { return EventDeleteTask }
func (DeleteTaskAndMoveFocus) EventType() string       { return EventDeleteTaskAndMoveFocus }
func (ToggleTaskCompleted) EventType() string          { return EventToggleTaskCompleted }
func (UpdateTaskName) EventType() string               { return EventUpdateTaskName }
func (SaveCurrentTaskName) EventType() string          { return EventSaveCurrentTaskName }
func (ClearTaskIDToFocus) EventType() string           { return EventClearTaskIDToFocus }
func (UpdateTaskPriority) EventType() string           { return EventUpdateTaskPriority }
func (UpdateTaskDeadline) EventType() string           { return EventUpdateTaskDeadline }
func (ToggleEditingTask) EventType() string            { return EventToggleEditingTask }
func (ToggleEditingTaskPriority) EventType() string    { return EventToggleEditingTaskPriority }
func (ToggleEditingTaskDeadline) EventType() string    { return EventToggleEditingTaskDeadline }
func (ToggleViewingOlderTasks) EventType() string      { return EventToggleViewingOlderTasks }
func (AddTrackedHabit) EventType() string              { return EventAddTrackedHabit }
func (InsertHabitAfter) EventType() string             { return EventInsertHabitAfter }
func (DeleteHabit) EventType() string                  { return EventDeleteHabit }
func (DeleteHabitAndMoveFocus) EventType() string      { return EventDeleteHabitAndMoveFocus }
func (ToggleHabitPerformed) EventType() string         { return EventToggleHabitPerformed }
func (ToggleBuildingHabit) EventType() string          { return EventToggleBuildingHabit }
func (ToggleTrackingHabit) EventType() string          { return EventToggleTrackingHabit }
func (UpdateHabitName) EventType() string              { return EventUpdateHabitName }
func (SaveCurrentHabitName) EventType() string         { return EventSaveCurrentHabitName }
func (ClearHabitIDToFocus) EventType() string          { return EventClearHabitIDToFocus }
func (ToggleViewingUntrackedHabits) EventType() string { return EventToggleViewingUntrackedHabits }

var eventValidator = newEventValidator()

func newEventValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(domain.Date); ok {
			return d.String()
		}
		return nil
	}, domain.Date{})
	return v
}

type eventDecoder func(data []byte) (Event, error)

func decodeAs[E Event]() eventDecoder {
	return func(data []byte) (Event, error) {
		var event E
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
		}
		if err := ValidateEvent(event); err != nil {
			return nil, err
		}
		return event, nil
	}
}

var eventDecoders = map[string]eventDecoder{
	EventInitializeTracker:            decodeAs[InitializeTracker](),
	EventChangeFocusedDay:             decodeAs[ChangeFocusedDay](),
	EventToggleSelectingDate:          decodeAs[ToggleSelectingDate](),
	EventSavePendingChanges:           decodeAs[SavePendingChanges](),
	EventRefreshTrackedDays:           decodeAs[RefreshTrackedDays](),
	EventUpdateJournalNote:            decodeAs[UpdateJournalNote](),
	EventToggleJournalStarred:         decodeAs[ToggleJournalEntryStarred](),
	EventSetMood:                      decodeAs[SetMood](),
	EventHideTaskFromJournal:          decodeAs[HideTaskFromJournal](),
	EventHideHabitFromJournal:         decodeAs[HideHabitFromJournal](),
	EventAddTask:                      decodeAs[AddTask](),
	EventInsertTaskAfter:              decodeAs[InsertTaskAfter](),
	EventDeleteTask:                   decodeAs[DeleteTask](),
	EventDeleteTaskAndMoveFocus:       decodeAs[DeleteTaskAndMoveFocus](),
	EventToggleTaskCompleted:          decodeAs[ToggleTaskCompleted](),
	EventUpdateTaskName:               decodeAs[UpdateTaskName](),
	EventSaveCurrentTaskName:          decodeAs[SaveCurrentTaskName](),
	EventClearTaskIDToFocus:           decodeAs[ClearTaskIDToFocus](),
	EventUpdateTaskPriority:           decodeAs[UpdateTaskPriority](),
	EventUpdateTaskDeadline:           decodeAs[UpdateTaskDeadline](),
	EventToggleEditingTask:            decodeAs[ToggleEditingTask](),
	EventToggleEditingTaskPriority:    decodeAs[ToggleEditingTaskPriority](),
	EventToggleEditingTaskDeadline:    decodeAs[ToggleEditingTaskDeadline](),
	EventToggleViewingOlderTasks:      decodeAs[ToggleViewingOlderTasks](),
	EventAddTrackedHabit:              decodeAs[AddTrackedHabit](),
	EventInsertHabitAfter:             decodeAs[InsertHabitAfter](),
	EventDeleteHabit:                  decodeAs[DeleteHabit](),
	EventDeleteHabitAndMoveFocus:      decodeAs[DeleteHabitAndMoveFocus](),
	EventToggleHabitPerformed:         decodeAs[ToggleHabitPerformed](),
	EventToggleBuildingHabit:          decodeAs[ToggleBuildingHabit](),
	EventToggleTrackingHabit:          decodeAs[ToggleTrackingHabit](),
	EventUpdateHabitName:              decodeAs[UpdateHabitName](),
	EventSaveCurrentHabitName:         decodeAs[SaveCurrentHabitName](),
	EventClearHabitIDToFocus:          decodeAs[ClearHabitIDToFocus](),
	EventToggleViewingUntrackedHabits: decodeAs[ToggleViewingUntrackedHabits](),
}

// DecodeEvent reads a JSON event of the form {"type": "...", ...fields}.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	decode, ok := eventDecoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, envelope.Type)
	}
	return decode(data)
}

func ValidateEvent(event Event) error {
	if err := eventValidator.Struct(event); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidEvent, event.EventType(), err)
	}
	return nil
}

// EncodeEvent is the inverse of DecodeEvent.
func EncodeEvent(event Event) ([]byte, error) {
	fields, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(fields, &body); err != nil {
		return nil, err
	}
	body["type"] = event.EventType()
	return json.Marshal(body)
}
