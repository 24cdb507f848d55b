// Package projection turns the tracker state into the snapshot a UI renders.
// Everything here is plain data: interactions are described as Actions that
// the UI posts back as tracker events.
package projection

import (
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// Action is a tracker event the UI can send as is. Events that carry user
// input, like a new name, expect the UI to add that field.
type Action struct {
	Type string `json:"type"`
	ID   int64  `json:"id,omitempty"`
}

type Icon string

const (
	IconDelete         Icon = "close"
	IconHide           Icon = "visibility_off"
	IconShow           Icon = "visibility"
	IconStopTracking   Icon = "remove_circle_outline"
	IconResumeTracking Icon = "add_circle_outline"
	IconPriorityLow    Icon = "keyboard_double_arrow_down"
	IconPriorityHigh   Icon = "keyboard_double_arrow_up"
	IconTrendUp        Icon = "trending_up"
	IconTrendDown      Icon = "trending_down"
	IconTrendNeutral   Icon = "trending_flat"
)

type IconButton struct {
	Icon    Icon    `json:"icon"`
	Label   string  `json:"label,omitempty"`
	Enabled bool    `json:"enabled"`
	Action  *Action `json:"action,omitempty"`
}

type TrackerUIState struct {
	Header                 string     `json:"header"`
	Days                   []DayState `json:"days"`
	FocusedDayIndex        int        `json:"focused_day_index"`
	InitialFocusedDayIndex int        `json:"initial_focused_day_index"`
	PreviousDayEnabled     bool       `json:"previous_day_enabled"`
	NextDayEnabled         bool       `json:"next_day_enabled"`
	ShowDatePicker         bool       `json:"show_date_picker"`
	IsLoading              bool       `json:"is_loading"`
	ErrorMessage           string     `json:"error_message,omitempty"`
}

type DayState struct {
	Date         domain.Date `json:"date"`
	TasksTab     TasksTab    `json:"tasks_tab"`
	JournalTab   JournalTab  `json:"journal_tab"`
	HabitsTab    HabitsTab   `json:"habits_tab"`
	IsLoading    bool        `json:"is_loading"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

type TasksTab struct {
	Tasks                []CheckableItem `json:"tasks"`
	ToggleViewOlderTasks *IconButton     `json:"toggle_view_older_tasks,omitempty"`
	OlderTasks           []CheckableItem `json:"older_tasks"`
}

type JournalTab struct {
	Note          string          `json:"note"`
	IsStarred     bool            `json:"is_starred"`
	SelectedMood  *domain.Mood    `json:"selected_mood,omitempty"`
	Moods         []MoodOption    `json:"moods"`
	JournalTasks  []CheckableItem `json:"journal_tasks"`
	JournalHabits []CheckableItem `json:"journal_habits"`
}

type MoodOption struct {
	Mood     domain.Mood `json:"mood"`
	Label    string      `json:"label"`
	Selected bool        `json:"selected"`
}

type HabitsTab struct {
	TrackedHabits             []CheckableItem `json:"tracked_habits"`
	ShowAddHabitButton        bool            `json:"show_add_habit_button"`
	ToggleViewUntrackedHabits *IconButton     `json:"toggle_view_untracked_habits,omitempty"`
	UntrackedHabits           []CheckableItem `json:"untracked_habits"`
}

// CheckableItem is one task or habit row. A nil ToggleChecked means the
// checkbox is disabled.
type CheckableItem struct {
	ID        int64        `json:"id"`
	Checked   bool         `json:"checked"`
	Name      string       `json:"name"`
	InfoText  string       `json:"info_text,omitempty"`
	Overdue   bool         `json:"overdue,omitempty"`
	Dormancy  float64      `json:"dormancy,omitempty"`
	Active    bool         `json:"active"`
	AutoFocus bool         `json:"auto_focus"`
	Metadata  ItemMetadata `json:"metadata"`
	EndIcon   *IconButton  `json:"end_icon,omitempty"`
	Options   *TaskOptions `json:"options,omitempty"`

	ToggleChecked      *Action `json:"toggle_checked,omitempty"`
	ToggleEditing      *Action `json:"toggle_editing,omitempty"`
	UpdateName         *Action `json:"update_name,omitempty"`
	LoseFocus          *Action `json:"lose_focus,omitempty"`
	AutoFocusDone      *Action `json:"auto_focus_done,omitempty"`
	Next               *Action `json:"next,omitempty"`
	BackspaceWhenEmpty *Action `json:"backspace_when_empty,omitempty"`
}

type ItemMetadata struct {
	PriorityIcon  Icon   `json:"priority_icon,omitempty"`
	PriorityLabel string `json:"priority_label,omitempty"`
	TrendIcon     Icon   `json:"trend_icon,omitempty"`
	TrendLabel    string `json:"trend_label,omitempty"`
	Frequency     string `json:"frequency,omitempty"`
}

// TaskOptions is the editing panel of the task being edited.
type TaskOptions struct {
	PriorityLabel        string       `json:"priority_label"`
	ShowPriorityDropdown bool         `json:"show_priority_dropdown"`
	Deadline             *domain.Date `json:"deadline,omitempty"`
	DeadlineLabel        string       `json:"deadline_label"`
	ShowDeadlinePicker   bool         `json:"show_deadline_picker"`
	DeadlinePickerTitle  string       `json:"deadline_picker_title"`
}
