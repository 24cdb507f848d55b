package projection

import (
	"fmt"
	"strings"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

// checkableDays is how many of the most recent tracked days accept checking
// tasks and habits.
const checkableDays = 7

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// Map projects state. today is the calendar day, which may be ahead of the
// latest tracked day before the rollover hour.
func (m *Mapper) Map(state domain.TrackerState, today domain.Date) TrackerUIState {
	latest, hasLatest := state.LatestTrackedDay()
	if !hasLatest {
		latest = state.FocusedDay
	}

	ui := TrackerUIState{
		Header:                 headerText(state.FocusedDay, latest),
		PreviousDayEnabled:     state.IsTracked(state.FocusedDay.PreviousDay()),
		NextDayEnabled:         state.IsTracked(state.FocusedDay.NextDay()) || state.FocusedDay.NextDay() == today,
		InitialFocusedDayIndex: len(state.TrackedDays) - 1,
		FocusedDayIndex:        -1,
		ShowDatePicker:         state.IsSelectingDate,
		IsLoading:              state.IsLoading,
		ErrorMessage:           state.Error.Message(),
		Days:                   make([]DayState, 0, len(state.TrackedDays)+1),
	}

	lastIndex := len(state.TrackedDays) - 1
	for i, date := range state.TrackedDays {
		if date == state.FocusedDay {
			ui.FocusedDayIndex = i
		}
		details, ok := state.DayDetails[date]
		if !ok {
			ui.Days = append(ui.Days, DayState{Date: date, IsLoading: true})
			continue
		}
		ui.Days = append(ui.Days, m.mapDay(state, date, details, i > lastIndex-checkableDays, i == lastIndex))
	}

	if hasLatest && latest.Before(today) {
		if state.FocusedDay == today {
			ui.FocusedDayIndex = len(ui.Days)
		}
		ui.Days = append(ui.Days, DayState{Date: today, IsLoading: true})
	}
	return ui
}

func (m *Mapper) mapDay(state domain.TrackerState, date domain.Date, details domain.DayDetails, checkable, isLatest bool) DayState {
	if details.Error != domain.TrackerErrorNone {
		return DayState{Date: date, ErrorMessage: details.Error.Message()}
	}

	var created []domain.Task
	for _, t := range state.Tasks {
		if !t.DateCreated.After(date) {
			created = append(created, t)
		}
	}

	return DayState{
		Date:       date,
		TasksTab:   tasksTab(state, details, date, created, checkable),
		JournalTab: journalTab(state, details, date, checkable),
		HabitsTab:  habitsTab(state, details, date, checkable, isLatest),
	}
}

func tasksTab(state domain.TrackerState, details domain.DayDetails, date domain.Date, tasks []domain.Task, checkable bool) TasksTab {
	tab := TasksTab{Tasks: []CheckableItem{}, OlderTasks: []CheckableItem{}}
	hasOlder := false

	for _, t := range tasks {
		if t.IsOlderAsOf(date) {
			hasOlder = true
			if details.ViewingOlderTasks {
				item := taskItem(state, t, date, false, false, false)
				tab.OlderTasks = append(tab.OlderTasks, item)
			}
			continue
		}

		item := taskItem(state, t, date, false, checkable, true)
		if !t.IsCompletedAsOf(date) {
			item.EndIcon = &IconButton{
				Icon:    IconDelete,
				Label:   "Delete task",
				Enabled: true,
				Action:  &Action{Type: services.EventDeleteTask, ID: t.ID},
			}
		}
		tab.Tasks = append(tab.Tasks, item)
	}

	if hasOlder {
		tab.ToggleViewOlderTasks = visibilityToggle(details.ViewingOlderTasks, "older tasks", services.EventToggleViewingOlderTasks)
	}
	return tab
}

func journalTab(state domain.TrackerState, details domain.DayDetails, date domain.Date, checkable bool) JournalTab {
	tab := JournalTab{
		Note:          details.JournalEntry.Note,
		IsStarred:     details.JournalEntry.IsStarred,
		SelectedMood:  details.JournalEntry.Mood,
		JournalTasks:  []CheckableItem{},
		JournalHabits: []CheckableItem{},
	}
	for _, mood := range domain.AllMoods() {
		tab.Moods = append(tab.Moods, MoodOption{
			Mood:     mood,
			Label:    mood.String(),
			Selected: details.JournalEntry.Mood != nil && *details.JournalEntry.Mood == mood,
		})
	}

	for _, t := range details.JournalTasks(state.Tasks) {
		item := taskItem(state, t, date, true, checkable, true)
		if !t.IsCompletedOn(date) {
			item.EndIcon = &IconButton{
				Icon:    IconHide,
				Label:   "Hide task",
				Enabled: true,
				Action:  &Action{Type: services.EventHideTaskFromJournal, ID: t.ID},
			}
		}
		tab.JournalTasks = append(tab.JournalTasks, item)
	}

	for _, h := range details.JournalHabits() {
		item := habitItem(state, h, date, true, checkable)
		if !h.WasPerformed {
			item.EndIcon = &IconButton{
				Icon:    IconHide,
				Label:   "Hide habit",
				Enabled: true,
				Action:  &Action{Type: services.EventHideHabitFromJournal, ID: h.ID},
			}
		}
		tab.JournalHabits = append(tab.JournalHabits, item)
	}
	return tab
}

func habitsTab(state domain.TrackerState, details domain.DayDetails, date domain.Date, checkable, isLatest bool) HabitsTab {
	tab := HabitsTab{
		TrackedHabits:      []CheckableItem{},
		UntrackedHabits:    []CheckableItem{},
		ShowAddHabitButton: isLatest,
	}

	for _, h := range details.TrackedHabits {
		item := habitItem(state, h, date, false, checkable)
		switch {
		case h.IsNew:
			item.EndIcon = &IconButton{
				Icon:    IconDelete,
				Label:   "Delete habit",
				Enabled: true,
				Action:  &Action{Type: services.EventDeleteHabit, ID: h.ID},
			}
			item.BackspaceWhenEmpty = &Action{Type: services.EventDeleteHabitAndMoveFocus, ID: h.ID}
		case isLatest:
			item.EndIcon = &IconButton{
				Icon:    IconStopTracking,
				Label:   "Stop tracking habit",
				Enabled: !h.WasPerformed,
				Action:  &Action{Type: services.EventToggleTrackingHabit, ID: h.ID},
			}
		}
		tab.TrackedHabits = append(tab.TrackedHabits, item)
	}

	if len(details.UntrackedHabits) > 0 {
		tab.ToggleViewUntrackedHabits = visibilityToggle(details.ViewingUntrackedHabits, "untracked habits", services.EventToggleViewingUntrackedHabits)
	}
	if details.ViewingUntrackedHabits {
		for _, h := range details.UntrackedHabits {
			item := CheckableItem{
				ID:         h.ID,
				Name:       h.Name,
				UpdateName: &Action{Type: services.EventUpdateHabitName, ID: h.ID},
				LoseFocus:  &Action{Type: services.EventSaveCurrentHabitName, ID: h.ID},
			}
			if isLatest {
				item.EndIcon = &IconButton{
					Icon:    IconResumeTracking,
					Label:   "Resume tracking habit",
					Enabled: true,
					Action:  &Action{Type: services.EventToggleTrackingHabit, ID: h.ID},
				}
			}
			tab.UntrackedHabits = append(tab.UntrackedHabits, item)
		}
	}
	return tab
}

func taskItem(state domain.TrackerState, t domain.Task, date domain.Date, onJournal, checkable, optionsEnabled bool) CheckableItem {
	item := CheckableItem{
		ID:            t.ID,
		Checked:       t.IsCompletedAsOf(date),
		Name:          t.Name,
		InfoText:      taskInfoText(t, date),
		Overdue:       showsOverdue(t, date),
		Active:        true,
		AutoFocus:     state.TaskIDToFocus != nil && *state.TaskIDToFocus == t.ID,
		Metadata:      ItemMetadata{PriorityIcon: priorityIcon(t.Priority), PriorityLabel: priorityLabel(t.Priority)},
		ToggleEditing: &Action{Type: services.EventToggleEditingTask, ID: t.ID},
		UpdateName:    &Action{Type: services.EventUpdateTaskName, ID: t.ID},
		LoseFocus:     &Action{Type: services.EventSaveCurrentTaskName, ID: t.ID},
		AutoFocusDone: &Action{Type: services.EventClearTaskIDToFocus},

		BackspaceWhenEmpty: &Action{Type: services.EventDeleteTaskAndMoveFocus, ID: t.ID},
	}
	if checkable {
		item.ToggleChecked = &Action{Type: services.EventToggleTaskCompleted, ID: t.ID}
	}
	if !onJournal {
		item.Next = &Action{Type: services.EventInsertTaskAfter, ID: t.ID}
	}
	if editing := state.TaskEditing; optionsEnabled && editing != nil && editing.TaskID == t.ID {
		item.Options = &TaskOptions{
			PriorityLabel:        priorityLabel(t.Priority),
			ShowPriorityDropdown: editing.IsEditingPriority,
			Deadline:             t.Deadline,
			DeadlineLabel:        deadlineLabel(t.Deadline),
			ShowDeadlinePicker:   editing.IsEditingDeadline,
			DeadlinePickerTitle:  t.Name,
		}
	}
	return item
}

func habitItem(state domain.TrackerState, h domain.TrackedHabit, date domain.Date, onJournal, checkable bool) CheckableItem {
	item := CheckableItem{
		ID:            h.ID,
		Checked:       h.WasPerformed,
		Name:          h.Name,
		InfoText:      habitInfoText(h.LastPerformed, date),
		Dormancy:      dormancy(h.LastPerformed, date),
		Active:        true,
		AutoFocus:     state.HabitIDToFocus != nil && *state.HabitIDToFocus == h.ID,
		Metadata:      ItemMetadata{TrendIcon: trendIcon(h.Trend), TrendLabel: trendLabel(h.Trend), Frequency: frequencyLabel(h.Frequency)},
		UpdateName:    &Action{Type: services.EventUpdateHabitName, ID: h.ID},
		LoseFocus:     &Action{Type: services.EventSaveCurrentHabitName, ID: h.ID},
		AutoFocusDone: &Action{Type: services.EventClearHabitIDToFocus},
	}
	if checkable {
		item.ToggleChecked = &Action{Type: services.EventToggleHabitPerformed, ID: h.ID}
	}
	if !onJournal {
		item.Next = &Action{Type: services.EventInsertHabitAfter, ID: h.ID}
	}
	return item
}

func visibilityToggle(visible bool, what, eventType string) *IconButton {
	if visible {
		return &IconButton{Icon: IconHide, Label: "Hide " + what, Enabled: true, Action: &Action{Type: eventType}}
	}
	return &IconButton{Icon: IconShow, Label: "Show " + what, Enabled: true, Action: &Action{Type: eventType}}
}

// headerText formats date like "Friday, October 16th". The year is added
// when it differs from the year of the latest tracked day.
func headerText(date, latest domain.Date) string {
	if date.IsZero() {
		return ""
	}
	header := date.Time().Format("Monday, January 2") + ordinalSuffix(date.Day())
	if date.Year() != latest.Year() {
		header += fmt.Sprintf(", %d", date.Year())
	}
	return header
}

func ordinalSuffix(day int) string {
	switch day {
	case 1, 21, 31:
		return "st"
	case 2, 22:
		return "nd"
	case 3, 23:
		return "rd"
	default:
		return "th"
	}
}

func shortDate(d domain.Date) string {
	return fmt.Sprintf("%d/%d/%d", int(d.Month()), d.Day(), d.Year())
}

func showsOverdue(t domain.Task, date domain.Date) bool {
	return (t.IsOverdueAsOf(date) || t.WasOverdueButCompletedOn(date)) && !t.IsOlderAsOf(date)
}

func taskInfoText(t domain.Task, date domain.Date) string {
	if t.IsOlderAsOf(date) {
		if t.DateCompleted == nil {
			return ""
		}
		return shortDate(*t.DateCompleted)
	}
	if t.Deadline == nil {
		return ""
	}

	deadline := *t.Deadline
	switch {
	case deadline == date:
		return "Due today"
	case deadline == date.NextDay():
		return "Due tomorrow"
	case t.IsDueThisWeekAsOf(date):
		return "Due " + deadline.Weekday().String()
	case showsOverdue(t, date) && deadline == date.PreviousDay():
		return "Due yesterday"
	case showsOverdue(t, date):
		return "Due " + plural(deadline.DaysUntil(date), "day") + " ago"
	default:
		return ""
	}
}

func habitInfoText(lastPerformed *domain.Date, date domain.Date) string {
	if lastPerformed == nil || *lastPerformed == date {
		return ""
	}
	last := *lastPerformed
	switch {
	case last == date.PreviousDay():
		return "Yesterday"
	case last.After(date.AddDays(-domain.DaysInWeek)):
		return plural(last.DaysUntil(date), "day") + " ago"
	case last.After(date.AddDays(-domain.AvgDaysInMonth)):
		return plural(last.WeeksUntil(date), "week") + " ago"
	default:
		return plural(last.MonthsUntil(date), "month") + " ago"
	}
}

// dormancy grows from 0, performed today, to 1 once a month has passed.
func dormancy(lastPerformed *domain.Date, date domain.Date) float64 {
	if lastPerformed == nil {
		return 0
	}
	days := lastPerformed.DaysUntil(date)
	if days > domain.AvgDaysInMonth {
		days = domain.AvgDaysInMonth
	}
	if days < 0 {
		days = 0
	}
	return float64(days) / float64(domain.AvgDaysInMonth)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func priorityIcon(p domain.TaskPriority) Icon {
	switch p {
	case domain.TaskPriorityLow:
		return IconPriorityLow
	case domain.TaskPriorityHigh:
		return IconPriorityHigh
	default:
		return ""
	}
}

func priorityLabel(p domain.TaskPriority) string {
	switch p {
	case domain.TaskPriorityLow:
		return "Low priority"
	case domain.TaskPriorityHigh:
		return "High priority"
	default:
		return "Medium priority"
	}
}

func deadlineLabel(deadline *domain.Date) string {
	if deadline == nil {
		return "No deadline"
	}
	return "Deadline: " + shortDate(*deadline)
}

func trendIcon(t domain.HabitTrend) Icon {
	switch t {
	case domain.HabitTrendUp:
		return IconTrendUp
	case domain.HabitTrendDown:
		return IconTrendDown
	case domain.HabitTrendNeutral:
		return IconTrendNeutral
	default:
		return ""
	}
}

func trendLabel(t domain.HabitTrend) string {
	switch t {
	case domain.HabitTrendUp:
		return "Trending up"
	case domain.HabitTrendDown:
		return "Trending down"
	case domain.HabitTrendNeutral:
		return "Holding steady"
	default:
		return ""
	}
}

func frequencyLabel(f domain.HabitFrequency) string {
	if f == domain.HabitFrequencyNone || f == "" {
		return ""
	}
	return strings.ToLower(string(f))
}
