package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

var errInjected = errors.New("injected failure")

type habitDateKey struct {
	habitID int64
	date    domain.Date
}

// InMemoryTrackerRepository keeps the whole tracker in maps. It backs the
// ephemeral mode of the server and the engine tests, which can make single
// operations fail with FailOn and inspect the order of calls with Calls.
type InMemoryTrackerRepository struct {
	journal   map[domain.Date]domain.JournalEntry
	tasks     map[int64]domain.Task
	habits    map[int64]domain.Habit
	performed map[habitDateKey]bool
	statuses  map[habitDateKey]domain.HabitStatus

	nextTaskID  int64
	nextHabitID int64

	failures map[string]int
	calls    []string

	mu sync.RWMutex
}

func NewInMemoryTrackerRepository() *InMemoryTrackerRepository {
	return &InMemoryTrackerRepository{
		journal:   make(map[domain.Date]domain.JournalEntry),
		tasks:     make(map[int64]domain.Task),
		habits:    make(map[int64]domain.Habit),
		performed: make(map[habitDateKey]bool),
		statuses:  make(map[habitDateKey]domain.HabitStatus),
		failures:  make(map[string]int),
	}
}

// FailOn makes the next times calls of op fail. A negative times fails
// forever.
func (r *InMemoryTrackerRepository) FailOn(op string, times int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = times
}

func (r *InMemoryTrackerRepository) ClearFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = make(map[string]int)
}

func (r *InMemoryTrackerRepository) Calls() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.calls...)
}

// begin records the call and reports the injected failure, if any. The
// caller must hold the write lock.
func (r *InMemoryTrackerRepository) begin(op string) error {
	r.calls = append(r.calls, op)
	n, ok := r.failures[op]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		r.failures[op] = n - 1
	}
	return domain.NewPersistenceError(op, errInjected)
}

func (r *InMemoryTrackerRepository) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begin("Ping")
}

func (r *InMemoryTrackerRepository) InsertJournalEntry(ctx context.Context, date domain.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertJournalEntry"); err != nil {
		return err
	}
	r.insertJournalEntry(date)
	return nil
}

func (r *InMemoryTrackerRepository) insertJournalEntry(date domain.Date) {
	if _, ok := r.journal[date]; !ok {
		r.journal[date] = domain.JournalEntry{Date: date}
	}
}

func (r *InMemoryTrackerRepository) InsertJournalEntries(ctx context.Context, dates []domain.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertJournalEntries"); err != nil {
		return err
	}
	for _, d := range dates {
		r.insertJournalEntry(d)
	}
	return nil
}

func (r *InMemoryTrackerRepository) UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("UpdateJournalEntry"); err != nil {
		return err
	}
	stored, ok := r.journal[entry.Date]
	if !ok {
		return nil
	}
	stored.Note = entry.Note
	stored.IsStarred = entry.IsStarred
	stored.Mood = entry.Clone().Mood
	r.journal[entry.Date] = stored
	return nil
}

func (r *InMemoryTrackerRepository) SelectJournalEntry(ctx context.Context, date domain.Date) (*domain.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectJournalEntry"); err != nil {
		return nil, err
	}
	entry, ok := r.journal[date]
	if !ok {
		return nil, nil
	}
	entry = entry.Clone()
	return &entry, nil
}

func (r *InMemoryTrackerRepository) SelectJournalEntriesBetween(ctx context.Context, from, to domain.Date) ([]domain.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectJournalEntriesBetween"); err != nil {
		return nil, err
	}
	entries := []domain.JournalEntry{}
	for _, d := range r.sortedJournalDates() {
		if !d.Before(from) && !d.After(to) {
			entries = append(entries, r.journal[d].Clone())
		}
	}
	return entries, nil
}

func (r *InMemoryTrackerRepository) sortedJournalDates() []domain.Date {
	dates := make([]domain.Date, 0, len(r.journal))
	for d := range r.journal {
		dates = append(dates, d)
	}
	domain.SortDates(dates)
	return dates
}

func (r *InMemoryTrackerRepository) SelectFirstJournalEntry(ctx context.Context) (*domain.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectFirstJournalEntry"); err != nil {
		return nil, err
	}
	dates := r.sortedJournalDates()
	if len(dates) == 0 {
		return nil, nil
	}
	entry := r.journal[dates[0]].Clone()
	return &entry, nil
}

func (r *InMemoryTrackerRepository) SelectLatestJournalEntry(ctx context.Context) (*domain.JournalEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectLatestJournalEntry"); err != nil {
		return nil, err
	}
	dates := r.sortedJournalDates()
	if len(dates) == 0 {
		return nil, nil
	}
	entry := r.journal[dates[len(dates)-1]].Clone()
	return &entry, nil
}

func (r *InMemoryTrackerRepository) SelectJournalDatesWithoutHabitStatuses(ctx context.Context) ([]domain.Date, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectJournalDatesWithoutHabitStatuses"); err != nil {
		return nil, err
	}
	dates := []domain.Date{}
	for _, d := range r.sortedJournalDates() {
		if !r.journal[d].HabitsCalculated {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func (r *InMemoryTrackerRepository) InsertTask(ctx context.Context, task domain.NewTask) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertTask"); err != nil {
		return nil, err
	}
	r.nextTaskID++
	priority := task.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	stored := domain.Task{
		ID:          r.nextTaskID,
		Name:        task.Name,
		DateCreated: task.DateCreated,
		Deadline:    task.Deadline,
		Priority:    priority,
	}
	r.tasks[stored.ID] = stored.Clone()
	return &stored, nil
}

func (r *InMemoryTrackerRepository) UpdateTask(ctx context.Context, task domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("UpdateTask"); err != nil {
		return err
	}
	if _, ok := r.tasks[task.ID]; ok {
		r.tasks[task.ID] = task.Clone()
	}
	return nil
}

func (r *InMemoryTrackerRepository) DeleteTask(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("DeleteTask"); err != nil {
		return err
	}
	delete(r.tasks, id)
	return nil
}

func (r *InMemoryTrackerRepository) SelectAllTasks(ctx context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectAllTasks"); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (r *InMemoryTrackerRepository) InsertHabit(ctx context.Context, name string) (*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertHabit"); err != nil {
		return nil, err
	}
	r.nextHabitID++
	habit := domain.Habit{ID: r.nextHabitID, Name: name, CurrentlyTracking: true}
	r.habits[habit.ID] = habit
	return &habit, nil
}

func (r *InMemoryTrackerRepository) updateHabit(op string, id int64, apply func(*domain.Habit)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(op); err != nil {
		return err
	}
	habit, ok := r.habits[id]
	if !ok {
		return nil
	}
	apply(&habit)
	r.habits[id] = habit
	return nil
}

func (r *InMemoryTrackerRepository) UpdateHabitName(ctx context.Context, id int64, name string) error {
	return r.updateHabit("UpdateHabitName", id, func(h *domain.Habit) { h.Name = name })
}

func (r *InMemoryTrackerRepository) UpdateHabitIsTracked(ctx context.Context, id int64, isTracked bool) error {
	return r.updateHabit("UpdateHabitIsTracked", id, func(h *domain.Habit) { h.CurrentlyTracking = isTracked })
}

func (r *InMemoryTrackerRepository) UpdateHabitIsBuilding(ctx context.Context, id int64, isBuilding bool) error {
	return r.updateHabit("UpdateHabitIsBuilding", id, func(h *domain.Habit) { h.CurrentlyBuilding = isBuilding })
}

func (r *InMemoryTrackerRepository) DeleteHabit(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("DeleteHabit"); err != nil {
		return err
	}
	delete(r.habits, id)
	for key := range r.performed {
		if key.habitID == id {
			delete(r.performed, key)
		}
	}
	for key := range r.statuses {
		if key.habitID == id {
			delete(r.statuses, key)
		}
	}
	return nil
}

func (r *InMemoryTrackerRepository) SelectAllHabits(ctx context.Context) ([]domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectAllHabits"); err != nil {
		return nil, err
	}
	habits := make([]domain.Habit, 0, len(r.habits))
	for _, h := range r.habits {
		habits = append(habits, h)
	}
	sort.Slice(habits, func(i, j int) bool {
		return habits[i].ID < habits[j].ID
	})
	return habits, nil
}

func (r *InMemoryTrackerRepository) InsertHabitPerformed(ctx context.Context, habitID int64, date domain.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertHabitPerformed"); err != nil {
		return err
	}
	if _, ok := r.habits[habitID]; !ok {
		return domain.NewPersistenceError("InsertHabitPerformed", domain.ErrHabitNotFound)
	}
	r.performed[habitDateKey{habitID, date}] = true
	return nil
}

func (r *InMemoryTrackerRepository) DeleteHabitPerformed(ctx context.Context, habitID int64, date domain.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("DeleteHabitPerformed"); err != nil {
		return err
	}
	delete(r.performed, habitDateKey{habitID, date})
	return nil
}

func (r *InMemoryTrackerRepository) SelectHabitIDsPerformedOnDate(ctx context.Context, date domain.Date) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectHabitIDsPerformedOnDate"); err != nil {
		return nil, err
	}
	ids := []int64{}
	for key := range r.performed {
		if key.date == date {
			ids = append(ids, key.habitID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *InMemoryTrackerRepository) CountHabitPerformedDuring(ctx context.Context, habitID int64, dates []domain.Date) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("CountHabitPerformedDuring"); err != nil {
		return 0, err
	}
	seen := make(map[domain.Date]bool, len(dates))
	n := 0
	for _, d := range dates {
		if !seen[d] && r.performed[habitDateKey{habitID, d}] {
			n++
		}
		seen[d] = true
	}
	return n, nil
}

func (r *InMemoryTrackerRepository) SelectMostRecentDatesHabitPerformed(ctx context.Context, habitID int64, n int, asOf domain.Date) ([]domain.Date, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectMostRecentDatesHabitPerformed"); err != nil {
		return nil, err
	}
	var dates []domain.Date
	for key := range r.performed {
		if key.habitID == habitID && !key.date.After(asOf) {
			dates = append(dates, key.date)
		}
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].After(dates[j])
	})
	if len(dates) > n {
		dates = dates[:n]
	}
	return dates, nil
}

func (r *InMemoryTrackerRepository) SelectHabitPerformancesBetween(ctx context.Context, from, to domain.Date) ([]domain.HabitPerformed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectHabitPerformancesBetween"); err != nil {
		return nil, err
	}
	records := []domain.HabitPerformed{}
	for key := range r.performed {
		if !key.date.Before(from) && !key.date.After(to) {
			records = append(records, domain.HabitPerformed{HabitID: key.habitID, Date: key.date})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].HabitID < records[j].HabitID
	})
	return records, nil
}

func (r *InMemoryTrackerRepository) InsertHabitStatusesForDate(ctx context.Context, date domain.Date, statuses []domain.HabitStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertHabitStatusesForDate"); err != nil {
		return err
	}
	for _, s := range statuses {
		if s.Date != date {
			return domain.NewPersistenceError("InsertHabitStatusesForDate", errors.New("status date does not match "+date.String()))
		}
	}
	for _, s := range statuses {
		r.statuses[habitDateKey{s.HabitID, date}] = s
	}
	if entry, ok := r.journal[date]; ok {
		entry.HabitsCalculated = true
		r.journal[date] = entry
	}
	return nil
}

func (r *InMemoryTrackerRepository) InsertOrReplaceHabitStatuses(ctx context.Context, statuses []domain.HabitStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("InsertOrReplaceHabitStatuses"); err != nil {
		return err
	}
	for _, s := range statuses {
		r.statuses[habitDateKey{s.HabitID, s.Date}] = s
	}
	return nil
}

func (r *InMemoryTrackerRepository) SelectHabitStatus(ctx context.Context, habitID int64, date domain.Date) (*domain.HabitStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectHabitStatus"); err != nil {
		return nil, err
	}
	status, ok := r.statuses[habitDateKey{habitID, date}]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

func (r *InMemoryTrackerRepository) SelectHabitStatusesForDate(ctx context.Context, date domain.Date) ([]domain.HabitStatusDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("SelectHabitStatusesForDate"); err != nil {
		return nil, err
	}
	details := []domain.HabitStatusDetails{}
	for key, status := range r.statuses {
		habit, ok := r.habits[key.habitID]
		if key.date != date || !ok {
			continue
		}
		details = append(details, domain.HabitStatusDetails{
			HabitStatus:   status,
			Name:          habit.Name,
			LastPerformed: r.lastPerformed(key.habitID, date),
		})
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].HabitID < details[j].HabitID
	})
	return details, nil
}

func (r *InMemoryTrackerRepository) lastPerformed(habitID int64, asOf domain.Date) *domain.Date {
	var last *domain.Date
	for key := range r.performed {
		if key.habitID != habitID || key.date.After(asOf) {
			continue
		}
		if last == nil || key.date.After(*last) {
			d := key.date
			last = &d
		}
	}
	return last
}

func (r *InMemoryTrackerRepository) DoesAnyHabitStatusExistForHabit(ctx context.Context, habitID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("DoesAnyHabitStatusExistForHabit"); err != nil {
		return false, err
	}
	for key := range r.statuses {
		if key.habitID == habitID {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryTrackerRepository) DeleteHabitStatus(ctx context.Context, habitID int64, date domain.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin("DeleteHabitStatus"); err != nil {
		return err
	}
	delete(r.statuses, habitDateKey{habitID, date})
	return nil
}
