package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/derivation"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

const DefaultNoteDebounce = 500 * time.Millisecond

var errNoJournalEntries = errors.New("no journal entries after backfill")

// TrackerEngine owns the tracker state. Events mutate it synchronously and
// queue their persistence work, so every change is visible to subscribers
// before it reaches storage.
type TrackerEngine struct {
	repo         domain.TrackerRepository
	clock        *domain.DayClock
	noteDebounce time.Duration

	mu          sync.Mutex
	state       domain.TrackerState
	subscribers map[int]chan domain.TrackerState
	nextSubID   int
	closed      bool

	work  *workTracker
	jobs  *jobQueue
	notes *noteDebouncer
}

type EngineOption func(*TrackerEngine)

func WithNoteDebounce(d time.Duration) EngineOption {
	return func(e *TrackerEngine) {
		e.noteDebounce = d
	}
}

func NewTrackerEngine(repo domain.TrackerRepository, clock *domain.DayClock, opts ...EngineOption) *TrackerEngine {
	e := &TrackerEngine{
		repo:         repo,
		clock:        clock,
		noteDebounce: DefaultNoteDebounce,
		state:        domain.NewTrackerState(clock.PerceivedDay()),
		subscribers:  make(map[int]chan domain.TrackerState),
		work:         newWorkTracker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.jobs = newJobQueue(e.work)
	e.notes = newNoteDebouncer(e.noteDebounce, e.work, func(edited domain.JournalEntry) {
		e.jobs.enqueue(context.Background(), "save journal note", func(ctx context.Context) {
			e.saveJournalEntry(ctx, e.journalEntryWithNote(edited))
		})
	})
	return e
}

// State returns a snapshot that is safe to keep and read.
func (e *TrackerEngine) State() domain.TrackerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Today is the calendar day of the engine's clock.
func (e *TrackerEngine) Today() domain.Date {
	return e.clock.Today()
}

// Subscribe delivers the current state right away and then every later
// state. A slow subscriber only ever sees the most recent snapshot.
func (e *TrackerEngine) Subscribe() (<-chan domain.TrackerState, func()) {
	ch := make(chan domain.TrackerState, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = ch
	ch <- e.state.Clone()
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subscribers[id]; ok {
				delete(e.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// update is the single write path to the state.
func (e *TrackerEngine) update(fn func(s *domain.TrackerState)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.state)
	if len(e.subscribers) == 0 {
		return
	}
	snapshot := e.state.Clone()
	for _, ch := range e.subscribers {
		publish(ch, snapshot)
	}
}

func publish(ch chan domain.TrackerState, snapshot domain.TrackerState) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

// Wait blocks until all queued and running work has finished.
func (e *TrackerEngine) Wait(ctx context.Context) error {
	return e.work.wait(ctx)
}

// Close saves the pending note and name edits, waits for outstanding work
// and stops the engine. Subscriber channels are closed.
func (e *TrackerEngine) Close(ctx context.Context) error {
	e.notes.Flush()
	from := e.State().FocusedDayDetails()
	e.jobs.enqueue(ctx, "save pending changes", func(ctx context.Context) {
		e.savePendingChanges(ctx, from)
	})

	err := e.Wait(ctx)
	e.jobs.close()

	e.mu.Lock()
	e.closed = true
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
	e.mu.Unlock()

	log.Println("[ENGINE] Tracker engine stopped")
	return err
}

// Process applies event to the in-memory state and queues whatever
// persistence it needs. It only fails for unknown or invalid events;
// storage failures surface as state flags.
func (e *TrackerEngine) Process(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", domain.ErrUnknownEvent)
	}
	if _, known := eventDecoders[event.EventType()]; !known {
		return fmt.Errorf("%w: %T", domain.ErrUnknownEvent, event)
	}
	if err := ValidateEvent(event); err != nil {
		return err
	}

	switch ev := event.(type) {
	case InitializeTracker:
		e.jobs.enqueue(ctx, "initialize tracker", e.initialize)
	case ChangeFocusedDay:
		e.changeFocusedDay(ctx, ev.Date)
	case ToggleSelectingDate:
		e.update(func(s *domain.TrackerState) { s.IsSelectingDate = !s.IsSelectingDate })
	case SavePendingChanges:
		e.notes.Flush()
		from := e.State().FocusedDayDetails()
		e.jobs.enqueue(ctx, "save pending changes", func(ctx context.Context) {
			e.savePendingChanges(ctx, from)
		})
	case RefreshTrackedDays:
		e.jobs.enqueue(ctx, "refresh tracked days", func(ctx context.Context) {
			e.extendTrackedDays(ctx, e.clock.PerceivedDay())
		})

	case UpdateJournalNote:
		e.updateJournalNote(ev.Note)
	case ToggleJournalEntryStarred:
		e.updateJournalEntry(ctx, func(entry *domain.JournalEntry) { entry.IsStarred = !entry.IsStarred })
	case SetMood:
		e.updateJournalEntry(ctx, func(entry *domain.JournalEntry) {
			entry.Mood = nil
			if ev.Mood != nil {
				mood := *ev.Mood
				entry.Mood = &mood
			}
		})
	case HideTaskFromJournal:
		e.updateFocusedDetails(func(d *domain.DayDetails) { d.JournalTaskIDs = removeID(d.JournalTaskIDs, ev.ID) })
	case HideHabitFromJournal:
		e.updateFocusedDetails(func(d *domain.DayDetails) { d.JournalHabitIDs = removeID(d.JournalHabitIDs, ev.ID) })

	case AddTask:
		e.addTask(ctx, -1)
	case InsertTaskAfter:
		e.addTask(ctx, domain.IndexOfTask(e.State().Tasks, ev.OtherTaskID)+1)
	case DeleteTask:
		e.deleteTask(ctx, ev.ID)
	case DeleteTaskAndMoveFocus:
		e.deleteTaskAndMoveFocus(ctx, ev.ID)
	case ToggleTaskCompleted:
		e.toggleTaskCompleted(ctx, ev.ID)
	case UpdateTaskName:
		e.updateTaskName(ev.ID, ev.Name)
	case SaveCurrentTaskName:
		e.jobs.enqueue(ctx, "save task name", func(ctx context.Context) { e.saveTask(ctx, ev.ID) })
	case ClearTaskIDToFocus:
		e.update(func(s *domain.TrackerState) { s.TaskIDToFocus = nil })
	case UpdateTaskPriority:
		e.updateTask(ctx, ev.ID, func(t *domain.Task) { t.Priority = ev.Priority })
	case UpdateTaskDeadline:
		e.updateTask(ctx, ev.ID, func(t *domain.Task) {
			t.Deadline = nil
			if ev.Deadline != nil {
				deadline := *ev.Deadline
				t.Deadline = &deadline
			}
		})
	case ToggleEditingTask:
		e.toggleEditingTask(ev.ID)
	case ToggleEditingTaskPriority:
		e.update(func(s *domain.TrackerState) {
			if s.TaskEditing != nil {
				s.TaskEditing.IsEditingPriority = !s.TaskEditing.IsEditingPriority
			}
		})
	case ToggleEditingTaskDeadline:
		e.update(func(s *domain.TrackerState) {
			if s.TaskEditing != nil {
				s.TaskEditing.IsEditingDeadline = !s.TaskEditing.IsEditingDeadline
			}
		})
	case ToggleViewingOlderTasks:
		e.updateFocusedDetails(func(d *domain.DayDetails) { d.ViewingOlderTasks = !d.ViewingOlderTasks })

	case AddTrackedHabit:
		e.addTrackedHabit(ctx, -1)
	case InsertHabitAfter:
		e.addTrackedHabit(ctx, domain.IndexOfTrackedHabit(e.State().FocusedDayDetails().TrackedHabits, ev.OtherHabitID)+1)
	case DeleteHabit:
		e.deleteHabit(ctx, ev.ID)
	case DeleteHabitAndMoveFocus:
		e.deleteHabitAndMoveFocus(ctx, ev.ID)
	case ToggleHabitPerformed:
		e.toggleHabitPerformed(ctx, ev.ID)
	case ToggleBuildingHabit:
		e.toggleBuildingHabit(ctx, ev.ID)
	case ToggleTrackingHabit:
		e.toggleTrackingHabit(ctx, ev.ID)
	case UpdateHabitName:
		e.updateHabitName(ev.ID, ev.Name)
	case SaveCurrentHabitName:
		e.jobs.enqueue(ctx, "save habit name", func(ctx context.Context) {
			e.saveHabitName(ctx, ev.ID, e.State().FocusedDayDetails())
		})
	case ClearHabitIDToFocus:
		e.update(func(s *domain.TrackerState) { s.HabitIDToFocus = nil })
	case ToggleViewingUntrackedHabits:
		e.updateFocusedDetails(func(d *domain.DayDetails) { d.ViewingUntrackedHabits = !d.ViewingUntrackedHabits })

	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownEvent, event)
	}
	return nil
}

// failSave records a failed write. The optimistic in-memory state stays.
func (e *TrackerEngine) failSave(op string, err error) {
	log.Printf("[ENGINE] Failed to %s: %v", op, err)
	e.update(func(s *domain.TrackerState) {
		s.Error = domain.TrackerErrorFailedToSave
		s.IsLoading = false
	})
}

// updateFocusedDetails edits the focused day's details if they are loaded.
func (e *TrackerEngine) updateFocusedDetails(fn func(d *domain.DayDetails)) {
	e.update(func(s *domain.TrackerState) {
		details, ok := s.DayDetails[s.FocusedDay]
		if !ok {
			return
		}
		fn(&details)
		s.DayDetails[s.FocusedDay] = details
	})
}

func (e *TrackerEngine) initialize(ctx context.Context) {
	state, err := e.loadInitialState(ctx)
	if err != nil {
		log.Printf("[ENGINE] Failed to initialize tracker: %v", err)
		e.update(func(s *domain.TrackerState) {
			fresh := domain.NewTrackerState(e.clock.PerceivedDay())
			fresh.IsLoading = false
			fresh.Error = domain.TrackerErrorFailedToLoad
			*s = fresh
		})
		return
	}

	e.update(func(s *domain.TrackerState) { *s = state })
	log.Printf("[ENGINE] Tracker initialized: %d tracked days, %d tasks", len(state.TrackedDays), len(state.Tasks))
}

func (e *TrackerEngine) loadInitialState(ctx context.Context) (domain.TrackerState, error) {
	lastTracked, err := e.createMissingJournalEntries(ctx, e.clock.PerceivedDay())
	if err != nil {
		return domain.TrackerState{}, err
	}

	if err := e.backfillHabitStatuses(ctx, lastTracked); err != nil {
		return domain.TrackerState{}, err
	}

	first, err := e.repo.SelectFirstJournalEntry(ctx)
	if err != nil {
		return domain.TrackerState{}, err
	}
	if first == nil {
		return domain.TrackerState{}, errNoJournalEntries
	}

	tasks, err := e.repo.SelectAllTasks(ctx)
	if err != nil {
		return domain.TrackerState{}, err
	}
	domain.SortTasksByUrgency(tasks, lastTracked)

	state := domain.NewTrackerState(lastTracked)
	state.IsLoading = false
	state.TrackedDays = domain.DatesBetween(first.Date, lastTracked.NextDay())
	state.Tasks = tasks

	state.DayDetails[lastTracked] = e.dayDetailsOrError(ctx, state, lastTracked)
	if previous := lastTracked.PreviousDay(); state.IsTracked(previous) {
		state.DayDetails[previous] = e.dayDetailsOrError(ctx, state, previous)
	}
	return state, nil
}

// createMissingJournalEntries makes sure every day up to perceived has an
// entry and returns the latest tracked day. Entries past perceived, created
// by navigating to today before the rollover hour, are kept.
func (e *TrackerEngine) createMissingJournalEntries(ctx context.Context, perceived domain.Date) (domain.Date, error) {
	latest, err := e.repo.SelectLatestJournalEntry(ctx)
	if err != nil {
		return domain.Date{}, err
	}

	switch {
	case latest == nil:
		if err := e.repo.InsertJournalEntry(ctx, perceived); err != nil {
			return domain.Date{}, err
		}
		return perceived, nil
	case latest.Date.Before(perceived):
		missing := domain.DatesBetween(latest.Date.NextDay(), perceived.NextDay())
		if err := e.repo.InsertJournalEntries(ctx, missing); err != nil {
			return domain.Date{}, err
		}
		return perceived, nil
	default:
		return latest.Date, nil
	}
}

// backfillHabitStatuses finalizes the statuses of every day before until
// that has none. The latest tracked day is always computed live.
func (e *TrackerEngine) backfillHabitStatuses(ctx context.Context, until domain.Date) error {
	dates, err := e.repo.SelectJournalDatesWithoutHabitStatuses(ctx)
	if err != nil {
		return err
	}
	domain.SortDates(dates)
	for _, date := range dates {
		if !date.Before(until) {
			continue
		}
		if err := e.saveHabitStatuses(ctx, date); err != nil {
			return err
		}
	}
	return nil
}

func (e *TrackerEngine) saveHabitStatuses(ctx context.Context, date domain.Date) error {
	habits, err := e.repo.SelectAllHabits(ctx)
	if err != nil {
		return err
	}

	statuses := make([]domain.HabitStatus, 0, len(habits))
	for _, h := range habits {
		if !h.CurrentlyTracking {
			continue
		}
		status, err := derivation.Status(ctx, e.repo, h.ID, date, h.CurrentlyBuilding)
		if err != nil {
			return err
		}
		statuses = append(statuses, status)
	}
	return e.repo.InsertHabitStatusesForDate(ctx, date, statuses)
}

// extendTrackedDays adds every day after the latest tracked one up to until,
// finalizing the statuses of the days that stop being the latest.
func (e *TrackerEngine) extendTrackedDays(ctx context.Context, until domain.Date) {
	snapshot := e.State()
	latest, ok := snapshot.LatestTrackedDay()
	if !ok || !latest.Before(until) {
		return
	}

	newDays := domain.DatesBetween(latest.NextDay(), until.NextDay())
	if err := e.repo.InsertJournalEntries(ctx, newDays); err != nil {
		e.failSave("create journal entries", err)
		return
	}
	if err := e.backfillHabitStatuses(ctx, until); err != nil {
		e.failSave("finalize habit statuses", err)
		return
	}

	e.update(func(s *domain.TrackerState) {
		current, ok := s.LatestTrackedDay()
		for _, day := range newDays {
			if !ok || day.After(current) {
				s.TrackedDays = append(s.TrackedDays, day)
			}
		}
	})
	log.Printf("[ENGINE] Tracked days extended to %s", until)

	if _, resident := snapshot.DayDetails[latest]; resident {
		e.loadDay(ctx, latest)
	}
}

func (e *TrackerEngine) changeFocusedDay(ctx context.Context, date domain.Date) {
	var previous domain.DayDetails
	e.update(func(s *domain.TrackerState) {
		previous = s.FocusedDayDetails()
		s.FocusedDay = date
	})

	// The note of the day being left is saved before the next day loads.
	e.notes.Flush()

	e.jobs.enqueue(ctx, "change focused day", func(ctx context.Context) {
		e.savePendingChanges(ctx, previous)

		if date == e.clock.Today() && !e.State().IsTracked(date) {
			e.extendTrackedDays(ctx, date)
		}

		e.loadDay(ctx, date)

		snapshot := e.State()
		for _, neighbour := range []domain.Date{date.PreviousDay(), date.NextDay()} {
			if !snapshot.IsTracked(neighbour) {
				continue
			}
			e.work.add()
			go func(day domain.Date) {
				defer e.work.done()
				e.prefetchDay(ctx, day)
			}(neighbour)
		}
	})
}

// loadDay recomputes the details of date from storage and installs them.
// A failed read leaves the error sentinel for that day only.
func (e *TrackerEngine) loadDay(ctx context.Context, date domain.Date) {
	details := e.dayDetailsOrError(ctx, e.State(), date)
	e.update(func(s *domain.TrackerState) {
		if existing, ok := s.DayDetails[date]; ok && details.Error == domain.TrackerErrorNone {
			details.ViewingOlderTasks = existing.ViewingOlderTasks
			details.ViewingUntrackedHabits = existing.ViewingUntrackedHabits
		}
		s.DayDetails[date] = details
	})
}

// prefetchDay loads a neighbour of the focused day in the background. It
// runs outside the job queue, so it only fills days that are missing or
// failed: resident details may hold edits whose writes are still queued.
// Those days are reloaded in order when they get the focus.
func (e *TrackerEngine) prefetchDay(ctx context.Context, date domain.Date) {
	snapshot := e.State()
	if existing, ok := snapshot.DayDetails[date]; ok && existing.Error == domain.TrackerErrorNone {
		return
	}
	details := e.dayDetailsOrError(ctx, snapshot, date)
	e.update(func(s *domain.TrackerState) {
		if existing, ok := s.DayDetails[date]; ok && existing.Error == domain.TrackerErrorNone {
			return
		}
		s.DayDetails[date] = details
	})
}

func (e *TrackerEngine) savePendingChanges(ctx context.Context, from domain.DayDetails) {
	snapshot := e.State()
	changes := make([]domain.PendingChange, 0, len(snapshot.PendingChanges))
	for change := range snapshot.PendingChanges {
		changes = append(changes, change)
	}
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Kind != changes[j].Kind {
			return changes[i].Kind < changes[j].Kind
		}
		return changes[i].ID < changes[j].ID
	})

	for _, change := range changes {
		switch change.Kind {
		case domain.PendingChangeTask:
			e.saveTask(ctx, change.ID)
		case domain.PendingChangeHabit:
			e.saveHabitName(ctx, change.ID, from)
		}
	}
}

func (e *TrackerEngine) updateJournalNote(note string) {
	var entry *domain.JournalEntry
	e.updateFocusedDetails(func(d *domain.DayDetails) {
		d.JournalEntry.Note = note
		snapshot := d.JournalEntry.Clone()
		entry = &snapshot
	})
	if entry != nil {
		e.notes.Schedule(*entry)
	}
}

func (e *TrackerEngine) updateJournalEntry(ctx context.Context, fn func(entry *domain.JournalEntry)) {
	var entry *domain.JournalEntry
	e.updateFocusedDetails(func(d *domain.DayDetails) {
		fn(&d.JournalEntry)
		snapshot := d.JournalEntry.Clone()
		entry = &snapshot
	})
	if entry == nil {
		return
	}
	saved := *entry
	e.jobs.enqueue(ctx, "save journal entry", func(ctx context.Context) {
		e.saveJournalEntry(ctx, saved)
	})
}

// journalEntryWithNote is the entry of edited's day as it is in memory now,
// carrying the edited note. Star and mood changes made after the note edit
// are kept.
func (e *TrackerEngine) journalEntryWithNote(edited domain.JournalEntry) domain.JournalEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	details, ok := e.state.DayDetails[edited.Date]
	if !ok || details.Error != domain.TrackerErrorNone || details.JournalEntry.Date != edited.Date {
		return edited
	}
	entry := details.JournalEntry.Clone()
	entry.Note = edited.Note
	return entry
}

func (e *TrackerEngine) saveJournalEntry(ctx context.Context, entry domain.JournalEntry) {
	if err := e.repo.UpdateJournalEntry(ctx, entry); err != nil {
		e.failSave("save journal entry", err)
	}
}

func removeID(ids []int64, id int64) []int64 {
	kept := make([]int64, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func appendIDOnce(ids []int64, id int64) []int64 {
	for _, candidate := range ids {
		if candidate == id {
			return ids
		}
	}
	return append(ids, id)
}

func insertAt[T any](items []T, position int, item T) []T {
	if position < 0 || position > len(items) {
		position = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:position]...)
	out = append(out, item)
	return append(out, items[position:]...)
}
