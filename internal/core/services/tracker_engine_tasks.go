package services

import (
	"context"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

// addTask stores an empty task created on the focused day and inserts it at
// position, or at the end when position is out of range.
func (e *TrackerEngine) addTask(ctx context.Context, position int) {
	created := e.State().FocusedDay
	e.jobs.enqueue(ctx, "add task", func(ctx context.Context) {
		task, err := e.repo.InsertTask(ctx, domain.NewTask{
			DateCreated: created,
			Priority:    domain.TaskPriorityMedium,
		})
		if err != nil {
			e.failSave("add task", err)
			return
		}

		e.update(func(s *domain.TrackerState) {
			s.Tasks = insertAt(s.Tasks, position, *task)
			id := task.ID
			s.TaskIDToFocus = &id
		})
	})
}

func (e *TrackerEngine) deleteTask(ctx context.Context, id int64) {
	e.update(func(s *domain.TrackerState) {
		if i := domain.IndexOfTask(s.Tasks, id); i >= 0 {
			s.Tasks = append(s.Tasks[:i:i], s.Tasks[i+1:]...)
		}
	})
	e.jobs.enqueue(ctx, "delete task", func(ctx context.Context) {
		if err := e.repo.DeleteTask(ctx, id); err != nil {
			e.failSave("delete task", err)
		}
	})
}

// deleteTaskAndMoveFocus deletes the task and asks the UI to focus the one
// listed before it.
func (e *TrackerEngine) deleteTaskAndMoveFocus(ctx context.Context, id int64) {
	deletedIndex := domain.IndexOfTask(e.State().Tasks, id)
	e.deleteTask(ctx, id)
	e.update(func(s *domain.TrackerState) {
		s.TaskIDToFocus = nil
		if previous := deletedIndex - 1; previous >= 0 && previous < len(s.Tasks) {
			focus := s.Tasks[previous].ID
			s.TaskIDToFocus = &focus
		}
	})
}

func (e *TrackerEngine) toggleTaskCompleted(ctx context.Context, id int64) {
	found := false
	e.update(func(s *domain.TrackerState) {
		i := domain.IndexOfTask(s.Tasks, id)
		if i < 0 {
			return
		}
		found = true

		task := &s.Tasks[i]
		if task.IsCompletedAsOf(s.FocusedDay) {
			task.DateCompleted = nil
		} else {
			day := s.FocusedDay
			task.DateCompleted = &day
		}

		if details, ok := s.DayDetails[s.FocusedDay]; ok {
			details.JournalTaskIDs = appendIDOnce(details.JournalTaskIDs, id)
			s.DayDetails[s.FocusedDay] = details
		}
	})
	if !found {
		return
	}
	e.jobs.enqueue(ctx, "save task", func(ctx context.Context) { e.saveTask(ctx, id) })
}

func (e *TrackerEngine) updateTaskName(id int64, name string) {
	e.update(func(s *domain.TrackerState) {
		i := domain.IndexOfTask(s.Tasks, id)
		if i < 0 {
			return
		}
		s.Tasks[i].Name = name
		s.PendingChanges[domain.PendingTask(id)] = struct{}{}
	})
}

// saveTask writes the in-memory task. The pending marker is only cleared once
// the write succeeded.
func (e *TrackerEngine) saveTask(ctx context.Context, id int64) {
	if task, ok := e.State().FindTask(id); ok {
		if err := e.repo.UpdateTask(ctx, task); err != nil {
			e.failSave("save task", err)
			return
		}
	}
	e.update(func(s *domain.TrackerState) {
		delete(s.PendingChanges, domain.PendingTask(id))
	})
}

// updateTask applies an attribute change and persists the whole task.
func (e *TrackerEngine) updateTask(ctx context.Context, id int64, fn func(t *domain.Task)) {
	found := false
	e.update(func(s *domain.TrackerState) {
		if i := domain.IndexOfTask(s.Tasks, id); i >= 0 {
			fn(&s.Tasks[i])
			found = true
		}
	})
	if !found {
		return
	}
	e.jobs.enqueue(ctx, "update task", func(ctx context.Context) {
		task, ok := e.State().FindTask(id)
		if !ok {
			return
		}
		if err := e.repo.UpdateTask(ctx, task); err != nil {
			e.failSave("update task", err)
		}
	})
}

func (e *TrackerEngine) toggleEditingTask(id int64) {
	e.update(func(s *domain.TrackerState) {
		switch {
		case s.TaskEditing == nil:
			s.TaskEditing = &domain.TaskEditingState{TaskID: id}
		case s.TaskEditing.TaskID == id:
			s.TaskEditing = nil
		}
	})
}
