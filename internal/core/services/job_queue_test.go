package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestJobQueue_RunsInOrder(t *testing.T) {
	work := newWorkTracker()
	q := newJobQueue(work)
	defer q.close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		q.enqueue(context.Background(), "job", func(ctx context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	require.NoError(t, work.wait(waitCtx(t)))
	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Len(t, order, 20)
}

func TestJobQueue_SurvivesPanics(t *testing.T) {
	work := newWorkTracker()
	q := newJobQueue(work)
	defer q.close()

	ran := false
	q.enqueue(context.Background(), "boom", func(ctx context.Context) { panic("boom") })
	q.enqueue(context.Background(), "after", func(ctx context.Context) { ran = true })

	require.NoError(t, work.wait(waitCtx(t)))
	assert.True(t, ran)
}

func TestJobQueue_IgnoresCallerCancellation(t *testing.T) {
	work := newWorkTracker()
	q := newJobQueue(work)
	defer q.close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var jobErr error
	q.enqueue(ctx, "detached", func(ctx context.Context) { jobErr = ctx.Err() })

	require.NoError(t, work.wait(waitCtx(t)))
	assert.NoError(t, jobErr)
}

func TestJobQueue_CloseDrainsAndRejects(t *testing.T) {
	work := newWorkTracker()
	q := newJobQueue(work)

	release := make(chan struct{})
	count := 0
	q.enqueue(context.Background(), "slow", func(ctx context.Context) {
		<-release
		count++
	})
	q.enqueue(context.Background(), "queued", func(ctx context.Context) { count++ })
	close(release)

	q.close()
	assert.Equal(t, 2, count)

	q.enqueue(context.Background(), "late", func(ctx context.Context) { count++ })
	require.NoError(t, work.wait(waitCtx(t)))
	assert.Equal(t, 2, count)
}

func TestWorkTracker_WaitHonoursContext(t *testing.T) {
	work := newWorkTracker()
	work.add()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, work.wait(ctx), context.DeadlineExceeded)

	work.done()
	assert.NoError(t, work.wait(waitCtx(t)))
}

func TestNoteDebouncer(t *testing.T) {
	entry := func(note string) domain.JournalEntry {
		return domain.JournalEntry{Date: domain.MustParseDate("2026-10-16"), Note: note}
	}

	t.Run("Success: Only the last edit is saved", func(t *testing.T) {
		work := newWorkTracker()
		var mu sync.Mutex
		var saved []string
		n := newNoteDebouncer(20*time.Millisecond, work, func(e domain.JournalEntry) {
			mu.Lock()
			saved = append(saved, e.Note)
			mu.Unlock()
		})

		n.Schedule(entry("a"))
		n.Schedule(entry("ab"))
		n.Schedule(entry("abc"))

		require.NoError(t, work.wait(waitCtx(t)))
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"abc"}, saved)
	})

	t.Run("Success: Flush saves immediately", func(t *testing.T) {
		work := newWorkTracker()
		var saved []string
		n := newNoteDebouncer(time.Hour, work, func(e domain.JournalEntry) {
			saved = append(saved, e.Note)
		})

		n.Schedule(entry("draft"))
		n.Flush()
		n.Flush()

		assert.Equal(t, []string{"draft"}, saved)
		assert.NoError(t, work.wait(waitCtx(t)))
	})

	t.Run("Success: Edit on another day saves the pending one first", func(t *testing.T) {
		work := newWorkTracker()
		var saved []domain.JournalEntry
		n := newNoteDebouncer(time.Hour, work, func(e domain.JournalEntry) {
			saved = append(saved, e)
		})

		n.Schedule(entry("today"))
		other := domain.JournalEntry{Date: domain.MustParseDate("2026-10-15"), Note: "yesterday"}
		n.Schedule(other)
		require.Len(t, saved, 1)
		assert.Equal(t, "today", saved[0].Note)

		n.Flush()
		require.Len(t, saved, 2)
		assert.Equal(t, other.Date, saved[1].Date)
		assert.NoError(t, work.wait(waitCtx(t)))
	})

	t.Run("Success: Scheduled entry is a snapshot", func(t *testing.T) {
		work := newWorkTracker()
		var saved *domain.Mood
		n := newNoteDebouncer(time.Hour, work, func(e domain.JournalEntry) {
			saved = e.Mood
		})

		mood := domain.MoodGood
		e := entry("x")
		e.Mood = &mood
		n.Schedule(e)
		mood = domain.MoodBad
		n.Flush()

		require.NotNil(t, saved)
		assert.Equal(t, domain.MoodGood, *saved)
	})
}
