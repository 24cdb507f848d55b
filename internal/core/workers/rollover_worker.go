package workers

import (
	"context"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

const DefaultRolloverPollInterval = time.Minute

type EventProcessor interface {
	Process(ctx context.Context, event services.Event) error
}

// RolloverWorker watches the perceived day and asks the engine to extend its
// tracked days once it moves on. Trigger forces a refresh, for instance when
// a client comes back after a while.
type RolloverWorker struct {
	engine   EventProcessor
	clock    *domain.DayClock
	interval time.Duration
	triggers chan struct{}

	lastSeen domain.Date
}

func NewRolloverWorker(engine EventProcessor, clock *domain.DayClock, interval time.Duration) *RolloverWorker {
	if interval <= 0 {
		interval = DefaultRolloverPollInterval
	}
	return &RolloverWorker{
		engine:   engine,
		clock:    clock,
		interval: interval,
		triggers: make(chan struct{}, 1),
		lastSeen: clock.PerceivedDay(),
	}
}

// Start runs the worker until ctx is done. The returned channel is closed
// once the loop has exited.
func (w *RolloverWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Println("[WORKER] Rollover worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.check(ctx)
			case <-w.triggers:
				w.refresh(ctx)
			case <-ctx.Done():
				log.Println("[WORKER] Rollover worker shutting down...")
				return
			}
		}
	}()
	return done
}

func (w *RolloverWorker) Trigger() {
	select {
	case w.triggers <- struct{}{}:
	default:
	}
}

func (w *RolloverWorker) check(ctx context.Context) {
	perceived := w.clock.PerceivedDay()
	if !perceived.After(w.lastSeen) {
		return
	}
	log.Printf("[WORKER] Day rolled over from %s to %s", w.lastSeen, perceived)
	w.refresh(ctx)
}

func (w *RolloverWorker) refresh(ctx context.Context) {
	w.lastSeen = w.clock.PerceivedDay()
	if err := w.engine.Process(ctx, services.RefreshTrackedDays{}); err != nil {
		log.Printf("[WORKER] Failed to refresh tracked days: %v", err)
	}
}
