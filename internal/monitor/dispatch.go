package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

type subscriber struct {
	id     uint64
	fn     Callback
	queue  chan []conditions.ChangeRecord
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func (sub *subscriber) run() {
	defer close(sub.done)
	for records := range sub.queue {
		sub.deliver(records)
	}
}

func (sub *subscriber) deliver(records []conditions.ChangeRecord) {
	defer func() {
		if r := recover(); r != nil {
			sub.logger.Error().
				Uint64("subscriber", sub.id).
				Interface("panic", r).
				Msg("change subscriber panicked")
		}
	}()
	sub.fn(records)
}

// close stops accepting notifications and waits until the queue is drained.
func (sub *subscriber) close() {
	sub.once.Do(func() { close(sub.queue) })
	<-sub.done
}

// OnChange registers a callback for change records and returns a function
// that unsubscribes it. Unsubscribing delivers the callback's queued
// notifications before returning, so it must not be called from inside the
// callback. Subscribing to a stopped scheduler returns a no-op unsubscribe.
func (s *Scheduler) OnChange(cb Callback) (unsubscribe func()) {
	// Holding s.mu orders registration against Stop's drain.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || cb == nil {
		return func() {}
	}

	s.subMu.Lock()
	s.nextSub++
	sub := &subscriber{
		id:     s.nextSub,
		fn:     cb,
		queue:  make(chan []conditions.ChangeRecord, s.notifyBuffer),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	s.subs[sub.id] = sub
	s.subMu.Unlock()

	go sub.run()

	return func() {
		s.subMu.Lock()
		_, ok := s.subs[sub.id]
		delete(s.subs, sub.id)
		s.subMu.Unlock()
		if ok {
			sub.close()
		}
	}
}

// publish records change records in history and queues them for every
// subscriber without blocking.
func (s *Scheduler) publish(ctx context.Context, records []conditions.ChangeRecord) {
	s.remember(records)

	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subs {
		select {
		case sub.queue <- records:
		default:
			s.metrics.drop(ctx)
			s.logger.Warn().
				Uint64("subscriber", sub.id).
				Int("records", len(records)).
				Msg("subscriber queue full, notification dropped")
		}
	}
}

func (s *Scheduler) remember(records []conditions.ChangeRecord) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	s.history = append(s.history, records...)
	if len(s.history) > s.historyLimit {
		keep := s.historyLimit / 2
		trimmed := make([]conditions.ChangeRecord, keep)
		copy(trimmed, s.history[len(s.history)-keep:])
		s.history = trimmed
	}
}

// HistoryFilter selects change records from the scheduler's history.
type HistoryFilter struct {
	TargetID        string
	Type            conditions.Type
	MinSignificance conditions.Significance
	Since           time.Time
	// Limit caps the number of records returned. Zero means no cap.
	Limit int
}

func (f HistoryFilter) matches(r conditions.ChangeRecord) bool {
	if f.TargetID != "" && r.TargetID != f.TargetID {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if r.Significance < f.MinSignificance {
		return false
	}
	if !f.Since.IsZero() && r.DetectedAt.Before(f.Since) {
		return false
	}
	return true
}

// History returns matching change records, newest first.
func (s *Scheduler) History(filter HistoryFilter) []conditions.ChangeRecord {
	s.histMu.RLock()
	defer s.histMu.RUnlock()

	var out []conditions.ChangeRecord
	for i := len(s.history) - 1; i >= 0; i-- {
		if !filter.matches(s.history[i]) {
			continue
		}
		out = append(out, s.history[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}
