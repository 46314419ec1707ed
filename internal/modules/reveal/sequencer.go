// README: Staged reveal of itinerary items driven by a cancellable ticker.
package reveal

import (
	"context"
	"time"
)

const DefaultInterval = 200 * time.Millisecond

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// TickFunc delivers a tick to the owner. Sequences are numbered so ticks from a
// replaced sequence can be told apart.
type TickFunc func(seq uint64)

type Option func(*Sequencer)

func WithTickerFactory(f TickerFactory) Option {
	return func(s *Sequencer) { s.newTicker = f }
}

// Sequencer counts revealed items from 0 up to the list length. The ticker runs on
// its own goroutine; the count only moves when the owner calls Advance, so all state
// stays with the owning goroutine.
type Sequencer struct {
	interval  time.Duration
	newTicker TickerFactory
	onTick    TickFunc

	seq    uint64
	count  int
	total  int
	cancel context.CancelFunc
}

func NewSequencer(interval time.Duration, onTick TickFunc, opts ...Option) *Sequencer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Sequencer{interval: interval, newTicker: NewTimeTicker, onTick: onTick}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start cancels any running sequence and reveals total items from zero.
func (s *Sequencer) Start(ctx context.Context, total int) uint64 {
	s.Stop()
	s.seq++
	s.count = 0
	s.total = total
	if total <= 0 {
		return s.seq
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx, s.seq, total)
	return s.seq
}

func (s *Sequencer) run(ctx context.Context, seq uint64, total int) {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	for sent := 0; sent < total; sent++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.onTick(seq)
		}
	}
}

// Advance applies one tick. Ticks for an older sequence, or past the end, are ignored.
func (s *Sequencer) Advance(seq uint64) bool {
	if seq != s.seq || s.count >= s.total {
		return false
	}
	s.count++
	if s.count == s.total {
		s.release()
	}
	return true
}

// Reset stops the sequence and hides everything.
func (s *Sequencer) Reset() {
	s.Stop()
	s.seq++
	s.count = 0
	s.total = 0
}

// Stop cancels the ticker but keeps the current count.
func (s *Sequencer) Stop() {
	s.release()
}

func (s *Sequencer) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Sequencer) Count() int    { return s.count }
func (s *Sequencer) Total() int    { return s.total }
func (s *Sequencer) Running() bool { return s.cancel != nil }
