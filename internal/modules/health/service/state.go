package service

import (
	"sync/atomic"
	"time"
)

// State — атомарное состояние для health-эндпоинтов. Пишут в него фид,
// опрос эквити и движок, читает только HTTP-хендлер.
type State struct {
	ready     atomic.Bool
	degraded  atomic.Bool
	startedAt time.Time

	feedConnected atomic.Bool
	lastBarUnix   atomic.Int64 // unix seconds
	lastEqUnix    atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// SetDegraded — эквити устарело, входы приостановлены.
func (s *State) SetDegraded(v bool) { s.degraded.Store(v) }
func (s *State) Degraded() bool     { return s.degraded.Load() }

func (s *State) SetFeedConnected(v bool) { s.feedConnected.Store(v) }
func (s *State) FeedConnected() bool     { return s.feedConnected.Load() }

func (s *State) TouchBar(t time.Time) { s.lastBarUnix.Store(t.Unix()) }
func (s *State) LastBar() time.Time   { return fromUnix(s.lastBarUnix.Load()) }

func (s *State) TouchEquity(t time.Time) { s.lastEqUnix.Store(t.Unix()) }
func (s *State) LastEquity() time.Time   { return fromUnix(s.lastEqUnix.Load()) }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func fromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
