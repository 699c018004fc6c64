package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"
)

// Scheduler drives the timed part of the lifecycle: a full game starts
// after startDelay, and a playing game finishes after playDelay with a
// uniformly random loser. Each game gets its own timer, cancellable if the
// game disappears before it fires.
type Scheduler struct {
	mgr        *Manager
	clock      quartz.Clock
	startDelay time.Duration
	playDelay  time.Duration

	// onFinish runs settlement; onEvent feeds the lobby broadcast.
	onFinish func(context.Context, Game)
	onEvent  func(kind string, g Game)

	pickLoser func(n int) int

	mu     sync.Mutex
	timers map[string]*quartz.Timer
}

func NewScheduler(mgr *Manager, clock quartz.Clock, startDelay, playDelay time.Duration) *Scheduler {
	return &Scheduler{
		mgr:        mgr,
		clock:      clock,
		startDelay: startDelay,
		playDelay:  playDelay,
		pickLoser:  rand.Intn,
		timers:     map[string]*quartz.Timer{},
	}
}

func (s *Scheduler) OnFinish(fn func(context.Context, Game)) { s.onFinish = fn }
func (s *Scheduler) OnEvent(fn func(kind string, g Game))    { s.onEvent = fn }

// GameFull arms the start timer for a game that just filled.
func (s *Scheduler) GameFull(id string) {
	s.arm(id, s.startDelay, func() { s.fireStart(id) })
}

// Cancel drops any pending timer for the game, e.g. when the last player
// leaves before the start timer fires.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Resume re-arms timers for games hydrated from the store in a mid-life
// status.
func (s *Scheduler) Resume(g Game) {
	switch g.Status {
	case StatusFull:
		s.GameFull(g.ID)
	case StatusPlaying:
		s.arm(g.ID, s.playDelay, func() { s.fireFinish(g.ID) })
	}
}

func (s *Scheduler) arm(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = s.clock.AfterFunc(d, fn)
}

func (s *Scheduler) fireStart(id string) {
	g, rej := s.mgr.Start(id)
	if rej.Rejected() {
		log.Debug().Str("game_id", id).Str("reject", string(rej)).Msg("start timer dropped")
		s.Cancel(id)
		return
	}
	log.Info().Str("game_id", id).Int("players", len(g.Players)).Msg("game started")
	s.emit("game_started", g)
	s.arm(id, s.playDelay, func() { s.fireFinish(id) })
}

func (s *Scheduler) fireFinish(id string) {
	s.Cancel(id)
	g, ok := s.mgr.Get(id)
	if !ok || len(g.Players) == 0 {
		return
	}
	loser := g.Players[s.pickLoser(len(g.Players))].PublicKey
	g, rej := s.mgr.Finish(id, loser)
	if rej.Rejected() {
		log.Debug().Str("game_id", id).Str("reject", string(rej)).Msg("finish timer dropped")
		return
	}
	log.Info().Str("game_id", id).Str("loser", loser).Msg("game finished")
	s.emit("game_finished", g)
	if s.onFinish != nil {
		s.onFinish(context.Background(), g)
	}
}

func (s *Scheduler) emit(kind string, g Game) {
	if s.onEvent != nil {
		s.onEvent(kind, g)
	}
}
