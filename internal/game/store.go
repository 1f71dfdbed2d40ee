package game

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"minesweep/internal/minefield"
	"minesweep/pkg/realtime"
)

// Events published to a session's subscribers.
const (
	EventBoard  realtime.Event = "board"
	EventStatus realtime.Event = "status"
	EventClock  realtime.Event = "clock"
)

var ErrSessionNotFound = errors.New("session not found")

// BoardFactory builds the board for a new or restarted session.
type BoardFactory func(d Difficulty) (*minefield.Board, error)

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// RandomBoards generates boards from rng.
func RandomBoards(rng minefield.Rand) BoardFactory {
	return func(d Difficulty) (*minefield.Board, error) {
		return GenerateBoard(d, rng)
	}
}

// Store holds sessions and delegates to realtime.RoomStore for broadcast and
// the per-session clock.
type Store struct {
	r         *realtime.RoomStore[*Session]
	log       logrus.FieldLogger
	boards    BoardFactory
	tickEvery time.Duration

	// clockMu serialises clock acquire/release so a restart can never leave
	// two tick loops behind.
	clockMu sync.Mutex
}

type Option func(*Store)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func WithBoardFactory(f BoardFactory) Option {
	return func(s *Store) { s.boards = f }
}

// WithTickInterval overrides the one-second clock period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Store) { s.tickEvery = d }
}

// NewStore creates an in-memory session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		r:         realtime.NewRoomStore[*Session](),
		log:       logrus.StandardLogger(),
		boards:    RandomBoards(globalRand{}),
		tickEvery: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts a new session on a fresh board and starts its clock.
func (s *Store) CreateSession(d Difficulty) (*Session, error) {
	board, err := s.boards(d)
	if err != nil {
		return nil, err
	}
	sess := NewSession(uuid.NewString(), d, board)
	sess.ownerToken = uuid.NewString()
	s.r.Create(sess.ID, sess)
	s.startClock(sess.ID)
	s.log.WithFields(logrus.Fields{
		"session":    sess.ID,
		"difficulty": d,
	}).Info("session created")
	return sess, nil
}

// OwnerToken returns the secret that authorises moves on a session. Only the
// creator should ever be handed it.
func (s *Store) OwnerToken(id string) (string, bool) {
	sess, ok := s.GetSession(id)
	if !ok {
		return "", false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ownerToken, true
}

// GetSession returns a session by ID if it exists.
func (s *Store) GetSession(id string) (*Session, bool) {
	room, ok := s.r.Get(id)
	if !ok {
		return nil, false
	}
	return room.State, true
}

// Reveal applies the primary action and publishes what changed.
func (s *Store) Reveal(id string, row, col int) (Result, error) {
	sess, ok := s.GetSession(id)
	if !ok {
		return Result{}, ErrSessionNotFound
	}
	res := sess.Reveal(row, col)
	if !res.Changed {
		return res, nil
	}
	fields := logrus.Fields{"session": id, "row": row, "col": col}
	if res.Ended {
		s.stopClockIfOver(id, sess)
		s.log.WithFields(fields).WithField("status", res.Status).WithField("elapsed", sess.Elapsed()).Info("game over")
		s.r.Publish(id, EventBoard, EventStatus)
		return res, nil
	}
	s.log.WithFields(fields).WithField("opened", len(res.Opened)).Debug("reveal")
	s.r.Publish(id, EventBoard)
	return res, nil
}

// ToggleFlag applies the secondary action and publishes the change.
func (s *Store) ToggleFlag(id string, row, col int) (Result, error) {
	sess, ok := s.GetSession(id)
	if !ok {
		return Result{}, ErrSessionNotFound
	}
	res := sess.ToggleFlag(row, col)
	if res.Changed {
		s.log.WithFields(logrus.Fields{"session": id, "row": row, "col": col}).Debug("flag toggled")
		s.r.Publish(id, EventBoard, EventStatus)
	}
	return res, nil
}

// Restart replaces the session's board with a fresh one of difficulty d and
// resets its clock. The old clock is fully stopped before the new board
// exists.
func (s *Store) Restart(id string, d Difficulty) error {
	sess, ok := s.GetSession(id)
	if !ok {
		return ErrSessionNotFound
	}
	board, err := s.boards(d)
	if err != nil {
		return err
	}
	s.clockMu.Lock()
	s.r.StopLoop(id)
	sess.Restart(d, board)
	s.runClockLocked(id)
	s.clockMu.Unlock()

	s.log.WithFields(logrus.Fields{"session": id, "difficulty": d}).Info("session restarted")
	s.r.Publish(id, EventBoard, EventStatus, EventClock)
	return nil
}

// Broadcaster returns the SSE broadcaster for a session.
func (s *Store) Broadcaster(id string) (*realtime.Broadcaster, bool) {
	return s.r.Broadcaster(id)
}

// Remove stops the session's clock and forgets it.
func (s *Store) Remove(id string) bool {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.r.Delete(id)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *Store) Sweep(maxIdle time.Duration, now time.Time) int {
	var stale []string
	s.r.Each(func(room *realtime.Room[*Session]) {
		if now.Sub(room.State.LastActive()) > maxIdle {
			stale = append(stale, room.ID)
		}
	})
	removed := 0
	for _, id := range stale {
		if s.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("swept idle sessions")
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.r.Len()
}

// ClockRunning reports whether the session's tick loop is active.
func (s *Store) ClockRunning(id string) bool {
	return s.r.Running(id)
}

func (s *Store) startClock(id string) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.runClockLocked(id)
}

// stopClockIfOver releases the clock unless a restart got in first.
func (s *Store) stopClockIfOver(id string, sess *Session) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	if sess.Status().Terminal() {
		s.r.StopLoop(id)
	}
}

func (s *Store) runClockLocked(id string) {
	iv := realtime.NewInterval(time.Now().UTC(), s.tickEvery)
	s.r.RunLoop(id, func(sess *Session, now time.Time) (time.Time, []realtime.Event, bool) {
		ticked := false
		for n := iv.Due(now); n > 0; n-- {
			if sess.Tick() {
				ticked = true
			}
		}
		var events []realtime.Event
		if ticked {
			events = append(events, EventClock)
		}
		if sess.Status().Terminal() {
			return time.Time{}, events, true
		}
		return iv.NextWake(), events, false
	})
}
