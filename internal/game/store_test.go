package game

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"minesweep/internal/minefield"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// cornerMine builds boards of the right size for d with a single mine at the
// bottom-right corner, so (0,0) always wins in one reveal and the corner loses.
func cornerMine(d Difficulty) (*minefield.Board, error) {
	p, _ := d.Params()
	return minefield.New(p.Rows, p.Cols, []minefield.Pos{{Row: p.Rows - 1, Col: p.Cols - 1}})
}

func newTestStore(tick time.Duration) *Store {
	return NewStore(
		WithLogger(quietLogger()),
		WithBoardFactory(cornerMine),
		WithTickInterval(tick),
	)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("NewStore returned nil")
	}
}

func TestStore_CreateSession_GetSession(t *testing.T) {
	s := NewStore(WithLogger(quietLogger()))
	sess, err := s.CreateSession(Easy)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer s.Remove(sess.ID)
	if sess.ID == "" {
		t.Error("session ID is empty")
	}
	if sess.Status() != StatusPlaying {
		t.Errorf("Status %q, want playing", sess.Status())
	}
	snap := sess.Snapshot()
	if snap.Rows != 8 || snap.Cols != 8 || snap.Mines != 10 {
		t.Errorf("board %dx%d/%d, want 8x8/10", snap.Rows, snap.Cols, snap.Mines)
	}

	got, ok := s.GetSession(sess.ID)
	if !ok {
		t.Fatal("GetSession returned false for existing session")
	}
	if got != sess {
		t.Error("GetSession returned different pointer")
	}
	if _, ok := s.GetSession("nonexistent"); ok {
		t.Error("GetSession should return false for missing ID")
	}
	if !s.ClockRunning(sess.ID) {
		t.Error("clock should run for a new session")
	}
}

func TestStore_CreateSession_UnknownDifficulty(t *testing.T) {
	s := NewStore(WithLogger(quietLogger()))
	if _, err := s.CreateSession("extreme"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("err %v, want ErrUnknownDifficulty", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len %d, want 0", s.Len())
	}
}

func TestStore_UnknownSession(t *testing.T) {
	s := newTestStore(time.Hour)
	if _, err := s.Reveal("missing", 0, 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Reveal err %v, want ErrSessionNotFound", err)
	}
	if _, err := s.ToggleFlag("missing", 0, 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ToggleFlag err %v, want ErrSessionNotFound", err)
	}
	if err := s.Restart("missing", Easy); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Restart err %v, want ErrSessionNotFound", err)
	}
}

func TestStore_ClockTicksWhilePlaying(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	waitFor(t, func() bool { return sess.Elapsed() >= 3 })
}

func TestStore_ClockPublishes(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	hub, ok := s.Broadcaster(sess.ID)
	if !ok {
		t.Fatal("no broadcaster for session")
	}
	ch := hub.Subscribe()
	select {
	case e := <-ch:
		if e != EventClock {
			t.Errorf("event %q, want clock", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no clock event")
	}
}

func TestStore_ClockStopsOnWin(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	waitFor(t, func() bool { return sess.Elapsed() >= 1 })

	res, err := s.Reveal(sess.ID, 0, 0)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if res.Status != StatusWon {
		t.Fatalf("Status %q, want won", res.Status)
	}
	if s.ClockRunning(sess.ID) {
		t.Error("clock still running after win")
	}
	frozen := sess.Elapsed()
	time.Sleep(30 * time.Millisecond)
	if sess.Elapsed() != frozen {
		t.Errorf("Elapsed moved from %d to %d after win", frozen, sess.Elapsed())
	}
}

func TestStore_ClockStopsOnLoss(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	hub, _ := s.Broadcaster(sess.ID)
	ch := hub.Subscribe()

	res, _ := s.Reveal(sess.ID, 7, 7)
	if res.Status != StatusLost {
		t.Fatalf("Status %q, want lost", res.Status)
	}
	if s.ClockRunning(sess.ID) {
		t.Error("clock still running after loss")
	}
	sawStatus := false
	for !sawStatus {
		select {
		case e := <-ch:
			sawStatus = e == EventStatus
		case <-time.After(time.Second):
			t.Fatal("no status event after loss")
		}
	}
}

func TestStore_RestartResetsClockAndBoard(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	waitFor(t, func() bool { return sess.Elapsed() >= 5 })

	if err := s.Restart(sess.ID, Hard); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	snap := sess.Snapshot()
	if snap.ElapsedSeconds > 1 {
		t.Errorf("ElapsedSeconds %d right after restart, want ~0", snap.ElapsedSeconds)
	}
	if snap.Rows != 16 || snap.Cols != 30 || snap.Difficulty != Hard {
		t.Errorf("restarted as %s %dx%d", snap.Difficulty, snap.Rows, snap.Cols)
	}
	if !s.ClockRunning(sess.ID) {
		t.Error("clock should run after restart")
	}
}

func TestStore_RestartAfterWinRestartsClock(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	s.Reveal(sess.ID, 0, 0)
	if s.ClockRunning(sess.ID) {
		t.Fatal("clock should stop on win")
	}
	if err := s.Restart(sess.ID, Easy); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	waitFor(t, func() bool { return sess.Elapsed() >= 2 })
}

func TestStore_RepeatedRestartsKeepOneClock(t *testing.T) {
	// With several loops alive the clock would run several times faster.
	s := newTestStore(20 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	for i := 0; i < 10; i++ {
		if err := s.Restart(sess.ID, Easy); err != nil {
			t.Fatalf("Restart: %v", err)
		}
	}
	time.Sleep(110 * time.Millisecond)
	if got := sess.Elapsed(); got > 6 {
		t.Errorf("Elapsed %d after ~5 periods, more than one clock is running", got)
	}
}

func TestStore_ToggleFlagPublishes(t *testing.T) {
	s := newTestStore(time.Hour)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	hub, _ := s.Broadcaster(sess.ID)
	ch := hub.Subscribe()

	res, err := s.ToggleFlag(sess.ID, 3, 3)
	if err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if !res.Changed {
		t.Error("ToggleFlag should change a hidden cell")
	}
	if got := <-ch; got != EventBoard {
		t.Errorf("event %q, want board", got)
	}
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(5 * time.Millisecond)
	sess, _ := s.CreateSession(Easy)
	if !s.Remove(sess.ID) {
		t.Fatal("Remove returned false")
	}
	if s.ClockRunning(sess.ID) {
		t.Error("clock still running after Remove")
	}
	if _, ok := s.GetSession(sess.ID); ok {
		t.Error("session still present after Remove")
	}
}

func TestStore_Sweep(t *testing.T) {
	s := newTestStore(time.Hour)
	old, _ := s.CreateSession(Easy)
	fresh, _ := s.CreateSession(Easy)
	defer s.Remove(fresh.ID)

	now := time.Now().UTC().Add(time.Hour)
	s.Reveal(fresh.ID, 0, 0)
	// Only sessions idle longer than the limit go.
	if n := s.Sweep(2*time.Hour, now); n != 0 {
		t.Errorf("Sweep removed %d, want 0", n)
	}
	if n := s.Sweep(30*time.Minute, now); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if _, ok := s.GetSession(old.ID); ok {
		t.Error("idle session not swept")
	}
}

func TestStore_OwnerToken(t *testing.T) {
	s := newTestStore(time.Hour)
	sess, _ := s.CreateSession(Easy)
	defer s.Remove(sess.ID)
	token, ok := s.OwnerToken(sess.ID)
	if !ok || token == "" {
		t.Fatal("OwnerToken missing for new session")
	}
	if !sess.IsOwner(token) {
		t.Error("IsOwner should accept the owner token")
	}
	if sess.IsOwner("") || sess.IsOwner("someone-else") {
		t.Error("IsOwner should reject other tokens")
	}
	if _, ok := s.OwnerToken("missing"); ok {
		t.Error("OwnerToken should fail for unknown session")
	}
}
