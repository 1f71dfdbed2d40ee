package game

import (
	"fmt"
	"sync"
	"time"

	"minesweep/internal/minefield"
)

// Status is the state machine of a single playthrough.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Terminal reports whether no further moves are accepted.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// Session holds the state for one playthrough. It owns exactly one board,
// replaced wholesale on Restart.
type Session struct {
	mu         sync.Mutex
	ID         string
	CreatedAt  time.Time
	difficulty Difficulty
	status     Status
	elapsed    int
	board      *minefield.Board
	lastActive time.Time
	ownerToken string
}

// Result describes what a player action did.
type Result struct {
	Changed bool
	// Opened lists every newly revealed cell, including all mines on a loss.
	Opened []minefield.Pos
	Status  Status
	// Ended is true only for the action that moved the session to a terminal status.
	Ended bool
}

// NewSession starts a playthrough on board.
func NewSession(id string, d Difficulty, board *minefield.Board) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		difficulty: d,
		status:     StatusPlaying,
		board:      board,
		lastActive: now,
	}
}

// Reveal is the primary action on (row, col).
func (s *Session) Reveal(row, col int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{Status: s.status}
	if s.status != StatusPlaying {
		return res
	}
	cell, ok := s.board.Cell(row, col)
	if !ok || cell.IsRevealed || cell.IsFlagged {
		return res
	}
	s.lastActive = time.Now().UTC()
	if cell.IsMine {
		opened := s.board.RevealMines()
		s.status = StatusLost
		return Result{Changed: true, Opened: opened, Status: s.status, Ended: true}
	}
	res.Opened = s.board.Reveal(row, col)
	res.Changed = len(res.Opened) > 0
	if s.board.Cleared() {
		s.status = StatusWon
		res.Ended = true
	}
	res.Status = s.status
	return res
}

// ToggleFlag is the secondary action on (row, col).
func (s *Session) ToggleFlag(row, col int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{Status: s.status}
	if s.status != StatusPlaying {
		return res
	}
	res.Changed = s.board.ToggleFlag(row, col)
	if res.Changed {
		s.lastActive = time.Now().UTC()
	}
	return res
}

// Tick advances the clock by one second while playing and reports whether it
// did.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return false
	}
	s.elapsed++
	return true
}

// Restart discards the board and starts over on a new one.
func (s *Session) Restart(d Difficulty, board *minefield.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty = d
	s.board = board
	s.status = StatusPlaying
	s.elapsed = 0
	s.lastActive = time.Now().UTC()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

func (s *Session) Difficulty() Difficulty {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.difficulty
}

// IsOwner reports whether token is the one handed to the session's creator.
func (s *Session) IsOwner(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token != "" && token == s.ownerToken
}

// LastActive is the time of the last state-changing action.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// CellView is what the presentation layer may know about a cell. Mine and
// Adjacent are only filled in once the cell is revealed.
type CellView struct {
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	Revealed bool `json:"revealed"`
	Flagged  bool `json:"flagged"`
	Mine     bool `json:"mine,omitempty"`
	Adjacent int  `json:"adjacent,omitempty"`
}

// Snapshot captures the state needed for rendering.
type Snapshot struct {
	ID             string       `json:"id"`
	Difficulty     Difficulty   `json:"difficulty"`
	Status         Status       `json:"status"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	Mines          int          `json:"mines"`
	Flags          int          `json:"flags"`
	MinesLeft      int          `json:"minesLeft"`
	Cells          [][]CellView `json:"cells"`
	Message        string       `json:"message,omitempty"`
}

// Snapshot returns a consistent view of the current session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.board
	cells := make([][]CellView, b.Rows())
	for r := range cells {
		cells[r] = make([]CellView, b.Cols())
		for c := range cells[r] {
			cell, _ := b.Cell(r, c)
			v := CellView{Row: r, Col: c, Revealed: cell.IsRevealed, Flagged: cell.IsFlagged}
			if cell.IsRevealed {
				v.Mine = cell.IsMine
				v.Adjacent = cell.SurroundingMines
			}
			cells[r][c] = v
		}
	}
	flags := b.FlagCount()
	return Snapshot{
		ID:             s.ID,
		Difficulty:     s.difficulty,
		Status:         s.status,
		ElapsedSeconds: s.elapsed,
		Rows:           b.Rows(),
		Cols:           b.Cols(),
		Mines:          b.MineCount(),
		Flags:          flags,
		MinesLeft:      b.MineCount() - flags,
		Cells:          cells,
		Message:        statusMessage(s.status, s.elapsed),
	}
}

func statusMessage(status Status, elapsed int) string {
	switch status {
	case StatusLost:
		return "Game Over!"
	case StatusWon:
		return fmt.Sprintf("You Win! Time: %d", elapsed)
	default:
		return ""
	}
}
