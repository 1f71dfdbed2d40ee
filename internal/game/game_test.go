package game

import (
	"errors"
	"math/rand/v2"
	"testing"

	"minesweep/internal/minefield"
)

func fixedBoard(t *testing.T, rows, cols int, mines ...minefield.Pos) *minefield.Board {
	t.Helper()
	b, err := minefield.New(rows, cols, mines)
	if err != nil {
		t.Fatalf("minefield.New: %v", err)
	}
	return b
}

func countRevealed(snap Snapshot) int {
	n := 0
	for _, row := range snap.Cells {
		for _, c := range row {
			if c.Revealed {
				n++
			}
		}
	}
	return n
}

func TestDifficulty_Params(t *testing.T) {
	cases := []struct {
		d                 Difficulty
		rows, cols, mines int
	}{
		{Easy, 8, 8, 10},
		{Medium, 16, 16, 40},
		{Hard, 16, 30, 99},
	}
	for _, tc := range cases {
		p, ok := tc.d.Params()
		if !ok {
			t.Fatalf("%s: Params not found", tc.d)
		}
		if p.Rows != tc.rows || p.Cols != tc.cols || p.Mines != tc.mines {
			t.Errorf("%s: %+v, want %dx%d/%d", tc.d, p, tc.rows, tc.cols, tc.mines)
		}
		if p.Mines >= p.Rows*p.Cols {
			t.Errorf("%s: mines %d not below cells %d", tc.d, p.Mines, p.Rows*p.Cols)
		}
	}
	if len(Difficulties()) != 3 {
		t.Errorf("len(Difficulties) %d, want 3", len(Difficulties()))
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("  Medium ")
	if err != nil {
		t.Fatalf("ParseDifficulty: %v", err)
	}
	if d != Medium {
		t.Errorf("got %q, want medium", d)
	}
	if _, err := ParseDifficulty("insane"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("err %v, want ErrUnknownDifficulty", err)
	}
	if Easy.Label() != "Easy (8×8, 10 mines)" {
		t.Errorf("Label %q", Easy.Label())
	}
}

func TestGenerateBoard(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	b, err := GenerateBoard(Hard, rng)
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	if b.Rows() != 16 || b.Cols() != 30 || b.MineCount() != 99 {
		t.Errorf("board %dx%d/%d, want 16x30/99", b.Rows(), b.Cols(), b.MineCount())
	}
	if _, err := GenerateBoard("nope", rng); !errors.Is(err, ErrUnknownDifficulty) {
		t.Errorf("err %v, want ErrUnknownDifficulty", err)
	}
}

func TestSession_FloodToWin(t *testing.T) {
	// Mine in a corner: one reveal from the opposite corner clears the board.
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 2, Col: 2}))
	res := s.Reveal(0, 0)
	if !res.Changed || !res.Ended {
		t.Errorf("Changed=%v Ended=%v, want true true", res.Changed, res.Ended)
	}
	if len(res.Opened) != 8 {
		t.Errorf("opened %d, want 8", len(res.Opened))
	}
	if s.Status() != StatusWon {
		t.Errorf("Status %q, want won", s.Status())
	}
	snap := s.Snapshot()
	if snap.Cells[2][2].Revealed {
		t.Error("mine should stay hidden on a win")
	}
	if snap.Message != "You Win! Time: 0" {
		t.Errorf("Message %q", snap.Message)
	}
}

func TestSession_CenterMineWinsAfterEveryCell(t *testing.T) {
	// Every cell touches the centre mine, so nothing floods; the win comes
	// with the eighth reveal and not before.
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	var order []minefield.Pos
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r != 1 || c != 1 {
				order = append(order, minefield.Pos{Row: r, Col: c})
			}
		}
	}
	for i, p := range order {
		res := s.Reveal(p.Row, p.Col)
		if len(res.Opened) != 1 {
			t.Errorf("reveal %d opened %d cells, want 1", i, len(res.Opened))
		}
		last := i == len(order)-1
		if (s.Status() == StatusWon) != last {
			t.Fatalf("after reveal %d status %q", i, s.Status())
		}
	}
}

func TestSession_MineLoses(t *testing.T) {
	mines := []minefield.Pos{{Row: 0, Col: 0}, {Row: 2, Col: 3}, {Row: 3, Col: 1}}
	s := NewSession("s1", Easy, fixedBoard(t, 4, 4, mines...))
	s.ToggleFlag(2, 3)
	s.Tick()
	res := s.Reveal(0, 0)
	if !res.Ended || res.Status != StatusLost {
		t.Fatalf("Ended=%v Status=%q, want true lost", res.Ended, res.Status)
	}
	if len(res.Opened) != len(mines) {
		t.Errorf("Opened %v, want all %d mines", res.Opened, len(mines))
	}
	snap := s.Snapshot()
	for _, p := range mines {
		c := snap.Cells[p.Row][p.Col]
		if !c.Revealed || !c.Mine {
			t.Errorf("mine (%d,%d) Revealed=%v Mine=%v", p.Row, p.Col, c.Revealed, c.Mine)
		}
	}
	if got := countRevealed(snap); got != len(mines) {
		t.Errorf("revealed %d cells, want only the %d mines", got, len(mines))
	}
	if snap.Message != "Game Over!" {
		t.Errorf("Message %q", snap.Message)
	}
	if snap.ElapsedSeconds != 1 {
		t.Errorf("ElapsedSeconds %d, want 1", snap.ElapsedSeconds)
	}
}

func TestSession_TerminalIsImmutable(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 4, 4, minefield.Pos{Row: 0, Col: 0}, minefield.Pos{Row: 3, Col: 3}))
	s.Reveal(0, 0)
	before := s.Snapshot()
	if res := s.Reveal(2, 0); res.Changed {
		t.Error("Reveal after loss changed state")
	}
	if res := s.ToggleFlag(1, 2); res.Changed {
		t.Error("ToggleFlag after loss changed state")
	}
	if s.Tick() {
		t.Error("Tick after loss advanced the clock")
	}
	after := s.Snapshot()
	if countRevealed(after) != countRevealed(before) || after.Flags != before.Flags || after.ElapsedSeconds != before.ElapsedSeconds {
		t.Error("terminal session changed")
	}
}

func TestSession_FlagRevealExclusion(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	if res := s.ToggleFlag(0, 0); !res.Changed {
		t.Fatal("flagging a hidden cell should change it")
	}
	if res := s.Reveal(0, 0); res.Changed {
		t.Error("Reveal on flagged cell should be a no-op")
	}
	s.ToggleFlag(0, 0)
	s.Reveal(0, 0)
	if res := s.ToggleFlag(0, 0); res.Changed {
		t.Error("ToggleFlag on revealed cell should be a no-op")
	}
	// flagged mine is not triggered
	s.ToggleFlag(1, 1)
	if res := s.Reveal(1, 1); res.Changed || s.Status() != StatusPlaying {
		t.Error("Reveal on flagged mine should be a no-op")
	}
}

func TestSession_OutOfRangeIsNoop(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	if res := s.Reveal(-1, 5); res.Changed {
		t.Error("out of range reveal changed state")
	}
	if res := s.ToggleFlag(3, 0); res.Changed {
		t.Error("out of range flag changed state")
	}
}

func TestSession_SnapshotHidesUnrevealed(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	s.Reveal(0, 0)
	s.ToggleFlag(2, 2)
	snap := s.Snapshot()
	if snap.Cells[1][1].Mine {
		t.Error("hidden mine leaked in snapshot")
	}
	if snap.Cells[0][0].Adjacent != 1 {
		t.Errorf("Adjacent %d, want 1", snap.Cells[0][0].Adjacent)
	}
	if snap.Cells[2][2].Adjacent != 0 || !snap.Cells[2][2].Flagged {
		t.Error("flagged hidden cell should show only the flag")
	}
	if snap.Flags != 1 || snap.MinesLeft != 0 {
		t.Errorf("Flags %d MinesLeft %d, want 1 0", snap.Flags, snap.MinesLeft)
	}
	if snap.Rows != 3 || snap.Cols != 3 || snap.Mines != 1 {
		t.Errorf("dims %dx%d/%d", snap.Rows, snap.Cols, snap.Mines)
	}
}

func TestSession_RestartMidGame(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	for i := 0; i < 5; i++ {
		s.Tick()
	}
	s.Reveal(0, 0)
	if s.Elapsed() != 5 {
		t.Fatalf("Elapsed %d, want 5", s.Elapsed())
	}
	board, err := GenerateBoard(Medium, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("GenerateBoard: %v", err)
	}
	s.Restart(Medium, board)
	snap := s.Snapshot()
	if snap.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds %d, want 0", snap.ElapsedSeconds)
	}
	if snap.Status != StatusPlaying {
		t.Errorf("Status %q, want playing", snap.Status)
	}
	if snap.Difficulty != Medium || snap.Rows != 16 || snap.Cols != 16 || snap.Mines != 40 {
		t.Errorf("restarted as %s %dx%d/%d", snap.Difficulty, snap.Rows, snap.Cols, snap.Mines)
	}
	if countRevealed(snap) != 0 {
		t.Error("restarted board has revealed cells")
	}
}

func TestSession_RestartAfterLoss(t *testing.T) {
	s := NewSession("s1", Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 1, Col: 1}))
	s.Reveal(1, 1)
	if s.Status() != StatusLost {
		t.Fatalf("Status %q, want lost", s.Status())
	}
	s.Restart(Easy, fixedBoard(t, 3, 3, minefield.Pos{Row: 2, Col: 2}))
	if s.Status() != StatusPlaying {
		t.Errorf("Status %q, want playing", s.Status())
	}
	if !s.Tick() {
		t.Error("clock should run again after restart")
	}
}
