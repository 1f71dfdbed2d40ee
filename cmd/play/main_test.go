package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"minesweep/internal/game"
	"minesweep/internal/minefield"
)

func testStore() *game.Store {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return game.NewStore(
		game.WithLogger(log),
		game.WithTickInterval(time.Hour),
		game.WithBoardFactory(func(d game.Difficulty) (*minefield.Board, error) {
			p, _ := d.Params()
			return minefield.New(p.Rows, p.Cols, []minefield.Pos{{Row: 0, Col: 0}})
		}),
	)
}

func TestRun_WinByFlood(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("f 0 0\nr 7 7\nq\n")
	if err := run(testStore(), game.Easy, in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "You Win! Time: 0") {
		t.Errorf("missing win message in:\n%s", got)
	}
	if !strings.Contains(got, "mines left: 0") {
		t.Error("flag not counted")
	}
}

func TestRun_Loss(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("r 0 0\n")
	if err := run(testStore(), game.Easy, in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Game Over!") {
		t.Errorf("missing loss message in:\n%s", out.String())
	}
}

func TestRun_BadInput(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("r x 1\nzap\nn impossible\nn hard\nq\n")
	if err := run(testStore(), game.Easy, in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{`bad row "x"`, `unknown command "zap"`, "unknown difficulty", "Hard (16×30, 99 mines)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestSymbol(t *testing.T) {
	cases := []struct {
		c    game.CellView
		want string
	}{
		{game.CellView{}, "-"},
		{game.CellView{Flagged: true}, "F"},
		{game.CellView{Revealed: true, Mine: true}, "*"},
		{game.CellView{Revealed: true}, "."},
		{game.CellView{Revealed: true, Adjacent: 3}, "3"},
	}
	for _, tc := range cases {
		if got := symbol(tc.c); got != tc.want {
			t.Errorf("symbol(%+v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}
