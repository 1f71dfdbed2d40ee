package game

import (
	"errors"
	"fmt"
	"strings"

	"minesweep/internal/minefield"
)

// Difficulty selects one of the fixed board configurations.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Params is the board shape for a difficulty.
type Params struct {
	Rows  int
	Cols  int
	Mines int
}

var difficultyParams = map[Difficulty]Params{
	Easy:   {Rows: 8, Cols: 8, Mines: 10},
	Medium: {Rows: 16, Cols: 16, Mines: 40},
	Hard:   {Rows: 16, Cols: 30, Mines: 99},
}

// Difficulties lists every difficulty from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty accepts a difficulty name in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	_, ok := difficultyParams[d]
	return ok
}

func (d Difficulty) Params() (Params, bool) {
	p, ok := difficultyParams[d]
	return p, ok
}

// Label is the human-readable name shown in difficulty pickers.
func (d Difficulty) Label() string {
	p, ok := d.Params()
	if !ok {
		return string(d)
	}
	name := strings.ToUpper(string(d[:1])) + string(d[1:])
	return fmt.Sprintf("%s (%d×%d, %d mines)", name, p.Rows, p.Cols, p.Mines)
}

// GenerateBoard builds a fresh random board for d.
func GenerateBoard(d Difficulty, rng minefield.Rand) (*minefield.Board, error) {
	p, ok := d.Params()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(d))
	}
	return minefield.Generate(p.Rows, p.Cols, p.Mines, rng)
}
