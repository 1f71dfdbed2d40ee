// Package minefield implements the board engine: mine placement, adjacency
// counts, flood reveal and flags. It holds no clock and no session state.
package minefield

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrInvalidSize  = errors.New("minefield: rows and cols must be positive and their product must fit in an int")
	ErrTooManyMines = errors.New("minefield: mine count must be in [0, rows*cols)")
	ErrInvalidMine  = errors.New("minefield: mine position out of range or duplicated")
)

// Rand is the random source used for mine placement. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Pos is a grid coordinate.
type Pos struct {
	Row int
	Col int
}

// Cell is one grid position.
type Cell struct {
	Row              int
	Col              int
	IsMine           bool
	IsRevealed       bool
	IsFlagged        bool
	SurroundingMines int
}

// Board is a fixed-size grid of cells stored row-major.
type Board struct {
	rows      int
	cols      int
	mineCount int
	cells     []Cell
}

// denseThreshold is the mine density above which placement switches from
// rejection sampling to a partial shuffle of all indices.
const denseThreshold = 0.5

// Generate builds a rows×cols board with mineCount mines placed uniformly at
// random without replacement.
func Generate(rows, cols, mineCount int, rng Rand) (*Board, error) {
	b, err := allocate(rows, cols)
	if err != nil {
		return nil, err
	}
	size := rows * cols
	if mineCount < 0 || mineCount >= size {
		return nil, fmt.Errorf("%w: %d mines on %dx%d", ErrTooManyMines, mineCount, rows, cols)
	}
	if float64(mineCount) > denseThreshold*float64(size) {
		b.shuffleMines(mineCount, rng)
	} else {
		b.sampleMines(mineCount, rng)
	}
	b.mineCount = mineCount
	b.countAdjacent()
	return b, nil
}

// New builds a board with mines at exactly the given positions.
func New(rows, cols int, mines []Pos) (*Board, error) {
	b, err := allocate(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(mines) >= rows*cols {
		return nil, fmt.Errorf("%w: %d mines on %dx%d", ErrTooManyMines, len(mines), rows, cols)
	}
	for _, p := range mines {
		if !b.InBounds(p.Row, p.Col) || b.at(p.Row, p.Col).IsMine {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrInvalidMine, p.Row, p.Col)
		}
		b.at(p.Row, p.Col).IsMine = true
	}
	b.mineCount = len(mines)
	b.countAdjacent()
	return b, nil
}

func allocate(rows, cols int) (*Board, error) {
	if rows <= 0 || cols <= 0 || rows > math.MaxInt/cols {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, rows, cols)
	}
	cells := make([]Cell, rows*cols)
	for i := range cells {
		cells[i].Row = i / cols
		cells[i].Col = i % cols
	}
	return &Board{rows: rows, cols: cols, cells: cells}, nil
}

func (b *Board) sampleMines(count int, rng Rand) {
	for remaining := count; remaining > 0; {
		c := &b.cells[rng.IntN(len(b.cells))]
		if c.IsMine {
			continue
		}
		c.IsMine = true
		remaining--
	}
}

// shuffleMines picks count indices with a partial Fisher-Yates shuffle.
func (b *Board) shuffleMines(count int, rng Rand) {
	idx := lo.Range(len(b.cells))
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		b.cells[idx[i]].IsMine = true
	}
}

func (b *Board) countAdjacent() {
	for i := range b.cells {
		c := &b.cells[i]
		c.SurroundingMines = lo.CountBy(b.Neighbors(c.Row, c.Col), func(p Pos) bool {
			return b.at(p.Row, p.Col).IsMine
		})
	}
}

func (b *Board) at(row, col int) *Cell {
	return &b.cells[row*b.cols+col]
}

func (b *Board) Rows() int      { return b.rows }
func (b *Board) Cols() int      { return b.cols }
func (b *Board) MineCount() int { return b.mineCount }

// InBounds reports whether (row, col) lies on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}

// Cell returns a copy of the cell at (row, col).
func (b *Board) Cell(row, col int) (Cell, bool) {
	if !b.InBounds(row, col) {
		return Cell{}, false
	}
	return *b.at(row, col), true
}

// Neighbors returns the up to eight positions around (row, col), clipped at
// the edges.
func (b *Board) Neighbors(row, col int) []Pos {
	out := make([]Pos, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if b.InBounds(row+dr, col+dc) {
				out = append(out, Pos{Row: row + dr, Col: col + dc})
			}
		}
	}
	return out
}

// Reveal opens (row, col) and, when it has no adjacent mines, every cell
// reachable through zero-count cells. Flagged cells are never opened. It
// returns the positions opened by this call, nil when nothing changed.
//
// Callers must not reveal a mine through Reveal; use RevealMines.
func (b *Board) Reveal(row, col int) []Pos {
	if !b.InBounds(row, col) {
		return nil
	}
	start := b.at(row, col)
	if start.IsRevealed || start.IsFlagged {
		return nil
	}
	start.IsRevealed = true
	opened := []Pos{{Row: row, Col: col}}
	stack := []Pos{{Row: row, Col: col}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b.at(p.Row, p.Col).SurroundingMines != 0 {
			continue
		}
		for _, n := range b.Neighbors(p.Row, p.Col) {
			c := b.at(n.Row, n.Col)
			if c.IsRevealed || c.IsFlagged || c.IsMine {
				continue
			}
			c.IsRevealed = true
			opened = append(opened, n)
			stack = append(stack, n)
		}
	}
	return opened
}

// RevealMines opens every mine, flagged or not, and returns the positions it
// newly opened.
func (b *Board) RevealMines() []Pos {
	var opened []Pos
	for i := range b.cells {
		c := &b.cells[i]
		if !c.IsMine || c.IsRevealed {
			continue
		}
		c.IsRevealed = true
		c.IsFlagged = false
		opened = append(opened, Pos{Row: c.Row, Col: c.Col})
	}
	return opened
}

// ToggleFlag flips the flag on a hidden cell and reports whether anything
// changed.
func (b *Board) ToggleFlag(row, col int) bool {
	if !b.InBounds(row, col) {
		return false
	}
	c := b.at(row, col)
	if c.IsRevealed {
		return false
	}
	c.IsFlagged = !c.IsFlagged
	return true
}

// Cleared reports whether every non-mine cell has been revealed.
func (b *Board) Cleared() bool {
	return lo.EveryBy(b.cells, func(c Cell) bool {
		return c.IsMine || c.IsRevealed
	})
}

func (b *Board) FlagCount() int {
	return lo.CountBy(b.cells, func(c Cell) bool { return c.IsFlagged })
}

func (b *Board) RevealedCount() int {
	return lo.CountBy(b.cells, func(c Cell) bool { return c.IsRevealed })
}

// String renders the board one row per line: "-" hidden, "F" flagged,
// "*" revealed mine, "." revealed zero, otherwise the adjacency count.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.rows; r++ {
		for c := 0; c < b.cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(Symbol(*b.at(r, c)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Symbol is the single-character rendering of a cell used by String.
func Symbol(c Cell) string {
	switch {
	case c.IsFlagged:
		return "F"
	case !c.IsRevealed:
		return "-"
	case c.IsMine:
		return "*"
	case c.SurroundingMines == 0:
		return "."
	default:
		return strconv.Itoa(c.SurroundingMines)
	}
}
