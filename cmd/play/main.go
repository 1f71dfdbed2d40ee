// Command play is a line-oriented terminal client driving the same session
// store as the web server.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"minesweep/internal/config"
	"minesweep/internal/game"
	"minesweep/internal/logging"
)

const help = `commands:
  r <row> <col>   reveal a cell
  f <row> <col>   toggle a flag
  n [difficulty]  new game (easy, medium, hard)
  p               print the board
  q               quit`

func main() {
	difficulty := flag.String("difficulty", "", "easy, medium or hard (default from DEFAULT_DIFFICULTY)")
	flag.Parse()

	cfg := config.Load(logrus.StandardLogger())
	log := logging.New("warn", cfg.LogFormat)
	if *difficulty == "" {
		*difficulty = cfg.DefaultDifficulty
	}
	d, err := game.ParseDifficulty(*difficulty)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store := game.NewStore(game.WithLogger(log))
	if err := run(store, d, os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Error("play")
		os.Exit(1)
	}
}

var errQuit = errors.New("quit")

func run(store *game.Store, d game.Difficulty, in io.Reader, out io.Writer) error {
	sess, err := store.CreateSession(d)
	if err != nil {
		return err
	}
	defer store.Remove(sess.ID)

	fmt.Fprintln(out, help)
	printBoard(out, sess.Snapshot())
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		err := execute(store, sess, scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintln(out, err)
			continue
		}
		printBoard(out, sess.Snapshot())
	}
}

func execute(store *game.Store, sess *game.Session, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("empty command\n%s", help)
	}
	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return errQuit
	case "p", "print":
		return nil
	case "n", "new":
		d := sess.Difficulty()
		if len(fields) > 1 {
			parsed, err := game.ParseDifficulty(fields[1])
			if err != nil {
				return err
			}
			d = parsed
		}
		return store.Restart(sess.ID, d)
	case "r", "reveal", "f", "flag":
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <row> <col>", fields[0])
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad row %q", fields[1])
		}
		col, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad col %q", fields[2])
		}
		if fields[0][0] == 'r' {
			_, err = store.Reveal(sess.ID, row, col)
		} else {
			_, err = store.ToggleFlag(sess.ID, row, col)
		}
		return err
	default:
		return fmt.Errorf("unknown command %q\n%s", fields[0], help)
	}
}

func printBoard(out io.Writer, snap game.Snapshot) {
	var b strings.Builder
	b.WriteString("    ")
	for c := 0; c < snap.Cols; c++ {
		fmt.Fprintf(&b, "%3d", c)
	}
	b.WriteByte('\n')
	for r, row := range snap.Cells {
		fmt.Fprintf(&b, "%3d ", r)
		for _, cell := range row {
			fmt.Fprintf(&b, "%3s", symbol(cell))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s  mines left: %d  time: %ds\n", snap.Difficulty.Label(), snap.MinesLeft, snap.ElapsedSeconds)
	if snap.Message != "" {
		b.WriteString(snap.Message)
		b.WriteByte('\n')
	}
	io.WriteString(out, b.String())
}

func symbol(c game.CellView) string {
	switch {
	case c.Flagged:
		return "F"
	case !c.Revealed:
		return "-"
	case c.Mine:
		return "*"
	case c.Adjacent == 0:
		return "."
	default:
		return strconv.Itoa(c.Adjacent)
	}
}
