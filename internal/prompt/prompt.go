// Package prompt reads interactive answers and renders console output for
// the interactive merge flow.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/ryabkov82/template-merger/internal/table"
)

// ErrAborted is returned when the user interrupts input with ^C.
var ErrAborted = errors.New("input aborted")

// Prompter asks one question at a time. Answers are trimmed; io.EOF marks
// the end of input.
type Prompter interface {
	Ask(prompt string) (string, error)
	Close() error
}

// New returns a readline prompter when in is a terminal and a plain line
// reader otherwise (pipes, files, tests).
func New(in io.Reader, out io.Writer, historyFile string) (Prompter, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return NewTerminal(f, out, historyFile)
	}
	return NewLines(in, out), nil
}

// Lines reads answers line by line from any reader.
type Lines struct {
	sc  *bufio.Scanner
	out io.Writer
}

func NewLines(in io.Reader, out io.Writer) *Lines {
	return &Lines{sc: bufio.NewScanner(in), out: out}
}

func (l *Lines) Ask(prompt string) (string, error) {
	_, _ = fmt.Fprint(l.out, prompt)
	if !l.sc.Scan() {
		if err := l.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(l.sc.Text()), nil
}

func (l *Lines) Close() error { return nil }

// Terminal reads answers with line editing and history.
type Terminal struct {
	rl *readline.Instance
}

func NewTerminal(in io.ReadCloser, out io.Writer, historyFile string) (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           in,
		Stdout:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return &Terminal{rl: rl}, nil
}

func (t *Terminal) Ask(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) Close() error { return t.rl.Close() }

// Confirm asks a yes/no question; only "y" and "yes" count as yes.
func Confirm(p Prompter, prompt string) (bool, error) {
	answer, err := p.Ask(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ParseChoice parses a single 1-based number in [1, n].
func ParseChoice(input string, n int) (int, error) {
	input = strings.TrimSpace(input)
	i, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", table.ErrInvalidSelection, input)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("%w: %d is out of range 1-%d", table.ErrInvalidSelection, i, n)
	}
	return i, nil
}

// ParseSelection parses comma-separated 1-based numbers in [1, n]. Repeats
// are kept once, in first-seen order. An empty selection is invalid.
func ParseSelection(input string, n int) ([]int, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: nothing selected", table.ErrInvalidSelection)
	}

	var picked []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		i, err := ParseChoice(part, n)
		if err != nil {
			return nil, err
		}
		if !seen[i] {
			seen[i] = true
			picked = append(picked, i)
		}
	}
	return picked, nil
}
