// Package terminal reads user input line by line.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// ErrInterrupted is returned by ReadLine when the user presses Ctrl-C.
var ErrInterrupted = errors.New("interrupted")

// LineReader reads one line of input after showing prompt. It returns io.EOF
// when input ends and ErrInterrupted on Ctrl-C.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// Readline is an interactive LineReader with history and line editing.
type Readline struct {
	rl *readline.Instance
}

// NewReadline opens an interactive reader. historyFile may be empty.
func NewReadline(historyFile string) (*Readline, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       historyFile,
		HistoryLimit:      500,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising readline: %w", err)
	}
	return &Readline{rl: rl}, nil
}

func (r *Readline) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	if err != nil {
		return "", err
	}
	return line, nil
}

// Stdout is a writer that does not corrupt the line being edited.
func (r *Readline) Stdout() io.Writer { return r.rl.Stdout() }

func (r *Readline) Close() error { return r.rl.Close() }

// Scanner is a LineReader over any reader. It is used when stdin is not a
// terminal and in tests.
type Scanner struct {
	sc  *bufio.Scanner
	out io.Writer
}

// NewScanner reads lines from in and writes prompts to out.
func NewScanner(in io.Reader, out io.Writer) *Scanner {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &Scanner{sc: sc, out: out}
}

func (s *Scanner) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(s.out, prompt)
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(s.sc.Text(), "\r"), nil
}

func (s *Scanner) Close() error { return nil }

// Open returns a Readline when stdin is a terminal and a Scanner otherwise,
// along with the writer output should go to.
func Open(historyFile string) (LineReader, io.Writer, error) {
	if !readline.IsTerminal(int(os.Stdin.Fd())) {
		return NewScanner(os.Stdin, os.Stdout), os.Stdout, nil
	}
	r, err := NewReadline(historyFile)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Stdout(), nil
}
