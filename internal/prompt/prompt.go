// Package prompt reads secrets from a human and clears them off the screen.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ErrNoInput is returned when prompting is disabled.
var ErrNoInput = errors.New("interactive input disabled")

// Frontend is the interactive side of a secret lookup.
type Frontend interface {
	// ReadLine shows prompt and blocks until one line of input is available.
	ReadLine(prompt string) (string, error)
	// ClearTranscript removes the prompt and any echoed input from view.
	ClearTranscript()
}

// Terminal prompts on stderr and reads from stdin. When stdin is a terminal
// input is not echoed; otherwise one line is read as-is.
type Terminal struct {
	in     io.Reader
	fd     int
	isTTY  bool
	out    *termenv.Output
	styled bool
	reader *bufio.Reader
	lines  int
}

// NewTerminal returns a Terminal on the process's stdin and stderr.
func NewTerminal() *Terminal {
	fd := int(os.Stdin.Fd())
	isTTY := term.IsTerminal(fd)
	return &Terminal{
		in:     os.Stdin,
		fd:     fd,
		isTTY:  isTTY,
		out:    termenv.NewOutput(os.Stderr),
		styled: isTTY && term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// NewTerminalWith returns a Terminal reading lines from in and writing
// prompts to out, with no terminal handling.
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  in,
		fd:  -1,
		out: termenv.NewOutput(out),
	}
}

var promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))

func (t *Terminal) ReadLine(prompt string) (string, error) {
	text := prompt
	if t.styled {
		text = promptStyle.Render(prompt)
	}
	fmt.Fprint(t.out, text)
	t.lines = 1 + strings.Count(prompt, "\n")

	if t.isTTY {
		b, err := term.ReadPassword(t.fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(b), nil
	}

	if t.reader == nil {
		t.reader = bufio.NewReader(t.in)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ClearTranscript erases the lines written by the last ReadLine. It is a
// no-op when the output is not a terminal.
func (t *Terminal) ClearTranscript() {
	if !t.isTTY || t.lines == 0 {
		return
	}
	for i := 0; i < t.lines; i++ {
		t.out.CursorPrevLine(1)
		t.out.ClearLine()
	}
	t.lines = 0
}

// NoInput refuses to prompt. It backs the --no-input flag.
type NoInput struct{}

func (NoInput) ReadLine(string) (string, error) { return "", ErrNoInput }

func (NoInput) ClearTranscript() {}
