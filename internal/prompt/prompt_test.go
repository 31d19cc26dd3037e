package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalReadLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "newline terminated", input: "hunter2\n", expected: "hunter2"},
		{name: "crlf terminated", input: "hunter2\r\n", expected: "hunter2"},
		{name: "eof without newline", input: "hunter2", expected: "hunter2"},
		{name: "empty line", input: "\n", expected: ""},
		{name: "surrounding spaces kept", input: "  pass word  \n", expected: "  pass word  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := NewTerminalWith(strings.NewReader(tt.input), &out)

			got, err := term.ReadLine("KEY[alice]")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, "KEY[alice]", out.String())
		})
	}
}

func TestTerminalReadsSuccessiveLines(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminalWith(strings.NewReader("one\ntwo\n"), &out)

	first, err := term.ReadLine("a: ")
	require.NoError(t, err)
	second, err := term.ReadLine("b: ")
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
}

func TestTerminalReadLineEOF(t *testing.T) {
	term := NewTerminalWith(strings.NewReader(""), &bytes.Buffer{})

	_, err := term.ReadLine("KEY[alice]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read input")
}

func TestTerminalClearTranscriptNonTTY(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminalWith(strings.NewReader("x\n"), &out)

	_, err := term.ReadLine("p")
	require.NoError(t, err)
	term.ClearTranscript()

	assert.Equal(t, "p", out.String(), "nothing is written when not on a terminal")
}

func TestNoInput(t *testing.T) {
	var f Frontend = NoInput{}

	_, err := f.ReadLine("KEY[alice]")
	assert.ErrorIs(t, err, ErrNoInput)
	f.ClearTranscript()
}
