package dedupe

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/term"
)

// TermReader reads a single keypress from stdin without waiting for Enter.
// When stdin is not a terminal (pipes, CI) it falls back to reading the
// first character of a buffered line.
type TermReader struct {
	fallback *bufio.Reader
}

// NewTermReader creates a TermReader on stdin.
func NewTermReader() *TermReader {
	return &TermReader{fallback: bufio.NewReader(os.Stdin)}
}

// ReadDecision blocks until one character is available.
func (r *TermReader) ReadDecision() (rune, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return r.readBuffered()
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return r.readBuffered()
	}
	defer term.Restore(fd, oldState)

	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return rune(buf[0]), nil
}

func (r *TermReader) readBuffered() (rune, error) {
	for {
		ch, _, err := r.fallback.ReadRune()
		if err != nil {
			return 0, err
		}
		if ch == '\n' || ch == '\r' {
			continue
		}
		return ch, nil
	}
}
