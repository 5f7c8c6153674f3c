package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LineInput is an InputSource that prints the prompt and reads one line
// of input. The harness wires it to the terminal; tests feed it a
// scripted reader.
type LineInput struct {
	mu     sync.Mutex
	reader *bufio.Reader
	writer io.Writer
}

// NewLineInput creates a line-oriented input source.
func NewLineInput(r io.Reader, w io.Writer) *LineInput {
	return &LineInput{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// Ask prints the prompt and returns the next line, trimmed. An empty
// answer is an error so callers never proceed with a blank prompt or
// path.
func (l *LineInput) Ask(prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.writer, "%s: ", prompt); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := l.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", fmt.Errorf("empty answer to %q", prompt)
	}
	return answer, nil
}
