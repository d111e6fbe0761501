package trust

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConsoleInput asks questions on a terminal.
type ConsoleInput struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewConsoleInput reads answers from in and writes prompts to out.
func NewConsoleInput(in io.Reader, out io.Writer) *ConsoleInput {
	return &ConsoleInput{reader: bufio.NewReader(in), out: out}
}

// Confirm prints prompt and waits for an answer. End of input is a "no".
func (c *ConsoleInput) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s (yes/no): ", prompt)

	response, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return false, nil
		}
		return false, fmt.Errorf("read input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y", nil
}

// AutoInput answers every question the same way (--yes / --no).
type AutoInput bool

// Confirm returns the fixed answer.
func (a AutoInput) Confirm(string) (bool, error) {
	return bool(a), nil
}
