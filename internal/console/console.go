// Package console renders menus and messages and reads user input.
// It works on plain io.Reader/io.Writer so the workflow can run headless in tests.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrInvalidChoice is returned by ReadChoice for non-numeric or out-of-range input.
var ErrInvalidChoice = errors.New("invalid choice")

// Console is an input/output port. Input lines are read by a single goroutine
// so that a blocked read can be abandoned when the caller's context ends.
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	start sync.Once
	lines chan string
	done  chan struct{}
	err   error

	title   lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
}

// New creates a console reading from in and writing to out.
// Colors are only emitted when out is a terminal.
func New(in io.Reader, out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)

	return &Console{
		in:      bufio.NewReader(in),
		out:     out,
		lines:   make(chan string),
		done:    make(chan struct{}),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),  // cyan
		success: r.NewStyle().Foreground(lipgloss.Color("42")),             // green
		warn:    r.NewStyle().Foreground(lipgloss.Color("220")),            // yellow
		fail:    r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // red bold
		info:    r.NewStyle().Foreground(lipgloss.Color("252")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")).Faint(true),
	}
}

// Println writes a plain line.
func (c *Console) Println(a ...any) {
	_, _ = fmt.Fprintln(c.out, a...)
}

// Printf writes formatted plain text.
func (c *Console) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(c.out, format, a...)
}

// Title writes a highlighted heading framed by rules.
func (c *Console) Title(text string) {
	rule := strings.Repeat("=", 60)
	c.Println()
	c.Println(c.muted.Render(rule))
	c.Println(c.title.Render("  " + text))
	c.Println(c.muted.Render(rule))
}

// Success writes a success line.
func (c *Console) Success(msg string) {
	c.Println(c.success.Render("[OK] " + msg))
}

// Warn writes a warning line.
func (c *Console) Warn(msg string) {
	c.Println(c.warn.Render("[WARN] " + msg))
}

// Error writes an error line.
func (c *Console) Error(msg string) {
	c.Println(c.fail.Render("[ERROR] " + msg))
}

// Info writes an informational line.
func (c *Console) Info(msg string) {
	c.Println(c.info.Render("[INFO] " + msg))
}

// Hint writes an indented, de-emphasized suggestion.
func (c *Console) Hint(msg string) {
	c.Println(c.muted.Render("  - " + msg))
}

// ShowMenu renders a titled, numbered list of options starting at 1.
func (c *Console) ShowMenu(title string, options []string) {
	c.Title(title)
	for i, opt := range options {
		c.Printf("  %d. %s\n", i+1, opt)
	}
	c.Println()
}

// readLines feeds input lines to ReadLine until the input fails or ends.
func (c *Console) readLines() {
	for {
		line, err := c.in.ReadString('\n')
		if err != nil {
			if line != "" && errors.Is(err, io.EOF) {
				c.lines <- line
			}
			c.err = err
			close(c.done)
			return
		}
		c.lines <- line
	}
}

// ReadLine prints prompt and returns the next input line with surrounding whitespace removed.
// It returns io.EOF once the input is exhausted and ctx.Err() when ctx ends first.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		c.Printf("%s: ", prompt)
	}

	c.start.Do(func() { go c.readLines() })

	select {
	case line := <-c.lines:
		return strings.TrimSpace(line), nil
	case <-c.done:
		return "", c.err
	case <-ctx.Done():
		c.Println()
		return "", ctx.Err()
	}
}

// ReadChoice reads a number in [lo, hi].
// Non-numeric or out-of-range input yields ErrInvalidChoice; read errors pass through.
func (c *Console) ReadChoice(ctx context.Context, prompt string, lo, hi int) (int, error) {
	line, err := c.ReadLine(ctx, prompt)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidChoice, line)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidChoice, n, lo, hi)
	}
	return n, nil
}

// Confirm asks a yes/no question; anything other than y/yes is "no".
func (c *Console) Confirm(ctx context.Context, prompt string) bool {
	line, err := c.ReadLine(ctx, prompt+" (y/N)")
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Pause waits for the user to press Enter.
func (c *Console) Pause(ctx context.Context) {
	_, _ = c.ReadLine(ctx, "\nPress Enter to continue...")
}
