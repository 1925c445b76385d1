package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"apiary-voice/internal/domain"
)

// ConsoleTranscriber reads one reply per line. A blank line counts as
// silence. The capture duration is ignored.
type ConsoleTranscriber struct {
	lines chan lineResult
	once  sync.Once
	in    io.Reader
}

type lineResult struct {
	text string
	err  error
}

func NewConsoleTranscriber(in io.Reader) *ConsoleTranscriber {
	return &ConsoleTranscriber{in: in, lines: make(chan lineResult)}
}

func (c *ConsoleTranscriber) Listen(ctx context.Context, _ time.Duration) (string, error) {
	c.once.Do(func() { go c.scan() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		if r.err != nil {
			return "", r.err
		}
		text := normalizeText(r.text)
		if text == "" {
			return "", domain.ErrNoSpeech
		}
		return text, nil
	}
}

func (c *ConsoleTranscriber) scan() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- lineResult{text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		c.lines <- lineResult{err: fmt.Errorf("reading input: %w", err)}
	}
}

var (
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// ConsoleNarrator prints prompts, styled when out is a terminal.
type ConsoleNarrator struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
}

func NewConsoleNarrator(out io.Writer) *ConsoleNarrator {
	return &ConsoleNarrator{out: out, styled: isTerminal(out)}
}

func (n *ConsoleNarrator) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	line := "ASISTENTE: " + text
	if n.styled {
		line = speakerStyle.Render("ASISTENTE:") + " " + textStyle.Render(text)
	}
	if _, err := fmt.Fprintln(n.out, line); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}
	return nil
}

// BellCue writes a terminal bell as the listening cue.
type BellCue struct {
	out io.Writer
}

func NewBellCue(out io.Writer) *BellCue {
	return &BellCue{out: out}
}

func (b *BellCue) Play(_ context.Context) <-chan error {
	done := make(chan error, 1)
	_, err := io.WriteString(b.out, "\a")
	done <- err
	close(done)
	return done
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
