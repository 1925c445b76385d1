package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// EspeakNarrator speaks through the espeak-ng command line synthesizer and
// blocks until playback ends.
type EspeakNarrator struct {
	binary string
	voice  string
	rate   int
	logger *slog.Logger
}

func NewEspeakNarrator(binary, voice string, rate int, logger *slog.Logger) *EspeakNarrator {
	if binary == "" {
		binary = "espeak-ng"
	}
	if voice == "" {
		voice = "es"
	}
	if rate <= 0 {
		rate = 180
	}
	return &EspeakNarrator{binary: binary, voice: voice, rate: rate, logger: logger}
}

func (e *EspeakNarrator) Args(text string) []string {
	return []string{"-v", e.voice, "-s", strconv.Itoa(e.rate), text}
}

func (e *EspeakNarrator) Speak(ctx context.Context, text string) error {
	e.logger.Debug("speaking", "text", text)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, e.Args(text)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w: %s", e.binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Available reports whether the synthesizer binary is on PATH.
func (e *EspeakNarrator) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}
