//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var errNoPortaudio = errors.New("audio device not available: rebuild with -tags portaudio")

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	logger *slog.Logger
}

func NewMicrophoneSource(_ int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	return errNoPortaudio
}

func (m *MicrophoneSource) Stop() error {
	return nil
}

func (m *MicrophoneSource) Capture(_ context.Context, _ time.Duration) (Utterance, error) {
	return Utterance{}, errNoPortaudio
}

// BeepCue stub completes immediately with an error.
type BeepCue struct{}

func NewBeepCue(_ int) *BeepCue {
	return &BeepCue{}
}

func (b *BeepCue) Play(_ context.Context) <-chan error {
	done := make(chan error, 1)
	done <- errNoPortaudio
	close(done)
	return done
}
