package application

import (
	"context"
	"time"
)

// Transcriber captures one utterance of at most duration and returns it as
// lowercase text, or domain.ErrNoSpeech when nothing was said.
type Transcriber interface {
	Listen(ctx context.Context, duration time.Duration) (string, error)
}

// Narrator speaks text and returns once playback has finished.
type Narrator interface {
	Speak(ctx context.Context, text string) error
}

// Cue plays the short listening signal. The returned channel yields at most
// one error and is closed when playback ends.
type Cue interface {
	Play(ctx context.Context) <-chan error
}

type NoopCue struct{}

func (NoopCue) Play(_ context.Context) <-chan error {
	done := make(chan error)
	close(done)
	return done
}
