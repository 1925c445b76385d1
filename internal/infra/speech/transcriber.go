package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra/audio"
)

// Source captures one utterance lasting at most d.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Capture(ctx context.Context, d time.Duration) (audio.Utterance, error)
}

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// CaptureTranscriber turns captured utterances into text. Text utterances
// bypass speech recognition.
type CaptureTranscriber struct {
	source Source
	stt    SpeechToText
	logger *slog.Logger
}

func NewCaptureTranscriber(source Source, stt SpeechToText, logger *slog.Logger) *CaptureTranscriber {
	return &CaptureTranscriber{source: source, stt: stt, logger: logger}
}

func (t *CaptureTranscriber) Listen(ctx context.Context, d time.Duration) (string, error) {
	u, err := t.source.Capture(ctx, d)
	if err != nil {
		return "", err
	}

	if text := normalizeText(u.Text); text != "" {
		return text, nil
	}
	if len(u.Audio) == 0 {
		return "", domain.ErrNoSpeech
	}
	if t.stt == nil {
		return "", fmt.Errorf("%s source returned audio but no speech-to-text is configured", t.source.Name())
	}

	start := time.Now()
	text, err := t.stt.Transcribe(ctx, u.Audio)
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	t.logger.Debug("transcribed", "text", text, "duration", time.Since(start))

	if text = normalizeText(text); text == "" {
		return "", domain.ErrNoSpeech
	}
	return text, nil
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
