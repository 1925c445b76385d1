//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"apiary-voice/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneSource records fixed-length replies from the default input
// device.
type MicrophoneSource struct {
	sampleRate int
	threshold  int16
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	frame  []int16
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		threshold:  DefaultSilenceThreshold,
		logger:     logger,
		frame:      make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()

	m.logger.Info("microphone ready", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
	portaudio.Terminate()
	return nil
}

// Capture records for d and returns the reply as WAV. A recording with no
// sample above the silence threshold yields domain.ErrNoSpeech.
func (m *MicrophoneSource) Capture(ctx context.Context, d time.Duration) (Utterance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return Utterance{}, fmt.Errorf("microphone not started")
	}

	total := int(d.Seconds() * float64(m.sampleRate))
	samples := make([]int16, 0, total+framesPerBuffer)

	if err := m.stream.Start(); err != nil {
		return Utterance{}, fmt.Errorf("starting stream: %w", err)
	}
	defer m.stream.Stop()

	for len(samples) < total {
		select {
		case <-ctx.Done():
			return Utterance{}, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			return Utterance{}, fmt.Errorf("reading from stream: %w", err)
		}
		samples = append(samples, m.frame...)
	}

	if IsSilent(samples, m.threshold) {
		return Utterance{}, domain.ErrNoSpeech
	}
	m.logger.Debug("captured audio", "samples", len(samples))
	return Utterance{Audio: SamplesToWav(samples, m.sampleRate)}, nil
}

// BeepCue plays a short tone on the default output device.
type BeepCue struct {
	sampleRate int
	frequency  float64
	duration   time.Duration
}

func NewBeepCue(sampleRate int) *BeepCue {
	return &BeepCue{sampleRate: sampleRate, frequency: 880, duration: 150 * time.Millisecond}
}

func (b *BeepCue) Play(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- b.play(ctx)
	}()
	return done
}

func (b *BeepCue) play(ctx context.Context) error {
	out := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(b.sampleRate), len(out), out)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	total := int(b.duration.Seconds() * float64(b.sampleRate))
	step := 2 * math.Pi * b.frequency / float64(b.sampleRate)
	for n := 0; n < total; {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range out {
			out[i] = 0
			if n < total {
				out[i] = float32(0.3 * math.Sin(step*float64(n)))
			}
			n++
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing tone: %w", err)
		}
	}
	return nil
}
