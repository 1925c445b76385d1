package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"apiary-voice/config"
	"apiary-voice/internal/application"
	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra/audio"
	"apiary-voice/internal/infra/catalog"
	"apiary-voice/internal/infra/openai"
	"apiary-voice/internal/infra/platform"
	"apiary-voice/internal/infra/pushover"
	"apiary-voice/internal/infra/queue"
	"apiary-voice/internal/infra/speech"
	"apiary-voice/internal/infra/sqlstore"
	"apiary-voice/internal/validate"
)

// app holds what every subcommand shares: config, logger, stores and the
// persistence router.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *sqlstore.Store
	queue     *queue.FileQueue
	questions application.QuestionStore
	detector  *platform.Detector
	router    *application.PersistenceRouter

	in  io.Reader
	out io.Writer

	closers []io.Closer
}

// loadConfig reads the --config file. A missing default file falls back to
// built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	a := &app{cfg: cfg, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	var logCloser io.Closer
	a.logger, logCloser = setupLogger(cfg.Log, cmd.ErrOrStderr())
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	a.store, err = sqlstore.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.closers = append(a.closers, a.store)

	if _, err := a.store.SeedApiaries(ctx, sqlstore.DefaultApiaries, cfg.Storage.SeedHives); err != nil {
		a.Close()
		return nil, fmt.Errorf("seeding apiaries: %w", err)
	}

	if cfg.Questions.Source == "file" {
		a.questions = catalog.NewFileStore(cfg.Questions.File)
	} else {
		a.questions = a.store
	}
	if *cfg.Questions.SeedDefaults {
		if err := a.seedQuestions(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	mode, err := platform.ParseMode(cfg.Storage.Mode)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.detector = platform.NewDetector(mode)
	a.queue = queue.New(cfg.Storage.QueueDir, a.logger)
	a.router = application.NewPersistenceRouter(a.store, a.queue, a.detector, createNotifier(cfg.Pushover), a.logger)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn("closing", "error", err)
		}
	}
	a.closers = nil
}

// seedQuestions writes the built-in catalog when no question exists yet.
func (a *app) seedQuestions(ctx context.Context) error {
	empty, err := a.questionsEmpty(ctx)
	if err != nil || !empty {
		return err
	}
	if err := a.questions.ReplaceAll(ctx, catalog.DefaultQuestions()); err != nil {
		return fmt.Errorf("seeding questions: %w", err)
	}
	a.logger.Info("default questions created", "count", len(catalog.DefaultQuestions()))
	return nil
}

func (a *app) questionsEmpty(ctx context.Context) (bool, error) {
	if a.cfg.Questions.Source == "file" {
		_, err := os.Stat(a.cfg.Questions.File)
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	all, err := a.store.AllQuestions(ctx)
	if err != nil {
		return false, err
	}
	return len(all) == 0, nil
}

// services builds the interview collaborators. The returned stop func
// releases the audio source.
func (a *app) services(ctx context.Context) (application.Services, func(), error) {
	transcriber, stop, err := createTranscriber(ctx, a.cfg, a.in, a.logger)
	if err != nil {
		return application.Services{}, nil, err
	}
	return application.Services{
		Transcriber: transcriber,
		Narrator:    createNarrator(a.cfg.Narrator, a.out, a.logger),
		Cue:         createCue(a.cfg.Audio, a.out),
		Records:     a.store,
		Registry:    application.NewQuestionRegistry(a.questions, a.logger),
		Validator:   validate.New(validate.RangePolicy(a.cfg.Interview.RangePolicy)),
		Router:      a.router,
		Logger:      a.logger,
	}, stop, nil
}

func engineConfig(cfg config.InterviewConfig) (application.EngineConfig, error) {
	rule, err := application.DependencyRuleByName(cfg.DependencyRule)
	if err != nil {
		return application.EngineConfig{}, err
	}
	return application.EngineConfig{
		MaxAttempts:       *cfg.MaxAttempts,
		EnforceRequired:   cfg.EnforceRequired == nil || *cfg.EnforceRequired,
		MaxRestarts:       *cfg.MaxRestarts,
		SelectionAttempts: cfg.SelectionAttempts,
		Preview:           cfg.Preview,
		DependencyRule:    rule,
		AnswerDuration:    config.Duration(cfg.AnswerDuration),
		TextDuration:      config.Duration(cfg.TextDuration),
		ConfirmDuration:   config.Duration(cfg.ConfirmDuration),
	}, nil
}

func createTranscriber(ctx context.Context, cfg *config.Config, in io.Reader, logger *slog.Logger) (application.Transcriber, func(), error) {
	var source speech.Source
	switch cfg.Audio.Source {
	case "console":
		return speech.NewConsoleTranscriber(in), func() {}, nil
	case "http":
		source = audio.NewHTTPSource(cfg.Audio.HTTPAddr, cfg.Audio.AuthToken, config.Duration(cfg.Audio.ReplyWait), logger)
	case "file":
		source = audio.NewFileSource(cfg.Audio.FileDir, config.Duration(cfg.Audio.ReplyWait))
	case "microphone":
		source = audio.NewMicrophoneSource(cfg.Audio.SampleRate, logger)
	default:
		return nil, nil, fmt.Errorf("unknown audio source %q", cfg.Audio.Source)
	}

	if err := source.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting %s source: %w", source.Name(), err)
	}
	stop := func() {
		if err := source.Stop(); err != nil {
			logger.Warn("stopping audio source", "source", source.Name(), "error", err)
		}
	}

	var stt speech.SpeechToText
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			stt = openai.NewWhisperClientWithURL(cfg.OpenAI.APIKey, cfg.OpenAI.Language, cfg.OpenAI.BaseURL)
		} else {
			stt = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
		}
	} else {
		logger.Warn("no openai api key, only text replies will be understood", "source", source.Name())
	}

	logger.Info("audio source started", "source", source.Name())
	return speech.NewCaptureTranscriber(source, stt, logger), stop, nil
}

func createNarrator(cfg config.NarratorConfig, out io.Writer, logger *slog.Logger) application.Narrator {
	if cfg.Engine == "espeak" {
		narrator := speech.NewEspeakNarrator(cfg.Binary, cfg.Voice, cfg.Rate, logger)
		if narrator.Available() {
			return narrator
		}
		logger.Warn("espeak not found, using console narrator", "binary", cfg.Binary)
	}
	return speech.NewConsoleNarrator(out)
}

func createCue(cfg config.AudioConfig, out io.Writer) application.Cue {
	switch cfg.Cue {
	case "beep":
		return audio.NewBeepCue(cfg.SampleRate)
	case "bell":
		return speech.NewBellCue(out)
	default:
		return application.NoopCue{}
	}
}

func createNotifier(cfg config.PushoverConfig) application.Notifier {
	if cfg.Enabled {
		return pushover.NewClient(cfg.Token, cfg.UserKey)
	}
	return &application.NoopNotifier{}
}

// setupLogger builds the process logger. With log.file set, output goes to a
// rotated file and the returned closer must be closed on exit.
func setupLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, io.Closer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var (
		out    = stderr
		closer io.Closer
	)
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out, closer = rotated, rotated
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}

func describeRecord(r domain.Record) string {
	return fmt.Sprintf("%s  apiario=%s colmena=%d respuestas=%d inicio=%s",
		r.RecordID, r.ApiaryName, r.HiveNumber, r.Answers.Len(), r.StartedAt.Format("2006-01-02 15:04"))
}
