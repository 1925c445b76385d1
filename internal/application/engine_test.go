package application_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"apiary-voice/internal/application"
	"apiary-voice/internal/domain"
	"apiary-voice/internal/validate"
)

func inspectionQuestions() []domain.QuestionSpec {
	return []domain.QuestionSpec{
		{ID: "peso", Text: "Peso de la colmena", Kind: domain.KindNumber, Order: 1, Active: true, Min: 0, Max: 100},
		{ID: "estado", Text: "Estado de la reina", Kind: domain.KindChoice, Order: 2, Active: true, Options: []string{"Baja", "Media", "Alta"}},
	}
}

type harness struct {
	transcriber *scriptedTranscriber
	narrator    *recordingNarrator
	cue         *countingCue
	records     *memRecordStore
	queue       *memQueue
	logs        *strings.Builder
	engine      *application.Engine
}

func newHarness(t *testing.T, questions []domain.QuestionSpec, offline bool, cfg application.EngineConfig, replies ...string) *harness {
	t.Helper()
	logs := &strings.Builder{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	h := &harness{
		logs:        logs,
		transcriber: &scriptedTranscriber{replies: replies},
		narrator:    &recordingNarrator{},
		cue:         &countingCue{},
		records:     newMemRecordStore(),
		queue:       newMemQueue(),
	}
	registry := application.NewQuestionRegistry(&memQuestionStore{questions: questions}, logger)
	router := application.NewPersistenceRouter(h.records, h.queue, staticMode(offline), nil, logger)
	h.engine = application.NewEngine(application.Services{
		Transcriber: h.transcriber,
		Narrator:    h.narrator,
		Cue:         h.cue,
		Records:     h.records,
		Registry:    registry,
		Validator:   validate.New(validate.RangeReject),
		Router:      router,
		Logger:      logger,
	}, cfg)
	return h
}

func TestEngine_CompletesOnlineInterview(t *testing.T) {
	h := newHarness(t, inspectionQuestions(), false, application.DefaultEngineConfig(),
		"norte", "uno",
		"cuarenta y cinco", "confirmar",
		"dos", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.State != domain.StateCompleted {
		t.Fatalf("state: got %s, want %s", result.State, domain.StateCompleted)
	}
	if result.Commit == nil || result.Commit.Mode != application.CommitStored {
		t.Fatalf("commit: got %+v, want stored", result.Commit)
	}

	stored, err := h.records.Get(context.Background(), result.Session.RecordID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.ApiaryName != "Norte" || stored.HiveNumber != 1 {
		t.Errorf("target: got %s/%d, want Norte/1", stored.ApiaryName, stored.HiveNumber)
	}
	if v, _ := stored.Answers.Get("peso"); v != domain.NumberValue(45) {
		t.Errorf("peso: got %v, want 45", v)
	}
	if v, _ := stored.Answers.Get("estado"); v != domain.ChoiceValue("Media") {
		t.Errorf("estado: got %v, want Media", v)
	}
	if got := stored.Answers.Keys(); len(got) != 2 || got[0] != "peso" || got[1] != "estado" {
		t.Errorf("answer order: got %v", got)
	}
	if stored.CompletedAt.IsZero() {
		t.Error("completed_at not set")
	}
	if h.queue.len() != 0 {
		t.Errorf("queue: got %d files, want 0", h.queue.len())
	}
}

func TestEngine_OfflineCommitQueues(t *testing.T) {
	h := newHarness(t, inspectionQuestions(), true, application.DefaultEngineConfig(),
		"centro", "1",
		"10", "confirmar",
		"alta", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Commit.Mode != application.CommitQueued {
		t.Errorf("mode: got %s, want %s", result.Commit.Mode, application.CommitQueued)
	}
	if h.queue.len() != 1 {
		t.Errorf("queue: got %d files, want 1", h.queue.len())
	}
	if h.records.count() != 0 {
		t.Errorf("remote records: got %d, want 0", h.records.count())
	}
	if !h.narrator.saidExactly("Monitoreo guardado localmente para sincronización posterior.") {
		t.Error("queued outcome was not announced")
	}
}

func TestEngine_ExhaustedAttemptsLeaveQuestionUnanswered(t *testing.T) {
	h := newHarness(t, inspectionQuestions(), false, application.DefaultEngineConfig(),
		"norte", "2",
		"banana", "",
		"baja", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := result.Session.Answers.Get("peso"); ok {
		t.Error("peso should be absent after two failed attempts")
	}
	if v, _ := result.Session.Answers.Get("estado"); v != domain.ChoiceValue("Baja") {
		t.Errorf("estado: got %v, want Baja", v)
	}
	if !h.narrator.saidExactly("Resumen de respuestas:") {
		t.Error("session never reached review")
	}
}

func TestEngine_RejectsOutOfRangeAndRetries(t *testing.T) {
	h := newHarness(t, inspectionQuestions()[:1], false, application.DefaultEngineConfig(),
		"norte", "1",
		"150", "50", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := result.Session.Answers.Get("peso"); v != domain.NumberValue(50) {
		t.Errorf("peso: got %v, want 50", v)
	}
	if !h.narrator.saidExactly("El valor debe estar entre 0 y 100.") {
		t.Errorf("range reason not spoken: %v", h.narrator.said)
	}
}

func TestEngine_CancelledConfirmationConsumesAttempt(t *testing.T) {
	h := newHarness(t, inspectionQuestions()[:1], false, application.DefaultEngineConfig(),
		"norte", "1",
		"20", "cancelar",
		"30", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := result.Session.Answers.Get("peso"); v != domain.NumberValue(30) {
		t.Errorf("peso: got %v, want 30", v)
	}
}

func TestEngine_AmbiguousConfirmationAskedOnceThenRejected(t *testing.T) {
	h := newHarness(t, inspectionQuestions()[:1], false, application.DefaultEngineConfig(),
		"norte", "1",
		"20", "mmm", "quizas",
		"30", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := result.Session.Answers.Get("peso"); v != domain.NumberValue(30) {
		t.Errorf("peso: got %v, want 30", v)
	}
}

func TestEngine_ReviewCancelRestartsWithFreshSession(t *testing.T) {
	h := newHarness(t, inspectionQuestions()[:1], false, application.DefaultEngineConfig(),
		"norte", "1", "20", "confirmar", "cancelar",
		"oeste", "norte", "2", "40", "confirmar", "confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Restarts != 1 {
		t.Errorf("restarts: got %d, want 1", result.Restarts)
	}
	if result.Session.HiveNumber != 2 {
		t.Errorf("hive: got %d, want 2", result.Session.HiveNumber)
	}
	if v, _ := result.Session.Answers.Get("peso"); v != domain.NumberValue(40) {
		t.Errorf("peso: got %v, want 40", v)
	}
	if h.records.count() != 1 {
		t.Errorf("records: got %d, want 1", h.records.count())
	}
}

func TestEngine_TooManyRestartsAborts(t *testing.T) {
	cfg := application.DefaultEngineConfig()
	cfg.MaxRestarts = 1
	h := newHarness(t, inspectionQuestions()[:1], false, cfg,
		"norte", "1", "20", "confirmar", "cancelar",
		"norte", "1", "20", "confirmar", "cancelar",
	)

	result, err := h.engine.Run(context.Background())
	if !errors.Is(err, domain.ErrTooManyRestarts) {
		t.Fatalf("error: got %v, want ErrTooManyRestarts", err)
	}
	if result.State != domain.StateAborted {
		t.Errorf("state: got %s, want aborted", result.State)
	}
	if h.records.count() != 0 {
		t.Error("aborted interview must not persist")
	}
}

func TestEngine_DependencySkipsUntriggeredQuestion(t *testing.T) {
	questions := []domain.QuestionSpec{
		{ID: "camara", Text: "Tiene cámara de producción", Kind: domain.KindChoice, Order: 1, Active: true, Options: []string{"Si", "No"}},
		{ID: "marcos", Text: "Marcos con miel", Kind: domain.KindNumber, Order: 2, Active: true, Max: 20, DependsOn: "camara", ShowWhen: []string{"Si"}},
		{ID: "notas", Text: "Observaciones", Kind: domain.KindText, Order: 3, Active: true},
	}
	h := newHarness(t, questions, false, application.DefaultEngineConfig(),
		"norte", "1",
		"no", "confirmar",
		"todo en orden", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := result.Session.Answers.Get("marcos"); ok {
		t.Error("marcos should be skipped when camara is No")
	}
	if v, _ := result.Session.Answers.Get("notas"); v != domain.TextValue("todo en orden") {
		t.Errorf("notas: got %v", v)
	}
}

func TestEngine_UnansweredDependencyLogsSkippedDependents(t *testing.T) {
	questions := []domain.QuestionSpec{
		{ID: "camara", Text: "Tiene cámara de producción", Kind: domain.KindChoice, Order: 1, Active: true, Options: []string{"Si", "No"}},
		{ID: "marcos", Text: "Marcos con miel", Kind: domain.KindNumber, Order: 2, Active: true, Max: 20, DependsOn: "camara", ShowWhen: []string{"Si"}},
	}
	h := newHarness(t, questions, false, application.DefaultEngineConfig(),
		"norte", "1",
		"quizas", "quizas",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Session.Answers.Len() != 0 {
		t.Errorf("answers: got %v, want none", result.Session.Answers.Keys())
	}
	logs := h.logs.String()
	if !strings.Contains(logs, "unanswered question has dependents") || !strings.Contains(logs, "marcos") {
		t.Errorf("dependents not logged:\n%s", logs)
	}
}

func TestEngine_RequiredUnansweredAborts(t *testing.T) {
	questions := []domain.QuestionSpec{
		{ID: "peso", Text: "Peso", Kind: domain.KindNumber, Order: 1, Active: true, Required: true, Max: 100},
	}
	h := newHarness(t, questions, false, application.DefaultEngineConfig(),
		"norte", "1",
		"nada", "nada",
		"nada", "nada",
	)

	result, err := h.engine.Run(context.Background())
	if !errors.Is(err, domain.ErrRequiredUnanswered) {
		t.Fatalf("error: got %v, want ErrRequiredUnanswered", err)
	}
	if result.State != domain.StateAborted {
		t.Errorf("state: got %s, want aborted", result.State)
	}
	if h.records.count() != 0 || h.queue.len() != 0 {
		t.Error("aborted interview must not persist")
	}
}

func TestEngine_RequiredAnsweredOnReask(t *testing.T) {
	questions := []domain.QuestionSpec{
		{ID: "peso", Text: "Peso", Kind: domain.KindNumber, Order: 1, Active: true, Required: true, Max: 100},
	}
	h := newHarness(t, questions, false, application.DefaultEngineConfig(),
		"norte", "1",
		"nada", "nada",
		"veinte", "confirmar",
		"confirmar",
	)

	result, err := h.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := result.Session.Answers.Get("peso"); v != domain.NumberValue(20) {
		t.Errorf("peso: got %v, want 20", v)
	}
}

func TestEngine_DeviceFailureAborts(t *testing.T) {
	h := newHarness(t, inspectionQuestions(), false, application.DefaultEngineConfig(), "norte", "1")
	h.transcriber.errs = map[int]error{2: errors.New("microphone unplugged")}

	result, err := h.engine.Run(context.Background())
	var ce *domain.CaptureError
	if !errors.As(err, &ce) || ce.Retryable() {
		t.Fatalf("error: got %v, want non-retryable CaptureError", err)
	}
	if result.State != domain.StateAborted {
		t.Errorf("state: got %s, want aborted", result.State)
	}
}

func TestEngine_InvalidCatalogAbortsBeforeListening(t *testing.T) {
	questions := []domain.QuestionSpec{
		{ID: "marcos", Text: "Marcos", Kind: domain.KindNumber, Order: 1, Active: true, Max: 10, DependsOn: "camara"},
	}
	h := newHarness(t, questions, false, application.DefaultEngineConfig())

	_, err := h.engine.Run(context.Background())
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error: got %v, want ConfigError", err)
	}
	if h.transcriber.calls != 0 {
		t.Errorf("listened %d times, want 0", h.transcriber.calls)
	}
}

func TestEngine_PreviewCancelStops(t *testing.T) {
	cfg := application.DefaultEngineConfig()
	cfg.Preview = true
	h := newHarness(t, inspectionQuestions(), false, cfg, "cancelar")

	_, err := h.engine.Run(context.Background())
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("error: got %v, want ErrCancelled", err)
	}
}

func TestEngine_SelectionAttemptsBounded(t *testing.T) {
	cfg := application.DefaultEngineConfig()
	cfg.SelectionAttempts = 2
	h := newHarness(t, inspectionQuestions(), false, cfg, "oeste", "")

	_, err := h.engine.Run(context.Background())
	if !errors.Is(err, domain.ErrSelectionExhausted) {
		t.Fatalf("error: got %v, want ErrSelectionExhausted", err)
	}
}

func TestEngine_CueAwaitedForEveryCapture(t *testing.T) {
	h := newHarness(t, inspectionQuestions()[:1], false, application.DefaultEngineConfig(),
		"norte", "1", "5", "confirmar", "confirmar",
	)

	if _, err := h.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.cue.mu.Lock()
	defer h.cue.mu.Unlock()
	if h.cue.plays != h.transcriber.calls {
		t.Errorf("cue plays: got %d, want %d", h.cue.plays, h.transcriber.calls)
	}
}

func TestEngine_CancelledContextAborts(t *testing.T) {
	h := newHarness(t, inspectionQuestions(), false, application.DefaultEngineConfig(), "norte")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.engine.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error: got %v, want context.Canceled", err)
	}
	if result.State != domain.StateAborted {
		t.Errorf("state: got %s, want aborted", result.State)
	}
}
