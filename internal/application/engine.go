package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/validate"
)

const apiaryMatchThreshold = 0.70

type EngineConfig struct {
	MaxAttempts     int
	EnforceRequired bool
	MaxRestarts     int
	// SelectionAttempts caps apiary and hive prompts; 0 means no cap.
	SelectionAttempts int
	Preview           bool
	DependencyRule    DependencyRule

	AnswerDuration  time.Duration
	TextDuration    time.Duration
	ConfirmDuration time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxAttempts:     2,
		EnforceRequired: true,
		MaxRestarts:     3,
		DependencyRule:  TriggerRule,
		AnswerDuration:  3 * time.Second,
		TextDuration:    5 * time.Second,
		ConfirmDuration: 3 * time.Second,
	}
}

// Services is the set of collaborators shared by one process. It is built
// once at startup and handed to the engine.
type Services struct {
	Transcriber Transcriber
	Narrator    Narrator
	Cue         Cue
	Records     RecordStore
	Registry    *QuestionRegistry
	Validator   *validate.Validator
	Router      *PersistenceRouter
	Logger      *slog.Logger
	Now         func() time.Time
}

type Result struct {
	State    domain.SessionState
	Session  *domain.Session
	Commit   *CommitResult
	Restarts int
}

type Engine struct {
	svc Services
	cfg EngineConfig
}

func NewEngine(svc Services, cfg EngineConfig) *Engine {
	if svc.Cue == nil {
		svc.Cue = NoopCue{}
	}
	if svc.Now == nil {
		svc.Now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.DependencyRule == nil {
		cfg.DependencyRule = TriggerRule
	}
	return &Engine{svc: svc, cfg: cfg}
}

// Run drives one interview until it is completed and committed or aborted.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.say(ctx, "Bienvenido al sistema de monitoreo de colmenas por voz."); err != nil {
		return e.abort(nil, 0, err)
	}

	questions, err := e.svc.Registry.Load(ctx)
	if err != nil {
		e.sayQuietly(ctx, "No se pudieron cargar las preguntas de configuración.")
		return e.abort(nil, 0, err)
	}

	if e.cfg.Preview {
		if err := e.preview(ctx, questions); err != nil {
			return e.abort(nil, 0, err)
		}
	}

	for restarts := 0; ; restarts++ {
		session := domain.NewSession(e.svc.Now())
		e.svc.Logger.Info("interview started", "record_id", session.RecordID, "restart", restarts)

		if err := e.selectTarget(ctx, session); err != nil {
			return e.abort(session, restarts, err)
		}

		session.State = domain.StateAsking
		if err := e.askAll(ctx, session, questions); err != nil {
			return e.abort(session, restarts, err)
		}

		session.State = domain.StateReviewing
		confirmed, err := e.review(ctx, session, questions)
		if err != nil {
			return e.abort(session, restarts, err)
		}
		if confirmed {
			return e.complete(ctx, session, restarts)
		}

		if restarts >= e.cfg.MaxRestarts {
			e.sayQuietly(ctx, "Se alcanzó el máximo de reinicios. Monitoreo cancelado.")
			return e.abort(session, restarts, domain.ErrTooManyRestarts)
		}
		if err := e.say(ctx, "Reiniciando el monitoreo para esta colmena."); err != nil {
			return e.abort(session, restarts, err)
		}
	}
}

func (e *Engine) abort(session *domain.Session, restarts int, err error) (*Result, error) {
	if session != nil {
		session.State = domain.StateAborted
	}
	e.svc.Logger.Warn("interview aborted", "error", err)
	return &Result{State: domain.StateAborted, Session: session, Restarts: restarts}, err
}

func (e *Engine) complete(ctx context.Context, session *domain.Session, restarts int) (*Result, error) {
	session.State = domain.StateCompleted
	session.CompletedAt = e.svc.Now().UTC().Round(0)
	result := &Result{State: domain.StateCompleted, Session: session, Restarts: restarts}

	commit, err := e.svc.Router.Commit(ctx, session.Record())
	if err != nil {
		e.sayQuietly(ctx, "Hubo un error al guardar los datos. Por favor intente nuevamente.")
		return result, err
	}
	result.Commit = commit

	if commit.Mode == CommitQueued {
		e.sayQuietly(ctx, "Monitoreo guardado localmente para sincronización posterior.")
	} else {
		e.sayQuietly(ctx, "Datos guardados correctamente. Monitoreo completado.")
	}
	e.svc.Logger.Info("interview completed",
		"record_id", session.RecordID,
		"answers", session.Answers.Len(),
		"mode", commit.Mode,
	)
	return result, nil
}

func (e *Engine) preview(ctx context.Context, questions []domain.QuestionSpec) error {
	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.Text
	}
	if err := e.say(ctx, "Las preguntas del monitoreo son: "+strings.Join(texts, "; ")+"."); err != nil {
		return err
	}

	prompt := "¿Desea continuar con el monitoreo? Diga confirmar para continuar o cancelar para salir."
	var decision validate.Decision
	err := e.promptUntil(ctx, prompt, "No entendí su respuesta. Diga confirmar o cancelar.", e.cfg.ConfirmDuration,
		func(text string) bool {
			decision = validate.Decide(text)
			return decision != validate.Undecided
		})
	if err != nil {
		return err
	}
	if decision == validate.Cancelled {
		e.sayQuietly(ctx, "Monitoreo cancelado.")
		return domain.ErrCancelled
	}
	return nil
}

func (e *Engine) selectTarget(ctx context.Context, session *domain.Session) error {
	session.State = domain.StateSelectingApiary

	apiaries, err := e.svc.Records.ListApiaries(ctx)
	if err != nil {
		return &domain.ConfigError{Reason: "listing apiaries", Err: err}
	}
	if len(apiaries) == 0 {
		e.sayQuietly(ctx, "No hay apiarios registrados.")
		return &domain.ConfigError{Reason: "no apiaries registered"}
	}

	names := make([]string, len(apiaries))
	for i, a := range apiaries {
		names[i] = a.Name
	}
	var apiary domain.Apiary
	err = e.promptUntil(ctx,
		"Por favor indique el apiario a monitorear. Opciones: "+joinSpoken(names)+".",
		"Apiario no reconocido. Por favor diga "+joinSpoken(names)+".",
		e.cfg.AnswerDuration,
		func(text string) bool {
			a, ok := matchApiary(text, apiaries)
			apiary = a
			return ok
		})
	if err != nil {
		return err
	}
	session.ApiaryID = apiary.ID
	session.ApiaryName = apiary.Name

	session.State = domain.StateSelectingHive
	hives, err := e.svc.Records.ListHives(ctx, apiary.ID)
	if err != nil {
		return &domain.ConfigError{Reason: "listing hives", Err: err}
	}
	if len(hives) == 0 {
		e.sayQuietly(ctx, fmt.Sprintf("No hay colmenas registradas en el apiario %s.", apiary.Name))
		return &domain.ConfigError{Reason: fmt.Sprintf("no hives in apiary %q", apiary.Name)}
	}

	numbers := make([]string, len(hives))
	for i, h := range hives {
		numbers[i] = strconv.Itoa(h.Number)
	}
	err = e.promptUntil(ctx,
		fmt.Sprintf("Monitoreando apiario %s. Colmenas disponibles: %s. Indique el número de colmena.", apiary.Name, strings.Join(numbers, ", ")),
		"Número de colmena no reconocido. Por favor diga un número válido.",
		e.cfg.AnswerDuration,
		func(text string) bool {
			n, ok := validate.FindNumber(text)
			if !ok || !hasHive(hives, n) {
				return false
			}
			session.HiveNumber = n
			return true
		})
	if err != nil {
		return err
	}

	e.svc.Logger.Info("target selected", "apiary", apiary.Name, "hive", session.HiveNumber)
	return e.say(ctx, fmt.Sprintf("Monitoreando colmena %d en apiario %s. Empezaremos con las preguntas.", session.HiveNumber, apiary.Name))
}

func (e *Engine) askAll(ctx context.Context, session *domain.Session, questions []domain.QuestionSpec) error {
	for _, q := range questions {
		if !e.shouldAsk(session, q) {
			e.svc.Logger.Debug("question skipped by dependency", "question", q.ID, "depends_on", q.DependsOn)
			continue
		}
		answer, ok, err := e.ask(ctx, q)
		if err != nil {
			return err
		}
		if ok {
			session.Answers.Set(q.ID, answer)
			continue
		}
		if deps := e.svc.Registry.Dependents(q.ID); len(deps) > 0 {
			ids := make([]string, len(deps))
			for i, d := range deps {
				ids[i] = d.ID
			}
			e.svc.Logger.Info("unanswered question has dependents", "question", q.ID, "dependents", ids)
		}
	}
	return nil
}

func (e *Engine) shouldAsk(session *domain.Session, q domain.QuestionSpec) bool {
	if q.DependsOn == "" {
		return true
	}
	dep, ok := e.svc.Registry.Resolve(q.DependsOn)
	if !ok {
		return true
	}
	answer, answered := session.Answers.Get(dep.ID)
	return e.cfg.DependencyRule(q, dep, answer, answered)
}

// ask runs the bounded attempt loop for one question. ok is false when every
// attempt failed or was rejected at confirmation.
func (e *Engine) ask(ctx context.Context, q domain.QuestionSpec) (domain.Answer, bool, error) {
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		last := attempt == e.cfg.MaxAttempts

		if err := e.say(ctx, questionPrompt(q)); err != nil {
			return domain.Answer{}, false, err
		}

		text, err := e.listen(ctx, e.durationFor(q))
		if err != nil {
			if !retryable(err) {
				return domain.Answer{}, false, err
			}
			e.svc.Logger.Info("no answer captured", "question", q.ID, "attempt", attempt)
			if !last {
				if err := e.say(ctx, "No capté su respuesta. Por favor repita."); err != nil {
					return domain.Answer{}, false, err
				}
			}
			continue
		}

		answer, err := e.svc.Validator.Validate(q, text)
		if err != nil {
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				return domain.Answer{}, false, err
			}
			e.svc.Logger.Info("answer rejected", "question", q.ID, "attempt", attempt, "text", text)
			if !last {
				if err := e.say(ctx, ve.Reason); err != nil {
					return domain.Answer{}, false, err
				}
			}
			continue
		}

		confirmed, err := e.confirmAnswer(ctx, answer)
		if err != nil {
			return domain.Answer{}, false, err
		}
		if confirmed {
			e.svc.Logger.Info("answer recorded", "question", q.ID, "value", answer.String(), "attempt", attempt)
			return answer, true, nil
		}
		e.svc.Logger.Info("answer discarded", "question", q.ID, "attempt", attempt)
	}

	e.svc.Logger.Warn("question left unanswered", "question", q.ID, "required", q.Required)
	if err := e.say(ctx, "No se registró respuesta. Pasamos a la siguiente pregunta."); err != nil {
		return domain.Answer{}, false, err
	}
	return domain.Answer{}, false, nil
}

// confirmAnswer reads back a tentative answer. An unclear reply gets one more
// chance and then counts as a rejection.
func (e *Engine) confirmAnswer(ctx context.Context, answer domain.Answer) (bool, error) {
	prompt := fmt.Sprintf("Has respondido: %s. ¿Es correcto? Diga confirmar o cancelar.", answer)
	if err := e.say(ctx, prompt); err != nil {
		return false, err
	}

	for try := 0; try < 2; try++ {
		text, err := e.listen(ctx, e.cfg.ConfirmDuration)
		if err != nil && !retryable(err) {
			return false, err
		}
		if err == nil {
			switch validate.Decide(text) {
			case validate.Confirmed:
				return true, nil
			case validate.Cancelled:
				return false, nil
			}
		}
		if try == 0 {
			if err := e.say(ctx, "No entendí. Diga confirmar para aceptar o cancelar para repetir."); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

func (e *Engine) review(ctx context.Context, session *domain.Session, questions []domain.QuestionSpec) (bool, error) {
	if e.cfg.EnforceRequired {
		if err := e.completeRequired(ctx, session, questions); err != nil {
			return false, err
		}
	}

	if err := e.say(ctx, "Resumen de respuestas:"); err != nil {
		return false, err
	}
	var sayErr error
	session.Answers.Each(func(id string, v domain.Answer) {
		if sayErr != nil {
			return
		}
		label := id
		if q, ok := e.svc.Registry.Resolve(id); ok {
			label = q.Text
		}
		sayErr = e.say(ctx, fmt.Sprintf("%s: %s", label, v))
	})
	if sayErr != nil {
		return false, sayErr
	}

	var decision validate.Decision
	err := e.promptUntil(ctx,
		"¿Los datos son correctos? Diga confirmar para guardar o cancelar para repetir el monitoreo.",
		"No entendí su respuesta. Diga confirmar para guardar o cancelar para repetir.",
		e.cfg.ConfirmDuration,
		func(text string) bool {
			decision = validate.Decide(text)
			return decision != validate.Undecided
		})
	if err != nil {
		return false, err
	}
	return decision == validate.Confirmed, nil
}

// completeRequired asks once more for required questions that are still
// missing and fails the session if any remain.
func (e *Engine) completeRequired(ctx context.Context, session *domain.Session, questions []domain.QuestionSpec) error {
	missing := e.missingRequired(session, questions)
	if len(missing) == 0 {
		return nil
	}

	if err := e.say(ctx, "Faltan respuestas obligatorias. Volveremos a preguntarlas."); err != nil {
		return err
	}
	for _, q := range missing {
		answer, ok, err := e.ask(ctx, q)
		if err != nil {
			return err
		}
		if ok {
			session.Answers.Set(q.ID, answer)
		}
	}

	if still := e.missingRequired(session, questions); len(still) > 0 {
		ids := make([]string, len(still))
		for i, q := range still {
			ids[i] = q.ID
		}
		e.sayQuietly(ctx, "No se puede guardar el monitoreo sin las respuestas obligatorias.")
		return fmt.Errorf("%w: %s", domain.ErrRequiredUnanswered, strings.Join(ids, ", "))
	}
	return nil
}

func (e *Engine) missingRequired(session *domain.Session, questions []domain.QuestionSpec) []domain.QuestionSpec {
	var missing []domain.QuestionSpec
	for _, q := range questions {
		if !q.Required {
			continue
		}
		if _, ok := session.Answers.Get(q.ID); ok {
			continue
		}
		if e.shouldAsk(session, q) {
			missing = append(missing, q)
		}
	}
	return missing
}

// promptUntil speaks prompt and listens until match accepts a reply. Only
// SelectionAttempts bounds it.
func (e *Engine) promptUntil(ctx context.Context, prompt, retryMsg string, d time.Duration, match func(string) bool) error {
	if err := e.say(ctx, prompt); err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		if e.cfg.SelectionAttempts > 0 && attempt > e.cfg.SelectionAttempts {
			return domain.ErrSelectionExhausted
		}
		text, err := e.listen(ctx, d)
		if err != nil {
			if !retryable(err) {
				return err
			}
			if err := e.say(ctx, "No capté su respuesta. Por favor repita."); err != nil {
				return err
			}
			continue
		}
		if match(text) {
			return nil
		}
		if err := e.say(ctx, retryMsg); err != nil {
			return err
		}
	}
}

// listen starts the cue, captures one utterance and waits for the cue to
// finish before returning.
func (e *Engine) listen(ctx context.Context, d time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cueDone := e.svc.Cue.Play(ctx)
	text, err := e.svc.Transcriber.Listen(ctx, d)
	if cueErr := <-cueDone; cueErr != nil {
		e.svc.Logger.Debug("listening cue failed", "error", cueErr)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &domain.CaptureError{Err: err}
	}
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", &domain.CaptureError{Err: domain.ErrNoSpeech}
	}
	e.svc.Logger.Debug("heard", "text", text)
	return text, nil
}

func (e *Engine) say(ctx context.Context, text string) error {
	if err := e.svc.Narrator.Speak(ctx, text); err != nil {
		return fmt.Errorf("speaking: %w", err)
	}
	return nil
}

// sayQuietly is for closing messages whose failure should not mask the
// outcome being reported.
func (e *Engine) sayQuietly(ctx context.Context, text string) {
	if err := e.say(ctx, text); err != nil {
		e.svc.Logger.Warn("narrator failed", "error", err)
	}
}

func (e *Engine) durationFor(q domain.QuestionSpec) time.Duration {
	if q.Kind == domain.KindText {
		return e.cfg.TextDuration
	}
	return e.cfg.AnswerDuration
}

func questionPrompt(q domain.QuestionSpec) string {
	switch q.Kind {
	case domain.KindChoice:
		numbered := make([]string, len(q.Options))
		for i, o := range q.Options {
			numbered[i] = fmt.Sprintf("%d. %s", i+1, o)
		}
		return fmt.Sprintf("%s. Opciones: %s. Responda con el número de la opción.", q.Text, strings.Join(numbered, ", "))
	case domain.KindNumber:
		return fmt.Sprintf("%s. Responda con un número entre %d y %d.", q.Text, q.Min, q.Max)
	default:
		return q.Text
	}
}

func retryable(err error) bool {
	var ce *domain.CaptureError
	return errors.As(err, &ce) && ce.Retryable()
}

func matchApiary(text string, apiaries []domain.Apiary) (domain.Apiary, bool) {
	normalized := validate.Normalize(text)
	for _, a := range apiaries {
		if name := validate.Normalize(a.Name); name != "" && strings.Contains(" "+normalized+" ", " "+name+" ") {
			return a, true
		}
	}

	names := make([]string, len(apiaries))
	for i, a := range apiaries {
		names[i] = a.Name
	}
	if i, _, ok := validate.BestMatch(text, names, apiaryMatchThreshold); ok {
		return apiaries[i], true
	}
	return domain.Apiary{}, false
}

func hasHive(hives []domain.Hive, number int) bool {
	for _, h := range hives {
		if h.Number == number {
			return true
		}
	}
	return false
}

func joinSpoken(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " o " + items[len(items)-1]
}
