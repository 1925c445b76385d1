package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"apiary-voice/internal/domain"
)

type QuestionRegistry struct {
	store  QuestionStore
	logger *slog.Logger

	mu        sync.RWMutex
	questions []domain.QuestionSpec
	index     map[string]int
}

func NewQuestionRegistry(store QuestionStore, logger *slog.Logger) *QuestionRegistry {
	return &QuestionRegistry{
		store:  store,
		logger: logger,
		index:  make(map[string]int),
	}
}

// Load fetches active questions, orders them and checks their dependency
// links. It replaces whatever was loaded before.
func (r *QuestionRegistry) Load(ctx context.Context) ([]domain.QuestionSpec, error) {
	loaded, err := r.store.LoadActive(ctx)
	if err != nil {
		return nil, &domain.ConfigError{Reason: "loading questions", Err: err}
	}

	active := make([]domain.QuestionSpec, 0, len(loaded))
	for _, q := range loaded {
		if q.Active {
			active = append(active, q)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order < active[j].Order
	})

	if err := ValidateQuestions(active); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(active))
	for i, q := range active {
		index[q.ID] = i
	}

	r.mu.Lock()
	r.questions = active
	r.index = index
	r.mu.Unlock()

	r.logger.Info("questions loaded", "active", len(active), "total", len(loaded))
	return r.Questions(), nil
}

func (r *QuestionRegistry) Resolve(id string) (domain.QuestionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return domain.QuestionSpec{}, false
	}
	return r.questions[i], true
}

func (r *QuestionRegistry) Questions() []domain.QuestionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.QuestionSpec, len(r.questions))
	copy(result, r.questions)
	return result
}

func (r *QuestionRegistry) Dependents(id string) []domain.QuestionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.QuestionSpec
	for _, q := range r.questions {
		if q.DependsOn == id {
			result = append(result, q)
		}
	}
	return result
}

// ValidateQuestions checks an ordered question list: unique ids, usable
// kinds and bounds, and dependencies that point back to an earlier choice
// question without cycles.
func ValidateQuestions(questions []domain.QuestionSpec) error {
	pos := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return &domain.ConfigError{Reason: fmt.Sprintf("question at position %d has no id", i)}
		}
		if _, dup := pos[q.ID]; dup {
			return &domain.ConfigError{QuestionID: q.ID, Reason: "duplicate id"}
		}
		pos[q.ID] = i

		switch q.Kind {
		case domain.KindChoice:
			if len(q.Options) == 0 {
				return &domain.ConfigError{QuestionID: q.ID, Reason: "choice question without options"}
			}
		case domain.KindNumber:
			if q.Min > q.Max {
				return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("min %d above max %d", q.Min, q.Max)}
			}
		case domain.KindText:
		default:
			return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("unknown kind %q", q.Kind)}
		}
	}

	for _, q := range questions {
		if q.DependsOn == "" {
			continue
		}
		if q.DependsOn == q.ID {
			return &domain.ConfigError{QuestionID: q.ID, Reason: "depends on itself"}
		}
		if _, ok := pos[q.DependsOn]; !ok {
			return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("depends on unknown question %q", q.DependsOn)}
		}
		if err := walkDependencies(q, questions, pos); err != nil {
			return err
		}
	}

	for i, q := range questions {
		if q.DependsOn == "" {
			continue
		}
		dep := questions[pos[q.DependsOn]]
		if pos[dep.ID] >= i {
			return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("depends on later question %q", dep.ID)}
		}
		if dep.Kind != domain.KindChoice {
			return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("depends on %s question %q, want choice", dep.Kind, dep.ID)}
		}
		for _, v := range q.ShowWhen {
			if !dep.HasOption(v) {
				return &domain.ConfigError{QuestionID: q.ID, Reason: fmt.Sprintf("show_when value %q is not an option of %q", v, dep.ID)}
			}
		}
	}
	return nil
}

// walkDependencies follows the DependsOn chain from q. A chain longer than
// the question count must loop.
func walkDependencies(q domain.QuestionSpec, questions []domain.QuestionSpec, pos map[string]int) error {
	cur := q
	for steps := 0; cur.DependsOn != ""; steps++ {
		if steps >= len(questions) {
			return &domain.ConfigError{QuestionID: q.ID, Reason: "dependency cycle"}
		}
		next, ok := pos[cur.DependsOn]
		if !ok {
			return &domain.ConfigError{QuestionID: cur.ID, Reason: fmt.Sprintf("depends on unknown question %q", cur.DependsOn)}
		}
		cur = questions[next]
	}
	return nil
}
