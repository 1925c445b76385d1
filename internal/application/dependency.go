package application

import (
	"fmt"

	"apiary-voice/internal/domain"
)

// DependencyRule decides whether q is asked given the recorded answer of the
// question it depends on.
type DependencyRule func(q, dep domain.QuestionSpec, answer domain.Answer, answered bool) bool

// TriggerRule asks q only when dep was answered and, if q lists ShowWhen
// values, with one of them.
func TriggerRule(q, _ domain.QuestionSpec, answer domain.Answer, answered bool) bool {
	if !answered {
		return false
	}
	if len(q.ShowWhen) == 0 {
		return true
	}
	return q.TriggeredBy(answer.Text)
}

// LegacyRule skips q only when dep holds a choice that is not one of its own
// options. Unanswered dependencies do not skip.
func LegacyRule(_, dep domain.QuestionSpec, answer domain.Answer, answered bool) bool {
	if !answered {
		return true
	}
	if dep.Kind == domain.KindChoice && !dep.HasOption(answer.Text) {
		return false
	}
	return true
}

func DependencyRuleByName(name string) (DependencyRule, error) {
	switch name {
	case "", "trigger":
		return TriggerRule, nil
	case "legacy":
		return LegacyRule, nil
	default:
		return nil, fmt.Errorf("unknown dependency rule %q", name)
	}
}
