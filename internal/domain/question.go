package domain

import "strings"

type QuestionKind string

const (
	KindNumber QuestionKind = "number"
	KindChoice QuestionKind = "choice"
	KindText   QuestionKind = "text"
)

// Bounds applied to number questions stored without explicit limits.
const (
	DefaultMin = 0
	DefaultMax = 100
)

func (k QuestionKind) Valid() bool {
	switch k {
	case KindNumber, KindChoice, KindText:
		return true
	}
	return false
}

type QuestionSpec struct {
	ID       string
	Text     string
	Kind     QuestionKind
	Required bool
	Order    int
	Active   bool
	Min      int
	Max      int
	Options  []string

	// DependsOn names an earlier choice question gating this one.
	DependsOn string
	// ShowWhen lists the dependency options that enable this question.
	ShowWhen []string
}

func (q QuestionSpec) HasOption(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}

func (q QuestionSpec) TriggeredBy(value string) bool {
	for _, v := range q.ShowWhen {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
