package validate

import (
	"fmt"
	"strings"

	"apiary-voice/internal/domain"
)

// RangePolicy decides what happens to a number outside [Min, Max].
type RangePolicy string

const (
	RangeReject RangePolicy = "reject"
	RangeClamp  RangePolicy = "clamp"
)

func (p RangePolicy) Valid() bool {
	return p == RangeReject || p == RangeClamp
}

const optionWordThreshold = 0.80

// Words too common to count as overlap with an option.
var fillerWords = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "el": true, "los": true,
	"en": true, "y": true, "o": true, "con": true, "por": true, "para": true,
	"hay": true, "es": true, "un": true, "una": true, "que": true,
}

var ordinalFiller = map[string]bool{
	"opcion": true, "numero": true, "la": true, "el": true, "es": true, "de": true,
}

type Validator struct {
	policy RangePolicy
}

func New(policy RangePolicy) *Validator {
	if !policy.Valid() {
		policy = RangeReject
	}
	return &Validator{policy: policy}
}

func (v *Validator) Policy() RangePolicy { return v.policy }

// Validate turns a transcribed reply into a typed answer. Errors are either
// *domain.ValidationError (ask again) or *domain.FatalError.
func (v *Validator) Validate(spec domain.QuestionSpec, raw string) (domain.Answer, error) {
	switch spec.Kind {
	case domain.KindNumber:
		return v.number(spec, raw)
	case domain.KindChoice:
		return v.choice(spec, raw)
	case domain.KindText:
		return domain.TextValue(strings.ToLower(strings.TrimSpace(raw))), nil
	default:
		return domain.Answer{}, &domain.FatalError{QuestionID: spec.ID, Reason: fmt.Sprintf("unknown kind %q", spec.Kind)}
	}
}

func (v *Validator) number(spec domain.QuestionSpec, raw string) (domain.Answer, error) {
	if spec.Min > spec.Max {
		return domain.Answer{}, &domain.FatalError{QuestionID: spec.ID, Reason: fmt.Sprintf("min %d above max %d", spec.Min, spec.Max)}
	}

	n, ok := FindNumber(raw)
	if !ok {
		return domain.Answer{}, &domain.ValidationError{
			QuestionID: spec.ID,
			Reason:     "No entendí el número. Por favor responda con un valor numérico.",
		}
	}

	if n < spec.Min || n > spec.Max {
		if v.policy == RangeReject {
			return domain.Answer{}, &domain.ValidationError{
				QuestionID: spec.ID,
				Reason:     fmt.Sprintf("El valor debe estar entre %d y %d.", spec.Min, spec.Max),
			}
		}
		n = min(max(n, spec.Min), spec.Max)
	}
	return domain.NumberValue(n), nil
}

func (v *Validator) choice(spec domain.QuestionSpec, raw string) (domain.Answer, error) {
	if len(spec.Options) == 0 {
		return domain.Answer{}, &domain.FatalError{QuestionID: spec.ID, Reason: "choice question without options"}
	}
	if option, ok := MatchOption(raw, spec.Options); ok {
		return domain.ChoiceValue(option), nil
	}

	numbered := make([]string, len(spec.Options))
	for i, o := range spec.Options {
		numbered[i] = fmt.Sprintf("%d para %s", i+1, o)
	}
	return domain.Answer{}, &domain.ValidationError{
		QuestionID: spec.ID,
		Reason:     "Opción no reconocida. Por favor diga el número de la opción: " + strings.Join(numbered, ", ") + ".",
	}
}

// MatchOption resolves a reply to one of options: a spoken 1-based ordinal,
// then an exact option, then the first option in order contained in the
// reply, then word overlap in option order.
func MatchOption(reply string, options []string) (string, bool) {
	if n, ok := ordinal(reply); ok && n >= 1 && n <= len(options) {
		return options[n-1], true
	}

	r := strings.Join(words(reply), " ")
	if r == "" {
		return "", false
	}

	normalized := make([]string, len(options))
	for i, o := range options {
		normalized[i] = strings.Join(words(o), " ")
		if normalized[i] == r {
			return options[i], true
		}
	}

	for i, o := range normalized {
		if containsWord(r, o) {
			return options[i], true
		}
	}

	replyWords := words(reply)
	for i, o := range normalized {
		for _, ow := range strings.Fields(o) {
			if fillerWords[ow] {
				continue
			}
			for _, rw := range replyWords {
				if fillerWords[rw] || len(rw) < 2 {
					continue
				}
				if rw == ow || (len(rw) >= 4 && Similarity(rw, ow) >= optionWordThreshold) {
					return options[i], true
				}
			}
		}
	}
	return "", false
}

func ordinal(reply string) (int, bool) {
	var kept []string
	for _, w := range words(reply) {
		if !ordinalFiller[w] {
			kept = append(kept, w)
		}
	}
	phrase := strings.Join(kept, " ")
	if n, ok := ParseInteger(phrase); ok {
		return n, true
	}
	return ParseNumberWords(phrase)
}
