package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Answer is a typed answer value. Number answers use Number, choice and text
// answers use Text.
type Answer struct {
	Kind   QuestionKind
	Number int
	Text   string
}

func NumberValue(n int) Answer    { return Answer{Kind: KindNumber, Number: n} }
func ChoiceValue(s string) Answer { return Answer{Kind: KindChoice, Text: s} }
func TextValue(s string) Answer   { return Answer{Kind: KindText, Text: s} }

func (a Answer) String() string {
	if a.Kind == KindNumber {
		return strconv.Itoa(a.Number)
	}
	return a.Text
}

type answerJSON struct {
	QuestionID string          `json:"question_id,omitempty"`
	Kind       QuestionKind    `json:"kind"`
	Value      json.RawMessage `json:"value"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.toJSON(""))
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := raw.answer()
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Answer) toJSON(questionID string) answerJSON {
	var value []byte
	if a.Kind == KindNumber {
		value, _ = json.Marshal(a.Number)
	} else {
		value, _ = json.Marshal(a.Text)
	}
	return answerJSON{QuestionID: questionID, Kind: a.Kind, Value: value}
}

func (r answerJSON) answer() (Answer, error) {
	switch r.Kind {
	case KindNumber:
		var n int
		if err := json.Unmarshal(r.Value, &n); err != nil {
			return Answer{}, fmt.Errorf("decoding number answer %q: %w", r.QuestionID, err)
		}
		return NumberValue(n), nil
	case KindChoice, KindText:
		var s string
		if err := json.Unmarshal(r.Value, &s); err != nil {
			return Answer{}, fmt.Errorf("decoding %s answer %q: %w", r.Kind, r.QuestionID, err)
		}
		return Answer{Kind: r.Kind, Text: s}, nil
	default:
		return Answer{}, fmt.Errorf("unknown answer kind %q", r.Kind)
	}
}

// Answers maps question ids to answers and remembers insertion order.
type Answers struct {
	keys   []string
	values map[string]Answer
}

func (a *Answers) Set(id string, v Answer) {
	if a.values == nil {
		a.values = make(map[string]Answer)
	}
	if _, exists := a.values[id]; !exists {
		a.keys = append(a.keys, id)
	}
	a.values[id] = v
}

func (a *Answers) Get(id string) (Answer, bool) {
	v, ok := a.values[id]
	return v, ok
}

func (a *Answers) Len() int { return len(a.keys) }

func (a *Answers) Keys() []string {
	keys := make([]string, len(a.keys))
	copy(keys, a.keys)
	return keys
}

func (a *Answers) Each(fn func(id string, v Answer)) {
	for _, k := range a.keys {
		fn(k, a.values[k])
	}
}

func (a *Answers) Clone() Answers {
	var c Answers
	a.Each(c.Set)
	return c
}

// MarshalJSON encodes answers as an ordered array so ask order survives
// storage.
func (a Answers) MarshalJSON() ([]byte, error) {
	out := make([]answerJSON, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.values[k].toJSON(k))
	}
	return json.Marshal(out)
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw []answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var decoded Answers
	for _, r := range raw {
		v, err := r.answer()
		if err != nil {
			return err
		}
		decoded.Set(r.QuestionID, v)
	}
	*a = decoded
	return nil
}
