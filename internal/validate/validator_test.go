package validate_test

import (
	"errors"
	"strconv"
	"testing"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/validate"
)

var frames = domain.QuestionSpec{ID: "cuadros_cria", Kind: domain.KindNumber, Min: 0, Max: 20}

var activity = domain.QuestionSpec{
	ID:      "actividad_piqueras",
	Kind:    domain.KindChoice,
	Options: []string{"Baja", "Media", "Alta"},
}

func TestValidate_NumberInRangeUnchanged(t *testing.T) {
	v := validate.New(validate.RangeReject)
	for n := frames.Min; n <= frames.Max; n++ {
		got, err := v.Validate(frames, strconv.Itoa(n))
		if err != nil {
			t.Fatalf("Validate(%d): %v", n, err)
		}
		if got != domain.NumberValue(n) {
			t.Errorf("Validate(%d): got %+v", n, got)
		}
	}
}

func TestValidate_NumberWords(t *testing.T) {
	v := validate.New(validate.RangeReject)
	got, err := v.Validate(frames, "quince")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Number != 15 {
		t.Errorf("got %d, want 15", got.Number)
	}
}

func TestValidate_RejectOutOfRange(t *testing.T) {
	v := validate.New(validate.RangeReject)

	_, err := v.Validate(frames, "25")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Reason != "El valor debe estar entre 0 y 20." {
		t.Errorf("reason: got %q", ve.Reason)
	}
}

func TestValidate_ClampOutOfRange(t *testing.T) {
	v := validate.New(validate.RangeClamp)

	got, err := v.Validate(frames, "25")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Number != 20 {
		t.Errorf("upper clamp: got %d, want 20", got.Number)
	}

	got, err = v.Validate(frames, "-3")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Number != 0 {
		t.Errorf("lower clamp: got %d, want 0", got.Number)
	}
}

func TestValidate_NumberNotUnderstood(t *testing.T) {
	v := validate.New(validate.RangeReject)
	_, err := v.Validate(frames, "muchísimos")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidate_Choice(t *testing.T) {
	v := validate.New(validate.RangeReject)

	tests := []struct {
		reply string
		want  string
	}{
		{"2", "Media"},
		{"dos", "Media"},
		{"opción tres", "Alta"},
		{"media", "Media"},
		{"la actividad es alta", "Alta"},
		{"bajá", "Baja"},
	}

	for _, tt := range tests {
		got, err := v.Validate(activity, tt.reply)
		if err != nil {
			t.Errorf("Validate(%q): %v", tt.reply, err)
			continue
		}
		if got != domain.ChoiceValue(tt.want) {
			t.Errorf("Validate(%q): got %q, want %q", tt.reply, got.Text, tt.want)
		}
	}
}

func TestValidate_ChoiceUnrecognized(t *testing.T) {
	v := validate.New(validate.RangeReject)

	for _, reply := range []string{"7", "ninguna de esas", ""} {
		_, err := v.Validate(activity, reply)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Validate(%q): expected ValidationError, got %v", reply, err)
		}
	}
}

func TestValidate_ChoiceFirstContainedOptionWins(t *testing.T) {
	v := validate.New(validate.RangeReject)
	level := domain.QuestionSpec{
		ID:      "poblacion",
		Kind:    domain.KindChoice,
		Options: []string{"Baja", "Media baja", "Alta"},
	}

	got, err := v.Validate(level, "es media baja")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Text != "Baja" {
		t.Errorf("got %q, want Baja", got.Text)
	}
}

func TestValidate_ChoiceExactOptionBeforeContained(t *testing.T) {
	v := validate.New(validate.RangeReject)
	state := domain.QuestionSpec{
		ID:   "estado_colmena",
		Kind: domain.KindChoice,
		Options: []string{
			"Cámara de cría",
			"Cámara de cría y producción",
		},
	}

	got, err := v.Validate(state, "cámara de cría y producción")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Text != "Cámara de cría y producción" {
		t.Errorf("got %q", got.Text)
	}
}

func TestValidate_Text(t *testing.T) {
	v := validate.New(validate.RangeReject)
	notes := domain.QuestionSpec{ID: "observaciones", Kind: domain.KindText}

	got, err := v.Validate(notes, "  Reina Vista EN el Cuadro 3 ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != domain.TextValue("reina vista en el cuadro 3") {
		t.Errorf("got %q", got.Text)
	}

	blank, err := v.Validate(notes, "   ")
	if err != nil {
		t.Fatalf("Validate blank: %v", err)
	}
	if blank != domain.TextValue("") {
		t.Errorf("blank: got %q, want empty text", blank.Text)
	}
}

func TestValidate_Fatal(t *testing.T) {
	v := validate.New(validate.RangeReject)

	specs := []domain.QuestionSpec{
		{ID: "empty", Kind: domain.KindChoice},
		{ID: "weird", Kind: "date"},
		{ID: "inverted", Kind: domain.KindNumber, Min: 10, Max: 1},
	}
	for _, s := range specs {
		_, err := v.Validate(s, "1")
		var fe *domain.FatalError
		if !errors.As(err, &fe) {
			t.Errorf("%s: expected FatalError, got %v", s.ID, err)
		}
	}
}

func TestNew_DefaultsToReject(t *testing.T) {
	if got := validate.New("sometimes").Policy(); got != validate.RangeReject {
		t.Errorf("got %q, want reject", got)
	}
}
