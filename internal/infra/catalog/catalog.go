package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"apiary-voice/internal/domain"
)

//go:embed default_questions.yaml
var defaultCatalog []byte

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

type document struct {
	Questions []entry `yaml:"questions" toml:"questions"`
}

// entry is the file form of a question. Pointer fields tell an omitted value
// from an explicit zero.
type entry struct {
	ID        string   `yaml:"id" toml:"id"`
	Text      string   `yaml:"text" toml:"text"`
	Kind      string   `yaml:"kind" toml:"kind"`
	Required  bool     `yaml:"required,omitempty" toml:"required,omitempty"`
	Order     int      `yaml:"order" toml:"order"`
	Active    *bool    `yaml:"active,omitempty" toml:"active,omitempty"`
	Min       *int     `yaml:"min,omitempty" toml:"min,omitempty"`
	Max       *int     `yaml:"max,omitempty" toml:"max,omitempty"`
	Options   []string `yaml:"options,omitempty" toml:"options,omitempty"`
	DependsOn string   `yaml:"depends_on,omitempty" toml:"depends_on,omitempty"`
	ShowWhen  []string `yaml:"show_when,omitempty" toml:"show_when,omitempty"`
}

var kindAliases = map[string]domain.QuestionKind{
	"number": domain.KindNumber,
	"numero": domain.KindNumber,
	"choice": domain.KindChoice,
	"opcion": domain.KindChoice,
	"text":   domain.KindText,
	"texto":  domain.KindText,
}

// FormatFor picks the catalog format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported catalog extension %q", filepath.Ext(path))
	}
}

func Parse(data []byte, format Format) ([]domain.QuestionSpec, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing yaml catalog: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing toml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}

	questions := make([]domain.QuestionSpec, 0, len(doc.Questions))
	for i, e := range doc.Questions {
		q, err := e.spec()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (e entry) spec() (domain.QuestionSpec, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(e.Kind))]
	if !ok {
		return domain.QuestionSpec{}, fmt.Errorf("%q: unknown kind %q", e.ID, e.Kind)
	}
	q := domain.QuestionSpec{
		ID:        strings.TrimSpace(e.ID),
		Text:      e.Text,
		Kind:      kind,
		Required:  e.Required,
		Order:     e.Order,
		Active:    true,
		Min:       domain.DefaultMin,
		Max:       domain.DefaultMax,
		Options:   e.Options,
		DependsOn: e.DependsOn,
		ShowWhen:  e.ShowWhen,
	}
	if e.Active != nil {
		q.Active = *e.Active
	}
	if e.Min != nil {
		q.Min = *e.Min
	}
	if e.Max != nil {
		q.Max = *e.Max
	}
	if q.Text == "" {
		q.Text = strings.ReplaceAll(q.ID, "_", " ")
	}
	return q, nil
}

func fromSpec(q domain.QuestionSpec) entry {
	e := entry{
		ID:        q.ID,
		Text:      q.Text,
		Kind:      string(q.Kind),
		Required:  q.Required,
		Order:     q.Order,
		Options:   q.Options,
		DependsOn: q.DependsOn,
		ShowWhen:  q.ShowWhen,
	}
	if !q.Active {
		active := false
		e.Active = &active
	}
	if q.Kind == domain.KindNumber {
		lo, hi := q.Min, q.Max
		e.Min, e.Max = &lo, &hi
	}
	return e
}

func Encode(questions []domain.QuestionSpec, format Format) ([]byte, error) {
	doc := document{Questions: make([]entry, len(questions))}
	for i, q := range questions {
		doc.Questions[i] = fromSpec(q)
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		return toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}

func LoadFile(path string) ([]domain.QuestionSpec, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data, format)
}

// DefaultQuestions returns the built-in beehive inspection catalog.
func DefaultQuestions() []domain.QuestionSpec {
	questions, err := Parse(defaultCatalog, FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return questions
}

// FileStore keeps the question catalog in a YAML or TOML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadActive(_ context.Context) ([]domain.QuestionSpec, error) {
	questions, err := LoadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	active := questions[:0]
	for _, q := range questions {
		if q.Active {
			active = append(active, q)
		}
	}
	return active, nil
}

func (s *FileStore) ReplaceAll(_ context.Context, questions []domain.QuestionSpec) error {
	format, err := FormatFor(s.path)
	if err != nil {
		return err
	}
	data, err := Encode(questions, format)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating catalog dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}
