package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Narrator  NarratorConfig  `yaml:"narrator"`
	Storage   StorageConfig   `yaml:"storage"`
	Questions QuestionsConfig `yaml:"questions"`
	Interview InterviewConfig `yaml:"interview"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Log       LogConfig       `yaml:"log"`
}

type AudioConfig struct {
	// Source is one of microphone, http, file or console.
	Source     string `yaml:"source"`
	HTTPAddr   string `yaml:"http_addr"`
	AuthToken  string `yaml:"auth_token"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
	// ReplyWait is how long http and file sources wait for a reply.
	ReplyWait string `yaml:"reply_wait"`
	// Cue plays a sound before each capture: beep, bell or none.
	Cue string `yaml:"cue"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
	BaseURL  string `yaml:"base_url"`
}

type NarratorConfig struct {
	// Engine is console or espeak.
	Engine string `yaml:"engine"`
	Binary string `yaml:"binary"`
	Voice  string `yaml:"voice"`
	Rate   int    `yaml:"rate"`
}

type StorageConfig struct {
	// Driver is sqlite or mysql.
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	QueueDir string `yaml:"queue_dir"`
	// Mode is auto, offline or online.
	Mode         string `yaml:"mode"`
	SeedHives    int    `yaml:"seed_hives"`
	SyncInterval string `yaml:"sync_interval"`
}

type QuestionsConfig struct {
	// Source is db (the storage database) or file.
	Source string `yaml:"source"`
	File   string `yaml:"file"`
	// SeedDefaults fills an empty catalog with the built-in questions.
	SeedDefaults *bool `yaml:"seed_defaults"`
}

type InterviewConfig struct {
	MaxAttempts       *int   `yaml:"max_attempts"`
	RangePolicy       string `yaml:"range_policy"`
	DependencyRule    string `yaml:"dependency_rule"`
	EnforceRequired   *bool  `yaml:"enforce_required"`
	// MaxRestarts of 0 allows no restart after a rejected review.
	MaxRestarts       *int   `yaml:"max_restarts"`
	SelectionAttempts int    `yaml:"selection_attempts"`
	Preview           bool   `yaml:"preview"`
	AnswerDuration    string `yaml:"answer_duration"`
	TextDuration      string `yaml:"text_duration"`
	ConfirmDuration   string `yaml:"confirm_duration"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File sends logs to a rotated file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "console"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./respuestas"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.ReplyWait == "" {
		c.Audio.ReplyWait = "30s"
	}
	if c.Audio.Cue == "" {
		c.Audio.Cue = "bell"
		if c.Audio.Source == "microphone" {
			c.Audio.Cue = "beep"
		}
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "es"
	}
	if c.Narrator.Engine == "" {
		c.Narrator.Engine = "console"
	}
	if c.Narrator.Voice == "" {
		c.Narrator.Voice = "es"
	}
	if c.Narrator.Rate == 0 {
		c.Narrator.Rate = 180
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Driver == "sqlite" {
		c.Storage.DSN = "colmenas.db"
	}
	if c.Storage.QueueDir == "" {
		c.Storage.QueueDir = "monitoreos_temp"
	}
	if c.Storage.Mode == "" {
		c.Storage.Mode = "auto"
	}
	if c.Storage.SeedHives == 0 {
		c.Storage.SeedHives = 10
	}
	if c.Storage.SyncInterval == "" {
		c.Storage.SyncInterval = "5m"
	}
	if c.Questions.Source == "" {
		c.Questions.Source = "db"
	}
	if c.Questions.SeedDefaults == nil {
		seed := true
		c.Questions.SeedDefaults = &seed
	}
	if c.Interview.MaxAttempts == nil {
		attempts := 2
		c.Interview.MaxAttempts = &attempts
	}
	if c.Interview.RangePolicy == "" {
		c.Interview.RangePolicy = "reject"
	}
	if c.Interview.DependencyRule == "" {
		c.Interview.DependencyRule = "trigger"
	}
	if c.Interview.EnforceRequired == nil {
		enforce := true
		c.Interview.EnforceRequired = &enforce
	}
	if c.Interview.MaxRestarts == nil {
		restarts := 3
		c.Interview.MaxRestarts = &restarts
	}
	if c.Interview.AnswerDuration == "" {
		c.Interview.AnswerDuration = "3s"
	}
	if c.Interview.TextDuration == "" {
		c.Interview.TextDuration = "5s"
	}
	if c.Interview.ConfirmDuration == "" {
		c.Interview.ConfirmDuration = "3s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

// Validate rejects unknown enum values and malformed durations.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q", field, value))
	}

	check("audio.source", c.Audio.Source, "microphone", "http", "file", "console")
	check("audio.cue", c.Audio.Cue, "beep", "bell", "none")
	check("narrator.engine", c.Narrator.Engine, "console", "espeak")
	check("storage.driver", c.Storage.Driver, "sqlite", "mysql")
	check("storage.mode", c.Storage.Mode, "auto", "offline", "online")
	check("questions.source", c.Questions.Source, "db", "file")
	check("interview.range_policy", c.Interview.RangePolicy, "reject", "clamp")
	check("interview.dependency_rule", c.Interview.DependencyRule, "trigger", "legacy")
	check("log.format", c.Log.Format, "text", "json")

	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn: required"))
	}
	if c.Questions.Source == "file" && c.Questions.File == "" {
		errs = append(errs, errors.New("questions.file: required when questions.source is file"))
	}
	if *c.Interview.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("interview.max_attempts: must be at least 1, got %d", *c.Interview.MaxAttempts))
	}
	if *c.Interview.MaxRestarts < 0 {
		errs = append(errs, fmt.Errorf("interview.max_restarts: must not be negative, got %d", *c.Interview.MaxRestarts))
	}
	if c.Interview.SelectionAttempts < 0 {
		errs = append(errs, fmt.Errorf("interview.selection_attempts: must not be negative"))
	}

	for field, value := range map[string]string{
		"audio.reply_wait":           c.Audio.ReplyWait,
		"storage.sync_interval":      c.Storage.SyncInterval,
		"interview.answer_duration":  c.Interview.AnswerDuration,
		"interview.text_duration":    c.Interview.TextDuration,
		"interview.confirm_duration": c.Interview.ConfirmDuration,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	return errors.Join(errs...)
}

// Duration parses a duration field already checked by Validate.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
