package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"apiary-voice/internal/domain"
)

var errScriptExhausted = errors.New("script exhausted")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedTranscriber replays replies in order. An empty reply means silence.
type scriptedTranscriber struct {
	replies []string
	errs    map[int]error
	calls   int
}

func (s *scriptedTranscriber) Listen(_ context.Context, _ time.Duration) (string, error) {
	i := s.calls
	s.calls++
	if err, ok := s.errs[i]; ok {
		return "", err
	}
	if i >= len(s.replies) {
		return "", errScriptExhausted
	}
	if s.replies[i] == "" {
		return "", domain.ErrNoSpeech
	}
	return s.replies[i], nil
}

type recordingNarrator struct {
	said []string
}

func (r *recordingNarrator) Speak(_ context.Context, text string) error {
	r.said = append(r.said, text)
	return nil
}

func (r *recordingNarrator) saidExactly(text string) bool {
	for _, s := range r.said {
		if s == text {
			return true
		}
	}
	return false
}

type countingCue struct {
	mu    sync.Mutex
	plays int
}

func (c *countingCue) Play(_ context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		c.mu.Lock()
		c.plays++
		c.mu.Unlock()
		done <- nil
		close(done)
	}()
	return done
}

type memQuestionStore struct {
	questions []domain.QuestionSpec
	err       error
}

func (m *memQuestionStore) LoadActive(_ context.Context) ([]domain.QuestionSpec, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.QuestionSpec(nil), m.questions...), nil
}

func (m *memQuestionStore) ReplaceAll(_ context.Context, questions []domain.QuestionSpec) error {
	m.questions = append([]domain.QuestionSpec(nil), questions...)
	return nil
}

type memRecordStore struct {
	mu       sync.Mutex
	apiaries []domain.Apiary
	hives    map[int64][]domain.Hive
	records  map[string]domain.Record
	inserts  int
	// failOn makes the n-th Insert call (1-based) fail.
	failOn int
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{
		apiaries: []domain.Apiary{
			{ID: 1, Name: "Norte"},
			{ID: 2, Name: "Centro"},
			{ID: 3, Name: "Sur"},
		},
		hives: map[int64][]domain.Hive{
			1: {{ID: 10, Number: 1}, {ID: 11, Number: 2}},
			2: {{ID: 20, Number: 1}},
		},
		records: make(map[string]domain.Record),
	}
}

func (m *memRecordStore) Insert(_ context.Context, record domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.failOn == m.inserts {
		return errors.New("connection refused")
	}
	m.records[record.RecordID] = record
	return nil
}

func (m *memRecordStore) Get(_ context.Context, recordID string) (domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return domain.Record{}, fmt.Errorf("record %s not found", recordID)
	}
	return r, nil
}

func (m *memRecordStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memRecordStore) ListApiaries(_ context.Context) ([]domain.Apiary, error) {
	return m.apiaries, nil
}

func (m *memRecordStore) ListHives(_ context.Context, apiaryID int64) ([]domain.Hive, error) {
	return m.hives[apiaryID], nil
}

type memQueue struct {
	mu         sync.Mutex
	items      map[string]domain.Record
	seq        int
	enqueueErr error
}

func newMemQueue() *memQueue {
	return &memQueue{items: make(map[string]domain.Record)}
}

func (m *memQueue) Enqueue(_ context.Context, record domain.Record) (domain.PendingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return domain.PendingRecord{}, m.enqueueErr
	}
	m.seq++
	id := fmt.Sprintf("monitoreo_%04d.json", m.seq)
	m.items[id] = record
	return domain.PendingRecord{FileID: id, Record: record}, nil
}

func (m *memQueue) List(_ context.Context) ([]domain.PendingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.PendingRecord, 0, len(m.items))
	for id, r := range m.items {
		result = append(result, domain.PendingRecord{FileID: id, Record: r})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FileID < result[j].FileID })
	return result, nil
}

func (m *memQueue) Remove(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, fileID)
	return nil
}

func (m *memQueue) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type staticMode bool

func (s staticMode) Offline() bool { return bool(s) }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}
