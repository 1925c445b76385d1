package application

import (
	"context"

	"apiary-voice/internal/domain"
)

type QuestionStore interface {
	LoadActive(ctx context.Context) ([]domain.QuestionSpec, error)
	// ReplaceAll swaps the whole question set atomically.
	ReplaceAll(ctx context.Context, questions []domain.QuestionSpec) error
}

type RecordStore interface {
	Insert(ctx context.Context, record domain.Record) error
	ListApiaries(ctx context.Context) ([]domain.Apiary, error)
	ListHives(ctx context.Context, apiaryID int64) ([]domain.Hive, error)
}

type PendingQueue interface {
	Enqueue(ctx context.Context, record domain.Record) (domain.PendingRecord, error)
	// List returns queued records oldest first.
	List(ctx context.Context) ([]domain.PendingRecord, error)
	Remove(ctx context.Context, fileID string) error
}

// ModeDetector tells whether this device should queue records locally.
type ModeDetector interface {
	Offline() bool
}
