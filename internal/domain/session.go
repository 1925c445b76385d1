package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionState string

const (
	StateSelectingApiary SessionState = "selecting_apiary"
	StateSelectingHive   SessionState = "selecting_hive"
	StateAsking          SessionState = "asking"
	StateReviewing       SessionState = "reviewing"
	StateCompleted       SessionState = "completed"
	StateAborted         SessionState = "aborted"
)

type Session struct {
	RecordID    string
	ApiaryID    int64
	ApiaryName  string
	HiveNumber  int
	StartedAt   time.Time
	CompletedAt time.Time
	Answers     Answers
	State       SessionState
}

func NewSession(now time.Time) *Session {
	return &Session{
		RecordID:  uuid.NewString(),
		StartedAt: now.UTC().Round(0),
		State:     StateSelectingApiary,
	}
}

// Record snapshots the session for persistence.
func (s *Session) Record() Record {
	return Record{
		RecordID:    s.RecordID,
		ApiaryID:    s.ApiaryID,
		ApiaryName:  s.ApiaryName,
		HiveNumber:  s.HiveNumber,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		Answers:     s.Answers.Clone(),
	}
}
