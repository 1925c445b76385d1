package domain

import "time"

// Record is a completed inspection as stored remotely or queued locally.
// RecordID is the idempotency key shared by both.
type Record struct {
	RecordID    string    `json:"record_id"`
	ApiaryID    int64     `json:"apiary_id"`
	ApiaryName  string    `json:"apiary_name,omitempty"`
	HiveNumber  int       `json:"hive_number"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Answers     Answers   `json:"answers"`
}

// PendingRecord is a Record waiting in the offline queue. FileID identifies
// the queue file only.
type PendingRecord struct {
	FileID string
	Record Record
}

type Apiary struct {
	ID       int64
	Name     string
	Location string
}

type Hive struct {
	ID     int64
	Number int
}
