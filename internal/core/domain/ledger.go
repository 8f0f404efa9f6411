package domain

import "time"

// LedgerKey identifies a sent signal. Two signals with the same key are
// duplicates as far as mail is concerned.
type LedgerKey struct {
	Type        SignalType
	TargetKind  TargetKind
	Target      string
	SubjectKind SubjectKind
	Subject     string
	Detail      string
}

// LedgerEntry records that a signal was mailed.
type LedgerEntry struct {
	ID     int64
	Key    LedgerKey
	SentAt time.Time
}

// NewLedgerEntry stamps key with the current time.
func NewLedgerEntry(key LedgerKey) LedgerEntry {
	return LedgerEntry{Key: key, SentAt: time.Now().UTC()}
}

// MailCandidate is a signal waiting for the batch mail job.
type MailCandidate struct {
	ID       int64
	Signal   Signal
	QueuedAt time.Time
}

// BatchResult reports the outcome of one batch mail run.
type BatchResult struct {
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// RetentionResult reports how many rows a sweep removed.
type RetentionResult struct {
	LedgerRemoved    int64 `json:"ledgerRemoved"`
	DashboardRemoved int64 `json:"dashboardRemoved"`
}
