// Package storage defines persistence contracts for finished game results.
package storage

import (
	"context"
	"time"
)

// ResultRecord is one finished game.
type ResultRecord struct {
	ID           int64
	User         string
	Outcome      string
	AttemptsUsed int32
	Block        uint64
	FinishedAt   time.Time
}

// ResultStore persists finished game results.
type ResultStore interface {
	RecordResult(ctx context.Context, result ResultRecord) error
	// ListResults returns newest-first results, for every user when user is empty.
	ListResults(ctx context.Context, user string, limit int) ([]ResultRecord, error)
}
