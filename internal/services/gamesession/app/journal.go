package app

import (
	"context"
	"time"

	"github.com/louisbranch/gamesession/internal/platform/timeouts"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
)

const defaultJournalCapacity = 256

// journal writes finished games to a ResultStore off the dispatch path.
type journal struct {
	store   storage.ResultStore
	records chan storage.ResultRecord
	now     func() time.Time
	logf    func(string, ...any)
}

func newJournal(store storage.ResultStore, capacity int, logf func(string, ...any)) *journal {
	if capacity <= 0 {
		capacity = defaultJournalCapacity
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &journal{
		store:   store,
		records: make(chan storage.ResultRecord, capacity),
		now:     time.Now,
		logf:    logf,
	}
}

// Record enqueues a result, dropping it when the buffer is full.
func (j *journal) Record(result storage.ResultRecord) {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = j.now().UTC()
	}
	select {
	case j.records <- result:
	default:
		j.logf("drop game result for %s: journal buffer full", result.User)
	}
}

// Run persists results until ctx is canceled, then flushes what is buffered.
// Writes outlive ctx so a result dequeued during shutdown is not lost.
func (j *journal) Run(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case result := <-j.records:
			j.write(writeCtx, result)
		case <-ctx.Done():
			j.flush(writeCtx)
			return
		}
	}
}

func (j *journal) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Shutdown)
	defer cancel()
	for {
		select {
		case result := <-j.records:
			j.write(ctx, result)
		default:
			return
		}
	}
}

func (j *journal) write(ctx context.Context, result storage.ResultRecord) {
	if err := j.store.RecordResult(ctx, result); err != nil {
		j.logf("record game result for %s: %v", result.User, err)
	}
}

var _ ResultRecorder = (*journal)(nil)
