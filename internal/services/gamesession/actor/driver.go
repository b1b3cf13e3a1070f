package actor

import (
	"context"
	"time"
)

// Driver advances a System in real time.
type Driver struct {
	system   *System
	interval time.Duration
	logf     func(string, ...any)
}

// NewDriver builds a driver that runs one block per interval.
func NewDriver(system *System, interval time.Duration, logf func(string, ...any)) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Driver{system: system, interval: interval, logf: logf}
}

// Run ticks blocks until ctx is canceled. Submitted work is dispatched
// immediately at the current block rather than waiting for the next tick.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.report(d.system.RunNextBlock())
		case <-d.system.Work():
			d.report(d.system.Dispatch())
		}
	}
}

func (d *Driver) report(result BlockResult) {
	for _, failure := range result.Failed {
		d.logf("block %d: message %s from %s to %s failed: %v",
			result.Block,
			failure.Message.ID,
			failure.Message.Source,
			failure.Message.Destination,
			failure.Err,
		)
	}
}
