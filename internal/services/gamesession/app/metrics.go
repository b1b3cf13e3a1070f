package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/louisbranch/gamesession/app"

type metrics struct {
	gamesStarted   metric.Int64Counter
	guesses        metric.Int64Counter
	gamesFinished  metric.Int64Counter
	parked         metric.Int64Counter
	orphanReplies  metric.Int64Counter
	oracleFailures metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	m := &metrics{}
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.gamesStarted, "gamesession.games.started", "Games that reached running."},
		{&m.guesses, "gamesession.guesses", "Guesses answered by the oracle."},
		{&m.gamesFinished, "gamesession.games.finished", "Games that reached a final outcome."},
		{&m.parked, "gamesession.messages.parked", "Commands parked awaiting the oracle."},
		{&m.orphanReplies, "gamesession.replies.orphaned", "Oracle replies with no waiting session."},
		{&m.oracleFailures, "gamesession.oracle.unavailable", "Commands abandoned because the oracle was unreachable."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

func (m *metrics) finished(ctx context.Context, outcome string) {
	m.gamesFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
