package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	minHealthBackoff = 200 * time.Millisecond
	maxHealthBackoff = time.Second
	healthCallLimit  = time.Second
)

// newHealthBackoff doubles from minHealthBackoff up to maxHealthBackoff
// without jitter.
func newHealthBackoff() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = minHealthBackoff
	policy.MaxInterval = maxHealthBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.Reset()
	return policy
}

// WaitForHealth polls the health service of conn until service reports
// SERVING or ctx ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	client := grpc_health_v1.NewHealthClient(conn)
	policy := newHealthBackoff()
	for {
		serving, reason := checkHealth(ctx, client, service)
		if serving {
			logf("gRPC health check for %q is SERVING", service)
			return nil
		}
		logf("waiting for gRPC health of %q: %s", service, reason)

		timer := time.NewTimer(policy.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func checkHealth(ctx context.Context, client grpc_health_v1.HealthClient, service string) (bool, string) {
	callCtx, cancel := context.WithTimeout(ctx, healthCallLimit)
	defer cancel()
	resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return false, err.Error()
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return false, "status " + resp.GetStatus().String()
	}
	return true, ""
}
