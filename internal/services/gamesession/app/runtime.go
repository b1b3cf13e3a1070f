package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/gamesession/internal/platform/grpc"
	"github.com/louisbranch/gamesession/internal/platform/timeouts"
	"github.com/louisbranch/gamesession/internal/services/gamesession/actor"
	gamesessionapi "github.com/louisbranch/gamesession/internal/services/gamesession/api/grpc/gamesession"
	grpcmeta "github.com/louisbranch/gamesession/internal/services/gamesession/api/grpc/metadata"
	"github.com/louisbranch/gamesession/internal/services/gamesession/oracle"
	sessionsqlite "github.com/louisbranch/gamesession/internal/services/gamesession/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// SessionActor is the actor id of the coordinator program.
	SessionActor actor.ActorID = "gamesession"
	// OracleActor is the actor id of the remote oracle proxy.
	OracleActor actor.ActorID = "oracle"

	defaultPort   = 8092
	defaultDBPath = "data/gamesession.db"
	healthService = "gamesession.runtime"
)

// RuntimeConfig controls coordinator startup and dependencies.
type RuntimeConfig struct {
	Port             int
	OracleAddr       string
	DBPath           string
	BlockInterval    time.Duration
	MaxQueueDepth    int
	OracleTimeout    time.Duration
	OracleMaxRetries uint
	AuthHMACKey      string
	GRPCDialTimeout  time.Duration
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.BlockInterval <= 0 {
		cfg.BlockInterval = timeouts.BlockInterval
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = timeouts.OracleRequest
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}
	return cfg
}

// Coordinator is the assembled actor system with its session program.
type Coordinator struct {
	System  *actor.System
	Program *SessionProgram
	Gateway *Gateway
}

// CoordinatorConfig wires NewCoordinator.
type CoordinatorConfig struct {
	MaxQueueDepth int
	OracleAddress string
	Results       ResultRecorder
	NewID         func() (string, error)
	Logf          func(string, ...any)
}

// NewCoordinator builds a system hosting the session program. The caller
// registers the oracle under OracleActor.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	system := actor.NewSystem(actor.Options{
		MaxQueueDepth: cfg.MaxQueueDepth,
		NewID:         cfg.NewID,
	})
	program, err := NewSessionProgram(SessionProgramConfig{
		Oracle:        OracleActor,
		OracleAddress: cfg.OracleAddress,
		Results:       cfg.Results,
		Logf:          cfg.Logf,
	})
	if err != nil {
		return nil, err
	}
	if err := system.Register(SessionActor, program); err != nil {
		return nil, err
	}
	return &Coordinator{
		System:  system,
		Program: program,
		Gateway: NewGateway(system, SessionActor),
	}, nil
}

// Run starts the coordinator and serves gRPC until ctx is canceled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.OracleAddr) == "" {
		return fmt.Errorf("oracle address is required")
	}
	cfg = cfg.normalized()

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create game session storage dir: %w", err)
		}
	}

	resultStore, err := sessionsqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open game session sqlite store: %w", err)
	}
	defer func() {
		if closeErr := resultStore.Close(); closeErr != nil {
			log.Printf("close game session sqlite store: %v", closeErr)
		}
	}()

	oracleConn, err := platformgrpc.DialWithHealth(
		ctx,
		nil,
		cfg.OracleAddr,
		"",
		cfg.GRPCDialTimeout,
		log.Printf,
		platformgrpc.DefaultClientDialOptions()...,
	)
	if err != nil {
		return fmt.Errorf("dial oracle service: %w", err)
	}
	defer func() {
		if closeErr := oracleConn.Close(); closeErr != nil {
			log.Printf("close oracle connection: %v", closeErr)
		}
	}()

	results := newJournal(resultStore, 0, log.Printf)
	coordinator, err := NewCoordinator(CoordinatorConfig{
		MaxQueueDepth: cfg.MaxQueueDepth,
		OracleAddress: cfg.OracleAddr,
		Results:       results,
		Logf:          log.Printf,
	})
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}
	defer coordinator.Gateway.Close()

	proxy := oracle.NewProxy(oracle.NewClient(oracleConn), coordinator.System, oracle.ProxyConfig{
		RequestTimeout: cfg.OracleTimeout,
		MaxRetries:     cfg.OracleMaxRetries,
	}, log.Printf)
	defer proxy.Close()
	if err := coordinator.System.RegisterRemote(OracleActor, proxy); err != nil {
		return fmt.Errorf("register oracle proxy: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on game session port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(nil)),
	)
	gamesessionapi.RegisterGameSessionServiceServer(grpcServer, gamesessionapi.NewService(
		coordinator.Gateway,
		resultStore,
		gamesessionapi.NewIdentity(cfg.AuthHMACKey),
	))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthService, grpc_health_v1.HealthCheckResponse_SERVING)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		results.Run(runCtx)
	}()
	defer func() { <-journalDone }()

	driverDone := make(chan error, 1)
	go func() {
		driverDone <- actor.NewDriver(coordinator.System, cfg.BlockInterval, log.Printf).Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()

	log.Printf("game session server listening at %v", listener.Addr())

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("serve gRPC: %w", err)
		serveErr <- nil
	}

	healthServer.Shutdown()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeouts.Shutdown):
		grpcServer.Stop()
	}
	<-serveErr
	cancel()
	if err := <-driverDone; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
