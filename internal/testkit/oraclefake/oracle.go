// Package oraclefake provides word oracles for tests: an in-process actor
// program and a gRPC server, both answering from a fixed secret word.
package oraclefake

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	platformgrpc "github.com/louisbranch/gamesession/internal/platform/grpc"
	"github.com/louisbranch/gamesession/internal/services/gamesession/actor"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"github.com/louisbranch/gamesession/internal/services/gamesession/oracle"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// Match compares guess to word byte by byte. Correct lists exact positions;
// contained lists the other positions whose letter appears in word.
func Match(word, guess string) (correct, contained []uint8) {
	correct = []uint8{}
	contained = []uint8{}
	for i := 0; i < len(guess) && i < len(word); i++ {
		switch {
		case guess[i] == word[i]:
			correct = append(correct, uint8(i))
		case strings.IndexByte(word, guess[i]) >= 0:
			contained = append(contained, uint8(i))
		}
	}
	return correct, contained
}

// Program is an in-process oracle actor.
type Program struct {
	Word string

	mu       sync.Mutex
	requests []any
	// Silent suppresses replies so callers stay parked.
	Silent bool
}

// NewProgram returns an oracle whose secret word is word for every user.
func NewProgram(word string) *Program {
	return &Program{Word: word}
}

// Requests returns the payloads received so far.
func (p *Program) Requests() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.requests...)
}

// Handle implements actor.Program.
func (p *Program) Handle(ctx *actor.Context) error {
	p.mu.Lock()
	p.requests = append(p.requests, ctx.Payload())
	silent := p.Silent
	p.mu.Unlock()
	if silent {
		return nil
	}

	switch req := ctx.Payload().(type) {
	case game.OracleStartGame:
		_, err := ctx.Reply(game.OracleGameStarted{User: req.User})
		return err
	case game.OracleCheckWord:
		correct, contained := Match(p.Word, req.Word)
		_, err := ctx.Reply(game.OracleWordChecked{
			User:             req.User,
			CorrectPositions: correct,
			ContainedInWord:  contained,
		})
		return err
	default:
		return fmt.Errorf("oracle fake: unsupported payload %T", req)
	}
}

// HandleReply implements actor.Program.
func (p *Program) HandleReply(*actor.Context) error {
	return nil
}

// Server is a gRPC oracle backend.
type Server struct {
	Word string

	mu       sync.Mutex
	failNext int
	calls    int
}

// NewServer returns a gRPC oracle answering from word.
func NewServer(word string) *Server {
	return &Server{Word: word}
}

// FailNext makes the next n calls return codes.Unavailable.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Calls returns the number of calls received, failed ones included.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Server) admit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failNext > 0 {
		s.failNext--
		return status.Error(codes.Unavailable, "oracle fake unavailable")
	}
	return nil
}

// StartGame implements oracle.Server.
func (s *Server) StartGame(_ context.Context, in *oracle.StartGameRequest) (*oracle.StartGameResponse, error) {
	if err := s.admit(); err != nil {
		return nil, err
	}
	if in.User == "" {
		return nil, status.Error(codes.InvalidArgument, "user is required")
	}
	return &oracle.StartGameResponse{User: in.User}, nil
}

// CheckWord implements oracle.Server.
func (s *Server) CheckWord(_ context.Context, in *oracle.CheckWordRequest) (*oracle.CheckWordResponse, error) {
	if err := s.admit(); err != nil {
		return nil, err
	}
	correct, contained := Match(s.Word, in.Word)
	return &oracle.CheckWordResponse{
		User:             in.User,
		CorrectPositions: widen(correct),
		ContainedInWord:  widen(contained),
	}, nil
}

func widen(values []uint8) []uint32 {
	out := make([]uint32, 0, len(values))
	for _, v := range values {
		out = append(out, uint32(v))
	}
	return out
}

// Serve starts srv on an in-memory listener and returns a connected client
// connection. Both are torn down with the test.
func Serve(t *testing.T, srv oracle.Server) *grpc.ClientConn {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	oracle.RegisterServer(server, srv)
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		append(platformgrpc.DefaultClientDialOptions(),
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return listener.DialContext(ctx)
			}),
		)...,
	)
	if err != nil {
		t.Fatalf("dial bufconn oracle: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		_ = listener.Close()
	})
	return conn
}
