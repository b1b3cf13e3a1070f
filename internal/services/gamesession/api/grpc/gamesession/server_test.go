package gamesession

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	platformgrpc "github.com/louisbranch/gamesession/internal/platform/grpc"
	grpcmeta "github.com/louisbranch/gamesession/internal/services/gamesession/api/grpc/metadata"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeSessions struct {
	lastUser string
	lastWord string
	event    game.Event
	err      error
	snapshot game.Snapshot
	inbox    []game.Event
}

func (f *fakeSessions) StartGame(_ context.Context, user string) (game.Event, error) {
	f.lastUser = user
	return f.event, f.err
}

func (f *fakeSessions) CheckWord(_ context.Context, user, word string) (game.Event, error) {
	f.lastUser = user
	f.lastWord = word
	return f.event, f.err
}

func (f *fakeSessions) State(context.Context) (game.Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeSessions) Notifications(_ context.Context, user string) ([]game.Event, error) {
	f.lastUser = user
	return f.inbox, nil
}

type fakeResults struct {
	records   []storage.ResultRecord
	lastUser  string
	lastLimit int
}

func (f *fakeResults) RecordResult(context.Context, storage.ResultRecord) error { return nil }

func (f *fakeResults) ListResults(_ context.Context, user string, limit int) ([]storage.ResultRecord, error) {
	f.lastUser = user
	f.lastLimit = limit
	return f.records, nil
}

func startService(t *testing.T, svc *Service) GameSessionServiceClient {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(nil)))
	RegisterGameSessionServiceServer(server, svc)
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
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})
	return NewGameSessionServiceClient(conn)
}

func asUser(user string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), grpcmeta.UserIDHeader, user)
}

func TestStartGameUsesHeaderIdentity(t *testing.T) {
	sessions := &fakeSessions{event: game.GameStarted{}}
	client := startService(t, NewService(sessions, nil, nil))

	var header metadata.MD
	resp, err := client.StartGame(asUser("alice"), &StartGameRequest{}, grpc.Header(&header))
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if resp.Event == nil || resp.Event.Type != EventGameStarted {
		t.Fatalf("event = %+v", resp.Event)
	}
	if sessions.lastUser != "alice" {
		t.Fatalf("user = %q, want alice", sessions.lastUser)
	}
	if len(header.Get(grpcmeta.RequestIDHeader)) != 1 {
		t.Fatalf("missing request id header: %v", header)
	}
}

func TestStartGameRequiresCaller(t *testing.T) {
	client := startService(t, NewService(&fakeSessions{}, nil, nil))
	_, err := client.StartGame(context.Background(), &StartGameRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want Unauthenticated", status.Code(err))
	}
}

func TestCheckWordMapsDomainErrors(t *testing.T) {
	sessions := &fakeSessions{err: apperrors.New(apperrors.CodeWordNotLowercase, "word must be lowercase")}
	client := startService(t, NewService(sessions, nil, nil))

	_, err := client.CheckWord(asUser("alice"), &CheckWordRequest{Word: "AAAAA"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want InvalidArgument", status.Code(err))
	}
	if apperrors.FromGRPC(err) != apperrors.CodeWordNotLowercase {
		t.Fatalf("domain code = %s", apperrors.FromGRPC(err))
	}
	if sessions.lastWord != "AAAAA" {
		t.Fatalf("word = %q", sessions.lastWord)
	}
}

func TestCheckWordReturnsPositions(t *testing.T) {
	sessions := &fakeSessions{event: game.WordChecked{CorrectPositions: []uint8{0, 4}, ContainedInWord: []uint8{2}}}
	client := startService(t, NewService(sessions, nil, nil))

	resp, err := client.CheckWord(asUser("alice"), &CheckWordRequest{Word: "apple"})
	if err != nil {
		t.Fatalf("check word: %v", err)
	}
	event := resp.Event
	if event.Type != EventWordChecked || len(event.CorrectPositions) != 2 || event.CorrectPositions[1] != 4 || len(event.ContainedInWord) != 1 {
		t.Fatalf("event = %+v", event)
	}
}

func TestGetStateReturnsSnapshot(t *testing.T) {
	sessions := &fakeSessions{snapshot: game.Snapshot{
		OracleAddress: "wordle:8093",
		Sessions: []game.Session{{
			User:              "alice",
			Status:            game.StatusRunning,
			TimeoutToken:      "t-1",
			AttemptsRemaining: 4,
			CachedReply:       game.OracleGameStarted{User: "alice"},
		}},
	}}
	client := startService(t, NewService(sessions, nil, nil))

	resp, err := client.GetState(context.Background(), &GetStateRequest{})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if resp.OracleAddress != "wordle:8093" || len(resp.Sessions) != 1 {
		t.Fatalf("state = %+v", resp)
	}
	session := resp.Sessions[0]
	if session.Status != "running" || session.AttemptsRemaining != 4 || session.TimeoutToken != "t-1" {
		t.Fatalf("session = %+v", session)
	}
	if session.CachedReply == nil || session.CachedReply.Type != "game_started" {
		t.Fatalf("cached reply = %+v", session.CachedReply)
	}
}

func TestReadMailbox(t *testing.T) {
	sessions := &fakeSessions{inbox: []game.Event{game.GameTimeout{}}}
	client := startService(t, NewService(sessions, nil, nil))

	resp, err := client.ReadMailbox(asUser("bob"), &ReadMailboxRequest{})
	if err != nil {
		t.Fatalf("read mailbox: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != EventGameTimeout {
		t.Fatalf("events = %+v", resp.Events)
	}
	if sessions.lastUser != "bob" {
		t.Fatalf("user = %q, want bob", sessions.lastUser)
	}
}

func TestListGameResults(t *testing.T) {
	finished := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	results := &fakeResults{records: []storage.ResultRecord{{User: "alice", Outcome: "win", AttemptsUsed: 1, Block: 3, FinishedAt: finished}}}
	client := startService(t, NewService(&fakeSessions{}, results, nil))

	resp, err := client.ListGameResults(asUser("alice"), &ListGameResultsRequest{})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if results.lastLimit != defaultResultLimit || results.lastUser != "alice" {
		t.Fatalf("query = %q/%d", results.lastUser, results.lastLimit)
	}
	if len(resp.Results) != 1 || resp.Results[0].FinishedAt != "2026-10-14T12:00:00Z" {
		t.Fatalf("results = %+v", resp.Results)
	}

	if _, err := client.ListGameResults(asUser("alice"), &ListGameResultsRequest{User: "alice", Limit: 5}); err != nil {
		t.Fatalf("list own results: %v", err)
	}
	if results.lastLimit != 5 {
		t.Fatalf("limit = %d, want 5", results.lastLimit)
	}

	_, err = client.ListGameResults(asUser("alice"), &ListGameResultsRequest{Limit: 500})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want InvalidArgument", status.Code(err))
	}
}

func TestListGameResultsIsScopedToCaller(t *testing.T) {
	results := &fakeResults{}
	client := startService(t, NewService(&fakeSessions{}, results, nil))

	_, err := client.ListGameResults(asUser("mallory"), &ListGameResultsRequest{User: "alice"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %s, want PermissionDenied", status.Code(err))
	}
	if results.lastUser != "" {
		t.Fatalf("store queried for %q", results.lastUser)
	}

	_, err = client.ListGameResults(context.Background(), &ListGameResultsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want Unauthenticated", status.Code(err))
	}
}

func TestTokenIdentity(t *testing.T) {
	const key = "test-hmac-key"
	identity := NewIdentity(key)
	sessions := &fakeSessions{event: game.GameStarted{}}
	client := startService(t, NewService(sessions, nil, identity))

	token, err := SignToken(key, "carol", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), grpcmeta.AuthorizationHeader, "Bearer "+token)
	if _, err := client.StartGame(ctx, &StartGameRequest{}); err != nil {
		t.Fatalf("start game with token: %v", err)
	}
	if sessions.lastUser != "carol" {
		t.Fatalf("user = %q, want carol", sessions.lastUser)
	}

	if _, err := client.StartGame(asUser("mallory"), &StartGameRequest{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("header-only code = %s, want Unauthenticated", status.Code(err))
	}

	forged, err := SignToken("other-key", "carol", jwt.RegisteredClaims{})
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	ctx = metadata.AppendToOutgoingContext(context.Background(), grpcmeta.AuthorizationHeader, "Bearer "+forged)
	if _, err := client.StartGame(ctx, &StartGameRequest{}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("forged code = %s, want Unauthenticated", status.Code(err))
	}
}

func TestIdentityRejectsExpiredToken(t *testing.T) {
	const key = "test-hmac-key"
	token, err := SignToken(key, "carol", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(grpcmeta.AuthorizationHeader, "Bearer "+token))
	_, err = NewIdentity(key).Caller(ctx)
	if apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeUnauthenticated)
	}
}
