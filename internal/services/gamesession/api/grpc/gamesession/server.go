// Package gamesession exposes the session coordinator over gRPC.
package gamesession

import (
	"context"
	"log"

	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
)

// Sessions is the coordinator as seen by the transport.
type Sessions interface {
	StartGame(ctx context.Context, user string) (game.Event, error)
	CheckWord(ctx context.Context, user, word string) (game.Event, error)
	State(ctx context.Context) (game.Snapshot, error)
	Notifications(ctx context.Context, user string) ([]game.Event, error)
}

// Service implements GameSessionServiceServer.
type Service struct {
	sessions Sessions
	results  storage.ResultStore
	identity *Identity
}

// NewService builds the gRPC service. results may be nil, which disables ListGameResults.
func NewService(sessions Sessions, results storage.ResultStore, identity *Identity) *Service {
	if identity == nil {
		identity = NewIdentity("")
	}
	return &Service{sessions: sessions, results: results, identity: identity}
}

// StartGame starts or restarts the caller's game.
func (s *Service) StartGame(ctx context.Context, _ *StartGameRequest) (*StartGameResponse, error) {
	user, err := s.identity.Caller(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	event, err := s.sessions.StartGame(ctx, user)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return &StartGameResponse{Event: eventToWire(event)}, nil
}

// CheckWord submits a guess.
func (s *Service) CheckWord(ctx context.Context, in *CheckWordRequest) (*CheckWordResponse, error) {
	user, err := s.identity.Caller(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	event, err := s.sessions.CheckWord(ctx, user, in.Word)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return &CheckWordResponse{Event: eventToWire(event)}, nil
}

// GetState returns the full session store.
func (s *Service) GetState(ctx context.Context, _ *GetStateRequest) (*GetStateResponse, error) {
	snapshot, err := s.sessions.State(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return snapshotToWire(snapshot), nil
}

// ReadMailbox drains the caller's notifications.
func (s *Service) ReadMailbox(ctx context.Context, _ *ReadMailboxRequest) (*ReadMailboxResponse, error) {
	user, err := s.identity.Caller(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	events, err := s.sessions.Notifications(ctx, user)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	resp := &ReadMailboxResponse{Events: make([]*Event, 0, len(events))}
	for _, event := range events {
		if wire := eventToWire(event); wire != nil {
			resp.Events = append(resp.Events, wire)
		}
	}
	return resp, nil
}

// ListGameResults lists the caller's finished games, newest first.
func (s *Service) ListGameResults(ctx context.Context, in *ListGameResultsRequest) (*ListGameResultsResponse, error) {
	if s.results == nil {
		return nil, apperrors.ToGRPC(apperrors.New(apperrors.CodeUnknown, "game results are not configured"))
	}
	user, err := s.identity.Caller(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	if in.User != "" && in.User != user {
		return nil, apperrors.ToGRPC(apperrors.New(apperrors.CodePermissionDenied, "results of other users are not visible"))
	}
	limit := int(in.Limit)
	if limit == 0 {
		limit = defaultResultLimit
	}
	if limit < 0 || limit > maxResultLimit {
		return nil, apperrors.ToGRPC(apperrors.WithMetadata(
			apperrors.CodeResultLimitOutOfRange,
			"limit must be between 1 and 100",
			map[string]string{"max": "100"},
		))
	}
	records, err := s.results.ListResults(ctx, user, limit)
	if err != nil {
		log.Printf("list game results: %v", err)
		return nil, apperrors.ToGRPC(err)
	}
	resp := &ListGameResultsResponse{Results: make([]*GameResult, 0, len(records))}
	for _, record := range records {
		resp.Results = append(resp.Results, resultToWire(record))
	}
	return resp, nil
}

var _ GameSessionServiceServer = (*Service)(nil)
