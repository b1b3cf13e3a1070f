package gamesession

import (
	"time"

	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
)

// Event types reported in Event.Type.
const (
	EventGameStarted = "game_started"
	EventGameTimeout = "game_timeout"
	EventWordChecked = "word_checked"
	EventGameOver    = "game_over"
)

type StartGameRequest struct{}

type StartGameResponse struct {
	Event *Event `json:"event"`
}

type CheckWordRequest struct {
	Word string `json:"word"`
}

type CheckWordResponse struct {
	Event *Event `json:"event"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	OracleAddress string     `json:"oracle_address"`
	Sessions      []*Session `json:"sessions"`
}

type ReadMailboxRequest struct{}

type ReadMailboxResponse struct {
	Events []*Event `json:"events"`
}

type ListGameResultsRequest struct {
	// User must be empty or the caller.
	User  string `json:"user,omitempty"`
	Limit int32  `json:"limit,omitempty"`
}

type ListGameResultsResponse struct {
	Results []*GameResult `json:"results"`
}

// Event is a coordinator event on the wire.
type Event struct {
	Type             string   `json:"type"`
	CorrectPositions []uint32 `json:"correct_positions,omitempty"`
	ContainedInWord  []uint32 `json:"contained_in_word,omitempty"`
	Status           string   `json:"status,omitempty"`
}

// Session mirrors one stored session.
type Session struct {
	User              string       `json:"user"`
	Status            string       `json:"status"`
	PendingInboundID  string       `json:"pending_inbound_id,omitempty"`
	PendingOutboundID string       `json:"pending_outbound_id,omitempty"`
	CachedReply       *OracleReply `json:"cached_reply,omitempty"`
	TimeoutToken      string       `json:"timeout_token,omitempty"`
	AttemptsRemaining uint32       `json:"attempts_remaining"`
}

// OracleReply mirrors a cached oracle answer.
type OracleReply struct {
	Type             string   `json:"type"`
	User             string   `json:"user,omitempty"`
	CorrectPositions []uint32 `json:"correct_positions,omitempty"`
	ContainedInWord  []uint32 `json:"contained_in_word,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

// GameResult is one journal entry.
type GameResult struct {
	User         string `json:"user"`
	Outcome      string `json:"outcome"`
	AttemptsUsed int32  `json:"attempts_used"`
	Block        uint64 `json:"block"`
	FinishedAt   string `json:"finished_at"`
}

func eventToWire(event game.Event) *Event {
	switch e := event.(type) {
	case game.GameStarted:
		return &Event{Type: EventGameStarted}
	case game.GameTimeout:
		return &Event{Type: EventGameTimeout}
	case game.WordChecked:
		return &Event{
			Type:             EventWordChecked,
			CorrectPositions: widen(e.CorrectPositions),
			ContainedInWord:  widen(e.ContainedInWord),
		}
	case game.GameOver:
		return &Event{Type: EventGameOver, Status: e.Status.String()}
	default:
		return nil
	}
}

func snapshotToWire(snapshot game.Snapshot) *GetStateResponse {
	resp := &GetStateResponse{
		OracleAddress: snapshot.OracleAddress,
		Sessions:      make([]*Session, 0, len(snapshot.Sessions)),
	}
	for _, session := range snapshot.Sessions {
		resp.Sessions = append(resp.Sessions, &Session{
			User:              session.User,
			Status:            session.Status.String(),
			PendingInboundID:  session.PendingInbound,
			PendingOutboundID: session.PendingOutbound,
			CachedReply:       oracleReplyToWire(session.CachedReply),
			TimeoutToken:      session.TimeoutToken,
			AttemptsRemaining: uint32(session.AttemptsRemaining),
		})
	}
	return resp
}

func oracleReplyToWire(reply game.OracleReply) *OracleReply {
	switch r := reply.(type) {
	case game.OracleGameStarted:
		return &OracleReply{Type: "game_started", User: r.User}
	case game.OracleWordChecked:
		return &OracleReply{
			Type:             "word_checked",
			User:             r.User,
			CorrectPositions: widen(r.CorrectPositions),
			ContainedInWord:  widen(r.ContainedInWord),
		}
	case game.OracleUnavailable:
		return &OracleReply{Type: "unavailable", Reason: r.Reason}
	default:
		return nil
	}
}

func resultToWire(record storage.ResultRecord) *GameResult {
	return &GameResult{
		User:         record.User,
		Outcome:      record.Outcome,
		AttemptsUsed: record.AttemptsUsed,
		Block:        record.Block,
		FinishedAt:   record.FinishedAt.UTC().Format(time.RFC3339Nano),
	}
}

func widen(values []uint8) []uint32 {
	out := make([]uint32, 0, len(values))
	for _, v := range values {
		out = append(out, uint32(v))
	}
	return out
}
