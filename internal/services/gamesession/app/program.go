package app

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	"github.com/louisbranch/gamesession/internal/services/gamesession/actor"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
	"go.opentelemetry.io/otel/metric"
)

// ResultRecorder receives finished games. It must not block.
type ResultRecorder interface {
	Record(result storage.ResultRecord)
}

// SessionProgram is the coordinator actor. It owns the session store and
// applies game decisions to the actor context.
type SessionProgram struct {
	oracle  actor.ActorID
	store   *game.Store
	metrics *metrics
	results ResultRecorder
	logf    func(string, ...any)
}

// SessionProgramConfig wires a SessionProgram.
type SessionProgramConfig struct {
	// Oracle is the actor id oracle requests are sent to.
	Oracle actor.ActorID
	// OracleAddress is reported in state snapshots. Defaults to Oracle.
	OracleAddress string
	Meter         metric.Meter
	Results       ResultRecorder
	Logf          func(string, ...any)
}

// NewSessionProgram builds the coordinator with an empty store.
func NewSessionProgram(cfg SessionProgramConfig) (*SessionProgram, error) {
	if cfg.Oracle == "" {
		return nil, apperrors.New(apperrors.CodeOracleNotConfigured, "oracle actor is required")
	}
	if cfg.OracleAddress == "" {
		cfg.OracleAddress = string(cfg.Oracle)
	}
	m, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	return &SessionProgram{
		oracle:  cfg.Oracle,
		store:   game.NewStore(cfg.OracleAddress),
		metrics: m,
		results: cfg.Results,
		logf:    cfg.Logf,
	}, nil
}

// State implements actor.StateReader.
func (p *SessionProgram) State() any {
	return p.store.Snapshot()
}

// Handle implements actor.Program.
func (p *SessionProgram) Handle(ctx *actor.Context) error {
	switch payload := ctx.Payload().(type) {
	case game.CheckGameStatus:
		return p.handleTimeout(ctx)
	case game.Action:
		return p.handleAction(ctx, payload)
	default:
		return apperrors.New(apperrors.CodeActionUnknown, fmt.Sprintf("unsupported action %T", payload))
	}
}

func (p *SessionProgram) handleAction(ctx *actor.Context, action game.Action) error {
	user := string(ctx.Source())
	current, exists := p.store.Get(user)
	decision := game.Decide(current, exists, game.Command{
		User:      user,
		MessageID: string(ctx.MessageID()),
		Action:    action,
	})
	if decision.Rejected() {
		return decision.Err()
	}

	next := decision.Session
	if decision.Outbound != nil {
		requestID, err := ctx.Send(p.oracle, decision.Outbound)
		if err != nil {
			return fmt.Errorf("send oracle request: %w", err)
		}
		next.PendingOutbound = string(requestID)
	}
	if decision.Reply != nil {
		if _, err := ctx.Reply(decision.Reply); err != nil {
			return fmt.Errorf("reply to %s: %w", user, err)
		}
	}
	if decision.ArmTimeout {
		token, err := ctx.SendDelayed(ctx.ProgramID(), game.CheckGameStatus{}, game.TimeoutBlocks)
		if err != nil {
			return fmt.Errorf("schedule timeout: %w", err)
		}
		next.TimeoutToken = string(token)
	}
	if decision.Wait {
		ctx.Wait()
	}
	p.store.Put(next)
	p.record(ctx, next, decision)
	return nil
}

func (p *SessionProgram) record(ctx *actor.Context, after game.Session, decision game.Decision) {
	spanCtx := ctx.Context()
	if decision.Wait {
		p.metrics.parked.Add(spanCtx, 1)
	}
	if decision.ArmTimeout {
		p.metrics.gamesStarted.Add(spanCtx, 1)
	}
	if _, checked := decision.Reply.(game.WordChecked); checked {
		p.metrics.guesses.Add(spanCtx, 1)
	}
	if over, ok := decision.Reply.(game.GameOver); ok {
		p.metrics.guesses.Add(spanCtx, 1)
		p.finish(ctx, after, over.Status)
	}
}

func (p *SessionProgram) finish(ctx *actor.Context, session game.Session, outcome game.Status) {
	p.metrics.finished(ctx.Context(), outcome.String())
	if p.results == nil {
		return
	}
	used := int32(game.MaxAttempts - session.AttemptsRemaining)
	if outcome == game.StatusWin {
		used++
	}
	p.results.Record(storage.ResultRecord{
		User:         session.User,
		Outcome:      outcome.String(),
		AttemptsUsed: used,
		Block:        ctx.Block(),
	})
}

// handleTimeout applies a self-addressed probe and fails a command still
// parked on the oracle. Probes from other senders, stale tokens and finished
// games are ignored.
func (p *SessionProgram) handleTimeout(ctx *actor.Context) error {
	if ctx.Source() != ctx.ProgramID() {
		return nil
	}
	token := string(ctx.MessageID())
	session, ok := p.store.FindByTimeoutToken(token)
	if !ok {
		return nil
	}
	next, expired := game.Expire(session, token)
	if !expired {
		return nil
	}
	if session.Parked() {
		cause := apperrors.New(apperrors.CodeGameOver, "game over")
		err := ctx.Abandon(actor.MessageID(session.PendingInbound), cause)
		// Already woken: the redelivery finds the game over on its own.
		if err != nil && !errors.Is(err, actor.ErrNotWaiting) {
			return fmt.Errorf("abandon parked command: %w", err)
		}
	}
	if _, err := ctx.Send(actor.ActorID(session.User), game.GameTimeout{}); err != nil {
		return fmt.Errorf("notify timeout: %w", err)
	}
	p.store.Put(next)
	p.finish(ctx, next, game.StatusTimeout)
	return nil
}

// HandleReply implements actor.Program. Replies that match no parked
// session are discarded.
func (p *SessionProgram) HandleReply(ctx *actor.Context) error {
	reply, ok := ctx.Payload().(game.OracleReply)
	if !ok {
		p.logf("discard reply %s with payload %T", ctx.MessageID(), ctx.Payload())
		return nil
	}
	session, ok := p.store.FindByPendingOutbound(string(ctx.ReplyTo()))
	if !ok {
		p.metrics.orphanReplies.Add(ctx.Context(), 1)
		return nil
	}

	correlation := game.Correlate(session, reply)
	if correlation.Abandon != "" {
		reason := "oracle unavailable"
		if unavailable, ok := reply.(game.OracleUnavailable); ok && unavailable.Reason != "" {
			reason = unavailable.Reason
		}
		cause := apperrors.Wrap(apperrors.CodeOracleUnavailable, "oracle unavailable", errors.New(reason))
		if err := ctx.Abandon(actor.MessageID(correlation.Abandon), cause); err != nil {
			return fmt.Errorf("abandon parked command: %w", err)
		}
		p.metrics.oracleFailures.Add(ctx.Context(), 1)
	}
	if correlation.Wake != "" {
		if err := ctx.Wake(actor.MessageID(correlation.Wake)); err != nil {
			return fmt.Errorf("wake parked command: %w", err)
		}
	}
	p.store.Put(correlation.Session)
	return nil
}

var (
	_ actor.Program     = (*SessionProgram)(nil)
	_ actor.StateReader = (*SessionProgram)(nil)
)
