package app

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	"github.com/louisbranch/gamesession/internal/services/gamesession/actor"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
)

// Gateway submits user actions to the session program and waits for the
// correlated reply or failure.
type Gateway struct {
	system  *actor.System
	session actor.ActorID

	mu      sync.Mutex
	waiters map[actor.MessageID]chan actor.Notification
	stop    func()
}

// NewGateway subscribes to system notifications for the session program.
func NewGateway(system *actor.System, session actor.ActorID) *Gateway {
	g := &Gateway{
		system:  system,
		session: session,
		waiters: make(map[actor.MessageID]chan actor.Notification),
	}
	g.stop = system.Observe(g.observe)
	return g
}

// Close unsubscribes from the system.
func (g *Gateway) Close() {
	g.stop()
}

func (g *Gateway) observe(note actor.Notification) {
	var key actor.MessageID
	switch note.Kind {
	case actor.NotificationDelivered:
		if !note.Message.IsReply() || note.Message.Source != g.session {
			return
		}
		key = note.Message.ReplyTo
	case actor.NotificationFailed:
		key = note.Message.ID
	default:
		return
	}

	g.mu.Lock()
	waiter, ok := g.waiters[key]
	if ok {
		delete(g.waiters, key)
	}
	g.mu.Unlock()
	if ok {
		waiter <- note
	}
}

// checkCaller rejects empty users and users that collide with a registered
// actor, whose replies would be routed to that actor instead of a mailbox.
func (g *Gateway) checkCaller(user string) error {
	if user == "" {
		return apperrors.New(apperrors.CodeCallerRequired, "caller is required")
	}
	if g.system.IsRegistered(actor.ActorID(user)) {
		return apperrors.WithMetadata(apperrors.CodeCallerReserved, "caller id is reserved", map[string]string{"caller": user})
	}
	return nil
}

func (g *Gateway) forget(msgID actor.MessageID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.waiters, msgID)
}

// Submit sends action on behalf of user and blocks until the session program
// replies, the command fails or ctx ends. A canceled wait leaves the command
// in flight.
func (g *Gateway) Submit(ctx context.Context, user string, action game.Action) (game.Event, error) {
	if err := g.checkCaller(user); err != nil {
		return nil, err
	}
	msgID, err := g.system.NewMessageID()
	if err != nil {
		return nil, err
	}
	waiter := make(chan actor.Notification, 1)
	g.mu.Lock()
	g.waiters[msgID] = waiter
	g.mu.Unlock()

	if _, err := g.system.Submit(actor.Message{
		ID:          msgID,
		Source:      actor.ActorID(user),
		Destination: g.session,
		Payload:     action,
	}); err != nil {
		g.forget(msgID)
		return nil, apperrors.Wrap(apperrors.CodeDeliveryFailed, "submit action", err)
	}

	select {
	case <-ctx.Done():
		g.forget(msgID)
		return nil, ctx.Err()
	case note := <-waiter:
		if note.Kind == actor.NotificationFailed {
			return nil, note.Err
		}
		event, ok := note.Message.Payload.(game.Event)
		if !ok {
			return nil, fmt.Errorf("unexpected reply payload %T", note.Message.Payload)
		}
		return event, nil
	}
}

// StartGame starts or restarts the caller's game.
func (g *Gateway) StartGame(ctx context.Context, user string) (game.Event, error) {
	return g.Submit(ctx, user, game.StartGame{})
}

// CheckWord submits a guess for the caller's game.
func (g *Gateway) CheckWord(ctx context.Context, user, word string) (game.Event, error) {
	return g.Submit(ctx, user, game.CheckWord{Word: word})
}

// State returns the session store snapshot.
func (g *Gateway) State(context.Context) (game.Snapshot, error) {
	state, err := g.system.ReadState(g.session)
	if err != nil {
		return game.Snapshot{}, err
	}
	snapshot, ok := state.(game.Snapshot)
	if !ok {
		return game.Snapshot{}, fmt.Errorf("unexpected state %T", state)
	}
	return snapshot, nil
}

// Notifications drains the user's mailbox and returns the unsolicited events
// in it. Replies were already returned by Submit and are dropped.
func (g *Gateway) Notifications(_ context.Context, user string) ([]game.Event, error) {
	if err := g.checkCaller(user); err != nil {
		return nil, err
	}
	var events []game.Event
	for _, msg := range g.system.DrainMailbox(actor.ActorID(user)) {
		if msg.IsReply() {
			continue
		}
		if event, ok := msg.Payload.(game.Event); ok {
			events = append(events, event)
		}
	}
	return events, nil
}
