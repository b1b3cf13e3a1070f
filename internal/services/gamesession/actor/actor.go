// Package actor hosts message-driven programs on a logical block clock.
//
// A System owns a FIFO dispatch queue, a delayed queue keyed by block height,
// a wait list of parked messages and one mailbox per plain actor. Exactly one
// handler runs at a time. Every effect a handler stages through its Context
// is committed only when the handler returns nil; on error the effects are
// discarded and the message is recorded as failed.
package actor

import "errors"

// ActorID addresses a program, a remote proxy or a plain mailbox actor.
type ActorID string

// MessageID identifies one message for its whole lifetime, including re-delivery after a wake.
type MessageID string

// Message is one unit of work moving through the system.
type Message struct {
	ID          MessageID
	Source      ActorID
	Destination ActorID
	Payload     any
	// ReplyTo is set when the message answers an earlier message.
	ReplyTo MessageID
	// Block is the height at which the message entered the dispatch queue.
	Block uint64
}

// IsReply reports whether the message answers an earlier one.
func (m Message) IsReply() bool {
	return m.ReplyTo != ""
}

// Program is an actor hosted inside the system.
type Program interface {
	// Handle runs for every non-reply message addressed to the program.
	Handle(ctx *Context) error
	// HandleReply runs for replies to messages the program sent.
	HandleReply(ctx *Context) error
}

// StateReader is implemented by programs that expose a read-only snapshot.
type StateReader interface {
	State() any
}

// Remote receives messages addressed to an actor living outside the system.
//
// Deliver is called after the dispatch lock is released and must not block;
// answers come back through System.Reply.
type Remote interface {
	Deliver(msg Message)
}

// NotificationKind classifies observer notifications.
type NotificationKind int

const (
	// NotificationDelivered means a message landed in a plain actor's mailbox.
	NotificationDelivered NotificationKind = iota + 1
	// NotificationFailed means a message failed; Message is the failed message.
	NotificationFailed
)

// Notification is passed to observers after each dispatch round.
type Notification struct {
	Kind    NotificationKind
	Message Message
	Err     error
}

// Observer is called outside the dispatch lock, in dispatch order.
type Observer func(Notification)

// Failure records a message whose handler returned an error or that was abandoned.
type Failure struct {
	Message Message
	Err     error
}

// BlockResult summarizes one dispatch round.
type BlockResult struct {
	Block     uint64
	Succeeded []MessageID
	Waiting   []MessageID
	Failed    []Failure
	// Log lists messages delivered to mailboxes during the round.
	Log []Message
}

func (r *BlockResult) merge(other BlockResult) {
	r.Block = other.Block
	r.Succeeded = append(r.Succeeded, other.Succeeded...)
	r.Waiting = append(r.Waiting, other.Waiting...)
	r.Failed = append(r.Failed, other.Failed...)
	r.Log = append(r.Log, other.Log...)
}

var (
	// ErrDestinationRequired is returned when a message has no destination.
	ErrDestinationRequired = errors.New("destination is required")
	// ErrQueueFull is returned when the dispatch queue is at capacity.
	ErrQueueFull = errors.New("dispatch queue is full")
	// ErrActorExists is returned when an actor id is registered twice.
	ErrActorExists = errors.New("actor already registered")
	// ErrUnknownActor is returned for state reads on unregistered programs.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrNoState is returned when a program does not implement StateReader.
	ErrNoState = errors.New("actor does not expose state")
	// ErrNotWaiting is returned when waking or abandoning a message that is not parked.
	ErrNotWaiting = errors.New("message is not waiting")
	// ErrAlreadyReplied is returned on a second reply to the same message.
	ErrAlreadyReplied = errors.New("message already replied")
	// ErrReplyWhileWaiting is returned when a handler both replies and parks.
	ErrReplyWhileWaiting = errors.New("message cannot reply and wait")
	// ErrAbandoned is the default failure for abandoned parked messages.
	ErrAbandoned = errors.New("message abandoned")
)
