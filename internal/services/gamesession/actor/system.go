package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/louisbranch/gamesession/internal/platform/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName             = "github.com/louisbranch/gamesession/actor"
	defaultMaxQueueDepth   = 4096
	defaultMailboxCapacity = 256
)

// Options configures a System. Zero values select defaults.
type Options struct {
	// MaxQueueDepth bounds the dispatch queue; sends beyond it fail with ErrQueueFull.
	MaxQueueDepth int
	// MailboxCapacity bounds each mailbox; the oldest message is dropped first.
	MailboxCapacity int
	// NewID generates message ids. Defaults to id.NewID.
	NewID func() (string, error)
	// Tracer records one span per dispatched program message.
	Tracer trace.Tracer
}

// System is the actor runtime. It is safe for concurrent use.
type System struct {
	mu sync.Mutex

	block     uint64
	queue     []Message
	delayed   map[uint64][]Message
	waiting   map[MessageID]Message
	mailboxes map[ActorID][]Message
	programs  map[ActorID]Program
	remotes   map[ActorID]Remote

	observers      map[int]Observer
	nextObserverID int

	maxQueue   int
	mailboxCap int
	newID      func() (string, error)
	tracer     trace.Tracer
	work       chan struct{}
}

// NewSystem builds an empty system at block zero.
func NewSystem(opts Options) *System {
	if opts.MaxQueueDepth <= 0 {
		opts.MaxQueueDepth = defaultMaxQueueDepth
	}
	if opts.MailboxCapacity <= 0 {
		opts.MailboxCapacity = defaultMailboxCapacity
	}
	if opts.NewID == nil {
		opts.NewID = id.NewID
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &System{
		delayed:    make(map[uint64][]Message),
		waiting:    make(map[MessageID]Message),
		mailboxes:  make(map[ActorID][]Message),
		programs:   make(map[ActorID]Program),
		remotes:    make(map[ActorID]Remote),
		observers:  make(map[int]Observer),
		maxQueue:   opts.MaxQueueDepth,
		mailboxCap: opts.MailboxCapacity,
		newID:      opts.NewID,
		tracer:     opts.Tracer,
		work:       make(chan struct{}, 1),
	}
}

// Register hosts a program under the given id.
func (s *System) Register(actorID ActorID, program Program) error {
	if actorID == "" {
		return ErrDestinationRequired
	}
	if program == nil {
		return fmt.Errorf("register %s: program is required", actorID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registeredLocked(actorID) {
		return fmt.Errorf("register %s: %w", actorID, ErrActorExists)
	}
	s.programs[actorID] = program
	return nil
}

// RegisterRemote routes messages for actorID to an out-of-process proxy.
func (s *System) RegisterRemote(actorID ActorID, remote Remote) error {
	if actorID == "" {
		return ErrDestinationRequired
	}
	if remote == nil {
		return fmt.Errorf("register remote %s: remote is required", actorID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registeredLocked(actorID) {
		return fmt.Errorf("register remote %s: %w", actorID, ErrActorExists)
	}
	s.remotes[actorID] = remote
	return nil
}

// IsRegistered reports whether actorID names a program or a remote. Such ids
// never receive mailbox deliveries.
func (s *System) IsRegistered(actorID ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registeredLocked(actorID)
}

func (s *System) registeredLocked(actorID ActorID) bool {
	_, isProgram := s.programs[actorID]
	_, isRemote := s.remotes[actorID]
	return isProgram || isRemote
}

// Observe subscribes to delivery and failure notifications. The returned
// function unsubscribes.
func (s *System) Observe(observer Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObserverID++
	key := s.nextObserverID
	s.observers[key] = observer
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, key)
	}
}

// Work signals pending submissions. Drivers select on it.
func (s *System) Work() <-chan struct{} {
	return s.work
}

// NewMessageID reserves an id for a later Submit, so callers can start
// observing before the message can possibly be dispatched.
func (s *System) NewMessageID() (MessageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID()
}

func (s *System) nextID() (MessageID, error) {
	value, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return MessageID(value), nil
}

// Submit enqueues a message from outside the system at the current block.
// An empty msg.ID is filled in.
func (s *System) Submit(msg Message) (MessageID, error) {
	if msg.Destination == "" {
		return "", ErrDestinationRequired
	}
	s.mu.Lock()
	if len(s.queue) >= s.maxQueue {
		s.mu.Unlock()
		return "", ErrQueueFull
	}
	if msg.ID == "" {
		next, err := s.nextID()
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		msg.ID = next
	}
	msg.Block = s.block
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	s.signal()
	return msg.ID, nil
}

// Send is Submit without a preset id.
func (s *System) Send(source, dest ActorID, payload any) (MessageID, error) {
	return s.Submit(Message{Source: source, Destination: dest, Payload: payload})
}

// Reply enqueues an answer to original on behalf of its destination. Remote
// proxies use it to post results back into the system.
func (s *System) Reply(original Message, payload any) (MessageID, error) {
	return s.Submit(Message{
		Source:      original.Destination,
		Destination: original.Source,
		Payload:     payload,
		ReplyTo:     original.ID,
	})
}

func (s *System) signal() {
	select {
	case s.work <- struct{}{}:
	default:
	}
}

// Block returns the current block height.
func (s *System) Block() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block
}

// IsWaiting reports whether a message is parked.
func (s *System) IsWaiting(msgID MessageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiting[msgID]
	return ok
}

// Mailbox returns a copy of the messages delivered to a plain actor.
func (s *System) Mailbox(actorID ActorID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.mailboxes[actorID]...)
}

// DrainMailbox returns and clears the messages delivered to a plain actor.
func (s *System) DrainMailbox(actorID ActorID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.mailboxes[actorID]
	delete(s.mailboxes, actorID)
	return messages
}

// ReadState returns a program's snapshot without dispatching a message.
func (s *System) ReadState(actorID ActorID) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	program, ok := s.programs[actorID]
	if !ok {
		return nil, fmt.Errorf("read state %s: %w", actorID, ErrUnknownActor)
	}
	reader, ok := program.(StateReader)
	if !ok {
		return nil, fmt.Errorf("read state %s: %w", actorID, ErrNoState)
	}
	return reader.State(), nil
}

// Dispatch drains the queue without advancing the block.
func (s *System) Dispatch() BlockResult {
	s.mu.Lock()
	var out outbox
	result := s.dispatchLocked(&out)
	s.mu.Unlock()
	out.flush()
	return result
}

// RunNextBlock advances the clock by one block, releases messages due at
// the new height and dispatches until the queue is empty.
func (s *System) RunNextBlock() BlockResult {
	s.mu.Lock()
	s.block++
	if due, ok := s.delayed[s.block]; ok {
		delete(s.delayed, s.block)
		for _, msg := range due {
			msg.Block = s.block
			s.queue = append(s.queue, msg)
		}
	}
	var out outbox
	result := s.dispatchLocked(&out)
	s.mu.Unlock()
	out.flush()
	return result
}

// RunToBlock runs blocks until the clock reaches height and merges their results.
func (s *System) RunToBlock(height uint64) BlockResult {
	result := BlockResult{Block: s.Block()}
	for s.Block() < height {
		result.merge(s.RunNextBlock())
	}
	return result
}

type handoff struct {
	remote Remote
	msg    Message
}

type outbox struct {
	handoffs      []handoff
	notifications []Notification
	observers     []Observer
}

func (o *outbox) flush() {
	for _, h := range o.handoffs {
		h.remote.Deliver(h.msg)
	}
	for _, note := range o.notifications {
		for _, observer := range o.observers {
			observer(note)
		}
	}
}

func (s *System) dispatchLocked(out *outbox) BlockResult {
	result := BlockResult{Block: s.block}
	for len(s.queue) > 0 {
		msg := s.queue[0]
		s.queue[0] = Message{}
		s.queue = s.queue[1:]
		s.deliverLocked(msg, &result, out)
	}
	s.queue = nil
	if len(out.notifications) > 0 {
		for _, observer := range s.observers {
			out.observers = append(out.observers, observer)
		}
	}
	return result
}

func (s *System) deliverLocked(msg Message, result *BlockResult, out *outbox) {
	if program, ok := s.programs[msg.Destination]; ok {
		s.runLocked(program, msg, result, out)
		return
	}
	if remote, ok := s.remotes[msg.Destination]; ok {
		out.handoffs = append(out.handoffs, handoff{remote: remote, msg: msg})
		result.Succeeded = append(result.Succeeded, msg.ID)
		return
	}
	mailbox := append(s.mailboxes[msg.Destination], msg)
	if len(mailbox) > s.mailboxCap {
		mailbox = mailbox[len(mailbox)-s.mailboxCap:]
	}
	s.mailboxes[msg.Destination] = mailbox
	result.Log = append(result.Log, msg)
	out.notifications = append(out.notifications, Notification{Kind: NotificationDelivered, Message: msg})
}

func (s *System) runLocked(program Program, msg Message, result *BlockResult, out *outbox) {
	spanCtx, span := s.tracer.Start(context.Background(), "actor.dispatch", trace.WithAttributes(
		attribute.String("actor.message_id", string(msg.ID)),
		attribute.String("actor.source", string(msg.Source)),
		attribute.String("actor.destination", string(msg.Destination)),
		attribute.Bool("actor.reply", msg.IsReply()),
		attribute.Int64("actor.block", int64(s.block)),
	))
	defer span.End()

	hctx := newContext(spanCtx, s, msg)
	var err error
	if msg.IsReply() {
		err = program.HandleReply(hctx)
	} else {
		err = program.Handle(hctx)
	}
	if err == nil && hctx.wait && hctx.replied {
		err = ErrReplyWhileWaiting
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.failLocked(msg, err, result, out)
		return
	}

	for _, e := range hctx.effects {
		switch e.kind {
		case effectSend:
			e.msg.Block = s.block
			s.queue = append(s.queue, e.msg)
		case effectDelayed:
			due := s.block + e.delay
			s.delayed[due] = append(s.delayed[due], e.msg)
		case effectWake:
			parked := s.waiting[e.id]
			delete(s.waiting, e.id)
			parked.Block = s.block
			s.queue = append(s.queue, parked)
		case effectAbandon:
			parked := s.waiting[e.id]
			delete(s.waiting, e.id)
			s.failLocked(parked, e.err, result, out)
		}
	}
	if hctx.wait {
		s.waiting[msg.ID] = msg
		result.Waiting = append(result.Waiting, msg.ID)
		span.SetAttributes(attribute.Bool("actor.waiting", true))
		return
	}
	result.Succeeded = append(result.Succeeded, msg.ID)
}

func (s *System) failLocked(msg Message, err error, result *BlockResult, out *outbox) {
	result.Failed = append(result.Failed, Failure{Message: msg, Err: err})
	out.notifications = append(out.notifications, Notification{Kind: NotificationFailed, Message: msg, Err: err})
}
