package actor

import (
	"context"
	"fmt"
)

type effectKind int

const (
	effectSend effectKind = iota + 1
	effectDelayed
	effectWake
	effectAbandon
)

type effect struct {
	kind  effectKind
	msg   Message
	delay uint64
	id    MessageID
	err   error
}

// Context is the handler's view of the message being dispatched.
//
// Effects are staged in call order and applied only if the handler returns nil.
type Context struct {
	ctx     context.Context
	system  *System
	msg     Message
	effects []effect
	queued  int
	replied bool
	wait    bool
}

func newContext(ctx context.Context, system *System, msg Message) *Context {
	return &Context{ctx: ctx, system: system, msg: msg}
}

// Context returns the tracing context of the current dispatch.
func (c *Context) Context() context.Context {
	return c.ctx
}

// MessageID returns the id of the message being handled.
func (c *Context) MessageID() MessageID {
	return c.msg.ID
}

// Source returns the sender of the message being handled.
func (c *Context) Source() ActorID {
	return c.msg.Source
}

// ProgramID returns the id of the program handling the message.
func (c *Context) ProgramID() ActorID {
	return c.msg.Destination
}

// Payload returns the message payload.
func (c *Context) Payload() any {
	return c.msg.Payload
}

// ReplyTo returns the id of the message this one answers, if any.
func (c *Context) ReplyTo() MessageID {
	return c.msg.ReplyTo
}

// Block returns the current block height.
func (c *Context) Block() uint64 {
	return c.system.block
}

// Send stages a message for delivery in the current block.
func (c *Context) Send(dest ActorID, payload any) (MessageID, error) {
	msg, err := c.stage(dest, payload, "")
	if err != nil {
		return "", err
	}
	c.effects = append(c.effects, effect{kind: effectSend, msg: msg})
	c.queued++
	return msg.ID, nil
}

// SendDelayed stages a message for delivery blocks after the current block.
// A zero delay behaves like Send.
func (c *Context) SendDelayed(dest ActorID, payload any, blocks uint64) (MessageID, error) {
	if blocks == 0 {
		return c.Send(dest, payload)
	}
	msg, err := c.stage(dest, payload, "")
	if err != nil {
		return "", err
	}
	c.effects = append(c.effects, effect{kind: effectDelayed, msg: msg, delay: blocks})
	return msg.ID, nil
}

// Reply stages an answer to the sender of the current message.
func (c *Context) Reply(payload any) (MessageID, error) {
	if c.replied {
		return "", ErrAlreadyReplied
	}
	msg, err := c.stage(c.msg.Source, payload, c.msg.ID)
	if err != nil {
		return "", err
	}
	c.replied = true
	c.effects = append(c.effects, effect{kind: effectSend, msg: msg})
	c.queued++
	return msg.ID, nil
}

// Wait parks the current message once the handler returns. It produces no
// reply; a later Wake re-delivers the same message from the top.
func (c *Context) Wait() {
	c.wait = true
}

// Wake stages re-delivery of a parked message in the current block.
func (c *Context) Wake(id MessageID) error {
	if !c.parked(id) {
		return fmt.Errorf("wake %s: %w", id, ErrNotWaiting)
	}
	c.effects = append(c.effects, effect{kind: effectWake, id: id})
	return nil
}

// Abandon stages the failure of a parked message. A nil err uses ErrAbandoned.
func (c *Context) Abandon(id MessageID, err error) error {
	if !c.parked(id) {
		return fmt.Errorf("abandon %s: %w", id, ErrNotWaiting)
	}
	if err == nil {
		err = ErrAbandoned
	}
	c.effects = append(c.effects, effect{kind: effectAbandon, id: id, err: err})
	return nil
}

func (c *Context) parked(id MessageID) bool {
	if _, ok := c.system.waiting[id]; !ok {
		return false
	}
	for _, e := range c.effects {
		if (e.kind == effectWake || e.kind == effectAbandon) && e.id == id {
			return false
		}
	}
	return true
}

func (c *Context) stage(dest ActorID, payload any, replyTo MessageID) (Message, error) {
	if dest == "" {
		return Message{}, ErrDestinationRequired
	}
	if c.system.maxQueue > 0 && len(c.system.queue)+c.queued >= c.system.maxQueue {
		return Message{}, ErrQueueFull
	}
	id, err := c.system.nextID()
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:          id,
		Source:      c.msg.Destination,
		Destination: dest,
		Payload:     payload,
		ReplyTo:     replyTo,
	}, nil
}
