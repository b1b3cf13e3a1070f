package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/louisbranch/gamesession/internal/platform/timeouts"
	"github.com/louisbranch/gamesession/internal/services/gamesession/actor"
	"github.com/louisbranch/gamesession/internal/services/gamesession/domain/game"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultMaxRetries = 3

// Replier posts answers back into the actor system.
type Replier interface {
	Reply(original actor.Message, payload any) (actor.MessageID, error)
}

// ProxyConfig tunes oracle calls.
type ProxyConfig struct {
	// RequestTimeout bounds each individual attempt.
	RequestTimeout time.Duration
	// MaxRetries is the number of attempts after the first.
	MaxRetries uint
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration
}

func (c ProxyConfig) normalized() ProxyConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = timeouts.OracleRequest
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Second
	}
	return c
}

// Proxy is the actor.Remote standing in for the oracle. Each delivered
// request is answered asynchronously with a game.OracleReply; when every
// attempt fails the answer is game.OracleUnavailable.
type Proxy struct {
	client  Client
	replier Replier
	cfg     ProxyConfig
	logf    func(string, ...any)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProxy builds a proxy. A zero MaxRetries uses the default.
func NewProxy(client Client, replier Replier, cfg ProxyConfig, logf func(string, ...any)) *Proxy {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Proxy{
		client:  client,
		replier: replier,
		cfg:     cfg.normalized(),
		logf:    logf,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Deliver implements actor.Remote.
func (p *Proxy) Deliver(msg actor.Message) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.answer(msg)
	}()
}

// Close cancels in-flight calls and waits for their answers to be posted.
func (p *Proxy) Close() {
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until every delivered request has been answered.
func (p *Proxy) Wait() {
	p.wg.Wait()
}

func (p *Proxy) answer(msg actor.Message) {
	reply, err := p.call(msg.Payload)
	if err != nil {
		p.logf("oracle request %s from %s failed: %v", msg.ID, msg.Source, err)
		reply = game.OracleUnavailable{Reason: err.Error()}
	}
	if _, err := p.replier.Reply(msg, reply); err != nil {
		p.logf("post oracle reply for %s: %v", msg.ID, err)
	}
}

var errUnsupportedRequest = errors.New("unsupported oracle request")

func (p *Proxy) call(payload any) (game.OracleReply, error) {
	switch req := payload.(type) {
	case game.OracleStartGame:
		resp, err := retry(p, func(ctx context.Context) (*StartGameResponse, error) {
			return p.client.StartGame(ctx, &StartGameRequest{User: req.User})
		})
		if err != nil {
			return nil, fmt.Errorf("start game: %w", err)
		}
		return game.OracleGameStarted{User: resp.User}, nil
	case game.OracleCheckWord:
		resp, err := retry(p, func(ctx context.Context) (*CheckWordResponse, error) {
			return p.client.CheckWord(ctx, &CheckWordRequest{User: req.User, Word: req.Word})
		})
		if err != nil {
			return nil, fmt.Errorf("check word: %w", err)
		}
		return game.OracleWordChecked{
			User:             resp.User,
			CorrectPositions: positions(resp.CorrectPositions),
			ContainedInWord:  positions(resp.ContainedInWord),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedRequest, payload)
	}
}

func retry[T any](p *Proxy, attempt func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.InitialBackoff
	policy.MaxInterval = p.cfg.MaxBackoff

	return backoff.Retry(p.ctx, func() (T, error) {
		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
		defer cancel()
		value, err := attempt(ctx)
		if err != nil && !retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.cfg.MaxRetries+1),
	)
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// positions narrows oracle positions, dropping any outside the word.
func positions(values []uint32) []uint8 {
	out := make([]uint8, 0, len(values))
	for _, v := range values {
		if v >= game.WordLength {
			continue
		}
		out = append(out, uint8(v))
	}
	return out
}

var _ actor.Remote = (*Proxy)(nil)
