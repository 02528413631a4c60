// Package gateway maintains one persistent authenticated connection to
// the community chat service and answers guild membership queries for
// the signup flow. It is owned by application startup and injected where
// needed, never shared as package state.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Logger mirrors the root package logger to avoid an import cycle.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// State is the gateway lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

const (
	TextCodeConnectTimeout = "gateway_connect_timeout"
	TextCodeAuthFailed     = "gateway_auth_failed"
)

// ErrConnectTimeout is returned when the ready acknowledgment does not
// arrive within the connect bound.
var ErrConnectTimeout = errors.New("gateway connect timed out", errors.CategoryOperation).
	WithTextCode(TextCodeConnectTimeout)

// ErrAuthenticationFailed is returned when the service rejects the bot
// credentials.
var ErrAuthenticationFailed = errors.New("gateway authentication failed", errors.CategoryAuth).
	WithTextCode(TextCodeAuthFailed)

// Transport is the wire protocol behind the gateway. Dial blocks until
// the connection is authenticated and acknowledged ready (or fails);
// transport-level failures after that surface on Errs.
type Transport interface {
	Dial(ctx context.Context) error
	RequestMember(ctx context.Context, guildID, userID string) (bool, error)
	Errs() <-chan error
	Close() error
}

// Gateway runs the Uninitialized -> Connecting -> Ready machine with
// bounded exponential reconnects on transport error.
type Gateway struct {
	transport Transport
	logger    Logger

	connectTimeout time.Duration
	baseDelay      time.Duration
	maxDelay       time.Duration
	maxAttempts    int

	// OnStateChange is invoked outside the lock on every transition.
	// Wired to metrics by the application.
	OnStateChange func(s State)

	mu       sync.Mutex
	state    State
	done     chan struct{}
	sleep    func(d time.Duration, cancel <-chan struct{}) bool
	watching bool
}

type Option func(*Gateway)

func WithLogger(logger Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.connectTimeout = d
		}
	}
}

func WithReconnectPolicy(base, max time.Duration, attempts int) Option {
	return func(g *Gateway) {
		if base > 0 {
			g.baseDelay = base
		}
		if max > 0 {
			g.maxDelay = max
		}
		if attempts > 0 {
			g.maxAttempts = attempts
		}
	}
}

func New(transport Transport, opts ...Option) *Gateway {
	g := &Gateway{
		transport:      transport,
		logger:         noopLogger{},
		connectTimeout: 30 * time.Second,
		baseDelay:      DefaultBaseDelay,
		maxDelay:       DefaultMaxDelay,
		maxAttempts:    DefaultMaxAttempts,
		state:          StateUninitialized,
	}

	g.sleep = func(d time.Duration, cancel <-chan struct{}) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-cancel:
			return false
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// State returns the current lifecycle state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Initialize opens the transport and waits for the ready acknowledgment.
// It is idempotent: calling it while Ready is a no-op.
func (g *Gateway) Initialize(ctx context.Context) error {
	g.mu.Lock()
	if g.state == StateReady {
		g.mu.Unlock()
		return nil
	}
	if g.transport == nil {
		g.state = StateUninitialized
		g.mu.Unlock()
		return errors.New("gateway transport not configured", errors.CategoryOperation)
	}
	g.done = make(chan struct{})
	g.mu.Unlock()

	g.setState(StateConnecting)

	if err := g.dial(ctx); err != nil {
		g.setState(StateUninitialized)
		return err
	}

	g.setState(StateReady)
	g.startWatch()

	return nil
}

// IsUserInGuild reports whether the user is currently a member of the
// guild. Absence of proof is absence of membership: a gateway that is
// not ready, a failed guild fetch, or a missing member all yield false,
// never an error.
func (g *Gateway) IsUserInGuild(ctx context.Context, userID, guildID string) bool {
	if g == nil || g.State() != StateReady {
		return false
	}

	ok, err := g.transport.RequestMember(ctx, guildID, userID)
	if err != nil {
		g.logger.Warn("gateway membership query failed guild=%s user=%s error=%v", guildID, userID, err)
		return false
	}

	return ok
}

// Shutdown releases the transport and marks the gateway uninitialized.
// Idempotent.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	if g.done != nil {
		select {
		case <-g.done:
		default:
			close(g.done)
		}
		g.done = nil
	}
	g.mu.Unlock()

	if g.transport != nil {
		_ = g.transport.Close()
	}

	g.setState(StateUninitialized)
}

func (g *Gateway) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, g.connectTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- g.transport.Dial(dialCtx) }()

	select {
	case err := <-errc:
		if err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return ErrAuthenticationFailed
			}
			if dialCtx.Err() != nil {
				return ErrConnectTimeout
			}
			return errors.Wrap(err, errors.CategoryOperation, "gateway dial failed")
		}
		return nil
	case <-dialCtx.Done():
		return ErrConnectTimeout
	}
}

func (g *Gateway) startWatch() {
	g.mu.Lock()
	if g.watching || g.done == nil {
		g.mu.Unlock()
		return
	}
	g.watching = true
	done := g.done
	g.mu.Unlock()

	go g.watch(done)
}

// watch waits for transport failures and drives the reconnect loop.
// Queries in flight during a reconnect observe not-ready and return
// false; nothing here blocks them.
func (g *Gateway) watch(done chan struct{}) {
	defer func() {
		g.mu.Lock()
		g.watching = false
		g.mu.Unlock()
	}()

	for {
		select {
		case <-done:
			return
		case err, ok := <-g.transport.Errs():
			if !ok {
				return
			}
			g.logger.Warn("gateway transport error, reconnecting: %v", err)
			if !g.reconnect(done) {
				return
			}
		}
	}
}

func (g *Gateway) reconnect(done chan struct{}) bool {
	g.setState(StateConnecting)

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		delay := ReconnectDelay(attempt, g.baseDelay, g.maxDelay)
		g.logger.Info("gateway reconnect attempt=%d delay=%s", attempt, delay)

		if !g.sleep(delay, done) {
			return false
		}

		if err := g.dial(context.Background()); err != nil {
			g.logger.Warn("gateway reconnect attempt=%d failed: %v", attempt, err)
			continue
		}

		g.setState(StateReady)
		return true
	}

	g.logger.Error("gateway gave up after %d reconnect attempts", g.maxAttempts)
	g.setState(StateUninitialized)
	return false
}

func (g *Gateway) setState(s State) {
	g.mu.Lock()
	changed := g.state != s
	g.state = s
	hook := g.OnStateChange
	g.mu.Unlock()

	if changed && hook != nil {
		hook(s)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
