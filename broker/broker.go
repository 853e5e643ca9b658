// Package broker implements the dispatcher described in the system's
// session-register specification: an accept loop feeding per-connection
// readers, which funnel every decoded packet through a single pump
// goroutine that is the sole mutator of the session register.
package broker

import (
	"context"
	"net"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/axgrid/broker/action"
	"github.com/axgrid/broker/alog"
	"github.com/axgrid/broker/hook"
	"github.com/axgrid/broker/metrics"
	"github.com/axgrid/broker/network"
	"github.com/axgrid/broker/pkg/logger"
	"github.com/axgrid/broker/session"
)

// eventQueueCapacity bounds how many decoded packets may be in flight
// across every connection before a reader blocks posting to the pump.
// Readers blocking here is the system's back-pressure valve; it never
// blocks the pump itself.
const eventQueueCapacity = 1024

type Config struct {
	Address  string
	Sessions session.SnapshotStore
	Logger   logger.Logger
	Metrics  *metrics.Registry
	Hooks    *hook.Manager
	Actions  *alog.ActionSink
}

type Broker struct {
	log     logger.Logger
	metrics *metrics.Registry
	hooks   *hook.Manager
	actions *alog.ActionSink

	pool     *network.Pool
	listener *network.Listener
	sessions *session.Register

	events chan interface{}

	clientsMu sync.Mutex
	byClient  map[string]*clientConn

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	started chan struct{}
}

func New(cfg Config) (*Broker, error) {
	if cfg.Address == "" {
		return nil, errors.New("broker: address is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("broker: session store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("broker: logger is required")
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewManager()
	}
	if cfg.Actions == nil {
		return nil, errors.New("broker: action sink is required")
	}

	pool, err := network.NewPool(network.DefaultPoolConfig())
	if err != nil {
		return nil, errors.Wrap(err, "broker: new pool")
	}

	listener, err := network.NewListener(network.DefaultListenerConfig(cfg.Address), pool)
	if err != nil {
		return nil, errors.Wrap(err, "broker: new listener")
	}

	b := &Broker{
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		hooks:    cfg.Hooks,
		actions:  cfg.Actions,
		pool:     pool,
		listener: listener,
		sessions: session.NewRegister(cfg.Sessions),
		events:   make(chan interface{}, eventQueueCapacity),
		byClient: make(map[string]*clientConn),
		started:  make(chan struct{}),
	}

	listener.OnConnection(b.onAccept)
	return b, nil
}

// Run recovers the session snapshot, starts the accept loop and the
// dispatch pump, and blocks until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) error {
	if err := b.sessions.Recover(ctx); err != nil {
		return errors.Wrap(err, "broker: recover sessions")
	}
	b.actions.Log("", action.NewRecoverSessions(b.sessions.Count()))

	b.ctx, b.cancel = context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(b.ctx)
	b.group = group

	if err := b.listener.Start(); err != nil {
		return errors.Wrap(err, "broker: start listener")
	}
	close(b.started)

	group.Go(func() error {
		b.pump(gctx)
		return nil
	})

	<-gctx.Done()
	return b.Shutdown(context.Background())
}

// Shutdown cancels the pump, closes the listener and every pooled
// connection, and waits for the pump to return. Events still queued when
// the pump stops are not handled.
func (b *Broker) Shutdown(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	_ = b.listener.Close()
	_ = b.pool.Close()
	if b.group != nil {
		_ = b.group.Wait()
	}
	return b.sessions.Close()
}

// Addr returns the listener's bound address. It blocks until Run has
// started the listener, so tests dialing an ephemeral "127.0.0.1:0" can
// call it right after launching Run in a goroutine.
func (b *Broker) Addr() net.Addr {
	<-b.started
	return b.listener.Addr()
}

func (b *Broker) onAccept(conn *network.Connection) error {
	b.metrics.ConnectionAccepted()
	cc := newClientConn(conn)
	go b.readLoop(cc)
	return nil
}

func actionMalformedPacket(err error) action.Action {
	return action.NewMalformedPacket(err.Error())
}
