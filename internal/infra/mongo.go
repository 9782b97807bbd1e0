package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrRetriesExhausted is returned by Connect once every allowed attempt has
// failed. Callers must treat it as fatal: the process has no business serving
// traffic against an unreachable store.
var ErrRetriesExhausted = errors.New("mongodb: connection retries exhausted")

// State describes the store connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Status is an immutable snapshot of the connection state, safe to hand to
// health-check collaborators. It is advisory only: request paths must rely on
// operations failing, never on this snapshot.
type Status struct {
	State     string `json:"status"`
	Connected bool   `json:"connected"`
	Retries   int    `json:"retries"`
	Host      string `json:"host,omitempty"`
	Database  string `json:"database,omitempty"`
}

// Options configures the connection Manager.
type Options struct {
	URI           string
	Database      string
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	SelectTimeout time.Duration
	SocketTimeout time.Duration
	MinPoolSize   uint64
	MaxPoolSize   uint64

	// OnReady runs once per successful connect, before Connect returns,
	// with the selected database. Used to ensure indexes. A failure here
	// counts as a failed attempt.
	OnReady func(ctx context.Context, db *mongo.Database) error
}

// Manager owns the process-wide MongoDB client and its lifecycle: initial
// connection with bounded exponential backoff, live state tracking driven by
// pool events, and graceful disconnect.
type Manager struct {
	opts   Options
	logger *slog.Logger

	// dial establishes and verifies a client. Replaceable in tests.
	dial func(ctx context.Context) (*mongo.Client, error)

	mu      sync.Mutex
	state   State
	retries int
	host    string
	client  *mongo.Client
}

// NewManager builds a Manager around the given options. No I/O happens until
// Connect is called.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	m := &Manager{opts: opts, logger: logger, state: StateDisconnected}
	m.dial = m.dialMongo
	return m
}

// Connect establishes the store connection, retrying failed attempts with
// exponential backoff (delay = min(base * 2^(n-1), cap)) up to MaxRetries.
// It returns ErrRetriesExhausted (wrapping the last failure) once the budget
// is spent, or the context error if ctx is cancelled between attempts.
func (m *Manager) Connect(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= m.opts.MaxRetries; attempt++ {
		m.setState(StateConnecting)

		client, err := m.dial(ctx)
		if err == nil {
			if m.opts.OnReady != nil {
				if rerr := m.opts.OnReady(ctx, client.Database(m.opts.Database)); rerr != nil {
					_ = client.Disconnect(ctx)
					err = fmt.Errorf("prepare database: %w", rerr)
				}
			}
		}

		if err == nil {
			m.mu.Lock()
			m.client = client
			m.state = StateConnected
			m.retries = 0
			m.mu.Unlock()
			m.logger.Info("mongodb connected", "host", m.host, "database", m.opts.Database)
			return nil
		}

		lastErr = err
		failures := m.recordFailure()
		m.logger.Error("mongodb connection attempt failed",
			"attempt", failures, "max_retries", m.opts.MaxRetries, "error", err)

		if attempt == m.opts.MaxRetries {
			break
		}

		wait := backoff(m.opts.BaseDelay, m.opts.MaxDelay, failures)
		m.logger.Info("retrying mongodb connection", "wait", wait.String())
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return ctx.Err()
		}
	}

	m.setState(StateDisconnected)
	return fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// Disconnect drains the client connection, bounded by ctx.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.state = StateDisconnecting
	m.mu.Unlock()

	if client == nil {
		m.setState(StateDisconnected)
		return nil
	}

	err := client.Disconnect(ctx)
	m.setState(StateDisconnected)
	return err
}

// Database returns the configured application database. Only valid after a
// successful Connect.
func (m *Manager) Database() *mongo.Database {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	return m.client.Database(m.opts.Database)
}

// Status returns a point-in-time snapshot for health reporting.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state.String(),
		Connected: m.state == StateConnected,
		Retries:   m.retries,
		Host:      m.host,
		Database:  m.opts.Database,
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) recordFailure() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
	return m.retries
}

// dialMongo builds the client, verifies connectivity with a ping bounded by
// the server selection timeout, and wires the pool monitor that keeps the
// state flag current after startup.
func (m *Manager) dialMongo(ctx context.Context) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(m.opts.URI).
		SetServerSelectionTimeout(m.opts.SelectTimeout).
		SetSocketTimeout(m.opts.SocketTimeout).
		SetMinPoolSize(m.opts.MinPoolSize).
		SetMaxPoolSize(m.opts.MaxPoolSize).
		SetPoolMonitor(m.poolMonitor())

	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("parse mongodb config: %w", err)
	}
	if len(clientOpts.Hosts) > 0 {
		m.mu.Lock()
		m.host = clientOpts.Hosts[0]
		m.mu.Unlock()
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.opts.SelectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}

// poolMonitor translates asynchronous driver pool events into state updates.
// These keep the advisory flag honest when the server drops or recovers
// after the initial connect.
func (m *Manager) poolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionReady:
				m.markConnected()
			case event.PoolCleared:
				m.markDisconnected("pool cleared")
			case event.PoolClosedEvent:
				m.markDisconnected("pool closed")
			}
		},
	}
}

func (m *Manager) markConnected() {
	m.mu.Lock()
	wasDown := m.state != StateConnected && m.state != StateDisconnecting
	if m.state != StateDisconnecting {
		m.state = StateConnected
	}
	m.mu.Unlock()
	if wasDown {
		m.logger.Info("mongodb connection ready")
	}
}

func (m *Manager) markDisconnected(reason string) {
	m.mu.Lock()
	wasUp := m.state == StateConnected
	if m.state == StateConnected {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	if wasUp {
		m.logger.Warn("mongodb connection lost", "reason", reason)
	}
}

func backoff(base, limit time.Duration, failures int) time.Duration {
	d := base << (failures - 1)
	if d > limit || d <= 0 {
		return limit
	}
	return d
}
