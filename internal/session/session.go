// Package session owns the single FTP control connection.
//
// The connection is not reentrant: only one command may be in flight at a
// time. A Manager keeps the connection inside one worker goroutine and runs
// submitted operations one after another. Callers never touch the connection
// outside an operation, and a failing or panicking operation only fails its
// own caller; the worker keeps serving.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/metrics"
	"github.com/ahaoboy/ftp-web/internal/retry"
)

var (
	// ErrClosed is returned for operations submitted after Close.
	ErrClosed = errors.New("session closed")

	// ErrPanic wraps a panic recovered from an operation.
	ErrPanic = errors.New("session operation panicked")
)

// DefaultQueueSize bounds the number of operations waiting for the connection.
const DefaultQueueSize = 64

// Config holds upstream connection settings.
type Config struct {
	Addr        string
	Username    string
	Password    string
	TLS         bool
	TLSInsecure bool
	Timeout     time.Duration

	// KeepAlive sends NOOP after this much idle time. Zero disables it.
	KeepAlive time.Duration

	// QueueSize bounds pending operations. Zero means DefaultQueueSize.
	QueueSize int

	// Redial is the backoff used to replace a broken connection.
	Redial retry.Config
}

type request struct {
	ctx      context.Context
	op       string
	fn       func(Conn) error
	enqueued time.Time
	reply    chan error
}

// Manager serializes every protocol operation on one control connection.
type Manager struct {
	cfg  Config
	dial Dialer

	reqs    chan *request
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
	pending atomic.Int64

	// owned by the worker goroutine
	conn     Conn
	lastUsed time.Time
}

// Open connects and authenticates once, then starts the worker. An error
// here means there is nothing to serve; callers abort startup.
func Open(ctx context.Context, cfg Config, dial Dialer) (*Manager, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Redial.MaxAttempts == 0 && cfg.Redial.InitialWait == 0 {
		cfg.Redial = retry.DefaultConfig()
	}

	conn, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	m := &Manager{
		cfg:      cfg,
		dial:     dial,
		reqs:     make(chan *request, cfg.QueueSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		conn:     conn,
		lastUsed: time.Now(),
	}
	go m.run()
	return m, nil
}

// Do runs fn with exclusive access to the connection and returns its error.
// op names the operation in logs and metrics.
//
// If ctx is done before the worker reaches the operation, fn never runs and
// ctx.Err() is returned. Once fn has started, Do waits for it to finish so
// fn never outlives the caller.
func (m *Manager) Do(ctx context.Context, op string, fn func(Conn) error) error {
	req := &request{
		ctx:      ctx,
		op:       op,
		fn:       fn,
		enqueued: time.Now(),
		reply:    make(chan error, 1),
	}

	select {
	case <-m.closing:
		return ErrClosed
	default:
	}

	metrics.SetQueueDepth(int(m.pending.Add(1)))
	select {
	case m.reqs <- req:
	case <-m.closing:
		metrics.SetQueueDepth(int(m.pending.Add(-1)))
		return ErrClosed
	case <-ctx.Done():
		metrics.SetQueueDepth(int(m.pending.Add(-1)))
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-m.done:
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Doer submits operations. *Manager is the implementation; packages that
// only submit work depend on this instead.
type Doer interface {
	Do(ctx context.Context, op string, fn func(Conn) error) error
}

var _ Doer = (*Manager)(nil)

// Run is Do for operations that produce a value.
func Run[T any](ctx context.Context, d Doer, op string, fn func(Conn) (T, error)) (T, error) {
	var out T
	err := d.Do(ctx, op, func(c Conn) error {
		v, err := fn(c)
		out = v
		return err
	})
	return out, err
}

// Close fails queued operations with ErrClosed, waits for the running one
// and sends QUIT.
func (m *Manager) Close() error {
	m.once.Do(func() { close(m.closing) })
	<-m.done
	return nil
}

func (m *Manager) run() {
	defer close(m.done)

	var tick <-chan time.Time
	if m.cfg.KeepAlive > 0 {
		ticker := time.NewTicker(m.cfg.KeepAlive / 2)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-m.closing:
			m.shutdown()
			return
		case req := <-m.reqs:
			m.serve(req)
		case <-tick:
			m.keepAlive()
		}
	}
}

func (m *Manager) serve(req *request) {
	metrics.SetQueueDepth(int(m.pending.Add(-1)))
	metrics.RecordQueueWait(time.Since(req.enqueued))

	if err := req.ctx.Err(); err != nil {
		req.reply <- err
		return
	}

	if m.conn == nil {
		conn, err := m.redial(req.ctx)
		metrics.RecordReconnect(err == nil)
		if err != nil {
			logging.Error("ftp reconnect failed", zap.String("operation", req.op), zap.Error(err))
			req.reply <- fmt.Errorf("reconnect: %w", err)
			return
		}
		logging.Info("ftp connection re-established")
		m.conn = conn
	}

	start := time.Now()
	err := m.call(req)
	m.lastUsed = time.Now()
	metrics.RecordSessionOperation(req.op, time.Since(start), err == nil)

	if err != nil && !keepsConnection(err) {
		logging.Warn("dropping ftp connection after failure",
			zap.String("operation", req.op),
			zap.Error(err))
		m.drop()
	}
	req.reply <- err
}

// call runs one operation, turning a panic into an error for that caller.
func (m *Manager) call(req *request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("session operation panicked",
				zap.String("operation", req.op),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return req.fn(m.conn)
}

func (m *Manager) keepAlive() {
	if m.conn == nil || time.Since(m.lastUsed) < m.cfg.KeepAlive {
		return
	}
	start := time.Now()
	err := m.conn.Noop()
	m.lastUsed = time.Now()
	metrics.RecordSessionOperation("noop", time.Since(start), err == nil)
	if err != nil {
		logging.Warn("ftp keep-alive failed", zap.Error(err))
		m.drop()
	}
}

func (m *Manager) drop() {
	if m.conn == nil {
		return
	}
	m.conn.Quit()
	m.conn = nil
}

func (m *Manager) shutdown() {
	for {
		select {
		case req := <-m.reqs:
			metrics.SetQueueDepth(int(m.pending.Add(-1)))
			req.reply <- ErrClosed
		default:
			m.drop()
			return
		}
	}
}
