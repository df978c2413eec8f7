package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gonzalop/ftp"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/retry"
)

// Conn is the set of control-connection operations the gateway issues.
// *ftp.Client satisfies it.
type Conn interface {
	List(path string) ([]*ftp.Entry, error)
	Retrieve(path string, w io.Writer) error
	Size(path string) (int64, error)
	Noop() error
	Quit() error
}

var _ Conn = (*ftp.Client)(nil)

// Dialer opens and authenticates a new control connection.
type Dialer func(ctx context.Context) (Conn, error)

// FTPDialer returns a Dialer that connects to cfg.Addr with
// github.com/gonzalop/ftp and logs in with the configured credentials.
// An empty username logs in anonymously.
func FTPDialer(cfg Config) Dialer {
	return func(ctx context.Context) (Conn, error) {
		opts := []ftp.Option{
			ftp.WithDialer(&net.Dialer{Timeout: cfg.Timeout}),
			// Protocol traffic is logged at debug through the zap core.
			ftp.WithLogger(slog.New(zapslog.NewHandler(logging.L().Core(),
				zapslog.WithName("ftp")))),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, ftp.WithTimeout(cfg.Timeout))
		}
		if cfg.TLS {
			host, _, _ := net.SplitHostPort(cfg.Addr)
			opts = append(opts, ftp.WithExplicitTLS(&tls.Config{
				ServerName:         host,
				InsecureSkipVerify: cfg.TLSInsecure,
				MinVersion:         tls.VersionTLS12,
			}))
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		client, err := ftp.Dial(cfg.Addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
		}

		user, pass := cfg.Username, cfg.Password
		if user == "" {
			user = "anonymous"
			if pass == "" {
				pass = "anonymous@"
			}
		}
		if err := client.Login(user, pass); err != nil {
			client.Quit()
			return nil, fmt.Errorf("login as %q: %w", user, err)
		}

		logging.Info("connected to ftp server",
			zap.String("addr", cfg.Addr),
			zap.String("user", user),
			zap.Bool("tls", cfg.TLS),
			zap.Duration("elapsed", time.Since(start)))
		return client, nil
	}
}

// isPermanent reports whether a dial error will not go away by retrying,
// such as rejected credentials.
func isPermanent(err error) bool {
	var pe *ftp.ProtocolError
	return errors.As(err, &pe) && pe.IsPermanent()
}

// keepsConnection reports whether the control connection is still in a
// known state after an operation failed with err. Protocol replies (550 and
// friends) and caller cancellations leave it usable; anything else (I/O
// errors, panics) means the connection must be replaced.
func keepsConnection(err error) bool {
	var pe *ftp.ProtocolError
	switch {
	case errors.As(err, &pe):
		return true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// redial connects again using the manager's backoff policy.
func (m *Manager) redial(ctx context.Context) (Conn, error) {
	rc := m.cfg.Redial
	rc.OnRetry = func(attempt int, err error) {
		logging.Warn("ftp reconnect failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return retry.DoWithResult(ctx, rc, func() (Conn, error) {
		c, err := m.dial(ctx)
		if err != nil && isPermanent(err) {
			return nil, retry.Permanent(err)
		}
		return c, err
	})
}
