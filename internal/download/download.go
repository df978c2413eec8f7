// Package download retrieves remote files through the shared session.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gonzalop/ftp"
	"go.uber.org/zap"

	"github.com/ahaoboy/ftp-web/internal/browsepath"
	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/metrics"
	"github.com/ahaoboy/ftp-web/internal/session"
)

// ErrAborted is returned by Stream when the caller's context ended during
// the transfer. It does not wrap the context error, so the session replaces
// the connection afterwards.
var ErrAborted = errors.New("download aborted")

// File is a fully buffered download.
type File struct {
	Name string
	Data []byte
}

// Streamer fetches file content.
type Streamer struct {
	sess session.Doer
}

// New creates a Streamer over sess.
func New(sess session.Doer) *Streamer {
	return &Streamer{sess: sess}
}

// Fetch retrieves the whole file at p into memory. A failed retrieval never
// returns partial content.
func (s *Streamer) Fetch(ctx context.Context, p string) (*File, error) {
	data, err := session.Run(ctx, s.sess, "retrieve", func(c session.Conn) ([]byte, error) {
		var buf bytes.Buffer
		if err := c.Retrieve(p, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		metrics.RecordDownload("buffered", 0, false)
		return nil, fmt.Errorf("retrieve %s: %w", p, err)
	}

	metrics.RecordDownload("buffered", int64(len(data)), true)
	return &File{
		Name: browsepath.DownloadName(p),
		Data: data,
	}, nil
}

// StartFunc is called once, right before the first byte is written (or
// after an empty transfer completes). size is -1 when the server did not
// report one.
type StartFunc func(name string, size int64)

// Stream copies the file at p into w while holding the session. onStart
// lets the caller set response headers; if Stream fails before it was
// called nothing has been written to w. The returned count is the number of
// bytes written.
func (s *Streamer) Stream(ctx context.Context, p string, w io.Writer, onStart StartFunc) (int64, error) {
	name := browsepath.DownloadName(p)
	cw := &ctxWriter{ctx: ctx, w: w}

	err := s.sess.Do(ctx, "retrieve", func(c session.Conn) error {
		size, err := c.Size(p)
		if err != nil {
			var pe *ftp.ProtocolError
			if !errors.As(err, &pe) {
				return err
			}
			// Some servers refuse SIZE (ASCII mode, directories). RETR decides.
			logging.WithContext(ctx).Debug("size unavailable",
				zap.String("path", p),
				zap.Error(err))
			size = -1
		}
		cw.start = func() { onStart(name, size) }
		return c.Retrieve(p, cw)
	})
	if err == nil && !cw.started {
		cw.begin()
	}

	metrics.RecordDownload("stream", cw.n, err == nil)
	if err != nil {
		return cw.n, fmt.Errorf("stream %s: %w", p, err)
	}
	return cw.n, nil
}

// ctxWriter stops the transfer once ctx is done.
type ctxWriter struct {
	ctx     context.Context
	w       io.Writer
	n       int64
	start   func()
	started bool
}

func (cw *ctxWriter) begin() {
	cw.started = true
	if cw.start != nil {
		cw.start()
	}
}

func (cw *ctxWriter) Write(b []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAborted, err)
	}
	if !cw.started {
		cw.begin()
	}
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}
