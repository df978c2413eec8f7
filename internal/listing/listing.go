// Package listing resolves a browse path into structured directory entries.
package listing

import (
	"context"
	"fmt"

	"github.com/gonzalop/ftp"
	"go.uber.org/zap"

	"github.com/ahaoboy/ftp-web/internal/browsepath"
	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/metrics"
	"github.com/ahaoboy/ftp-web/internal/session"
)

// Kind tells directories from files.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// Entry is one parsed line of a remote directory listing.
type Entry struct {
	Name         string
	Kind         Kind
	LastModified string
	Size         int64 // files only
	HasSize      bool
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Kind == KindDir }

// Listing is the result of resolving a browse path.
type Listing struct {
	// Path is the path actually listed. It is "" when the requested path
	// could not be listed and the root was listed instead.
	Path     string
	Entries  []Entry
	Parent   string
	Fallback bool
}

// Translator lists paths through the session and parses the result.
type Translator struct {
	sess session.Doer
}

// NewTranslator creates a Translator over sess.
func NewTranslator(sess session.Doer) *Translator {
	return &Translator{sess: sess}
}

// Resolve lists requested. If that fails the server's default directory is
// listed instead and Path is "". An error is returned only when the fallback
// listing fails too.
func (t *Translator) Resolve(ctx context.Context, requested string) (*Listing, error) {
	p := browsepath.Normalize(requested)

	entries, err := t.List(ctx, p)
	fallback := false
	if err != nil {
		if p == "" {
			return nil, err
		}
		logging.WithContext(ctx).Warn("listing failed, falling back to root",
			zap.String("path", p),
			zap.Error(err))
		metrics.RecordListingFallback()

		p, fallback = "", true
		if entries, err = t.List(ctx, ""); err != nil {
			return nil, err
		}
	}

	return &Listing{
		Path:     p,
		Entries:  entries,
		Parent:   browsepath.Parent(p),
		Fallback: fallback,
	}, nil
}

// List returns the parsed entries of p without any fallback. "" lists the
// server's default directory. Lines that do not parse are dropped; the
// remaining entries keep the server's order.
func (t *Translator) List(ctx context.Context, p string) ([]Entry, error) {
	p = browsepath.Normalize(p)

	raw, err := session.Run(ctx, t.sess, "list", func(c session.Conn) ([]*ftp.Entry, error) {
		return c.List(p)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", browsepath.Display(p), err)
	}

	entries := make([]Entry, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		e, ok := ParseLine(r.Raw)
		if !ok {
			dropped++
			logging.WithContext(ctx).Debug("dropping unparseable listing line",
				zap.String("line", r.Raw))
			continue
		}
		entries = append(entries, e)
	}
	metrics.RecordDroppedLines(dropped)
	return entries, nil
}
