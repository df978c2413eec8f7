// Package api provides the HTTP server and handlers.
package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/gonzalop/ftp"
	"go.uber.org/zap"

	"github.com/ahaoboy/ftp-web/internal/browsepath"
	"github.com/ahaoboy/ftp-web/internal/download"
	"github.com/ahaoboy/ftp-web/internal/listing"
	"github.com/ahaoboy/ftp-web/internal/logging"
	"github.com/ahaoboy/ftp-web/internal/metrics"
	"github.com/ahaoboy/ftp-web/internal/render"
	"github.com/ahaoboy/ftp-web/internal/session"
	"github.com/ahaoboy/ftp-web/internal/webdav"
)

// Pool gzip writers to reduce allocations on listing pages.
var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// gzipMinSize is the smallest page worth compressing.
const gzipMinSize = 1024

// Lister resolves browse paths.
type Lister interface {
	Resolve(ctx context.Context, p string) (*listing.Listing, error)
	List(ctx context.Context, p string) ([]listing.Entry, error)
}

// Files retrieves file content.
type Files interface {
	Fetch(ctx context.Context, p string) (*download.File, error)
	Stream(ctx context.Context, p string, w io.Writer, onStart download.StartFunc) (int64, error)
}

// Options selects optional behavior.
type Options struct {
	// Stream sends downloads straight from the data connection instead of
	// buffering them first.
	Stream bool

	// WebDAV mounts a read-only WebDAV view at /webdav/.
	WebDAV bool
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Server is the HTTP server.
type Server struct {
	lister   Lister
	files    Files
	renderer *render.Renderer
	opts     Options
}

// NewServer creates a new server.
func NewServer(lister Lister, files Files, renderer *render.Renderer, opts Options) *Server {
	return &Server{
		lister:   lister,
		files:    files,
		renderer: renderer,
		opts:     opts,
	}
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /ftp/{path...}", s.handleBrowse)
	mux.HandleFunc("GET /file/{path...}", s.handleFile)

	if s.opts.WebDAV {
		davHandler := webdav.NewHandler(s.lister, s.files)
		mux.Handle(webdav.Prefix+"/", davHandler)
		mux.Handle(webdav.Prefix, davHandler)
	}

	// Anything else shows the root listing.
	mux.HandleFunc("/", s.handleRoot)

	// Metrics sits directly on the mux so it sees the matched pattern.
	return collapseSlashes(corsMiddleware(logging.Middleware(metrics.Middleware(mux))))
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// collapseSlashes folds doubled separators before routing, so the mux does
// not answer "/ftp/a//b" with a redirect.
func collapseSlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "//") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = browsepath.Normalize(r.URL.Path)
			r2.URL.RawPath = ""
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows any origin, method and header, and answers
// preflight requests itself.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ─── Browse ─────────────────────────────────────────────────────────────────

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.browse(w, r, "")
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	s.browse(w, r, pathParam(r))
}

func (s *Server) browse(w http.ResponseWriter, r *http.Request, p string) {
	l, err := s.lister.Resolve(r.Context(), p)
	if err != nil {
		logging.WithContext(r.Context()).Error("listing failed",
			zap.String("path", p),
			zap.Error(err))
		// The root fallback failed too: the upstream is unusable.
		s.sendError(w, r, http.StatusBadGateway, "listing failed: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, l); err != nil {
		logging.WithContext(r.Context()).Error("render failed", zap.Error(err))
		s.sendError(w, r, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	writeMaybeGzipped(w, r, buf.Bytes())
}

func writeMaybeGzipped(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Add("Vary", "Accept-Encoding")
	if len(body) < gzipMinSize || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	gz := gzipPool.Get().(*gzip.Writer)
	defer gzipPool.Put(gz)
	gz.Reset(w)
	gz.Write(body)
	gz.Close()
}

// ─── Download ───────────────────────────────────────────────────────────────

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	p := pathParam(r)
	if p == "" {
		s.sendError(w, r, http.StatusBadRequest, "file path required")
		return
	}
	if s.opts.Stream {
		s.streamFile(w, r, p)
		return
	}

	f, err := s.files.Fetch(r.Context(), p)
	if err != nil {
		logging.WithContext(r.Context()).Error("download failed",
			zap.String("path", p),
			zap.Error(err))
		s.sendError(w, r, upstreamStatus(err), "download failed: "+err.Error())
		return
	}

	setDownloadHeaders(w, f.Name, int64(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}

func (s *Server) streamFile(w http.ResponseWriter, r *http.Request, p string) {
	started := false
	n, err := s.files.Stream(r.Context(), p, w, func(name string, size int64) {
		started = true
		setDownloadHeaders(w, name, size)
		w.WriteHeader(http.StatusOK)
	})
	if err == nil {
		return
	}

	log := logging.WithContext(r.Context())
	if !started {
		log.Error("download failed", zap.String("path", p), zap.Error(err))
		s.sendError(w, r, upstreamStatus(err), "download failed: "+err.Error())
		return
	}
	// Headers are gone; all that is left is to cut the response short.
	log.Warn("download interrupted",
		zap.String("path", p),
		zap.Int64("bytes", n),
		zap.Error(err))
	panic(http.ErrAbortHandler)
}

func setDownloadHeaders(w http.ResponseWriter, name string, size int64) {
	h := w.Header()
	h.Set("Content-Disposition", contentDisposition(name))
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	if size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}
}

// contentDisposition quotes plain ASCII names directly and falls back to
// the RFC 2231 form for anything else.
func contentDisposition(name string) string {
	plain := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			plain = false
			break
		}
	}
	if plain {
		return `attachment; filename="` + name + `"`
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return `attachment; filename="` + browsepath.DefaultDownloadName + `"`
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// pathParam returns the wildcard path as a browse path: "" for the root,
// otherwise with a leading slash.
func pathParam(r *http.Request) string {
	v := r.PathValue("path")
	if v == "" {
		return ""
	}
	return "/" + v
}

// upstreamStatus maps an upstream failure to an HTTP status.
func upstreamStatus(err error) int {
	var pe *ftp.ProtocolError
	switch {
	case errors.As(err, &pe) && pe.Code == 550:
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: logging.RequestID(r.Context()),
	})
}
