package webdav

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	"github.com/ahaoboy/ftp-web/internal/logging"
)

// Prefix is where the share is mounted.
const Prefix = "/webdav"

// NewHandler creates a read-only WebDAV HTTP handler mounted at Prefix.
// Directory listings are shared within one request and fetched again by
// the next.
func NewHandler(lister Lister, fetcher Fetcher) http.Handler {
	dav := &webdav.Handler{
		FileSystem: NewFS(lister, fetcher),
		LockSystem: webdav.NewMemLS(),
		Prefix:     Prefix,
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logging.WithContext(r.Context()).Debug("webdav request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dav.ServeHTTP(w, r.WithContext(withRequestDirs(r.Context())))
	})
}
