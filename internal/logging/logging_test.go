package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestMiddlewareSetsRequestID(t *testing.T) {
	InitNop()

	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ftp/", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header request id = %q, context = %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	InitNop()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := nextRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestWithContextFallsBackToGlobal(t *testing.T) {
	InitNop()
	if WithContext(context.Background()) != L() {
		t.Error("expected global logger for bare context")
	}
}

func TestLazyLoggerIsShared(t *testing.T) {
	current.Store(nil)
	t.Cleanup(InitNop)

	const n = 16
	got := make([]*zap.Logger, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = L()
		}()
	}
	wg.Wait()

	for i, l := range got {
		if l == nil || l != got[0] {
			t.Fatalf("goroutine %d got logger %p, want %p", i, l, got[0])
		}
	}
}

func TestInitWritesToOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ftp-web.log")
	if err := Init(Config{Level: "debug", Format: "json", Output: out}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(InitNop)

	Debug("listing fetched", zap.String("path", "/docs"))
	Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"listing fetched"`) || !strings.Contains(string(data), `"path":"/docs"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
}
