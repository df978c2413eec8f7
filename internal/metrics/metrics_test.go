package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ftp/{path...}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /ftp/{path...}", "200"))

	rec := httptest.NewRecorder()
	Middleware(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ftp/a/b", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /ftp/{path...}", "200"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(sessionOperationsTotal.WithLabelValues("list", "error"))
	RecordSessionOperation("list", 5*time.Millisecond, false)
	if got := testutil.ToFloat64(sessionOperationsTotal.WithLabelValues("list", "error")) - before; got != 1 {
		t.Errorf("session operation delta = %v", got)
	}

	dropped := testutil.ToFloat64(listingLinesDropped)
	RecordDroppedLines(0)
	RecordDroppedLines(3)
	if got := testutil.ToFloat64(listingLinesDropped) - dropped; got != 3 {
		t.Errorf("dropped delta = %v, want 3", got)
	}

	SetQueueDepth(4)
	if got := testutil.ToFloat64(sessionQueueDepth); got != 4 {
		t.Errorf("queue depth = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordDownload("buffered", 10, true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "ftpweb_downloads_total") {
		t.Error("expected ftpweb_downloads_total in exposition")
	}
}
