package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/audit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// captureShipper hands shipped records to the test over a channel; Ship
// runs on a detached goroutine, so the test has to wait for it.
type captureShipper struct {
	ch chan audit.Record
}

func (s *captureShipper) Ship(ctx context.Context, rec audit.Record) {
	s.ch <- rec
}

func (s *captureShipper) wait(t *testing.T) audit.Record {
	t.Helper()
	select {
	case rec := <-s.ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit record")
		return audit.Record{}
	}
}

func newAuditedRouter(shipper RecordShipper) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AuditLogger(shipper, zap.NewNop()))
	r.GET("/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	return r
}

func TestAuditLoggerCapturesRequestAndResponse(t *testing.T) {
	shipper := &captureShipper{ch: make(chan audit.Record, 1)}
	r := newAuditedRouter(shipper)

	req := httptest.NewRequest(http.MethodGet, "/items/42?verbose=1", nil)
	req.Header.Set("Accept", "application/json")
	req.RemoteAddr = "10.0.0.1:55001"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	rec := shipper.wait(t)
	if rec.Method != http.MethodGet {
		t.Fatalf("unexpected method: %q", rec.Method)
	}
	if rec.Path != "/items/42" {
		t.Fatalf("unexpected path: %q", rec.Path)
	}
	if rec.QueryString != "verbose=1" {
		t.Fatalf("unexpected query string: %q", rec.QueryString)
	}
	if rec.PathParams["id"] != "42" {
		t.Fatalf("unexpected path params: %v", rec.PathParams)
	}
	if rec.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.StatusCode)
	}
	if rec.Scheme != "http" || rec.Type != "http" || rec.HTTPVersion != "1.1" {
		t.Fatalf("unexpected protocol fields: %+v", rec)
	}
	if rec.Client != "10.0.0.1:55001" {
		t.Fatalf("unexpected client: %q", rec.Client)
	}
	if rec.ReqHeaders["Accept"] != "application/json" {
		t.Fatalf("unexpected request headers: %v", rec.ReqHeaders)
	}
	if rec.ResHeaders[RequestIDHeader] == "" {
		t.Fatalf("expected response headers to carry the request id")
	}
	if rec.ProcessTime < 0 {
		t.Fatalf("negative process time: %v", rec.ProcessTime)
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err != nil {
		t.Fatalf("created_at is not RFC3339: %q", rec.CreatedAt)
	}
	if rec.Body != "" || rec.Response != "" {
		t.Fatalf("body capture should be empty, got %q / %q", rec.Body, rec.Response)
	}
}

func TestAuditLoggerFlattensMultiValueHeaders(t *testing.T) {
	shipper := &captureShipper{ch: make(chan audit.Record, 1)}
	r := newAuditedRouter(shipper)

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Add("X-Forwarded-For", "10.0.0.1")
	req.Header.Add("X-Forwarded-For", "10.0.0.2")
	r.ServeHTTP(httptest.NewRecorder(), req)

	rec := shipper.wait(t)
	if rec.ReqHeaders["X-Forwarded-For"] != "10.0.0.1, 10.0.0.2" {
		t.Fatalf("unexpected flattening: %q", rec.ReqHeaders["X-Forwarded-For"])
	}
}

// slowShipper stalls to show that the request path never waits on shipping.
type slowShipper struct {
	release chan struct{}
	done    chan struct{}
}

func (s *slowShipper) Ship(ctx context.Context, rec audit.Record) {
	<-s.release
	close(s.done)
}

func TestAuditLoggerDoesNotBlockResponse(t *testing.T) {
	shipper := &slowShipper{release: make(chan struct{}), done: make(chan struct{})}
	r := newAuditedRouter(shipper)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	// the response is complete while the shipper is still stalled
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	select {
	case <-shipper.done:
		t.Fatal("shipping finished before it was released")
	default:
	}

	close(shipper.release)
	select {
	case <-shipper.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for detached shipping")
	}
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected inbound id to be echoed, got %q", got)
	}

	// absent header gets a generated id
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := w.Header().Get(RequestIDHeader); got == "" {
		t.Fatalf("expected a generated request id")
	}
}
