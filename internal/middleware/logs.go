package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/audit"
)

// RecordShipper receives one audit record per request. Implemented by
// audit.Shipper; tests substitute a capturing fake.
type RecordShipper interface {
	Ship(ctx context.Context, rec audit.Record)
}

// AuditLogger wraps every request: it captures request metadata and a
// monotonic start time before the handler runs, merges in response
// metadata afterwards, and hands the combined record to the shipper on a
// detached goroutine. Nothing on the request path waits for shipping, and
// a shipping failure can no longer alter the response.
func AuditLogger(shipper RecordShipper, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		scheme := "http"
		if req.TLS != nil {
			scheme = "https"
		}

		rec := audit.Record{
			Method:      req.Method,
			ReqHeaders:  flattenHeader(req.Header),
			HTTPVersion: strings.TrimPrefix(req.Proto, "HTTP/"),
			Path:        req.URL.Path,
			Scheme:      scheme,
			Type:        "http",
			QueryString: req.URL.RawQuery,
			Server:      req.Host,
			Client:      req.RemoteAddr,
			Body:        "", // body capture is a deliberate no-op
			CreatedAt:   start.UTC().Format(time.RFC3339Nano),
		}

		c.Next()

		rec.PathParams = pathParams(c.Params)
		rec.StatusCode = c.Writer.Status()
		rec.ProcessTime = time.Since(start).Seconds()
		rec.ResHeaders = flattenHeader(c.Writer.Header())
		rec.Response = "" // response capture is a deliberate no-op

		logger.Info("request completed",
			zap.String("method", rec.Method),
			zap.String("path", rec.Path),
			zap.Int("status", rec.StatusCode),
			zap.Float64("process_time", rec.ProcessTime),
			zap.String("request_id", c.Writer.Header().Get(RequestIDHeader)),
		)

		// detached: if the process exits first, the entry is simply lost
		go shipper.Ship(context.Background(), rec)
	}
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

func pathParams(params gin.Params) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		out[p.Key] = p.Value
	}
	return out
}
