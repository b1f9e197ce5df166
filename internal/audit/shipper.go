package audit

import (
	"context"
	"fmt"
	"time"

	qdb "github.com/questdb/go-questdb-client/v3"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/metrics"
)

// Config holds the QuestDB connection parameters for the shipper.
type Config struct {
	Addr     string // host:port of the ILP/HTTP endpoint
	User     string
	Password string
	Table    string
}

// Shipper writes audit records to QuestDB over the ILP line protocol.
// Shipping is fire-and-forget: no retry, and no error ever reaches the
// request path — a transport failure here is only a log line.
type Shipper struct {
	table     string
	logger    *zap.Logger
	metrics   *metrics.Publisher
	nowFunc   func() time.Time
	newSender func(ctx context.Context) (qdb.LineSender, error)
}

// NewShipper returns a Shipper that opens a fresh sender per record and
// releases it on every exit path.
func NewShipper(cfg Config, logger *zap.Logger, pub *metrics.Publisher) *Shipper {
	return &Shipper{
		table:   cfg.Table,
		logger:  logger,
		metrics: pub,
		nowFunc: time.Now,
		newSender: func(ctx context.Context) (qdb.LineSender, error) {
			opts := []qdb.LineSenderOption{
				qdb.WithHttp(),
				qdb.WithAddress(cfg.Addr),
			}
			if cfg.User != "" {
				opts = append(opts, qdb.WithBasicAuth(cfg.User, cfg.Password))
			}
			return qdb.NewLineSender(ctx, opts...)
		},
	}
}

// Ship writes one row for rec, tagged with the ingestion timestamp (not
// the captured request timestamp). Numbers, booleans and strings pass
// through as typed columns; structured values (header maps, path params)
// are rendered to their string representation.
func (s *Shipper) Ship(ctx context.Context, rec Record) {
	sender, err := s.newSender(ctx)
	if err != nil {
		s.fail(ctx, "open audit sender", err)
		return
	}
	defer func() {
		if err := sender.Close(ctx); err != nil {
			s.logger.Warn("close audit sender failed", zap.Error(err))
		}
	}()

	row := sender.Table(s.table).
		StringColumn("method", rec.Method).
		StringColumn("req_headers", renderMap(rec.ReqHeaders)).
		StringColumn("http_version", rec.HTTPVersion).
		StringColumn("path", rec.Path).
		StringColumn("scheme", rec.Scheme).
		StringColumn("type", rec.Type).
		StringColumn("path_params", renderMap(rec.PathParams)).
		StringColumn("query_string", rec.QueryString).
		StringColumn("server", rec.Server).
		StringColumn("client", rec.Client).
		StringColumn("body", rec.Body).
		Int64Column("status_code", int64(rec.StatusCode)).
		Float64Column("process_time", rec.ProcessTime).
		StringColumn("created_at", rec.CreatedAt).
		StringColumn("res_headers", renderMap(rec.ResHeaders)).
		StringColumn("response", rec.Response)

	if err := row.At(ctx, s.nowFunc()); err != nil {
		s.fail(ctx, "write audit row", err)
		return
	}
	if err := sender.Flush(ctx); err != nil {
		s.fail(ctx, "flush audit row", err)
		return
	}
}

func (s *Shipper) fail(ctx context.Context, op string, err error) {
	s.logger.Warn("audit shipping failed", zap.String("op", op), zap.Error(err))
	s.metrics.Count(ctx, "AuditShipFailure", nil)
}

// renderMap coerces a header/params mapping to a single string column.
// fmt prints maps in sorted key order, so the rendering is deterministic.
func renderMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	return fmt.Sprint(m)
}
