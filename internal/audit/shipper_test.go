package audit

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	qdb "github.com/questdb/go-questdb-client/v3"
	"go.uber.org/zap"
)

// recordingSender captures the row assembled by Ship instead of writing it
// over the wire.
type recordingSender struct {
	table   string
	strings map[string]string
	ints    map[string]int64
	floats  map[string]float64
	atTime  time.Time
	atErr   error
	flushed bool
	closed  bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		strings: map[string]string{},
		ints:    map[string]int64{},
		floats:  map[string]float64{},
	}
}

func (r *recordingSender) Table(name string) qdb.LineSender {
	r.table = name
	return r
}

func (r *recordingSender) Symbol(name, val string) qdb.LineSender {
	return r
}

func (r *recordingSender) Int64Column(name string, val int64) qdb.LineSender {
	r.ints[name] = val
	return r
}

func (r *recordingSender) Long256Column(name string, val *big.Int) qdb.LineSender {
	return r
}

func (r *recordingSender) TimestampColumn(name string, ts time.Time) qdb.LineSender {
	return r
}

func (r *recordingSender) Float64Column(name string, val float64) qdb.LineSender {
	r.floats[name] = val
	return r
}

func (r *recordingSender) StringColumn(name, val string) qdb.LineSender {
	r.strings[name] = val
	return r
}

func (r *recordingSender) BoolColumn(name string, val bool) qdb.LineSender {
	return r
}

func (r *recordingSender) At(ctx context.Context, ts time.Time) error {
	if r.atErr != nil {
		return r.atErr
	}
	r.atTime = ts
	return nil
}

func (r *recordingSender) AtNow(ctx context.Context) error {
	return r.At(ctx, time.Now())
}

func (r *recordingSender) Flush(ctx context.Context) error {
	r.flushed = true
	return nil
}

func (r *recordingSender) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func newTestShipper(sender qdb.LineSender, senderErr error) *Shipper {
	return &Shipper{
		table:   "api_logs",
		logger:  zap.NewNop(),
		nowFunc: time.Now,
		newSender: func(ctx context.Context) (qdb.LineSender, error) {
			return sender, senderErr
		},
	}
}

func sampleRecord() Record {
	return Record{
		Method:      "GET",
		ReqHeaders:  map[string]string{"Accept": "application/json"},
		HTTPVersion: "1.1",
		Path:        "/users/7",
		Scheme:      "http",
		Type:        "http",
		PathParams:  map[string]string{"id": "7"},
		QueryString: "verbose=1",
		Server:      "localhost:8000",
		Client:      "10.0.0.1:55001",
		StatusCode:  200,
		ProcessTime: 0.0042,
		CreatedAt:   "2026-03-01T12:00:00Z",
		ResHeaders:  map[string]string{"Content-Type": "application/json"},
	}
}

func TestShipWritesOneTypedRow(t *testing.T) {
	sender := newRecordingSender()
	s := newTestShipper(sender, nil)

	ingest := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)
	s.nowFunc = func() time.Time { return ingest }

	s.Ship(context.Background(), sampleRecord())

	if sender.table != "api_logs" {
		t.Fatalf("expected table api_logs, got %q", sender.table)
	}
	if sender.strings["method"] != "GET" || sender.strings["path"] != "/users/7" {
		t.Fatalf("unexpected string columns: %v", sender.strings)
	}
	if sender.strings["query_string"] != "verbose=1" {
		t.Fatalf("unexpected query_string: %q", sender.strings["query_string"])
	}
	if sender.strings["created_at"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected created_at: %q", sender.strings["created_at"])
	}

	// status and latency go out as numbers, not strings
	if sender.ints["status_code"] != 200 {
		t.Fatalf("expected status_code 200, got %d", sender.ints["status_code"])
	}
	if sender.floats["process_time"] != 0.0042 {
		t.Fatalf("expected process_time 0.0042, got %v", sender.floats["process_time"])
	}

	// the row timestamp is the ingestion time, not the request time
	if !sender.atTime.Equal(ingest) {
		t.Fatalf("expected row timestamp %v, got %v", ingest, sender.atTime)
	}
	if !sender.flushed {
		t.Fatalf("expected sender to be flushed")
	}
	if !sender.closed {
		t.Fatalf("expected sender to be closed")
	}
}

func TestShipRendersMaps(t *testing.T) {
	sender := newRecordingSender()
	s := newTestShipper(sender, nil)

	rec := sampleRecord()
	rec.PathParams = nil
	s.Ship(context.Background(), rec)

	if sender.strings["path_params"] != "{}" {
		t.Fatalf("expected empty map rendering, got %q", sender.strings["path_params"])
	}
	if sender.strings["req_headers"] != "map[Accept:application/json]" {
		t.Fatalf("unexpected req_headers rendering: %q", sender.strings["req_headers"])
	}
}

func TestShipSenderOpenFailureIsAbsorbed(t *testing.T) {
	s := newTestShipper(nil, errors.New("connection refused"))

	// must not panic or propagate anything
	s.Ship(context.Background(), sampleRecord())
}

func TestShipWriteFailureStillCloses(t *testing.T) {
	sender := newRecordingSender()
	sender.atErr = errors.New("ilp write failed")
	s := newTestShipper(sender, nil)

	s.Ship(context.Background(), sampleRecord())

	if sender.flushed {
		t.Fatalf("expected no flush after a failed write")
	}
	if !sender.closed {
		t.Fatalf("expected sender to be closed on the failure path")
	}
}
