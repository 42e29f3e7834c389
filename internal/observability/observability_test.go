package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: pgerrcode.UniqueViolation}, "unique_violation"},
		{fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), "deadlock"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{redis.Nil, "not_found"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("connection refused"), "connection"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.find_by_email", func() error { return nil })
	err := p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: pgerrcode.UniqueViolation} })
	if err == nil {
		t.Fatalf("expected the wrapped error to be returned")
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation"))
	if got != 1 {
		t.Fatalf("errors_total = %v, want 1", got)
	}
}

func TestNilPromIsSafe(t *testing.T) {
	var p *Prom

	p.ObserveAuth("user.login", "ok")
	p.ObservePurge(1, 2)
	if err := p.ObserveDB("op", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "prod")

	ctx := WithRequestID(context.Background(), "req-123")
	log.InfoContext(ctx, "hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if line["request_id"] != "req-123" {
		t.Fatalf("request_id = %v", line["request_id"])
	}

	buf.Reset()
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered outside dev, got %s", buf.String())
	}
}
