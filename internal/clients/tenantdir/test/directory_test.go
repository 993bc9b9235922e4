package tenantdir_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/krishanmaan/maanedu-media/internal/clients/tenantdir"

	"github.com/go-kratos/kratos/v2/log"
)

func newDirectory(t *testing.T, endpoint string, ttl time.Duration) *tenantdir.Directory {
	t.Helper()
	dir, err := tenantdir.NewDirectory(tenantdir.Config{
		Endpoint: endpoint,
		APIKey:   "secret",
		CacheTTL: ttl,
	}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	return dir
}

func TestLookup_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/tenants/acme.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("auth") != "secret" {
			t.Error("missing auth key")
		}
		_, _ = w.Write([]byte(`{"url":"https://db.acme.example","key":"db-key"}`))
	}))
	defer srv.Close()

	dir := newDirectory(t, srv.URL, time.Minute)

	for i := 0; i < 3; i++ {
		creds, err := dir.Lookup(context.Background(), "acme")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if creds.Endpoint != "https://db.acme.example" || creds.Key != "db-key" {
			t.Fatalf("unexpected credentials: %+v", creds)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestLookup_InvalidateForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"url":"https://db.example","key":"k"}`))
	}))
	defer srv.Close()

	dir := newDirectory(t, srv.URL, time.Minute)

	if _, err := dir.Lookup(context.Background(), "acme"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	dir.Invalidate("acme")
	if _, err := dir.Lookup(context.Background(), "acme"); err != nil {
		t.Fatalf("Lookup after invalidate: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestLookup_UnknownTenant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newDirectory(t, srv.URL, time.Minute).Lookup(context.Background(), "ghost")
	if !errors.Is(err, tenantdir.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown, got %v", err)
	}
}

func TestLookup_NullEntryTreatedAsUnknown(t *testing.T) {
	// 实时配置存储对缺失键返回 200 + 字面量 null。
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	_, err := newDirectory(t, srv.URL, time.Minute).Lookup(context.Background(), "ghost")
	if !errors.Is(err, tenantdir.ErrTenantUnknown) {
		t.Fatalf("expected ErrTenantUnknown for null entry, got %v", err)
	}
}

func TestLookup_EmptyTenantID(t *testing.T) {
	dir := newDirectory(t, "http://unused.example", time.Minute)
	if _, err := dir.Lookup(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty tenant id")
	}
}
