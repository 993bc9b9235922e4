package mediakit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"

	"github.com/go-kratos/kratos/v2/log"
)

func newClient(t *testing.T, baseURL string) *mediakit.Client {
	t.Helper()
	client, err := mediakit.NewClient(mediakit.Config{
		BaseURL:     baseURL,
		TokenID:     "token-id",
		TokenSecret: "token-secret",
	}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCreateUploadSlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/video/v1/uploads" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "token-id" || pass != "token-secret" {
			t.Error("missing or wrong basic auth")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if _, ok := body["new_asset_settings"]; !ok {
			t.Error("expected new_asset_settings in request body")
		}
		_, _ = w.Write([]byte(`{"data":{"id":"upload-1","url":"https://upload.example/put"}}`))
	}))
	defer srv.Close()

	slot, err := newClient(t, srv.URL).CreateUploadSlot(context.Background())
	if err != nil {
		t.Fatalf("CreateUploadSlot: %v", err)
	}
	if slot.Handle != "upload-1" || slot.TargetURL != "https://upload.example/put" {
		t.Fatalf("unexpected slot: %+v", slot)
	}
}

func TestCreateUploadSlot_IncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"upload-1"}}`))
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).CreateUploadSlot(context.Background()); err == nil {
		t.Fatal("expected error for slot without target url")
	}
}

func TestTransferFile_ReportsProgress(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "video/mp4" {
			t.Errorf("unexpected content type %q", ct)
		}
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := strings.Repeat("x", 1024)
	var last float64
	err := newClient(t, srv.URL).TransferFile(
		context.Background(), srv.URL, "video/mp4",
		strings.NewReader(payload), int64(len(payload)),
		func(ratio float64) {
			if ratio < last {
				t.Errorf("progress went backwards: %v -> %v", last, ratio)
			}
			last = ratio
		},
	)
	if err != nil {
		t.Fatalf("TransferFile: %v", err)
	}
	if string(received) != payload {
		t.Fatalf("server received %d bytes, want %d", len(received), len(payload))
	}
	if last != 1 {
		t.Fatalf("expected final progress 1, got %v", last)
	}
}

func TestTransferFile_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("signature expired"))
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).TransferFile(
		context.Background(), srv.URL, "video/mp4", strings.NewReader("abc"), 3, nil,
	)
	var transferErr *mediakit.TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("expected TransferError, got %v", err)
	}
	if transferErr.Status != http.StatusForbidden || transferErr.Body != "signature expired" {
		t.Fatalf("unexpected transfer error: %+v", transferErr)
	}
}

func TestGetUploadLink_Unlinked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/v1/uploads/upload-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"upload-1","url":"https://upload.example/put"}}`))
	}))
	defer srv.Close()

	assetID, err := newClient(t, srv.URL).GetUploadLink(context.Background(), "upload-1")
	if err != nil {
		t.Fatalf("GetUploadLink: %v", err)
	}
	if assetID != "" {
		t.Fatalf("expected empty asset id before linkage, got %q", assetID)
	}
}

func TestGetAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/v1/assets/asset-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"id":"asset-1","status":"ready","duration":125.4,"playback_ids":[{"id":"stream-1"},{"id":""}]}}`))
	}))
	defer srv.Close()

	snapshot, err := newClient(t, srv.URL).GetAsset(context.Background(), "asset-1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if snapshot.AssetID != "asset-1" || snapshot.Status != "ready" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.DurationSeconds == nil || *snapshot.DurationSeconds != 125.4 {
		t.Fatalf("unexpected duration: %v", snapshot.DurationSeconds)
	}
	if len(snapshot.StreamIDs) != 1 || snapshot.StreamIDs[0] != "stream-1" {
		t.Fatalf("expected blank stream ids filtered, got %v", snapshot.StreamIDs)
	}
}

func TestGetAsset_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).GetAsset(context.Background(), "missing")
	if !errors.Is(err, mediakit.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestGetAsset_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).GetAsset(context.Background(), "asset-1")
	var apiErr *mediakit.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}
}
