package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	"github.com/krishanmaan/maanedu-media/internal/models/po"
	"github.com/krishanmaan/maanedu-media/internal/models/vo"
	"github.com/krishanmaan/maanedu-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// pipelineGateway 同时扮演上传与轮询网关，模拟完整的转码服务行为。
type pipelineGateway struct {
	stubUploadGateway
	scriptedAssetGateway
}

type stubProber struct {
	seconds float64
	err     error
}

func (s *stubProber) Probe(context.Context, string) (float64, error) {
	return s.seconds, s.err
}

func newIngestService(t *testing.T, gateway *pipelineGateway, prober services.DurationProber, store services.CommitStore, pollAttempts int) *services.IngestService {
	t.Helper()
	discard := log.NewStdLogger(io.Discard)

	uploads, err := services.NewUploadService(&gateway.stubUploadGateway, 0, discard)
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	poller, err := services.NewPollService(&gateway.scriptedAssetGateway, time.Millisecond, pollAttempts, discard)
	if err != nil {
		t.Fatalf("NewPollService: %v", err)
	}
	committer, err := services.NewCommitService(store, discard)
	if err != nil {
		t.Fatalf("NewCommitService: %v", err)
	}
	svc, err := services.NewIngestService(prober, uploads, poller, committer, services.IngestConfig{FallbackDurationSeconds: 60}, discard)
	if err != nil {
		t.Fatalf("NewIngestService: %v", err)
	}
	return svc
}

func ingestInput() services.IngestInput {
	return services.IngestInput{
		Upload: services.UploadInput{
			Name:        "clip.mp4",
			ContentType: "video/mp4",
			SizeBytes:   5,
			Body:        strings.NewReader("bytes"),
		},
		Table: po.TableCourses,
		Draft: po.ContentDraft{Title: "Algebra I", Category: "math", Price: 4900},
	}
}

func readyGateway(duration *float64) *pipelineGateway {
	return &pipelineGateway{
		stubUploadGateway: stubUploadGateway{
			slot:        &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
			linkAssetID: "asset-1",
		},
		scriptedAssetGateway: scriptedAssetGateway{
			snapshots: []*mediakit.AssetSnapshot{
				{AssetID: "asset-1", Status: "ready", StreamIDs: []string{"stream-1"}, DurationSeconds: duration},
			},
		},
	}
}

func TestIngest_ServiceDurationWins(t *testing.T) {
	duration := 125.4
	store := &stubCommitStore{latestID: 1}
	svc := newIngestService(t, readyGateway(&duration), &stubProber{seconds: 118}, store, 10)

	outcome, err := svc.Ingest(context.Background(), "acme", withLocalPath(t, ingestInput()), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Duration.Source != vo.DurationServiceReported {
		t.Fatalf("expected service-reported duration, got %s", outcome.Duration.Source)
	}
	if outcome.Duration.RoundedSeconds() != 125 {
		t.Fatalf("expected 125 seconds, got %d", outcome.Duration.RoundedSeconds())
	}
	if outcome.Background {
		t.Fatal("expected foreground completion")
	}
	if outcome.StreamID == nil || *outcome.StreamID != "stream-1" {
		t.Fatalf("unexpected stream id: %v", outcome.StreamID)
	}
	if got := store.inserted[0]["video_url"]; got != "stream://stream-1" {
		t.Fatalf("video_url should use the stream id, got %v", got)
	}
	if got := store.inserted[0]["duration"]; got != int32(125) {
		t.Fatalf("expected persisted duration 125, got %v", got)
	}
}

func TestIngest_LocalProbeWhenServiceSilent(t *testing.T) {
	store := &stubCommitStore{latestID: 1}
	svc := newIngestService(t, readyGateway(nil), &stubProber{seconds: 90.5}, store, 10)

	outcome, err := svc.Ingest(context.Background(), "acme", withLocalPath(t, ingestInput()), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Duration.Source != vo.DurationLocalProbe {
		t.Fatalf("expected local-probe duration, got %s", outcome.Duration.Source)
	}
	if outcome.Duration.RoundedSeconds() != 91 {
		t.Fatalf("expected 91 seconds, got %d", outcome.Duration.RoundedSeconds())
	}
}

func TestIngest_FallbackDurationWhenAllProbesFail(t *testing.T) {
	store := &stubCommitStore{latestID: 1}
	svc := newIngestService(t, readyGateway(nil), &stubProber{err: errors.New("no ffprobe")}, store, 10)

	outcome, err := svc.Ingest(context.Background(), "acme", withLocalPath(t, ingestInput()), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Duration.Source != vo.DurationDefaultFallback {
		t.Fatalf("expected default-fallback duration, got %s", outcome.Duration.Source)
	}
	if outcome.Duration.RoundedSeconds() != 60 {
		t.Fatalf("expected 60 seconds, got %d", outcome.Duration.RoundedSeconds())
	}
}

func TestIngest_PollTimeoutIsSoftSuccess(t *testing.T) {
	gateway := &pipelineGateway{
		stubUploadGateway: stubUploadGateway{
			slot:        &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
			linkAssetID: "asset-1",
		},
		scriptedAssetGateway: scriptedAssetGateway{
			snapshots: []*mediakit.AssetSnapshot{{AssetID: "asset-1", Status: "preparing"}},
		},
	}
	store := &stubCommitStore{latestID: 1}
	svc := newIngestService(t, gateway, &stubProber{seconds: 125.4}, store, 3)
	observer := &recordingObserver{}

	outcome, err := svc.Ingest(context.Background(), "acme", withLocalPath(t, ingestInput()), observer)
	if err != nil {
		t.Fatalf("Ingest should tolerate poll timeout: %v", err)
	}
	if !outcome.Background {
		t.Fatal("expected background processing flag")
	}
	if outcome.Duration.Source != vo.DurationLocalProbe {
		t.Fatalf("expected local-probe duration without a ready asset, got %s", outcome.Duration.Source)
	}
	if got := store.inserted[0]["duration"]; got != int32(125) {
		t.Fatalf("expected rounded local duration 125 persisted, got %v", got)
	}
	if outcome.StreamID != nil {
		t.Fatalf("expected no stream id, got %v", *outcome.StreamID)
	}
	// 流 ID 未知时记录退回资产定位符。
	if got := store.inserted[0]["video_url"]; got != "stream://asset-1" {
		t.Fatalf("expected asset locator in video_url, got %v", got)
	}
	last := observer.statuses[len(observer.statuses)-1]
	if last != "background_processing" {
		t.Fatalf("expected final status background_processing, got %v", observer.statuses)
	}
}

func TestIngest_ProcessingFailureIsFatal(t *testing.T) {
	gateway := &pipelineGateway{
		stubUploadGateway: stubUploadGateway{
			slot:        &mediakit.UploadSlot{Handle: "upload-1", TargetURL: "https://upload.example/put"},
			linkAssetID: "asset-1",
		},
		scriptedAssetGateway: scriptedAssetGateway{
			snapshots: []*mediakit.AssetSnapshot{{AssetID: "asset-1", Status: "errored"}},
		},
	}
	store := &stubCommitStore{}
	svc := newIngestService(t, gateway, &stubProber{seconds: 10}, store, 10)

	_, err := svc.Ingest(context.Background(), "acme", withLocalPath(t, ingestInput()), nil)
	if !errors.Is(err, services.ErrProcessingFailed) {
		t.Fatalf("expected ErrProcessingFailed, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("failed processing must not persist a record")
	}
}

func TestIngest_RejectsUnknownTable(t *testing.T) {
	store := &stubCommitStore{}
	svc := newIngestService(t, readyGateway(nil), &stubProber{}, store, 10)

	input := ingestInput()
	input.Table = "users"
	if _, err := svc.Ingest(context.Background(), "acme", input, nil); err == nil {
		t.Fatal("expected error for unsupported table")
	}
}

func TestIngest_SkipsProbeWithoutLocalPath(t *testing.T) {
	store := &stubCommitStore{latestID: 1}
	prober := &stubProber{seconds: 42}
	svc := newIngestService(t, readyGateway(nil), prober, store, 10)

	outcome, err := svc.Ingest(context.Background(), "acme", ingestInput(), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Duration.Source != vo.DurationDefaultFallback {
		t.Fatalf("expected fallback duration without local path, got %s", outcome.Duration.Source)
	}
}

// withLocalPath 填充一个占位本地路径，探测结果由 stubProber 决定。
func withLocalPath(t *testing.T, input services.IngestInput) services.IngestInput {
	t.Helper()
	input.LocalPath = "/tmp/staged-clip.mp4"
	return input
}
