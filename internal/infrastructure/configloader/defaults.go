package configloader

import "time"

// 默认轮询预算 2s × 150 次 ≈ 5 分钟；体积上限 10 GiB；
// 探测 15s/10s 双超时，兜底时长 60s。
func applyDefaults(rc *RuntimeConfig) {
	if rc.Server.Addr == "" {
		rc.Server.Addr = ":8000"
	}
	if rc.Server.Timeout <= 0 {
		rc.Server.Timeout = 60 * time.Second
	}

	if rc.Database.MaxOpenConns <= 0 {
		rc.Database.MaxOpenConns = 8
	}
	if rc.Database.HealthCheckPeriod <= 0 {
		rc.Database.HealthCheckPeriod = time.Minute
	}

	if rc.Mediakit.RequestTimeout <= 0 {
		rc.Mediakit.RequestTimeout = 30 * time.Second
	}
	if rc.Mediakit.MaxUploadBytes <= 0 {
		rc.Mediakit.MaxUploadBytes = int64(10) << 30
	}
	if rc.Mediakit.PollInterval <= 0 {
		rc.Mediakit.PollInterval = 2 * time.Second
	}
	if rc.Mediakit.PollMaxAttempts <= 0 {
		rc.Mediakit.PollMaxAttempts = 150
	}

	if rc.TenantDir.CacheTTL <= 0 {
		rc.TenantDir.CacheTTL = 5 * time.Minute
	}

	if rc.Ingest.FFprobePath == "" {
		rc.Ingest.FFprobePath = "ffprobe"
	}
	if rc.Ingest.ProbeTimeout <= 0 {
		rc.Ingest.ProbeTimeout = 15 * time.Second
	}
	if rc.Ingest.ProbeFallbackTimeout <= 0 {
		rc.Ingest.ProbeFallbackTimeout = 10 * time.Second
	}
	if rc.Ingest.FallbackDurationSeconds <= 0 {
		rc.Ingest.FallbackDurationSeconds = 60
	}
}
