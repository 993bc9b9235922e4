package services

import (
	"github.com/krishanmaan/maanedu-media/internal/clients/mediakit"
	configloader "github.com/krishanmaan/maanedu-media/internal/infrastructure/configloader"
	"github.com/krishanmaan/maanedu-media/internal/repositories"
	"github.com/krishanmaan/maanedu-media/internal/services/probe"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProvideProber 供 Wire 注入使用。
func ProvideProber(cfg configloader.IngestConfig, logger log.Logger) *probe.Prober {
	return probe.NewProber(probe.Config{
		FFprobePath:     cfg.FFprobePath,
		PrimaryTimeout:  cfg.ProbeTimeout,
		FallbackTimeout: cfg.ProbeFallbackTimeout,
	}, logger)
}

// ProvideUploadService 供 Wire 注入使用。
func ProvideUploadService(client *mediakit.Client, cfg configloader.MediakitConfig, logger log.Logger) (*UploadService, error) {
	return NewUploadService(client, cfg.MaxUploadBytes, logger)
}

// ProvidePollService 供 Wire 注入使用。
func ProvidePollService(client *mediakit.Client, cfg configloader.MediakitConfig, logger log.Logger) (*PollService, error) {
	return NewPollService(client, cfg.PollInterval, cfg.PollMaxAttempts, logger)
}

// ProvideCommitService 供 Wire 注入使用。
func ProvideCommitService(store *repositories.Store, logger log.Logger) (*CommitService, error) {
	return NewCommitService(store, logger)
}

// ProvideIngestService 供 Wire 注入使用。
func ProvideIngestService(prober *probe.Prober, uploads *UploadService, poller *PollService, committer *CommitService, cfg configloader.IngestConfig, logger log.Logger) (*IngestService, error) {
	return NewIngestService(prober, uploads, poller, committer, IngestConfig{
		FallbackDurationSeconds: cfg.FallbackDurationSeconds,
	}, logger)
}

// ProviderSet 暴露 Service 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	ProvideProber,
	ProvideUploadService,
	ProvidePollService,
	ProvideCommitService,
	ProvideIngestService,
)
