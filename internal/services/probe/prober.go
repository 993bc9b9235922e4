// Package probe 实现本地视频时长探测。
// 主策略通过 ffprobe 子进程读取容器时长，失败后退回进程内的
// MP4 头部扫描。两个策略各有独立超时，全部失败由调用方视为非致命。
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrDurationDetection 表示所有探测策略都未得到有效时长。
var ErrDurationDetection = errors.New("probe: duration detection failed")

const (
	defaultPrimaryTimeout  = 15 * time.Second
	defaultFallbackTimeout = 10 * time.Second
)

// Config 描述探测参数。
type Config struct {
	FFprobePath     string
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
}

// Prober 依序执行探测策略。
type Prober struct {
	ffprobePath     string
	primaryTimeout  time.Duration
	fallbackTimeout time.Duration
	log             *log.Helper
}

// NewProber 构造 Prober。
func NewProber(cfg Config, logger log.Logger) *Prober {
	p := &Prober{
		ffprobePath:     cfg.FFprobePath,
		primaryTimeout:  cfg.PrimaryTimeout,
		fallbackTimeout: cfg.FallbackTimeout,
		log:             log.NewHelper(logger),
	}
	if p.ffprobePath == "" {
		p.ffprobePath = "ffprobe"
	}
	if p.primaryTimeout <= 0 {
		p.primaryTimeout = defaultPrimaryTimeout
	}
	if p.fallbackTimeout <= 0 {
		p.fallbackTimeout = defaultFallbackTimeout
	}
	return p
}

// Probe 返回文件的可播放时长（秒）。
// 零字节/无法打开的文件立即失败，不消耗探测超时。
func (p *Prober) Probe(ctx context.Context, path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat: %v", ErrDurationDetection, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrDurationDetection)
	}

	seconds, primaryErr := p.ffprobe(ctx, path)
	if primaryErr == nil {
		return seconds, nil
	}
	p.log.WithContext(ctx).Warnf("primary duration probe failed: path=%s err=%v", path, primaryErr)

	seconds, fallbackErr := p.scanContainer(ctx, path)
	if fallbackErr == nil {
		return seconds, nil
	}
	p.log.WithContext(ctx).Warnf("fallback duration probe failed: path=%s err=%v", path, fallbackErr)

	return 0, fmt.Errorf("%w: primary: %v; fallback: %v", ErrDurationDetection, primaryErr, fallbackErr)
}

// ffprobe 调用外部 ffprobe 读取 format=duration。
// 子进程由超时上下文约束，超时或出错时随 CommandContext 一并回收。
func (p *Prober) ffprobe(ctx context.Context, path string) (float64, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.primaryTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		if probeCtx.Err() != nil {
			return 0, fmt.Errorf("ffprobe timed out after %s", p.primaryTimeout)
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	return parseSeconds(strings.TrimSpace(string(output)))
}

// scanContainer 在进程内扫描 MP4 的 moov/mvhd 盒子，无需分叉子进程。
func (p *Prober) scanContainer(ctx context.Context, path string) (float64, error) {
	scanCtx, cancel := context.WithTimeout(ctx, p.fallbackTimeout)
	defer cancel()

	type result struct {
		seconds float64
		err     error
	}
	done := make(chan result, 1)

	go func() {
		secs, err := scanMP4Duration(path)
		done <- result{seconds: secs, err: err}
	}()

	select {
	case <-scanCtx.Done():
		return 0, fmt.Errorf("container scan timed out after %s", p.fallbackTimeout)
	case r := <-done:
		if r.err != nil {
			return 0, r.err
		}
		return validSeconds(r.seconds)
	}
}

// parseSeconds 在数值解析的当下就拒绝 NaN/非正值，而不是等到超时。
func parseSeconds(raw string) (float64, error) {
	if raw == "" || raw == "N/A" {
		return 0, errors.New("no duration reported")
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return validSeconds(seconds)
}

func validSeconds(seconds float64) (float64, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, fmt.Errorf("invalid duration %v", seconds)
	}
	return seconds, nil
}
