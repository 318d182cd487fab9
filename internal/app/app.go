package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"proxysieve/internal/shared/logger"
	"proxysieve/internal/shared/types"
	manager "proxysieve/proxypool"
	"proxysieve/proxypool/model"
	"proxysieve/proxypool/normalize"
	"proxysieve/proxypool/scraper"
	"proxysieve/proxypool/storage"
	"proxysieve/proxypool/validator"
)

// App 把候选来源、探测器、调度器和结果文件串成一次完整运行。
type App struct {
	cfg      *types.Config
	runID    string
	scrapers []scraper.Scraper
	prober   manager.Prober
	sink     storage.Sink
}

// New 根据配置构造一次运行。cfg 应已通过 config.Validate。
func New(cfg *types.Config) *App {
	c := cfg.CheckerConf
	prober := validator.NewValidator(validator.Options{
		HTTPTarget:    c.HTTPTarget,
		WSTarget:      c.WSTarget,
		WSPayload:     c.WSPayload,
		HTTPTimeout:   time.Duration(c.HTTPTimeoutMs) * time.Millisecond,
		WSTimeout:     time.Duration(c.WSTimeoutMs) * time.Millisecond,
		StrictIPCheck: c.IPCheck != types.IPCheckOff,
		Fingerprint:   c.TLSFingerprint,
	})
	return newApp(cfg, prober, storage.NewFileSink(cfg.OutputConf.File))
}

func newApp(cfg *types.Config, prober manager.Prober, sink storage.Sink) *App {
	return &App{
		cfg:      cfg,
		runID:    uuid.NewString(),
		scrapers: buildScrapers(cfg.SourceConf),
		prober:   prober,
		sink:     sink,
	}
}

// buildScrapers: local 模式只使用一个本地文件, remote 模式每个 URL 一个抓取器。
func buildScrapers(s types.SourceConf) []scraper.Scraper {
	if s.Mode != types.SourceModeRemote {
		return []scraper.Scraper{scraper.NewLocalFileScraper(s.LocalFile)}
	}
	timeout := time.Duration(s.FetchTimeoutMs) * time.Millisecond
	html := s.Format == types.SourceFormatHTML
	scrapers := make([]scraper.Scraper, 0, len(s.URLs))
	for _, u := range s.URLs {
		scrapers = append(scrapers, scraper.NewRemoteListScraper(u, html, timeout))
	}
	return scrapers
}

// Run 执行 "获取 -> 规范化 -> 分批探测 -> 逐批写入" 的完整流程。
func (a *App) Run(ctx context.Context) (*model.Summary, error) {
	l := logger.WithComponent("App").With().Str("run_id", a.runID).Logger()
	l.Info().Str("mode", a.cfg.SourceConf.Mode).Int("sources", len(a.scrapers)).Msg("Initialization..")

	blocks, err := scraper.Collect(ctx, a.scrapers)
	if err != nil {
		if a.cfg.SourceConf.Mode != types.SourceModeRemote {
			return nil, fmt.Errorf("failed to read candidates: %w", err)
		}
		l.Warn().Err(err).Int("usable_sources", len(blocks)).Msg("Some sources failed and were skipped.")
	}

	candidates := normalize.Normalize(blocks)
	l.Info().Int("candidates", len(candidates)).Msg("Candidates normalized.")

	if err := a.sink.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize output: %w", err)
	}

	m := manager.NewManager(manager.Options{
		BatchSize:  a.cfg.CheckerConf.BatchSize,
		LaunchRate: a.cfg.CheckerConf.LaunchRate,
		RunID:      a.runID,
	}, a.prober, a.sink)

	summary, err := m.Run(ctx, candidates)
	if summary != nil {
		ev := l.Info().
			Int("verified", summary.Verified).
			Int("rejected", summary.RejectedTotal()).
			Int("skipped", summary.Skipped).
			Int("batches", summary.Batches).
			Dur("elapsed", summary.Elapsed)
		for reason, n := range summary.Rejected {
			ev = ev.Int("rejected_"+string(reason), n)
		}
		ev.Msgf("Found %d working proxies!", summary.Verified)
	}
	return summary, err
}
