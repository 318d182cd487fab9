package manager

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"proxysieve/internal/shared/logger"
	"proxysieve/proxypool/model"
	"proxysieve/proxypool/storage"
)

const defaultBatchSize = 100

// Prober 对单个候选代理给出最终结论。实现者不得返回错误或阻塞超过自身超时。
type Prober interface {
	Probe(ctx context.Context, c model.ProxyCandidate) model.Verdict
}

// Options 是调度器的参数。
type Options struct {
	BatchSize int
	// LaunchRate 限制批次内每秒启动的探测数, 0 表示同时启动。
	LaunchRate float64
	RunID      string
}

// Manager 是批次调度器: 按批次并发探测, 批次之间严格串行,
// 每个批次结束后立即把通过的代理写入 Sink。
type Manager struct {
	opts   Options
	prober Prober
	sink   storage.Sink
}

// NewManager 创建并初始化调度器。
func NewManager(opts Options, prober Prober, sink storage.Sink) *Manager {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Manager{
		opts:   opts,
		prober: prober,
		sink:   sink,
	}
}

// Run 处理全部候选代理。Sink 写入失败是致命错误, 立即返回。
// ctx 取消时, 当前批次结束并写入后停止, 返回部分汇总和 ctx.Err()。
func (m *Manager) Run(ctx context.Context, candidates []model.ProxyCandidate) (*model.Summary, error) {
	l := logger.WithComponent("ProxyPool/Manager")
	start := time.Now()
	summary := model.NewSummary(m.opts.RunID, len(candidates))
	defer func() { summary.Elapsed = time.Since(start) }()

	l.Info().
		Int("candidates", len(candidates)).
		Int("batch_size", m.opts.BatchSize).
		Msg("Checking proxies..")

	for offset := 0; offset < len(candidates); offset += m.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			summary.Skipped += len(candidates) - offset
			l.Warn().Err(err).Int("remaining", len(candidates)-offset).Msg("Run cancelled, stopping before next batch.")
			return summary, err
		}

		end := offset + m.opts.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[offset:end]
		summary.Batches++

		verdicts, launchErr := m.runBatch(ctx, batch)
		summary.Skipped += len(batch) - len(verdicts)

		verified := make([]model.ProxyCandidate, 0, len(batch))
		for _, v := range verdicts {
			summary.Record(v)
			if v.Verified {
				verified = append(verified, v.Candidate)
			}
		}

		if err := m.sink.Append(verified); err != nil {
			return summary, fmt.Errorf("failed to persist batch %d: %w", summary.Batches, err)
		}

		l.Info().
			Int("batch", summary.Batches).
			Int("size", len(batch)).
			Int("verified", len(verified)).
			Int("total_verified", summary.Verified).
			Msg("Batch finished.")

		if launchErr != nil {
			summary.Skipped += len(candidates) - end
			l.Warn().Err(launchErr).Int("skipped", len(batch)-len(verdicts)).Msg("Run cancelled while launching probes.")
			return summary, launchErr
		}
	}

	return summary, nil
}

// runBatch 为批次中的每个候选启动一个探测并等待全部结束。
// 结果按输入顺序返回; 任何一个探测 panic 都只影响它自己。
// 限速等待被 ctx 打断时不再启动后续探测, 只返回已启动部分的结论和 ctx 错误。
func (m *Manager) runBatch(ctx context.Context, batch []model.ProxyCandidate) ([]model.Verdict, error) {
	verdicts := make([]model.Verdict, len(batch))
	launched := len(batch)
	var launchErr error

	var limiter *rate.Limiter
	if m.opts.LaunchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.opts.LaunchRate), 1)
	}

	// 探测函数永远返回 nil, errgroup 只用作 "全部结束" 的汇合点。
	var g errgroup.Group
	for i, c := range batch {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				launched, launchErr = i, launchError(ctx, err)
				break
			}
		}
		g.Go(func() error {
			verdicts[i] = m.safeProbe(ctx, c)
			return nil
		})
	}
	g.Wait()

	return verdicts[:launched], launchErr
}

// launchError 把限速器的错误归一为 ctx 错误。rate.Limiter 在等待会超过
// deadline 时提前返回, 此时 ctx 本身还没有结束。
func launchError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (m *Manager) safeProbe(ctx context.Context, c model.ProxyCandidate) (v model.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			l := logger.WithComponent("ProxyPool/Manager")
			l.Error().
				Str("proxy", c.ID()).
				Interface("panic", r).
				Msg("Probe panicked, marking candidate as rejected.")
			v = model.Rejected(c, model.ReasonProbePanic, fmt.Sprint(r), 0)
		}
	}()
	v = m.prober.Probe(ctx, c)
	v.Candidate = c
	return v
}
