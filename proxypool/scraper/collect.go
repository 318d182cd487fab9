package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"proxysieve/internal/shared/logger"
)

// Collect 并发调用所有 Scraper, 按配置顺序返回成功的文本块。
// 单个源失败只会被记录并跳过, 所有失败汇总在返回的 error 中;
// 调用方应把它当作警告而不是致命错误。
func Collect(ctx context.Context, scrapers []Scraper) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	blocks := make([]string, len(scrapers))
	errs := make([]error, len(scrapers))

	var wg sync.WaitGroup
	for i, s := range scrapers {
		wg.Add(1)
		go func(i int, sc Scraper) {
			defer wg.Done()
			text, err := sc.Scrape(ctx)
			if err != nil {
				l.Warn().Err(err).Str("source", sc.Name()).Msg("Source fetch failed, skipping.")
				errs[i] = fmt.Errorf("%s: %w", sc.Name(), err)
				return
			}
			l.Info().Str("source", sc.Name()).Int("bytes", len(text)).Msg("Source fetched.")
			blocks[i] = text
		}(i, s)
	}
	wg.Wait()

	var result *multierror.Error
	out := make([]string, 0, len(scrapers))
	for i := range scrapers {
		if errs[i] != nil {
			result = multierror.Append(result, errs[i])
			continue
		}
		out = append(out, blocks[i])
	}
	return out, result.ErrorOrNil()
}
