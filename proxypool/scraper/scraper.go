package scraper

import "context"

// Scraper 接口定义了从一个代理源获取原始文本的行为。
type Scraper interface {
	// Scrape 返回源的完整文本内容。
	// 实现者只负责获取, 不做解析和去重, 这些由 normalize 包完成。
	Scrape(ctx context.Context) (string, error)

	// Name 返回源的名称，用于日志记录。
	Name() string
}
