package scraper

import (
	"context"
	"fmt"
	"os"
)

// LocalFileScraper 原样读取本地候选列表文件。
type LocalFileScraper struct {
	path string
}

func NewLocalFileScraper(path string) Scraper {
	return &LocalFileScraper{path: path}
}

func (s *LocalFileScraper) Name() string {
	return s.path
}

func (s *LocalFileScraper) Scrape(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read candidate file %s: %w", s.path, err)
	}
	return string(data), nil
}
