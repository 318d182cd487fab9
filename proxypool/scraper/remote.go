package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"proxysieve/internal/shared/logger"
)

const (
	maxBodyBytes = 16 << 20
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// RemoteListScraper 实现了 Scraper 接口, 从一个远程 URL 获取候选列表。
// html 为 true 时, 返回页面的可见文本而不是原始 HTML。
type RemoteListScraper struct {
	url    string
	html   bool
	client *http.Client
}

// NewRemoteListScraper 创建一个新的实例
func NewRemoteListScraper(rawURL string, html bool, timeout time.Duration) Scraper {
	return &RemoteListScraper{
		url:  rawURL,
		html: html,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *RemoteListScraper) Name() string {
	if u, err := url.Parse(s.url); err == nil && u.Host != "" {
		return u.Host + u.Path
	}
	return s.url
}

func (s *RemoteListScraper) Scrape(ctx context.Context) (string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Msg("Starting fetch...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", s.Name(), err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-200 status code (%d) from %s", resp.StatusCode, s.Name())
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if !s.html {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read body from %s: %w", s.Name(), err)
		}
		return string(data), nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML for %s: %w", s.Name(), err)
	}
	return pageText(doc), nil
}

// pageText 把表格行和块级元素拆成独立的行, 这样 "ip" 与 "port" 分列的表格
// 会被拼成 "ip:port"。
func pageText(doc *goquery.Document) string {
	var sb strings.Builder
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		sb.WriteString(ip + ":" + port + "\n")
	})
	doc.Find("script, style").Remove()
	doc.Find("br, p, div, li, pre, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	sb.WriteString(doc.Find("body").Text())
	return sb.String()
}
