package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"proxysieve/internal/shared/logger"
	"proxysieve/proxypool/model"
)

// Sink 接口定义了验证结果的持久化行为。
type Sink interface {
	Init() error
	Append(verified []model.ProxyCandidate) error
	Count() int
}

// FileSink 实现了 Sink 接口, 每行一个 "ip:port"。
// 每次 Append 都会 fsync, 进程中途崩溃不会丢失已经写入的批次。
type FileSink struct {
	filePath string
	count    int
	mu       sync.Mutex
}

// NewFileSink 创建一个新的 FileSink 实例。
func NewFileSink(filePath string) *FileSink {
	return &FileSink{
		filePath: filePath,
	}
}

// Init 创建或清空输出文件, 并重置计数。
func (fs *FileSink) Init() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if dir := filepath.Dir(fs.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(fs.filePath, nil, 0644); err != nil {
		return fmt.Errorf("failed to truncate output file: %w", err)
	}
	fs.count = 0

	l := logger.WithComponent("ProxyPool/Storage")
	l.Info().Str("path", fs.filePath).Msg("Output file initialized.")
	return nil
}

// Append 把一个批次的已验证代理追加到文件末尾, 返回前数据已落盘。
func (fs *FileSink) Append(verified []model.ProxyCandidate) error {
	if len(verified) == 0 {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var sb strings.Builder
	for _, c := range verified {
		sb.WriteString(c.ID())
		sb.WriteString("\n")
	}

	f, err := os.OpenFile(fs.filePath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to output file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fs.count += len(verified)
	l := logger.WithComponent("ProxyPool/Storage")
	l.Debug().Int("appended", len(verified)).Int("total", fs.count).Msg("Batch flushed.")
	return nil
}

// Count 返回自 Init 以来写入的代理总数。
func (fs *FileSink) Count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.count
}
