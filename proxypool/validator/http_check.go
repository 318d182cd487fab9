package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"proxysieve/internal/tunnel/socks5proxy"
	"proxysieve/proxypool/model"
)

// 出口 IP 响应体最多读取的字节数, 足够容纳任何 IP 文本。
const maxIdentityBody = 256

// checkHTTP 通过隧道请求 "what is my IP" 接口, 成功时 Detail 为出口 IP。
// 超时通过请求的 context 取消正在进行的请求。
func (v *Validator) checkHTTP(ctx context.Context, tun *socks5proxy.Tunnel) model.StageOutcome {
	ctx, cancel := context.WithTimeout(ctx, v.opts.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.opts.HTTPTarget, nil)
	if err != nil {
		return model.StageOutcome{Detail: err.Error()}
	}

	resp, err := tun.HTTPClient().Do(req)
	if err != nil {
		return failure(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.StageOutcome{Detail: fmt.Sprintf("received non-successful status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIdentityBody))
	if err != nil {
		return failure(ctx, err)
	}
	return model.StageOutcome{OK: true, Detail: strings.TrimSpace(string(body))}
}

// failure 把阶段错误转换为结果。
func failure(ctx context.Context, err error) model.StageOutcome {
	return model.StageOutcome{
		Detail:   err.Error(),
		TimedOut: timedOut(ctx, err),
	}
}

// timedOut 判断失败是否由本阶段的计时器引起。连接的读写 deadline 与 context
// 的 deadline 相同, 两者谁先报告都算超时; 上层取消 (SIGINT) 不算。
func timedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.Canceled) {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !time.Now().Before(deadline)
}
