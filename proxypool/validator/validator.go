package validator

import (
	"context"
	"time"

	"proxysieve/internal/shared/logger"
	"proxysieve/internal/tunnel/socks5proxy"
	"proxysieve/proxypool/model"
)

// Options 是两阶段探测的参数, 由 [checker] 配置段构造。
type Options struct {
	HTTPTarget  string
	WSTarget    string
	WSPayload   string
	HTTPTimeout time.Duration
	WSTimeout   time.Duration
	// StrictIPCheck 为 true 时出口 IP 与候选 IP 不一致即拒绝, 不再进行 WebSocket 阶段。
	StrictIPCheck bool
	Fingerprint   string
}

// TunnelFactory 为一个候选代理创建 SOCKS5 隧道。
type TunnelFactory func(c model.ProxyCandidate) (*socks5proxy.Tunnel, error)

type Validator struct {
	opts      Options
	newTunnel TunnelFactory
}

func NewValidator(opts Options) *Validator {
	if opts.WSPayload == "" {
		opts.WSPayload = "ping"
	}
	v := &Validator{opts: opts}
	v.newTunnel = func(c model.ProxyCandidate) (*socks5proxy.Tunnel, error) {
		return socks5proxy.New(c.IP, c.Port, socks5proxy.Options{
			DialTimeout: maxDuration(opts.HTTPTimeout, opts.WSTimeout),
			Fingerprint: opts.Fingerprint,
		})
	}
	return v
}

// Probe 对一个候选代理依次执行 HTTP 身份检查和 WebSocket 回显检查。
// 所有错误都会转换为 Rejected 结论, 不会向上传播。
func (v *Validator) Probe(ctx context.Context, c model.ProxyCandidate) model.Verdict {
	l := logger.WithComponent("ProxyPool/Validator")
	start := time.Now()

	verdict := v.probe(ctx, c)
	verdict.Latency = time.Since(start)

	if verdict.Verified {
		l.Info().Str("proxy", c.ID()).Dur("latency", verdict.Latency).Msg("✅ Proxy is valid.")
	} else {
		l.Info().Str("proxy", c.ID()).Str("reason", string(verdict.Reason)).Str("detail", verdict.Detail).Msg("❌ Proxy rejected.")
	}
	return verdict
}

func (v *Validator) probe(ctx context.Context, c model.ProxyCandidate) model.Verdict {
	l := logger.WithComponent("ProxyPool/Validator")
	tun, err := v.newTunnel(c)
	if err != nil {
		return model.Rejected(c, model.ReasonHTTPError, err.Error(), 0)
	}
	defer func() {
		tun.Close()
		stats := tun.Stats()
		l.Debug().
			Str("proxy", c.ID()).
			Uint64("uplink", stats.Uplink).
			Uint64("downlink", stats.Downlink).
			Msg("Tunnel traffic.")
	}()

	identity := v.checkHTTP(ctx, tun)
	if !identity.OK {
		if identity.TimedOut {
			return model.Rejected(c, model.ReasonHTTPTimeout, identity.Detail, 0)
		}
		return model.Rejected(c, model.ReasonHTTPError, identity.Detail, 0)
	}

	if identity.Detail != c.IP {
		if v.opts.StrictIPCheck {
			return model.Rejected(c, model.ReasonIPMismatch, "egress ip "+identity.Detail, 0)
		}
		l.Warn().
			Str("proxy", c.ID()).Str("egress_ip", identity.Detail).
			Msg("Egress IP differs from proxy IP, continuing (ip_check=off).")
	}

	echo := v.checkWebSocket(ctx, tun)
	if !echo.OK {
		if echo.TimedOut {
			return model.Rejected(c, model.ReasonWSTimeout, echo.Detail, 0)
		}
		return model.Rejected(c, model.ReasonWSError, echo.Detail, 0)
	}
	return model.Verified(c, 0)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
