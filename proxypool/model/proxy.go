package model

import (
	"strconv"
	"time"
)

// ProxyCandidate 是一个待验证的 SOCKS5 代理端点。
// 由 Normalizer 从原始文本中提取，创建后不再修改。
type ProxyCandidate struct {
	IP   string `json:"ip"`   // 点分十进制 IPv4, 保持原始文本
	Port int    `json:"port"` // 1-65535

	portText string // 匹配到的端口原文, 例如 "01080"
}

// NewProxyCandidate 保留端口的原始文本, 使 ID 与输入完全一致。
func NewProxyCandidate(ip, portText string, port int) ProxyCandidate {
	return ProxyCandidate{IP: ip, Port: port, portText: portText}
}

// ID 返回 "ip:port"，既是去重键也是输出文件中的一行。
// 由 Normalizer 创建的候选使用原文, 所以 "1.2.3.4:01080" 与 "1.2.3.4:1080" 是两个候选。
func (c ProxyCandidate) ID() string {
	if c.portText != "" {
		return c.IP + ":" + c.portText
	}
	return c.IP + ":" + strconv.Itoa(c.Port)
}

func (c ProxyCandidate) String() string {
	return c.ID()
}

// Reason 是一次探测被拒绝的原因。
type Reason string

const (
	ReasonHTTPTimeout Reason = "http-timeout"
	ReasonHTTPError   Reason = "http-error"
	ReasonIPMismatch  Reason = "ip-mismatch"
	ReasonWSTimeout   Reason = "ws-timeout"
	ReasonWSError     Reason = "ws-error"

	// ReasonProbePanic marks a probe goroutine that panicked and was recovered
	// by the scheduler.
	ReasonProbePanic Reason = "probe-panic"
)

// StageOutcome 是单个探测阶段 (HTTP 或 WebSocket) 的结果。
// Detail 在 HTTP 阶段成功时是出口 IP，失败时是错误信息。
type StageOutcome struct {
	OK       bool
	Detail   string
	TimedOut bool
}

// Verdict 是对一个候选代理完整探测后的最终结论。
type Verdict struct {
	Candidate ProxyCandidate
	Verified  bool
	Reason    Reason // Verified 为 false 时有效
	Detail    string
	Latency   time.Duration
}

// Verified 构造一个通过的结论。
func Verified(c ProxyCandidate, latency time.Duration) Verdict {
	return Verdict{Candidate: c, Verified: true, Latency: latency}
}

// Rejected 构造一个被拒绝的结论。
func Rejected(c ProxyCandidate, reason Reason, detail string, latency time.Duration) Verdict {
	return Verdict{Candidate: c, Reason: reason, Detail: detail, Latency: latency}
}
