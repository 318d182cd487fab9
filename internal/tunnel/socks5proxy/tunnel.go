package socks5proxy

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Options 控制隧道的底层拨号行为。
type Options struct {
	// DialTimeout 限制到代理本身的 TCP 连接时间; 整体超时由调用方的 context 控制。
	DialTimeout time.Duration
	// Fingerprint 为 "randomized" 时使用 uTLS 随机化 ClientHello。
	Fingerprint string
	// RootCAs 为 nil 时使用系统根证书。
	RootCAs *x509.CertPool
}

// Tunnel 是绑定到单个候选代理的 SOCKS5 传输。
// HTTP 和 WebSocket 两个阶段共用同一个 Tunnel。
type Tunnel struct {
	proxyAddr string
	dialer    proxy.ContextDialer
	opts      Options
	transport *http.Transport

	uplink   atomic.Uint64
	downlink atomic.Uint64
	open     atomic.Int64
}

// New 为 ip:port 创建一个 SOCKS5 隧道。不发起任何网络连接。
func New(ip string, port int, opts Options) (*Tunnel, error) {
	proxyAddr := net.JoinHostPort(ip, strconv.Itoa(port))
	d, err := proxy.SOCKS5("tcp", proxyAddr, nil, &net.Dialer{Timeout: opts.DialTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", proxyAddr, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", proxyAddr)
	}

	t := &Tunnel{
		proxyAddr: proxyAddr,
		dialer:    cd,
		opts:      opts,
	}
	t.transport = &http.Transport{
		DialContext:       t.DialContext,
		DisableKeepAlives: true,
	}
	if t.fingerprinted() {
		t.transport.DialTLSContext = t.dialUTLS
	}
	return t, nil
}

// Addr 返回代理地址 "ip:port"。
func (t *Tunnel) Addr() string {
	return t.proxyAddr
}

// DialContext 通过代理连接 addr。返回的连接计入 Stats。
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := t.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return t.track(conn), nil
}

// HTTPClient 返回经由本隧道发送请求的客户端, 超时由请求的 context 控制。
func (t *Tunnel) HTTPClient() *http.Client {
	return &http.Client{Transport: t.transport}
}

// WebSocketDialer 返回经由本隧道建立 WebSocket 连接的拨号器。
func (t *Tunnel) WebSocketDialer(handshakeTimeout time.Duration) *websocket.Dialer {
	d := &websocket.Dialer{
		NetDialContext:   t.DialContext,
		HandshakeTimeout: handshakeTimeout,
	}
	if t.fingerprinted() {
		d.NetDialTLSContext = t.dialUTLS
	}
	return d
}

// Close 释放 HTTP transport 持有的连接。
func (t *Tunnel) Close() {
	t.transport.CloseIdleConnections()
}
