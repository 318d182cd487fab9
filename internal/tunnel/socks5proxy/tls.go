package socks5proxy

import (
	"context"
	"fmt"
	"net"

	utls "github.com/refraction-networking/utls"
)

const fingerprintRandomized = "randomized"

func (t *Tunnel) fingerprinted() bool {
	return t.opts.Fingerprint == fingerprintRandomized
}

// dialUTLS 通过隧道建立 TCP 连接后用 uTLS 完成握手。
// 使用不带 ALPN 的随机指纹, 保证双方只协商 HTTP/1.1, 这是 net/http
// 自定义 TLS 拨号和 WebSocket 升级都要求的。
func (t *Tunnel) dialUTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	raw, err := t.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	conn := utls.UClient(raw, &utls.Config{ServerName: host, RootCAs: t.opts.RootCAs}, utls.HelloRandomizedNoALPN)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("utls handshake with %s failed: %w", addr, err)
	}
	return conn, nil
}
