package socks5proxy

import (
	"context"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	socks5 "github.com/armon/go-socks5"
	"github.com/gorilla/websocket"
)

func startSocks(t *testing.T) (string, int) {
	t.Helper()
	srv, err := socks5.New(&socks5.Config{})
	if err != nil {
		t.Fatalf("socks5.New: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go srv.Serve(ln)

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestTunnel_HTTPClientRoutesThroughProxy(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "hello")
	}))
	defer target.Close()

	ip, port := startSocks(t)
	tun, err := New(ip, port, Options{DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer tun.Close()

	if tun.Addr() != net.JoinHostPort(ip, strconv.Itoa(port)) {
		t.Errorf("unexpected Addr() %s", tun.Addr())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	resp, err := tun.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("request through tunnel failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestTunnel_DialFailsWhenProxyDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	tun, err := New("127.0.0.1", addr.Port, Options{DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := tun.DialContext(ctx, "tcp", "127.0.0.1:80"); err == nil {
		t.Fatal("expected dial through closed proxy port to fail")
	}
}

func TestTunnel_WebSocketDialerUsesTunnel(t *testing.T) {
	tun, err := New("127.0.0.1", 1080, Options{Fingerprint: fingerprintRandomized})
	if err != nil {
		t.Fatal(err)
	}
	d := tun.WebSocketDialer(time.Second)
	if d.NetDialContext == nil || d.NetDialTLSContext == nil {
		t.Error("expected both plain and TLS dial hooks with randomized fingerprint")
	}
	if d.HandshakeTimeout != time.Second {
		t.Errorf("unexpected handshake timeout %v", d.HandshakeTimeout)
	}
}

func TestTunnel_RandomizedFingerprintOverTLS(t *testing.T) {
	upgrader := websocket.Upgrader{}
	target := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			http.Error(w, "tls required", http.StatusBadRequest)
			return
		}
		if r.URL.Path != "/ws" {
			io.WriteString(w, "secure")
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(mt, msg)
	}))
	defer target.Close()

	pool := x509.NewCertPool()
	pool.AddCert(target.Certificate())

	ip, port := startSocks(t)
	tun, err := New(ip, port, Options{DialTimeout: time.Second, Fingerprint: fingerprintRandomized, RootCAs: pool})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer tun.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// HTTPS 请求走 uTLS 拨号
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	resp, err := tun.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("https request through tunnel failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "secure" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}

	// wss 握手同样走 uTLS 拨号
	wsURL := "wss://" + strings.TrimPrefix(target.URL, "https://") + "/ws"
	conn, _, err := tun.WebSocketDialer(2*time.Second).DialContext(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("wss dial through tunnel failed: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "ping" {
		t.Fatalf("unexpected echo %q: %v", msg, err)
	}

	if stats := tun.Stats(); stats.Uplink == 0 || stats.Downlink == 0 {
		t.Errorf("expected TLS traffic to be counted by the tunnel, got %+v", stats)
	}
}

func TestTunnel_RandomizedFingerprintRejectsUnknownCA(t *testing.T) {
	target := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	defer target.Close()

	ip, port := startSocks(t)
	tun, err := New(ip, port, Options{DialTimeout: time.Second, Fingerprint: fingerprintRandomized, RootCAs: x509.NewCertPool()})
	if err != nil {
		t.Fatal(err)
	}
	defer tun.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if resp, err := tun.HTTPClient().Do(req); err == nil {
		resp.Body.Close()
		t.Fatal("expected certificate verification to fail")
	}
}
