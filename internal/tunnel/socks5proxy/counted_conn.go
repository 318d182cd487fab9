package socks5proxy

import (
	"net"
	"sync"
)

// TrafficStats 用于报告一个隧道上的流量和仍未关闭的连接数。
type TrafficStats struct {
	Uplink    uint64
	Downlink  uint64
	OpenConns int64
}

// countedConn 是一个 net.Conn 的包装器，用于原子地统计上行和下行流量,
// 并在关闭时减少隧道的打开连接计数。
type countedConn struct {
	net.Conn
	t         *Tunnel
	closeOnce sync.Once
}

func (t *Tunnel) track(conn net.Conn) net.Conn {
	t.open.Add(1)
	return &countedConn{Conn: conn, t: t}
}

// Read 从底层连接读取数据，并增加下行流量计数。
func (c *countedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.t.downlink.Add(uint64(n))
	}
	return n, err
}

// Write 将数据写入底层连接，并增加上行流量计数。
func (c *countedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.t.uplink.Add(uint64(n))
	}
	return n, err
}

func (c *countedConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(func() { c.t.open.Add(-1) })
	return err
}

// Stats 返回隧道当前的流量统计。
func (t *Tunnel) Stats() TrafficStats {
	return TrafficStats{
		Uplink:    t.uplink.Load(),
		Downlink:  t.downlink.Load(),
		OpenConns: t.open.Load(),
	}
}
