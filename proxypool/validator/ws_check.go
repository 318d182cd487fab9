package validator

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"proxysieve/internal/tunnel/socks5proxy"
	"proxysieve/proxypool/model"
)

const closeGracePeriod = 500 * time.Millisecond

// checkWebSocket 通过隧道连接回显服务, 发送负载并等待任意一条回复。
//
// 计时器覆盖拨号、发送和接收三个阶段。下方的 select 是唯一的结算点:
// 先到者决定结果, 晚到的回复或错误写入带缓冲的 channel 后被丢弃。
func (v *Validator) checkWebSocket(ctx context.Context, tun *socks5proxy.Tunnel) model.StageOutcome {
	ctx, cancel := context.WithTimeout(ctx, v.opts.WSTimeout)
	defer cancel()

	conn, _, err := tun.WebSocketDialer(v.opts.WSTimeout).DialContext(ctx, v.opts.WSTarget, nil)
	if err != nil {
		return failure(ctx, err)
	}

	replies := make(chan error, 1)
	go func() {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(v.opts.WSPayload)); err != nil {
			replies <- err
			return
		}
		_, _, err := conn.ReadMessage()
		replies <- err
	}()

	select {
	case err := <-replies:
		if err != nil {
			conn.Close()
			return failure(ctx, err)
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		conn.Close()
		return model.StageOutcome{OK: true}
	case <-ctx.Done():
		// 强制关闭底层连接, 读协程会因此返回, 连接不会泄漏到批次之外。
		conn.Close()
		return failure(ctx, ctx.Err())
	}
}
