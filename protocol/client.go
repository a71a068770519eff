package protocol

import (
	"context"
	"fmt"
	"net"
	"time"

	"vagabond/game"
)

// Client 协议的最小客户端实现：握手取槽位，然后一问一答交换完整比赛快照
type Client struct {
	conn    net.Conn
	codec   Codec
	slot    int
	buf     []byte
	timeout time.Duration
}

// Dial 连接服务端并读取握手中的槽位号
func Dial(ctx context.Context, addr string, codec Codec) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, codec: codec, buf: make([]byte, BufferSize), timeout: 5 * time.Second}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	n, err := conn.Read(c.buf)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	slot, err := DecodeSlot(c.buf[:n])
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.slot = slot
	return c, nil
}

// Slot 服务端分配的槽位
func (c *Client) Slot() int { return c.slot }

// Exchange 发送本地模拟的完整比赛，返回服务端的权威比赛
func (c *Client) Exchange(m game.ServerGameMatch) (game.ServerGameMatch, error) {
	var out game.ServerGameMatch
	b, err := EncodeFrame(c.codec, m, BufferSize)
	if err != nil {
		return out, err
	}
	if err := c.WriteRaw(b); err != nil {
		return out, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return out, fmt.Errorf("read state: %w", err)
	}
	return DecodeMatch(c.codec, c.buf[:n])
}

// WriteRaw 直接写字节（测试畸形输入时使用）
func (c *Client) WriteRaw(b []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_, err := c.conn.Write(b)
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}
