package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"vagabond/protocol"
)

var (
	ErrProtocol  = errors.New("protocol error")
	ErrTransport = errors.New("transport error")
)

// SessionState 会话状态机：Handshake → Active → Closed
type SessionState int

const (
	StateHandshake SessionState = iota
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateActive:
		return "active"
	default:
		return "closed"
	}
}

// SessionOptions 单个连接的协议参数
type SessionOptions struct {
	Codec        protocol.Codec
	BufferSize   int
	ReadTimeout  time.Duration // 0 表示不设读超时
	WriteTimeout time.Duration
}

// Session 一个已接入的 socket，负责本槽位的 读 → 结算 → 写 循环
type Session struct {
	info  SessionInfo
	conn  net.Conn
	arena *Arena
	opts  SessionOptions
	state SessionState
	log   *zap.SugaredLogger
}

func NewSession(info SessionInfo, conn net.Conn, arena *Arena, opts SessionOptions) *Session {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = protocol.BufferSize
	}
	return &Session{
		info:  info,
		conn:  conn,
		arena: arena,
		opts:  opts,
		state: StateHandshake,
		log:   Log.With("session", info.ID.String(), "slot", info.Slot, "remote", info.Remote),
	}
}

func (s *Session) State() SessionState { return s.state }

// Serve 运行会话直到读写或解码失败。返回值包装 ErrProtocol 或 ErrTransport；
// 错误只结束本会话，不影响监听与比赛状态。
func (s *Session) Serve(ctx context.Context) error {
	defer s.close()

	if err := s.write(protocol.EncodeSlot(s.info.Slot)); err != nil {
		return fmt.Errorf("%w: handshake: %w", ErrTransport, err)
	}
	s.state = StateActive
	s.log.Infow("session active")

	buf := make([]byte, s.opts.BufferSize)
	for {
		n, err := s.read(buf)
		if err != nil {
			return fmt.Errorf("%w: read: %w", ErrTransport, err)
		}

		incoming, err := protocol.DecodeMatch(s.opts.Codec, buf[:n])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProtocol, err)
		}

		snap, err := s.arena.Resolve(ctx, s.info.Slot, incoming.ServerEntities[s.info.Slot])
		if err != nil {
			return err
		}

		out, err := protocol.EncodeFrame(s.opts.Codec, snap, s.opts.BufferSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		if err := s.write(out); err != nil {
			return fmt.Errorf("%w: write: %w", ErrTransport, err)
		}
	}
}

func (s *Session) read(buf []byte) (int, error) {
	if s.opts.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
	return s.conn.Read(buf)
}

func (s *Session) write(b []byte) error {
	if s.opts.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	_, err := s.conn.Write(b)
	return err
}

// close 双向关闭 socket
func (s *Session) close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debugw("close socket", "err", err)
	}
}
