package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/multierr"

	"vagabond/protocol"
)

// Server TCP 监听与接入：最多两个会话，第三个连接直接关闭
type Server struct {
	arena   *Arena
	slots   *SlotManager
	metrics *Metrics
	opts    SessionOptions

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(arena *Arena, slots *SlotManager, metrics *Metrics, opts SessionOptions) *Server {
	if metrics == nil {
		metrics = &Metrics{}
	}
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	return &Server{
		arena:   arena,
		slots:   slots,
		metrics: metrics,
		opts:    opts,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe 绑定失败直接返回（启动失败），否则阻塞直到 ctx 结束
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上接受连接。单个 Accept 错误只记录不退出；
// ctx 结束时关闭监听与所有会话 socket，等待会话协程退出。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	Log.Infow("vagabond listening", "addr", ln.Addr().String(), "codec", s.opts.Codec.Name())
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return s.shutdown()
			}
			Log.Warnw("accept", "err", err)
			continue
		}
		s.admit(ctx, conn)
	}
}

func (s *Server) admit(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	info, err := s.slots.Acquire(remote)
	if err != nil {
		// 满员：不发送任何数据，直接关闭
		s.metrics.IncRejected()
		Log.Infow("closing connection, server is handling max amount of clients", "remote", remote)
		_ = conn.Close()
		return
	}

	s.track(conn, true)
	s.metrics.IncAdmitted()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.track(conn, false)
		defer s.metrics.DecActive()
		defer s.slots.Release(info)

		sess := NewSession(info, conn, s.arena, s.opts)
		err := sess.Serve(ctx)
		switch {
		case errors.Is(err, ErrProtocol):
			s.metrics.IncProtocolErrors()
			sess.log.Warnw("session closed on protocol error", "err", err)
		case errors.Is(err, ErrTransport):
			s.metrics.IncTransportErrors()
			sess.log.Infow("session closed", "err", err)
		default:
			sess.log.Infow("session closed", "err", err)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) shutdown() error {
	var err error
	s.mu.Lock()
	for c := range s.conns {
		if cerr := c.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
	Log.Info("listener stopped")
	return err
}
