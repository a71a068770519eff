package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"vagabond/config"
	"vagabond/protocol"
	"vagabond/server"
)

// vagabond 入口：启动对战 TCP 服务与管理/观战 HTTP 服务
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel, cfg.LogConsole); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	codec, _ := protocol.CodecByName(cfg.Codec) // Validate 已检查

	// 优雅退出（Ctrl+C）
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := &server.Metrics{}
	hub := server.NewHub()
	arena := server.NewArena(server.ArenaConfig{
		RoundTicks:   uint16(cfg.RoundTicks),
		TickDuration: cfg.TickDuration,
		ClockSlot:    cfg.ClockSlot,
	}, metrics, hub)
	go arena.Run(ctx)

	slots := server.NewSlotManager()
	srv := server.NewServer(arena, slots, metrics, server.SessionOptions{
		Codec:        codec,
		BufferSize:   cfg.BufferSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// 绑定失败是唯一的致命错误
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		server.Log.Fatalf("listen: %v", err)
	}

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           server.NewAdmin(arena, slots, metrics, hub).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			server.Log.Infof("admin listening on http://%s/ (metrics, admin, spectate)", cfg.AdminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				server.Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	serveErr := srv.Serve(ctx, ln)
	server.Log.Info("Shutting down...")

	if admin != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		serveErr = multierr.Append(serveErr, admin.Shutdown(shutdownCtx))
		done()
	}
	<-arena.Done()
	if serveErr != nil {
		server.Log.Warnw("shutdown", "err", serveErr)
	}
}
