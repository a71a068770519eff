package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vagabond/protocol"
)

const envPrefix = "VAGABOND_"

// Config 服务端运行参数
type Config struct {
	Addr         string
	AdminAddr    string
	Codec        string
	BufferSize   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TickDuration time.Duration
	RoundTicks   int
	ClockSlot    int // -1：任何会话的结算都推进时钟；0/1：只有该槽位推进
	LogFile      string
	LogLevel     string
	LogConsole   bool
}

func Default() Config {
	return Config{
		Addr:         "127.0.0.1:1337",
		AdminAddr:    "127.0.0.1:8080",
		Codec:        "json",
		BufferSize:   protocol.BufferSize,
		WriteTimeout: 5 * time.Second,
		TickDuration: time.Second,
		RoundTicks:   60,
		ClockSlot:    -1,
		LogFile:      "vagabond.log",
		LogLevel:     "debug",
		LogConsole:   true,
	}
}

// Load 读取配置：默认值 < .env < VAGABOND_* 环境变量 < 命令行参数 < 第一个位置参数（监听地址）
func Load(args []string) (Config, error) {
	// .env 不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("vagabond", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "game listen address, e.g. 127.0.0.1:1337")
	fs.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "admin/metrics/spectator HTTP address, empty to disable")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "wire codec: json | msgpack")
	fs.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "max frame size in bytes")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "per-read deadline, 0 disables")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "per-write deadline, 0 disables")
	fs.DurationVar(&cfg.TickDuration, "tick", cfg.TickDuration, "wall time of one clock tick")
	fs.IntVar(&cfg.RoundTicks, "round", cfg.RoundTicks, "round length in ticks")
	fs.IntVar(&cfg.ClockSlot, "clock-slot", cfg.ClockSlot, "slot whose passes advance the clock, -1 for any")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug | info | warn | error")
	fs.BoolVar(&cfg.LogConsole, "log-console", cfg.LogConsole, "also log to stderr")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		cfg.Addr = fs.Arg(0)
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(envPrefix + key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(envPrefix + key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
		return nil
	}

	str("ADDR", &c.Addr)
	str("ADMIN_ADDR", &c.AdminAddr)
	str("CODEC", &c.Codec)
	str("LOG_FILE", &c.LogFile)
	str("LOG_LEVEL", &c.LogLevel)
	if v := getenv(envPrefix + "LOG_CONSOLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sLOG_CONSOLE: %w", envPrefix, err)
		}
		c.LogConsole = b
	}
	for key, dst := range map[string]*int{"BUFFER_SIZE": &c.BufferSize, "ROUND_TICKS": &c.RoundTicks, "CLOCK_SLOT": &c.ClockSlot} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*time.Duration{"READ_TIMEOUT": &c.ReadTimeout, "WRITE_TIMEOUT": &c.WriteTimeout, "TICK": &c.TickDuration} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate 检查取值范围
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("empty listen address")
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		return err
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.RoundTicks < 1 || c.RoundTicks > 65535 {
		return fmt.Errorf("round ticks must be in 1..65535, got %d", c.RoundTicks)
	}
	if c.TickDuration <= 0 {
		return fmt.Errorf("tick duration must be positive, got %s", c.TickDuration)
	}
	if c.ClockSlot < -1 || c.ClockSlot > 1 {
		return fmt.Errorf("clock slot must be -1, 0 or 1, got %d", c.ClockSlot)
	}
	return nil
}
