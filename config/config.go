// Package config は環境変数からのサーバー設定の読み込みを行います。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はサーバープロセス全体の設定です。
type Config struct {
	Addr string `env:"ADDR" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"9090"`

	// RoomCapacity はルーム1つあたりの最大プレイヤー数
	RoomCapacity int `env:"ROOM_CAPACITY" envDefault:"4"`

	// ShutdownTimeout はgraceful shutdownの猶予時間
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを構築します。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RoomCapacity < 1 {
		return nil, fmt.Errorf("ROOM_CAPACITY must be at least 1, got %d", cfg.RoomCapacity)
	}
	return cfg, nil
}

// ListenAddr はHTTPサーバーのリッスンアドレスを返します。
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Addr, c.Port)
}
