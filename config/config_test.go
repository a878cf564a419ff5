package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != "localhost" || cfg.Port != "9090" {
		t.Errorf("addr = %s:%s, want localhost:9090", cfg.Addr, cfg.Port)
	}
	if cfg.RoomCapacity != 4 {
		t.Errorf("RoomCapacity = %d, want 4", cfg.RoomCapacity)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.ListenAddr() != "localhost:9090" {
		t.Errorf("ListenAddr = %s", cfg.ListenAddr())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("ROOM_CAPACITY", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr() != "0.0.0.0:8080" {
		t.Errorf("ListenAddr = %s, want 0.0.0.0:8080", cfg.ListenAddr())
	}
	if cfg.RoomCapacity != 8 {
		t.Errorf("RoomCapacity = %d, want 8", cfg.RoomCapacity)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
}

func TestLoad_InvalidCapacity(t *testing.T) {
	t.Setenv("ROOM_CAPACITY", "0")
	if _, err := Load(); err == nil {
		t.Error("Load should reject zero room capacity")
	}
}
