package domain

import (
	"testing"
	"time"
)

func TestSession_CloseOnce(t *testing.T) {
	s := NewSession()

	if s.IsClosed() {
		t.Fatal("new session should not be closed")
	}
	if !s.Close() {
		t.Error("first Close should return true")
	}
	if s.Close() {
		t.Error("second Close should return false")
	}
	if !s.IsClosed() {
		t.Error("session should be closed")
	}
}

func TestSession_IDsUnique(t *testing.T) {
	a, b := NewSession(), NewSession()
	if a.ID() == b.ID() {
		t.Error("sessions should have unique IDs")
	}
}

func TestSession_IdleDetection(t *testing.T) {
	s := NewSession()

	if idle, _ := s.IsIdle(time.Minute); idle {
		t.Error("fresh session should not be idle")
	}

	time.Sleep(5 * time.Millisecond)
	idle, reason := s.IsIdle(time.Millisecond)
	if !idle {
		t.Fatal("session should be idle after the timeout")
	}
	if !reason.Has(IdleRead) || !reason.Has(IdleWrite) || !reason.Has(IdlePong) {
		t.Errorf("reason = %v, want all activity idle", reason)
	}
}

func TestSession_TouchClearsIdle(t *testing.T) {
	s := NewSession()
	time.Sleep(5 * time.Millisecond)

	s.TouchRead()
	idle, reason := s.IsIdle(3 * time.Millisecond)
	if !idle {
		t.Fatal("write/pong should still be idle")
	}
	if reason.Has(IdleRead) {
		t.Error("read should not be idle after TouchRead")
	}

	s.TouchWrite()
	s.TouchPong()
	if idle, _ := s.IsIdle(3 * time.Millisecond); idle {
		t.Error("session should not be idle after touching everything")
	}
}

// タイムアウト0はアイドル検出無効
func TestSession_IdleDisabled(t *testing.T) {
	s := NewSession()
	idle, reason := s.IsIdle(0)
	if idle {
		t.Error("idle detection should be disabled for zero timeout")
	}
	if reason != IdleDisabled {
		t.Errorf("reason = %v, want IdleDisabled", reason)
	}
}
