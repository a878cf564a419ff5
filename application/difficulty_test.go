package application

import (
	"testing"
	"time"
)

func TestMultiplierAt(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 1.0},
		{14*time.Second + 999*time.Millisecond, 1.0},
		{15 * time.Second, 1.5},
		{29 * time.Second, 1.5},
		{30 * time.Second, 2.0},
		{60 * time.Second, 3.0},
		{120 * time.Second, 5.0},
		{10 * time.Minute, 5.0}, // 上限で頭打ち
		{-time.Second, 1.0},
	}
	for _, tt := range tests {
		if got := MultiplierAt(tt.elapsed); got != tt.want {
			t.Errorf("MultiplierAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestLevelAt(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    DifficultyLevel
	}{
		{0, LevelEasy},
		{29 * time.Second, LevelEasy},
		{30 * time.Second, LevelNormal},
		{60 * time.Second, LevelHard},
		{90 * time.Second, LevelExpert},
		{120 * time.Second, LevelMaster},
		{1 * time.Hour, LevelMaster},
	}
	for _, tt := range tests {
		if got := LevelAt(tt.elapsed); got != tt.want {
			t.Errorf("LevelAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestSpeedAt(t *testing.T) {
	if got := SpeedAt(0); got != BaseSpeed*2 {
		t.Errorf("SpeedAt(0) = %v, want %v", got, BaseSpeed*2)
	}
	// 倍率3以降は速度上限に到達する
	if got := SpeedAt(60 * time.Second); got != MaxSpeed {
		t.Errorf("SpeedAt(60s) = %v, want %v", got, MaxSpeed)
	}
	if got := SpeedAt(10 * time.Minute); got != MaxSpeed {
		t.Errorf("SpeedAt(10m) = %v, want %v", got, MaxSpeed)
	}
}

func TestDifficulty_AdvanceAndReset(t *testing.T) {
	d := NewDifficulty()
	if d.Multiplier() != 1.0 || d.Level() != LevelEasy {
		t.Fatalf("initial state = (%v, %v), want (1.0, easy)", d.Multiplier(), d.Level())
	}

	d.Advance(45 * time.Second)
	if d.Multiplier() != 2.5 {
		t.Errorf("Multiplier after 45s = %v, want 2.5", d.Multiplier())
	}
	if d.Level() != LevelNormal {
		t.Errorf("Level after 45s = %v, want normal", d.Level())
	}

	// 負のデルタは無視される
	d.Advance(-time.Minute)
	if d.Elapsed() != 45*time.Second {
		t.Errorf("Elapsed = %v, want 45s", d.Elapsed())
	}

	d.Reset()
	if d.Multiplier() != 1.0 || d.Level() != LevelEasy || d.Elapsed() != 0 {
		t.Error("Reset should return to initial state")
	}
}
