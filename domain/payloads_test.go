package domain

import "testing"

func TestScorePayloadRoundTrip(t *testing.T) {
	original := &ScorePayload{Score: 123456, Combo: 17}

	encoded := original.Encode()
	if len(encoded) != ScorePayloadSize {
		t.Fatalf("encoded size = %d, want %d", len(encoded), ScorePayloadSize)
	}

	decoded, err := ParseScorePayload(encoded)
	if err != nil {
		t.Fatalf("ParseScorePayload failed: %v", err)
	}
	if decoded.Score != original.Score || decoded.Combo != original.Combo {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestObstacleStateRoundTrip(t *testing.T) {
	original := &ObstacleState{
		ID:     42,
		Kind:   2,
		X:      800,
		Y:      310,
		Width:  30,
		Height: 40,
		Speed:  1.5,
	}

	encoded := original.Encode()
	if len(encoded) != ObstacleStateSize {
		t.Fatalf("encoded size = %d, want %d", len(encoded), ObstacleStateSize)
	}

	decoded, err := ParseObstacleState(encoded)
	if err != nil {
		t.Fatalf("ParseObstacleState failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestPlayerStateRoundTrip(t *testing.T) {
	sessionID := NewSessionID()
	original := &PlayerState{
		SessionID: sessionID.Bytes(),
		X:         80,
		Y:         310,
		VelocityY: -10,
		Flags:     PlayerFlagAlive | PlayerFlagJumping,
		Color:     3,
		Score:     9999,
		Combo:     12,
		Effects:   PlayerEffectSpeed | PlayerEffectShield,
	}

	encoded := original.Encode()
	if len(encoded) != PlayerStateSize {
		t.Fatalf("encoded size = %d, want %d", len(encoded), PlayerStateSize)
	}

	decoded, err := ParsePlayerState(encoded)
	if err != nil {
		t.Fatalf("ParsePlayerState failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestObstacleSyncPayloadRoundTrip(t *testing.T) {
	original := &ObstacleSyncPayload{
		Obstacles: []ObstacleState{
			{ID: 1, Kind: 1, X: 800, Y: 310, Width: 30, Height: 40, Speed: 1},
			{ID: 2, Kind: 3, X: 650, Y: 210, Width: 60, Height: 20, Speed: 1.5},
		},
		PowerUps: []PowerUpState{
			{ID: 1, Kind: 2, X: 700, Y: 230, Duration: 600},
		},
	}

	decoded, err := ParseObstacleSyncPayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseObstacleSyncPayload failed: %v", err)
	}
	if len(decoded.Obstacles) != 2 || len(decoded.PowerUps) != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", len(decoded.Obstacles), len(decoded.PowerUps))
	}
	for i := range original.Obstacles {
		if decoded.Obstacles[i] != original.Obstacles[i] {
			t.Errorf("obstacle %d = %+v, want %+v", i, decoded.Obstacles[i], original.Obstacles[i])
		}
	}
	if decoded.PowerUps[0] != original.PowerUps[0] {
		t.Errorf("powerup = %+v, want %+v", decoded.PowerUps[0], original.PowerUps[0])
	}
}

// 空のエンティティ列も往復できる
func TestObstacleSyncPayloadEmpty(t *testing.T) {
	original := &ObstacleSyncPayload{}
	decoded, err := ParseObstacleSyncPayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseObstacleSyncPayload failed: %v", err)
	}
	if len(decoded.Obstacles) != 0 || len(decoded.PowerUps) != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", len(decoded.Obstacles), len(decoded.PowerUps))
	}
}

func TestRoomStatePayloadRoundTrip(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	original := &RoomStatePayload{
		Phase:    PhasePlaying,
		GameTime: 45000,
		Seed:     1234567890123,
		Players: []PlayerState{
			{SessionID: a.Bytes(), X: 80, Y: 310, Flags: PlayerFlagAlive | PlayerFlagGrounded, Color: 0, Score: 100, Combo: 2},
			{SessionID: b.Bytes(), X: 130, Y: 250, VelocityY: -4, Flags: PlayerFlagAlive | PlayerFlagJumping, Color: 1, Score: 250, Combo: 0},
		},
		Obstacles: []ObstacleState{
			{ID: 9, Kind: 4, X: 500, Y: 350, Width: 50, Height: 10, Speed: 1},
		},
	}

	decoded, err := ParseRoomStatePayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseRoomStatePayload failed: %v", err)
	}
	if decoded.Phase != original.Phase || decoded.GameTime != original.GameTime || decoded.Seed != original.Seed {
		t.Errorf("header fields = (%v, %d, %d), want (%v, %d, %d)",
			decoded.Phase, decoded.GameTime, decoded.Seed, original.Phase, original.GameTime, original.Seed)
	}
	if len(decoded.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(decoded.Players))
	}
	for i := range original.Players {
		if decoded.Players[i] != original.Players[i] {
			t.Errorf("player %d = %+v, want %+v", i, decoded.Players[i], original.Players[i])
		}
	}
	if len(decoded.Obstacles) != 1 || decoded.Obstacles[0] != original.Obstacles[0] {
		t.Errorf("obstacles = %+v, want %+v", decoded.Obstacles, original.Obstacles)
	}
}

func TestGameOverPayloadRoundTrip(t *testing.T) {
	winner := NewSessionID()
	original := &GameOverPayload{
		Winner:           winner,
		FinalScore:       4200,
		FinalTime:        93000,
		ObstaclesCleared: 37,
		Reward:           78,
	}

	encoded := original.Encode()
	if len(encoded) != GameOverPayloadSize {
		t.Fatalf("encoded size = %d, want %d", len(encoded), GameOverPayloadSize)
	}

	decoded, err := ParseGameOverPayload(encoded)
	if err != nil {
		t.Fatalf("ParseGameOverPayload failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestDeathPayloadRoundTrip(t *testing.T) {
	victim := NewSessionID()
	original := &DeathPayload{Victim: victim}

	decoded, err := ParseDeathPayload(original.Encode())
	if err != nil {
		t.Fatalf("ParseDeathPayload failed: %v", err)
	}
	if decoded.Victim != victim {
		t.Errorf("Victim = %v, want %v", decoded.Victim, victim)
	}
}

func TestParsePayloads_TooShort(t *testing.T) {
	if _, err := ParseScorePayload([]byte{1}); err != ErrInvalidScorePayloadSize {
		t.Errorf("score err = %v", err)
	}
	if _, err := ParseJoinPayload(make([]byte, 3)); err != ErrInvalidJoinPayloadSize {
		t.Errorf("join err = %v", err)
	}
	if _, err := ParseGameOverPayload(make([]byte, GameOverPayloadSize-1)); err != ErrInvalidGameOverPayloadSize {
		t.Errorf("game over err = %v", err)
	}
	if _, err := ParseRoomStatePayload(nil); err == nil {
		t.Error("room state parse of nil should fail")
	}
}
