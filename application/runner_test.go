package application

import (
	"context"
	"testing"
	"time"

	"bramble/domain"
	"bramble/reward"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newTestRunner(t *testing.T) (*RunnerApplication, *fakeClock) {
	t.Helper()
	fc := &fakeClock{now: time.Unix(1000, 0)}
	app := NewRunnerApplication(domain.NewRoomID(), 4)
	app.now = func() time.Time { return fc.now }
	app.seedFunc = func() uint64 { return 42 }
	return app, fc
}

func inboundFrame(sessionID domain.SessionID, seq uint16, dataType domain.DataType, subType uint8, payload []byte) []byte {
	return domain.EncodeFrame(sessionID, seq, dataType, subType, payload)
}

// 配信フレームから指定サブタイプのstateペイロードを探す
func findState(t *testing.T, out []domain.Outbound, subType domain.StateSubType) ([]byte, bool) {
	t.Helper()
	for _, o := range out {
		payloadHeader, err := domain.ParsePayloadHeader(o.Data[domain.HeaderSize:])
		if err != nil {
			t.Fatalf("parse payload header: %v", err)
		}
		if payloadHeader.DataType == domain.DataTypeState && domain.StateSubType(payloadHeader.SubType) == subType {
			return o.Data[domain.HeaderSize+domain.PayloadHeaderSize:], true
		}
	}
	return nil, false
}

func TestRunner_JoinBroadcastsSnapshot(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()

	if err := app.HandleJoin(ctx, id); err != nil {
		t.Fatalf("join: %v", err)
	}

	out := app.Tick(ctx)
	payload, ok := findState(t, out, domain.StateSubTypeRoomState)
	if !ok {
		t.Fatal("expected a room state broadcast after join")
	}
	snapshot, err := domain.ParseRoomStatePayload(payload)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if snapshot.Phase != domain.PhaseWaiting {
		t.Errorf("Phase = %v, want waiting", snapshot.Phase)
	}
	if len(snapshot.Players) != 1 {
		t.Errorf("players = %d, want 1", len(snapshot.Players))
	}
}

func TestRunner_StartControlMessage(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()
	app.HandleJoin(ctx, id)

	frame := inboundFrame(id, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil)
	if err := app.HandleMessage(ctx, id, frame); err != nil {
		t.Fatalf("handle start: %v", err)
	}
	if app.Course().Phase() != domain.PhasePlaying {
		t.Errorf("Phase = %v, want playing", app.Course().Phase())
	}
	if app.Course().Seed() != 42 {
		t.Errorf("Seed = %d, want 42", app.Course().Seed())
	}

	// 空ルームやplaying中のstartはエラーにせず黙って捨てる
	frame = inboundFrame(id, 2, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil)
	if err := app.HandleMessage(ctx, id, frame); err != nil {
		t.Errorf("second start should be dropped, got %v", err)
	}
}

// 古い通番のフレームは適用されない
func TestRunner_StaleSeqDropped(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()
	app.HandleJoin(ctx, id)

	start := inboundFrame(id, 10, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil)
	if err := app.HandleMessage(ctx, id, start); err != nil {
		t.Fatalf("start: %v", err)
	}

	pos := domain.Position2D{X: 300, Y: 200}
	stale := inboundFrame(id, 10, domain.DataTypeInput, uint8(domain.InputSubTypePosition), pos.Encode())
	if err := app.HandleMessage(ctx, id, stale); err != nil {
		t.Fatalf("stale frame: %v", err)
	}
	p, _ := app.Course().Player(id)
	if p.X == 300 {
		t.Error("stale position update should be dropped")
	}

	fresh := inboundFrame(id, 11, domain.DataTypeInput, uint8(domain.InputSubTypePosition), pos.Encode())
	if err := app.HandleMessage(ctx, id, fresh); err != nil {
		t.Fatalf("fresh frame: %v", err)
	}
	if p.X != 300 {
		t.Errorf("X = %v, want 300", p.X)
	}
}

func TestRunner_TickAdvancesFixedSteps(t *testing.T) {
	app, fc := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()
	app.HandleJoin(ctx, id)

	start := inboundFrame(id, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil)
	app.HandleMessage(ctx, id, start)
	app.Tick(ctx) // 開始スナップショットを捨てる

	fc.advance(3 * DefaultStep)
	app.Tick(ctx)
	if got := app.Course().GameTime(); got != 3*DefaultStep {
		t.Errorf("GameTime = %v, want %v", got, 3*DefaultStep)
	}

	// 実時間が進んでいなければステップも進まない
	app.Tick(ctx)
	if got := app.Course().GameTime(); got != 3*DefaultStep {
		t.Errorf("GameTime = %v, want %v", got, 3*DefaultStep)
	}
}

func TestRunner_JumpInput(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()
	app.HandleJoin(ctx, id)
	app.HandleMessage(ctx, id, inboundFrame(id, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil))

	app.HandleMessage(ctx, id, inboundFrame(id, 2, domain.DataTypeInput, uint8(domain.InputSubTypeJump), nil))
	p, _ := app.Course().Player(id)
	if p.Grounded {
		t.Error("player should be airborne after jump input")
	}
}

func TestRunner_ScoreReportRejectedKeepsServerValue(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	id := domain.NewSessionID()
	app.HandleJoin(ctx, id)
	app.HandleMessage(ctx, id, inboundFrame(id, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil))

	report := domain.ScorePayload{Score: 99999}
	frame := inboundFrame(id, 2, domain.DataTypeState, uint8(domain.StateSubTypeScore), report.Encode())
	if err := app.HandleMessage(ctx, id, frame); err != nil {
		t.Fatalf("score report should be dropped, not fail: %v", err)
	}
	p, _ := app.Course().Player(id)
	if p.Score.Score() != 0 {
		t.Errorf("Score = %d, want 0", p.Score.Score())
	}
}

func TestRunner_GameOverCarriesReward(t *testing.T) {
	app, fc := newTestRunner(t)
	ctx := context.Background()
	a, b := domain.NewSessionID(), domain.NewSessionID()
	app.HandleJoin(ctx, a)
	app.HandleJoin(ctx, b)
	app.HandleMessage(ctx, a, inboundFrame(a, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil))
	app.Tick(ctx)

	pa, _ := app.Course().Player(a)
	pa.Alive = false

	fc.advance(DefaultStep)
	out := app.Tick(ctx)

	payload, ok := findState(t, out, domain.StateSubTypeGameOver)
	if !ok {
		t.Fatal("expected a game over broadcast")
	}
	over, err := domain.ParseGameOverPayload(payload)
	if err != nil {
		t.Fatalf("parse game over: %v", err)
	}
	if over.Winner != b {
		t.Errorf("Winner = %v, want %v", over.Winner, b)
	}
	want := reward.Estimate(int(over.FinalScore), true)
	if over.Reward != want {
		t.Errorf("Reward = %d, want %d", over.Reward, want)
	}
}

func TestRunner_LeaveSettlesRound(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	a, b := domain.NewSessionID(), domain.NewSessionID()
	app.HandleJoin(ctx, a)
	app.HandleJoin(ctx, b)
	app.HandleMessage(ctx, a, inboundFrame(a, 1, domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil))
	app.Tick(ctx)

	app.HandleLeave(ctx, a)
	out := app.Tick(ctx)

	if _, ok := findState(t, out, domain.StateSubTypeGameOver); !ok {
		t.Fatal("expected a game over broadcast after the deciding leave")
	}
	if app.Course().Phase() != domain.PhaseEnded {
		t.Errorf("Phase = %v, want ended", app.Course().Phase())
	}
}

func TestRunner_LeaveBroadcastsNotification(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	a, b := domain.NewSessionID(), domain.NewSessionID()
	app.HandleJoin(ctx, a)
	app.HandleJoin(ctx, b)
	app.Tick(ctx)

	app.HandleLeave(ctx, a)
	out := app.Tick(ctx)

	// 残りのプレイヤーには離脱者のIDを載せたleave通知が届く
	found := false
	for _, o := range out {
		header, err := domain.ParseHeader(o.Data)
		if err != nil {
			t.Fatalf("parse header: %v", err)
		}
		ph, err := domain.ParsePayloadHeader(o.Data[domain.HeaderSize:])
		if err != nil {
			t.Fatalf("parse payload header: %v", err)
		}
		if ph.DataType == domain.DataTypeControl && domain.ControlSubType(ph.SubType) == domain.ControlSubTypeLeave {
			if header.SessionID != a.Bytes() {
				t.Errorf("leave notification sessionID = %x, want %x", header.SessionID, a.Bytes())
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected a leave notification broadcast")
	}
}

func TestRunner_JoinFullRoom(t *testing.T) {
	app, _ := newTestRunner(t)
	ctx := context.Background()
	for range 4 {
		if err := app.HandleJoin(ctx, domain.NewSessionID()); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := app.HandleJoin(ctx, domain.NewSessionID()); err != domain.ErrRoomFull {
		t.Errorf("err = %v, want ErrRoomFull", err)
	}
}
