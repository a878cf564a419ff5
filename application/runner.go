package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bramble/domain"
	"bramble/reward"
)

// DefaultRoomCapacity はルームの標準定員です。
const DefaultRoomCapacity = 4

// RunnerApplication はルーム1つ分のアプリケーション層です。
// 受信フレームの検証とCourseへの適用、固定ステップの進行、配信フレームの
// 構築を担います。すべてのメソッドはルームgoroutineから直列に呼ばれます。
type RunnerApplication struct {
	roomID   domain.RoomID
	course   *Course
	clock    *Clock
	lastTick time.Time

	seq     uint16 // 配信フレームの通番
	pending []domain.Outbound

	// テストから差し替えるための時刻・シード供給源
	now      func() time.Time
	seedFunc func() uint64
}

var _ domain.Application = (*RunnerApplication)(nil)

func NewRunnerApplication(roomID domain.RoomID, capacity int) *RunnerApplication {
	if capacity < 1 {
		capacity = DefaultRoomCapacity
	}
	now := time.Now
	return &RunnerApplication{
		roomID:   roomID,
		course:   NewCourse(roomID, capacity, uint64(now().UnixNano())),
		clock:    NewClock(DefaultStep),
		now:      now,
		seedFunc: func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// NewApplicationFactory はルームごとにRunnerApplicationを生成するファクトリを返します。
func NewApplicationFactory(capacity int) domain.NewApplicationFunc {
	return func(roomID domain.RoomID) domain.Application {
		return NewRunnerApplication(roomID, capacity)
	}
}

// Course はテスト用に内部状態への読み取りアクセスを提供します。
func (a *RunnerApplication) Course() *Course {
	return a.course
}

// HandleJoin はプレイヤーを参加させ、全員へ最新のスナップショットを配信します。
func (a *RunnerApplication) HandleJoin(ctx context.Context, sessionID domain.SessionID) error {
	if err := a.course.Join(sessionID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "player joined", "roomID", a.roomID.String(), "sessionID", sessionID.String(), "players", a.course.NumPlayers())
	a.queueSnapshot()
	return nil
}

// HandleLeave はプレイヤーを取り除きます。playing中に決着がついた場合は
// そのままラウンドを終了して結果を配信します。
func (a *RunnerApplication) HandleLeave(ctx context.Context, sessionID domain.SessionID) {
	over := a.course.Leave(sessionID)
	slog.InfoContext(ctx, "player left", "roomID", a.roomID.String(), "sessionID", sessionID.String(), "players", a.course.NumPlayers())
	if a.course.NumPlayers() > 0 {
		// 離脱者のIDをヘッダに載せたleave通知を残りのプレイヤーへ流す
		a.pending = append(a.pending, domain.Broadcast(a.encode(sessionID, domain.DataTypeControl, uint8(domain.ControlSubTypeLeave), nil)))
	}
	if over != nil {
		a.queueGameOver(ctx, over)
	}
	if a.course.NumPlayers() > 0 {
		a.queueSnapshot()
	}
}

// HandleMessage は受信フレームを検証してCourseへ適用します。
// 再配送された古い通番のフレームは黙って捨てます。
func (a *RunnerApplication) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) error {
	header, err := domain.ParseHeader(data)
	if err != nil {
		return err
	}
	payloadHeader, err := domain.ParsePayloadHeader(data[domain.HeaderSize:])
	if err != nil {
		return err
	}
	payload := data[domain.HeaderSize+domain.PayloadHeaderSize:]

	if a.isStale(sessionID, header.Seq) {
		slog.DebugContext(ctx, "stale frame dropped", "sessionID", sessionID.String(), "seq", header.Seq)
		return nil
	}

	switch payloadHeader.DataType {
	case domain.DataTypeControl:
		return a.handleControl(ctx, sessionID, domain.ControlSubType(payloadHeader.SubType))
	case domain.DataTypeInput:
		return a.handleInput(ctx, sessionID, domain.InputSubType(payloadHeader.SubType), payload)
	case domain.DataTypeState:
		return a.handleState(ctx, sessionID, domain.StateSubType(payloadHeader.SubType), payload)
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
		return nil
	}
}

func (a *RunnerApplication) handleControl(ctx context.Context, sessionID domain.SessionID, subType domain.ControlSubType) error {
	switch subType {
	case domain.ControlSubTypeStart:
		seed := a.seedFunc()
		if err := a.course.Start(seed); err != nil {
			if errors.Is(err, ErrWrongPhase) || errors.Is(err, ErrEmptyRoom) {
				slog.WarnContext(ctx, "start rejected", "roomID", a.roomID.String(), "error", err)
				return nil
			}
			return err
		}
		a.clock.Reset()
		a.lastTick = a.now()
		slog.InfoContext(ctx, "round started", "roomID", a.roomID.String(), "seed", seed, "players", a.course.NumPlayers())
		a.queueSnapshot()
	case domain.ControlSubTypeReset:
		if err := a.course.ResetRound(); err != nil {
			slog.WarnContext(ctx, "reset rejected", "roomID", a.roomID.String(), "error", err)
			return nil
		}
		slog.InfoContext(ctx, "round reset", "roomID", a.roomID.String())
		a.queueSnapshot()
	default:
		slog.WarnContext(ctx, "unexpected control subtype", "subType", subType)
	}
	return nil
}

func (a *RunnerApplication) handleInput(ctx context.Context, sessionID domain.SessionID, subType domain.InputSubType, payload []byte) error {
	switch subType {
	case domain.InputSubTypeJump:
		a.course.Jump(sessionID)
	case domain.InputSubTypePosition:
		pos, err := domain.ParsePosition2D(payload)
		if err != nil {
			return err
		}
		a.course.UpdatePosition(sessionID, pos.X, pos.Y)
	default:
		slog.WarnContext(ctx, "unexpected input subtype", "subType", subType)
	}
	return nil
}

func (a *RunnerApplication) handleState(ctx context.Context, sessionID domain.SessionID, subType domain.StateSubType, payload []byte) error {
	if subType != domain.StateSubTypeScore {
		slog.WarnContext(ctx, "unexpected state subtype", "subType", subType)
		return nil
	}
	score, err := domain.ParseScorePayload(payload)
	if err != nil {
		return err
	}
	if err := a.course.ReportScore(sessionID, int(score.Score)); err != nil {
		// 不正・乖離したスコアは採用せず、サーバー値を維持する
		slog.WarnContext(ctx, "score report rejected", "sessionID", sessionID.String(), "reported", score.Score, "error", err)
		return nil
	}
	return nil
}

// Tick は実経過時間ぶんの固定ステップを消化し、配信フレームを返します。
func (a *RunnerApplication) Tick(ctx context.Context) []domain.Outbound {
	out := a.pending
	a.pending = nil

	if a.course.Phase() != domain.PhasePlaying {
		a.lastTick = time.Time{}
		return out
	}

	now := a.now()
	if a.lastTick.IsZero() {
		a.lastTick = now
	}
	steps := a.clock.Advance(now.Sub(a.lastTick))
	a.lastTick = now

	entitiesChanged := false
	scoreChanged := make(map[domain.SessionID]struct{})
	for i := 0; i < steps; i++ {
		events := a.course.Step(a.clock.Step())
		if events.EntitiesChanged {
			entitiesChanged = true
		}
		for _, id := range events.ScoreChanged {
			scoreChanged[id] = struct{}{}
		}
		for _, victim := range events.Deaths {
			payload := domain.DeathPayload{Victim: victim}
			out = append(out, domain.Broadcast(a.encode(victim, domain.DataTypeState, uint8(domain.StateSubTypeDeath), payload.Encode())))
		}
		if events.GameOver != nil {
			a.queueGameOver(ctx, events.GameOver)
			break
		}
	}

	out = append(out, a.scoreFramesFor(scoreChanged)...)
	if entitiesChanged {
		out = append(out, domain.Broadcast(a.encode(domain.SessionID{}, domain.DataTypeState, uint8(domain.StateSubTypeObstacleSync), a.course.EntitySync().Encode())))
	}
	if a.course.Phase() == domain.PhasePlaying && steps > 0 && a.course.tick%SnapshotEveryTicks == 0 {
		out = append(out, a.snapshotFrame())
	}

	out = append(out, a.pending...)
	a.pending = nil
	return out
}

// scoreFramesFor は参加順で安定したスコア配信フレームを作ります。
func (a *RunnerApplication) scoreFramesFor(changed map[domain.SessionID]struct{}) []domain.Outbound {
	frames := make([]domain.Outbound, 0, len(changed))
	for _, id := range a.course.order {
		if _, ok := changed[id]; !ok {
			continue
		}
		p, ok := a.course.Player(id)
		if !ok {
			continue
		}
		payload := domain.ScorePayload{Score: uint32(p.Score.Score()), Combo: uint16(p.Score.Combo())}
		frames = append(frames, domain.Broadcast(a.encode(id, domain.DataTypeState, uint8(domain.StateSubTypeScore), payload.Encode())))
	}
	return frames
}

// queueGameOver は報酬を算定し、ラウンド終了フレームを配信キューへ積みます。
func (a *RunnerApplication) queueGameOver(ctx context.Context, over *GameOver) {
	var winnerReward uint64
	for _, result := range a.course.Results() {
		settled := reward.Settle(result.Score, result.Winner, result.FinalTime, result.ObstaclesCleared)
		if result.Winner {
			winnerReward = settled.Amount
		}
		slog.InfoContext(ctx, "round settled",
			"roomID", a.roomID.String(),
			"sessionID", result.ID.String(),
			"score", result.Score,
			"winner", result.Winner,
			"reward", settled.Amount,
		)
	}

	payload := domain.GameOverPayload{
		Winner:           over.Winner,
		FinalScore:       uint32(over.FinalScore),
		FinalTime:        uint32(over.FinalTime / time.Millisecond),
		ObstaclesCleared: uint16(over.ObstaclesCleared),
		Reward:           winnerReward,
	}
	a.pending = append(a.pending, domain.Broadcast(a.encode(over.Winner, domain.DataTypeState, uint8(domain.StateSubTypeGameOver), payload.Encode())))
	a.pending = append(a.pending, a.snapshotFrame())
}

func (a *RunnerApplication) queueSnapshot() {
	a.pending = append(a.pending, a.snapshotFrame())
}

func (a *RunnerApplication) snapshotFrame() domain.Outbound {
	return domain.Broadcast(a.encode(domain.SessionID{}, domain.DataTypeState, uint8(domain.StateSubTypeRoomState), a.course.Snapshot().Encode()))
}

func (a *RunnerApplication) encode(sessionID domain.SessionID, dataType domain.DataType, subType uint8, payload []byte) []byte {
	a.seq++
	return domain.EncodeFrame(sessionID, a.seq, dataType, subType, payload)
}

// isStale は同一プレイヤーからの古い通番のフレームかを判定します。
// uint16の通番はラップするため、半周以内の前進だけを新規とみなします。
func (a *RunnerApplication) isStale(sessionID domain.SessionID, seq uint16) bool {
	p, ok := a.course.Player(sessionID)
	if !ok {
		return false
	}
	if p.SeqSeen {
		delta := seq - p.LastSeq
		if delta == 0 || delta > 0x8000 {
			return true
		}
	}
	p.LastSeq = seq
	p.SeqSeen = true
	return false
}
