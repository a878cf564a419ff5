package domain

import (
	"errors"
	"math"
)

// サイズ定数
const (
	JoinPayloadSize     = 16
	ErrorPayloadSize    = 1
	ScorePayloadSize    = 6
	ObstacleStateSize   = 23 // 2 + 1 + 5 * float32
	PowerUpStateSize    = 13 // 2 + 1 + 2 * float32 + 2
	PlayerStateSize     = 37 // 16 + 3 * float32 + 1 + 1 + 4 + 2 + 1
	DeathPayloadSize    = 16
	GameOverPayloadSize = 34 // 16 + 4 + 4 + 2 + 8
)

// GamePhase はルームのゲームフェーズを表します。
type GamePhase uint8

const (
	PhaseWaiting GamePhase = 1
	PhasePlaying GamePhase = 2
	PhaseEnded   GamePhase = 3
)

func (p GamePhase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ErrorCode はエラー通知メッセージのコードです。
type ErrorCode uint8

const (
	ErrorCodeRoomFull       ErrorCode = 1
	ErrorCodeGameInProgress ErrorCode = 2
	ErrorCodeUnknownRoom    ErrorCode = 3
	ErrorCodeBadRequest     ErrorCode = 4
)

var (
	ErrInvalidJoinPayloadSize     = errors.New("invalid join payload size")
	ErrInvalidErrorPayloadSize    = errors.New("invalid error payload size")
	ErrInvalidScorePayloadSize    = errors.New("invalid score payload size")
	ErrInvalidObstacleStateSize   = errors.New("invalid obstacle state size")
	ErrInvalidPowerUpStateSize    = errors.New("invalid powerup state size")
	ErrInvalidPlayerStateSize     = errors.New("invalid player state size")
	ErrInvalidObstacleSyncSize    = errors.New("invalid obstacle sync size")
	ErrInvalidRoomStateSize       = errors.New("invalid room state size")
	ErrInvalidDeathPayloadSize    = errors.New("invalid death payload size")
	ErrInvalidGameOverPayloadSize = errors.New("invalid game over payload size")
)

// JoinPayload はルーム参加メッセージのペイロード (16バイト)
//
//	roomID  [16]byte  - ルームID (UUID)。ゼロ値ならデフォルトルームに割り当てられる。
type JoinPayload struct {
	RoomID RoomID
}

// ParseJoinPayload はバイト列からJoinPayloadをパースする
func ParseJoinPayload(data []byte) (*JoinPayload, error) {
	if len(data) < JoinPayloadSize {
		return nil, ErrInvalidJoinPayloadSize
	}

	var roomID RoomID
	copy(roomID[:], data[:JoinPayloadSize])

	return &JoinPayload{
		RoomID: roomID,
	}, nil
}

// Encode はJoinPayloadをバイト列にエンコードする
func (j *JoinPayload) Encode() []byte {
	return j.RoomID[:]
}

// ErrorPayload はエラー通知メッセージのペイロード (1バイト)
type ErrorPayload struct {
	Code ErrorCode
}

// ParseErrorPayload はバイト列からErrorPayloadをパースする
func ParseErrorPayload(data []byte) (*ErrorPayload, error) {
	if len(data) < ErrorPayloadSize {
		return nil, ErrInvalidErrorPayloadSize
	}
	return &ErrorPayload{Code: ErrorCode(data[0])}, nil
}

// Encode はErrorPayloadをバイト列にエンコードする
func (e *ErrorPayload) Encode() []byte {
	return []byte{byte(e.Code)}
}

// ScorePayload はスコア更新メッセージのペイロード (6バイト)
//
//	score  u32 (4)
//	combo  u16 (2)
type ScorePayload struct {
	Score uint32
	Combo uint16
}

// ParseScorePayload はバイト列からScorePayloadをパースする
func ParseScorePayload(data []byte) (*ScorePayload, error) {
	if len(data) < ScorePayloadSize {
		return nil, ErrInvalidScorePayloadSize
	}
	return &ScorePayload{
		Score: byteOrder.Uint32(data[0:4]),
		Combo: byteOrder.Uint16(data[4:6]),
	}, nil
}

// Encode はScorePayloadをバイト列にエンコードする
func (s *ScorePayload) Encode() []byte {
	data := make([]byte, ScorePayloadSize)
	byteOrder.PutUint32(data[0:4], s.Score)
	byteOrder.PutUint16(data[4:6], s.Combo)
	return data
}

// ObstacleState は1障害物のワイヤ表現 (23バイト)
//
//	id      u16     (2)
//	kind    u8      (1)
//	x, y    float32 (8)
//	width   float32 (4)
//	height  float32 (4)
//	speed   float32 (4) - 進行速度の係数
type ObstacleState struct {
	ID     uint16
	Kind   uint8
	X, Y   float32
	Width  float32
	Height float32
	Speed  float32
}

// ParseObstacleState はバイト列からObstacleStateをパースする
func ParseObstacleState(data []byte) (*ObstacleState, error) {
	if len(data) < ObstacleStateSize {
		return nil, ErrInvalidObstacleStateSize
	}
	return &ObstacleState{
		ID:     byteOrder.Uint16(data[0:2]),
		Kind:   data[2],
		X:      math.Float32frombits(byteOrder.Uint32(data[3:7])),
		Y:      math.Float32frombits(byteOrder.Uint32(data[7:11])),
		Width:  math.Float32frombits(byteOrder.Uint32(data[11:15])),
		Height: math.Float32frombits(byteOrder.Uint32(data[15:19])),
		Speed:  math.Float32frombits(byteOrder.Uint32(data[19:23])),
	}, nil
}

// Encode はObstacleStateをバイト列にエンコードする
func (o *ObstacleState) Encode() []byte {
	data := make([]byte, ObstacleStateSize)
	byteOrder.PutUint16(data[0:2], o.ID)
	data[2] = o.Kind
	byteOrder.PutUint32(data[3:7], math.Float32bits(o.X))
	byteOrder.PutUint32(data[7:11], math.Float32bits(o.Y))
	byteOrder.PutUint32(data[11:15], math.Float32bits(o.Width))
	byteOrder.PutUint32(data[15:19], math.Float32bits(o.Height))
	byteOrder.PutUint32(data[19:23], math.Float32bits(o.Speed))
	return data
}

// PowerUpState は1パワーアップのワイヤ表現 (13バイト)
//
//	id        u16     (2)
//	kind      u8      (1)
//	x, y      float32 (8)
//	duration  u16     (2) - 効果持続tick数
type PowerUpState struct {
	ID       uint16
	Kind     uint8
	X, Y     float32
	Duration uint16
}

// ParsePowerUpState はバイト列からPowerUpStateをパースする
func ParsePowerUpState(data []byte) (*PowerUpState, error) {
	if len(data) < PowerUpStateSize {
		return nil, ErrInvalidPowerUpStateSize
	}
	return &PowerUpState{
		ID:       byteOrder.Uint16(data[0:2]),
		Kind:     data[2],
		X:        math.Float32frombits(byteOrder.Uint32(data[3:7])),
		Y:        math.Float32frombits(byteOrder.Uint32(data[7:11])),
		Duration: byteOrder.Uint16(data[11:13]),
	}, nil
}

// Encode はPowerUpStateをバイト列にエンコードする
func (p *PowerUpState) Encode() []byte {
	data := make([]byte, PowerUpStateSize)
	byteOrder.PutUint16(data[0:2], p.ID)
	data[2] = p.Kind
	byteOrder.PutUint32(data[3:7], math.Float32bits(p.X))
	byteOrder.PutUint32(data[7:11], math.Float32bits(p.Y))
	byteOrder.PutUint16(data[11:13], p.Duration)
	return data
}

// PlayerState フラグビット
const (
	PlayerFlagAlive    uint8 = 1 << 0
	PlayerFlagJumping  uint8 = 1 << 1
	PlayerFlagGrounded uint8 = 1 << 2
)

// PlayerState エフェクトビット。プレイヤーが保持中のパワーアップ効果。
// 位置はクライアント権威のため、speedのような移動系効果は
// クライアントがこのビットを見て自分の移動に適用する。
const (
	PlayerEffectSpeed         uint8 = 1 << 0
	PlayerEffectShield        uint8 = 1 << 1
	PlayerEffectInvincibility uint8 = 1 << 2
	PlayerEffectDoubleScore   uint8 = 1 << 3
)

// PlayerState は1プレイヤーのワイヤ表現 (36バイト)
//
//	sessionID  [16]byte (16)
//	x, y       float32  (8)
//	velocityY  float32  (4)
//	flags      u8       (1) - bit0: alive, bit1: jumping, bit2: grounded
//	color      u8       (1)
//	score      u32      (4)
//	combo      u16      (2)
//	effects    u8       (1) - bit0: speed, bit1: shield, bit2: invincibility, bit3: double-score
type PlayerState struct {
	SessionID [16]byte
	X, Y      float32
	VelocityY float32
	Flags     uint8
	Color     uint8
	Score     uint32
	Combo     uint16
	Effects   uint8
}

// ParsePlayerState はバイト列からPlayerStateをパースする
func ParsePlayerState(data []byte) (*PlayerState, error) {
	if len(data) < PlayerStateSize {
		return nil, ErrInvalidPlayerStateSize
	}
	var sessionID [16]byte
	copy(sessionID[:], data[0:16])
	return &PlayerState{
		SessionID: sessionID,
		X:         math.Float32frombits(byteOrder.Uint32(data[16:20])),
		Y:         math.Float32frombits(byteOrder.Uint32(data[20:24])),
		VelocityY: math.Float32frombits(byteOrder.Uint32(data[24:28])),
		Flags:     data[28],
		Color:     data[29],
		Score:     byteOrder.Uint32(data[30:34]),
		Combo:     byteOrder.Uint16(data[34:36]),
		Effects:   data[36],
	}, nil
}

// Encode はPlayerStateをバイト列にエンコードする
func (p *PlayerState) Encode() []byte {
	data := make([]byte, PlayerStateSize)
	copy(data[0:16], p.SessionID[:])
	byteOrder.PutUint32(data[16:20], math.Float32bits(p.X))
	byteOrder.PutUint32(data[20:24], math.Float32bits(p.Y))
	byteOrder.PutUint32(data[24:28], math.Float32bits(p.VelocityY))
	data[28] = p.Flags
	data[29] = p.Color
	byteOrder.PutUint32(data[30:34], p.Score)
	byteOrder.PutUint16(data[34:36], p.Combo)
	data[36] = p.Effects
	return data
}

// ObstacleSyncPayload は権威側が配信するエンティティ列です。
// 障害物の配置は各クライアントが独立に生成するのではなく、
// 必ずこの配信を正として採用します。
//
//	obstacleCount  u16 (2) + obstacles
//	powerUpCount   u8  (1) + powerUps
type ObstacleSyncPayload struct {
	Obstacles []ObstacleState
	PowerUps  []PowerUpState
}

// ParseObstacleSyncPayload はバイト列からObstacleSyncPayloadをパースする
func ParseObstacleSyncPayload(data []byte) (*ObstacleSyncPayload, error) {
	if len(data) < 3 {
		return nil, ErrInvalidObstacleSyncSize
	}
	obstacleCount := int(byteOrder.Uint16(data[0:2]))
	offset := 2

	obstacles := make([]ObstacleState, 0, obstacleCount)
	for i := 0; i < obstacleCount; i++ {
		if offset+ObstacleStateSize > len(data) {
			return nil, ErrInvalidObstacleSyncSize
		}
		o, err := ParseObstacleState(data[offset:])
		if err != nil {
			return nil, err
		}
		obstacles = append(obstacles, *o)
		offset += ObstacleStateSize
	}

	if offset+1 > len(data) {
		return nil, ErrInvalidObstacleSyncSize
	}
	powerUpCount := int(data[offset])
	offset++

	powerUps := make([]PowerUpState, 0, powerUpCount)
	for i := 0; i < powerUpCount; i++ {
		if offset+PowerUpStateSize > len(data) {
			return nil, ErrInvalidObstacleSyncSize
		}
		p, err := ParsePowerUpState(data[offset:])
		if err != nil {
			return nil, err
		}
		powerUps = append(powerUps, *p)
		offset += PowerUpStateSize
	}

	return &ObstacleSyncPayload{
		Obstacles: obstacles,
		PowerUps:  powerUps,
	}, nil
}

// Encode はObstacleSyncPayloadをバイト列にエンコードする
func (o *ObstacleSyncPayload) Encode() []byte {
	size := 2 + len(o.Obstacles)*ObstacleStateSize + 1 + len(o.PowerUps)*PowerUpStateSize
	data := make([]byte, 0, size)

	var count [2]byte
	byteOrder.PutUint16(count[:], uint16(len(o.Obstacles)))
	data = append(data, count[:]...)
	for i := range o.Obstacles {
		data = append(data, o.Obstacles[i].Encode()...)
	}

	data = append(data, uint8(len(o.PowerUps)))
	for i := range o.PowerUps {
		data = append(data, o.PowerUps[i].Encode()...)
	}
	return data
}

// RoomStatePayload はルーム全体のスナップショットです。
// クライアントはこれを受信したら部分更新を破棄し、状態を丸ごと置き換えます。
//
//	phase       u8  (1)
//	gameTime    u32 (4) - ms
//	seed        u64 (8) - 障害物生成列のシード
//	playerCount u8  (1) + players
//	obstacleCount u16 (2) + obstacles
//	powerUpCount  u8  (1) + powerUps
type RoomStatePayload struct {
	Phase     GamePhase
	GameTime  uint32
	Seed      uint64
	Players   []PlayerState
	Obstacles []ObstacleState
	PowerUps  []PowerUpState
}

// ParseRoomStatePayload はバイト列からRoomStatePayloadをパースする
func ParseRoomStatePayload(data []byte) (*RoomStatePayload, error) {
	if len(data) < 14 {
		return nil, ErrInvalidRoomStateSize
	}
	payload := &RoomStatePayload{
		Phase:    GamePhase(data[0]),
		GameTime: byteOrder.Uint32(data[1:5]),
		Seed:     byteOrder.Uint64(data[5:13]),
	}

	playerCount := int(data[13])
	offset := 14
	payload.Players = make([]PlayerState, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		if offset+PlayerStateSize > len(data) {
			return nil, ErrInvalidRoomStateSize
		}
		p, err := ParsePlayerState(data[offset:])
		if err != nil {
			return nil, err
		}
		payload.Players = append(payload.Players, *p)
		offset += PlayerStateSize
	}

	sync, err := ParseObstacleSyncPayload(data[offset:])
	if err != nil {
		return nil, ErrInvalidRoomStateSize
	}
	payload.Obstacles = sync.Obstacles
	payload.PowerUps = sync.PowerUps
	return payload, nil
}

// Encode はRoomStatePayloadをバイト列にエンコードする
func (r *RoomStatePayload) Encode() []byte {
	head := make([]byte, 14)
	head[0] = byte(r.Phase)
	byteOrder.PutUint32(head[1:5], r.GameTime)
	byteOrder.PutUint64(head[5:13], r.Seed)
	head[13] = uint8(len(r.Players))

	data := append([]byte{}, head...)
	for i := range r.Players {
		data = append(data, r.Players[i].Encode()...)
	}

	sync := ObstacleSyncPayload{Obstacles: r.Obstacles, PowerUps: r.PowerUps}
	return append(data, sync.Encode()...)
}

// DeathPayload はプレイヤー死亡通知のペイロード (16バイト)
type DeathPayload struct {
	Victim SessionID
}

// ParseDeathPayload はバイト列からDeathPayloadをパースする
func ParseDeathPayload(data []byte) (*DeathPayload, error) {
	if len(data) < DeathPayloadSize {
		return nil, ErrInvalidDeathPayloadSize
	}
	var victim [16]byte
	copy(victim[:], data[0:16])
	return &DeathPayload{Victim: SessionIDFromBytes(victim)}, nil
}

// Encode はDeathPayloadをバイト列にエンコードする
func (d *DeathPayload) Encode() []byte {
	id := d.Victim.Bytes()
	return id[:]
}

// GameOverPayload はゲーム終了通知のペイロード (34バイト)
//
//	winner            [16]byte (16) - 勝者なしの場合はゼロ値
//	finalScore        u32      (4)  - 勝者（ソロなら当該プレイヤー）の最終スコア
//	finalTime         u32      (4)  - ms
//	obstaclesCleared  u16      (2)
//	reward            u64      (8)  - トークン最小単位での報酬見積もり
type GameOverPayload struct {
	Winner           SessionID
	FinalScore       uint32
	FinalTime        uint32
	ObstaclesCleared uint16
	Reward           uint64
}

// ParseGameOverPayload はバイト列からGameOverPayloadをパースする
func ParseGameOverPayload(data []byte) (*GameOverPayload, error) {
	if len(data) < GameOverPayloadSize {
		return nil, ErrInvalidGameOverPayloadSize
	}
	var winner [16]byte
	copy(winner[:], data[0:16])
	return &GameOverPayload{
		Winner:           SessionIDFromBytes(winner),
		FinalScore:       byteOrder.Uint32(data[16:20]),
		FinalTime:        byteOrder.Uint32(data[20:24]),
		ObstaclesCleared: byteOrder.Uint16(data[24:26]),
		Reward:           byteOrder.Uint64(data[26:34]),
	}, nil
}

// Encode はGameOverPayloadをバイト列にエンコードする
func (g *GameOverPayload) Encode() []byte {
	data := make([]byte, GameOverPayloadSize)
	winner := g.Winner.Bytes()
	copy(data[0:16], winner[:])
	byteOrder.PutUint32(data[16:20], g.FinalScore)
	byteOrder.PutUint32(data[20:24], g.FinalTime)
	byteOrder.PutUint16(data[24:26], g.ObstaclesCleared)
	byteOrder.PutUint64(data[26:34], g.Reward)
	return data
}
