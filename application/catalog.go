package application

import (
	"errors"
	"fmt"

	"bramble/domain"
)

var (
	ErrUnknownObstacleKind = errors.New("unknown obstacle kind")
	ErrUnknownPowerUpKind  = errors.New("unknown powerup kind")
)

// ObstacleKind は障害物の種別です。ワイヤ上ではu8で表現します。
type ObstacleKind uint8

const (
	ObstacleSpike ObstacleKind = 1 + iota
	ObstacleBlock
	ObstacleMovingPlatform
	ObstaclePit
)

func (k ObstacleKind) String() string {
	switch k {
	case ObstacleSpike:
		return "spike"
	case ObstacleBlock:
		return "block"
	case ObstacleMovingPlatform:
		return "moving-platform"
	case ObstaclePit:
		return "pit"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// PowerUpKind はパワーアップの種別です。ワイヤ上ではu8で表現します。
type PowerUpKind uint8

const (
	PowerUpSpeed PowerUpKind = 1 + iota
	PowerUpShield
	PowerUpInvincibility
	PowerUpDoubleScore
)

// EffectBit はPlayerStateのeffectsフィールドでのビット表現を返します。
func (k PowerUpKind) EffectBit() uint8 {
	switch k {
	case PowerUpSpeed:
		return domain.PlayerEffectSpeed
	case PowerUpShield:
		return domain.PlayerEffectShield
	case PowerUpInvincibility:
		return domain.PlayerEffectInvincibility
	case PowerUpDoubleScore:
		return domain.PlayerEffectDoubleScore
	default:
		return 0
	}
}

func (k PowerUpKind) String() string {
	switch k {
	case PowerUpSpeed:
		return "speed"
	case PowerUpShield:
		return "shield"
	case PowerUpInvincibility:
		return "invincibility"
	case PowerUpDoubleScore:
		return "double-score"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Obstacle はコース上の障害物です。プールで再利用されます。
type Obstacle struct {
	ID     uint16
	Kind   ObstacleKind
	X, Y   float32
	Width  float32
	Height float32
	Speed  float32 // 進行速度の係数。ゲーム速度に掛かる
}

// Bounds は衝突判定用のAABBを返します。
func (o *Obstacle) Bounds() AABB {
	return AABB{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// PowerUp はコース上のパワーアップです。取得するとDurationティックの間効果が続きます。
type PowerUp struct {
	ID       uint16
	Kind     PowerUpKind
	X, Y     float32
	Duration uint16
}

// Bounds は衝突判定用のAABBを返します。取得判定は固定サイズで行います。
func (p *PowerUp) Bounds() AABB {
	return AABB{X: p.X, Y: p.Y, Width: powerUpSize, Height: powerUpSize}
}

const powerUpSize float32 = 20.0

type obstacleSpec struct {
	kind    ObstacleKind
	width   float32
	height  float32
	speed   float32
	offsetY float32 // 地面からの浮き。0なら接地
}

// 障害物カタログ。順序はそのままCreateRandomの抽選順になるため変更しないこと。
var obstacleCatalog = []obstacleSpec{
	{kind: ObstacleSpike, width: 30, height: 40, speed: 1.0, offsetY: 0},
	{kind: ObstacleBlock, width: 40, height: 60, speed: 1.0, offsetY: 0},
	{kind: ObstacleMovingPlatform, width: 60, height: 20, speed: 1.5, offsetY: 120},
	{kind: ObstaclePit, width: 50, height: 10, speed: 1.0, offsetY: -10},
}

type powerUpSpec struct {
	kind     PowerUpKind
	duration uint16 // 効果持続tick数
	offsetY  float32
}

// パワーアップカタログ。順序の扱いは障害物カタログと同じです。
var powerUpCatalog = []powerUpSpec{
	{kind: PowerUpSpeed, duration: 300, offsetY: 80},
	{kind: PowerUpShield, duration: 600, offsetY: 100},
	{kind: PowerUpInvincibility, duration: 180, offsetY: 100},
	{kind: PowerUpDoubleScore, duration: 450, offsetY: 80},
}

// ObstacleFactory はカタログから障害物を生成します。
// ランダム生成はルーム共有のシード付きストリームを消費します。
// 独自の乱数源を持たないため、同一シードなら生成列は全参加者で一致します。
type ObstacleFactory struct {
	rng *domain.SeededRand
}

func NewObstacleFactory(rng *domain.SeededRand) *ObstacleFactory {
	return &ObstacleFactory{rng: rng}
}

// Create は指定種別の障害物を生成します。カタログにない種別はエラーになります。
// 生成先は呼び出し側が用意します（プールからの取得を想定）。
func (f *ObstacleFactory) Create(into *Obstacle, kind ObstacleKind, x, groundY float32) error {
	for _, spec := range obstacleCatalog {
		if spec.kind != kind {
			continue
		}
		into.Kind = spec.kind
		into.X = x
		into.Y = groundY - spec.height - spec.offsetY
		into.Width = spec.width
		into.Height = spec.height
		into.Speed = spec.speed
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownObstacleKind, kind)
}

// CreateRandom はカタログから一様に種別を選んで生成します。
func (f *ObstacleFactory) CreateRandom(into *Obstacle, x, groundY float32) {
	spec := obstacleCatalog[f.rng.Intn(len(obstacleCatalog))]
	// カタログ由来の種別なのでCreateは失敗しない
	_ = f.Create(into, spec.kind, x, groundY)
}

// Kinds は利用可能な種別を安定した順序で返します。
func (f *ObstacleFactory) Kinds() []ObstacleKind {
	kinds := make([]ObstacleKind, 0, len(obstacleCatalog))
	for _, spec := range obstacleCatalog {
		kinds = append(kinds, spec.kind)
	}
	return kinds
}

// PowerUpFactory はカタログからパワーアップを生成します。
type PowerUpFactory struct {
	rng *domain.SeededRand
}

func NewPowerUpFactory(rng *domain.SeededRand) *PowerUpFactory {
	return &PowerUpFactory{rng: rng}
}

// Create は指定種別のパワーアップを生成します。カタログにない種別はエラーになります。
func (f *PowerUpFactory) Create(into *PowerUp, kind PowerUpKind, x, groundY float32) error {
	for _, spec := range powerUpCatalog {
		if spec.kind != kind {
			continue
		}
		into.Kind = spec.kind
		into.X = x
		into.Y = groundY - powerUpSize - spec.offsetY
		into.Duration = spec.duration
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownPowerUpKind, kind)
}

// CreateRandom はカタログから一様に種別を選んで生成します。
func (f *PowerUpFactory) CreateRandom(into *PowerUp, x, groundY float32) {
	spec := powerUpCatalog[f.rng.Intn(len(powerUpCatalog))]
	_ = f.Create(into, spec.kind, x, groundY)
}

// Kinds は利用可能な種別を安定した順序で返します。
func (f *PowerUpFactory) Kinds() []PowerUpKind {
	kinds := make([]PowerUpKind, 0, len(powerUpCatalog))
	for _, spec := range powerUpCatalog {
		kinds = append(kinds, spec.kind)
	}
	return kinds
}
