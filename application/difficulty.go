package application

import "time"

// 難易度チューニング
const (
	DifficultyInterval = 15 * time.Second // 倍率が1段階上がる間隔
	DifficultyStep     = 0.5
	MaxMultiplier      = 5.0
	LevelBand          = 30 * time.Second // 名前付きレベルの帯域

	BaseSpeed float32 = 4.0  // px/tick
	MaxSpeed  float32 = 16.0 // px/tick
)

// DifficultyLevel は名前付きの難易度レベルです。
type DifficultyLevel uint8

const (
	LevelEasy DifficultyLevel = iota
	LevelNormal
	LevelHard
	LevelExpert
	LevelMaster
)

func (l DifficultyLevel) String() string {
	switch l {
	case LevelEasy:
		return "easy"
	case LevelNormal:
		return "normal"
	case LevelHard:
		return "hard"
	case LevelExpert:
		return "expert"
	case LevelMaster:
		return "master"
	default:
		return "unknown"
	}
}

// MultiplierAt は経過時間に対する難易度倍率を返します。
// 1からDifficultyIntervalごとにDifficultyStepずつ上がり、MaxMultiplierで頭打ちになります。
func MultiplierAt(elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	m := 1.0 + float64(elapsed/DifficultyInterval)*DifficultyStep
	if m > MaxMultiplier {
		return MaxMultiplier
	}
	return m
}

// LevelAt は経過時間をLevelBandごとの帯域に割り当てます。LevelMasterで頭打ちです。
func LevelAt(elapsed time.Duration) DifficultyLevel {
	if elapsed < 0 {
		elapsed = 0
	}
	band := elapsed / LevelBand
	if band >= time.Duration(LevelMaster) {
		return LevelMaster
	}
	return DifficultyLevel(band)
}

// SpeedAt は経過時間に対するゲーム速度を返します。
func SpeedAt(elapsed time.Duration) float32 {
	speed := BaseSpeed * float32(1.0+MultiplierAt(elapsed))
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Difficulty は経過時間から難易度を導出するコントローラです。
// 状態は経過時間のみで、倍率・レベル・速度はすべてそこから導出されます。
type Difficulty struct {
	elapsed time.Duration
}

func NewDifficulty() *Difficulty {
	return &Difficulty{}
}

// Advance は経過時間を進めます。
func (d *Difficulty) Advance(delta time.Duration) {
	if delta > 0 {
		d.elapsed += delta
	}
}

func (d *Difficulty) Elapsed() time.Duration {
	return d.elapsed
}

func (d *Difficulty) Multiplier() float64 {
	return MultiplierAt(d.elapsed)
}

func (d *Difficulty) Level() DifficultyLevel {
	return LevelAt(d.elapsed)
}

func (d *Difficulty) Speed() float32 {
	return SpeedAt(d.elapsed)
}

// Reset は初期状態（easy・倍率1）に戻します。
func (d *Difficulty) Reset() {
	d.elapsed = 0
}
