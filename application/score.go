package application

import "math"

// スコアチューニング
const (
	ComboStep       = 0.1 // コンボ1につき+10%
	ComboFactorCap  = 5.0
	ComboPointValue = 10
	TimeBonusMax    = 1000
	TimeBonusDecay  = 5 // 1秒あたりの減衰
)

// ComboFactor はコンボ数に対するスコア倍率を返します。
// combo=5で1.5倍、combo=10で2倍、上限はComboFactorCapです。
func ComboFactor(combo int) float64 {
	if combo < 0 {
		combo = 0
	}
	f := 1.0 + float64(combo)*ComboStep
	if f > ComboFactorCap {
		return ComboFactorCap
	}
	return f
}

// CalculateScore は基礎点・倍率・コンボから合計点を計算する純粋関数です。
// floor(base * multiplier) + combo * ComboPointValue。
// ScoreManager.AddPointsのコンボ係数とは別物なので混同しないこと。
func CalculateScore(base float64, multiplier float64, combo int) int {
	if combo < 0 {
		combo = 0
	}
	return int(math.Floor(base*multiplier)) + combo*ComboPointValue
}

// TimeBonus は経過秒数に対するクリアボーナスを返します。
// 経過時間に対して単調非増加で、負にはなりません。早いクリアほど大きくなります。
func TimeBonus(elapsedSeconds int) int {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	bonus := TimeBonusMax - TimeBonusDecay*elapsedSeconds
	if bonus < 0 {
		return 0
	}
	return bonus
}

// ScoreManager は1プレイヤーのスコアとコンボの状態を持ちます。
type ScoreManager struct {
	score int
	combo int
}

func NewScoreManager() *ScoreManager {
	return &ScoreManager{}
}

// AddPoints は現在のコンボ係数を掛けた点数を加算します。
func (s *ScoreManager) AddPoints(n int) {
	if n <= 0 {
		return
	}
	s.score += int(math.Floor(float64(n) * ComboFactor(s.combo)))
}

// AddBonus はコンボ係数を掛けずに点数を直接加算します。タイムボーナス用です。
func (s *ScoreManager) AddBonus(n int) {
	if n <= 0 {
		return
	}
	s.score += n
}

// IncrementCombo はコンボを1増やします。スコアには影響しません。
func (s *ScoreManager) IncrementCombo() {
	s.combo++
}

// ResetCombo はコンボを0に戻します。被弾・ミス時に呼びます。
func (s *ScoreManager) ResetCombo() {
	s.combo = 0
}

// SetScore はスコアを直接設定します。クライアント報告値の採用用です。
func (s *ScoreManager) SetScore(score int) {
	s.score = score
}

func (s *ScoreManager) Score() int {
	return s.score
}

func (s *ScoreManager) Combo() int {
	return s.combo
}

// Reset はスコアとコンボを初期化します。
func (s *ScoreManager) Reset() {
	s.score = 0
	s.combo = 0
}
