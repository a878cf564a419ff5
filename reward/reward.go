// Package reward はラウンド結果からの報酬算定を行います。
// 金額に相当する値を扱うため、計算はすべて整数演算で行い、
// 浮動小数点数は一切使いません。
package reward

import "time"

const (
	// BaseReward は参加するだけで得られる基本報酬です。
	BaseReward = 10
	// ScoreDivisor はスコア報酬の換算率です。スコア100につき1
	ScoreDivisor = 100
	// 勝者倍率 3/2。乗算してから除算し、切り捨てる
	winnerMultiplierNum = 3
	winnerMultiplierDen = 2
)

// Estimate はプレイヤー1人分の報酬を算定します。
// 基本報酬 + スコア換算分に、勝者のみ3/2倍を適用します。
// 除算はすべて切り捨てで、負のスコアは0として扱います。
func Estimate(score int, winner bool) uint64 {
	if score < 0 {
		score = 0
	}
	amount := uint64(BaseReward) + uint64(score)/ScoreDivisor
	if winner {
		amount = amount * winnerMultiplierNum / winnerMultiplierDen
	}
	return amount
}

// Result はラウンド終了時に確定する1プレイヤー分の報酬記録です。
type Result struct {
	Score            int
	Winner           bool
	FinalTime        time.Duration
	ObstaclesCleared int
	Amount           uint64
}

// Settle はスコアと勝敗から報酬記録を作成します。
func Settle(score int, winner bool, finalTime time.Duration, obstaclesCleared int) Result {
	return Result{
		Score:            score,
		Winner:           winner,
		FinalTime:        finalTime,
		ObstaclesCleared: obstaclesCleared,
		Amount:           Estimate(score, winner),
	}
}
