package application

import "time"

// DefaultStep はシミュレーションの固定ステップ幅です。
const DefaultStep = time.Second / 60

// 1回のAdvanceで消化するステップ数の上限。
// 停止からの復帰時に追いつき処理が雪だるま式に増えるのを防ぎます。
const maxStepsPerAdvance = 6

// Clock は可変の実時間デルタを固定ステップ数へ変換するアキュムレータです。
// 全参加者が同じステップ幅でシミュレーションを進めるための土台になります。
type Clock struct {
	step time.Duration
	acc  time.Duration
}

func NewClock(step time.Duration) *Clock {
	if step <= 0 {
		step = DefaultStep
	}
	return &Clock{step: step}
}

// Step は固定ステップ幅を返します。
func (c *Clock) Step() time.Duration {
	return c.step
}

// Advance はデルタを蓄積し、消化すべき固定ステップ数を返します。
// 端数は次回へ持ち越します。上限を超えた分の蓄積は破棄します。
func (c *Clock) Advance(delta time.Duration) int {
	if delta < 0 {
		return 0
	}
	c.acc += delta
	steps := int(c.acc / c.step)
	if steps > maxStepsPerAdvance {
		steps = maxStepsPerAdvance
		c.acc = 0
		return steps
	}
	c.acc -= time.Duration(steps) * c.step
	return steps
}

// Reset は蓄積をゼロに戻します。
func (c *Clock) Reset() {
	c.acc = 0
}
