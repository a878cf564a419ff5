package application

import "time"

// ワールド・物理・スコアのチューニング定数。
// 速度・加速度は60FPSの1tickあたりの量で表します。
const (
	WorldWidth  float32 = 800.0
	WorldHeight float32 = 400.0
	GroundY     float32 = 350.0 // 地面のY座標（Y軸は下向き）

	PlayerWidth    float32 = 30.0
	PlayerHeight   float32 = 40.0
	PlayerBaseX    float32 = 80.0 // 1人目のX座標
	PlayerSpacingX float32 = 50.0 // 参加順にずらす間隔

	Gravity      float32 = 0.5   // px/tick^2
	JumpVelocity float32 = -10.0 // px/tick 上向き

	SpawnIntervalTicks    = 90 // 1.5秒 @60FPS
	SpawnIntervalMinTicks = 30 // 難易度上昇後の下限
	PowerUpChancePercent  = 15 // 障害物スポーン時にパワーアップも出る確率

	SurvivalPointsInterval = 60 // 1秒 @60FPS
	SurvivalPoints         = 1
	ObstacleClearPoints    = 10

	ScoreReportTolerance = 50 // クライアント報告スコアの許容乖離

	SnapshotEveryTicks = 6 // スナップショット配信は10Hz

	RunTimeLimit = 180 * time.Second
)
