package application

import (
	"errors"
	"time"

	"bramble/domain"
)

var (
	ErrEmptyRoom        = errors.New("cannot start with no players")
	ErrWrongPhase       = errors.New("operation not allowed in current phase")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrScoreOutOfBounds = errors.New("reported score out of bounds")
)

// Player はコース上の1プレイヤーです。ルームのgoroutineのみが書き込みます。
// Alive=falseになった後は、次のラウンド開始まで位置もスコアも変化しません。
type Player struct {
	ID        domain.SessionID
	X, Y      float32
	VelocityY float32
	Jumping   bool
	Grounded  bool
	Alive     bool
	Color     uint8

	Score            *ScoreManager
	Effects          map[PowerUpKind]int // 残り有効tick数
	ObstaclesCleared int

	// 受信順序の管理。同一プレイヤーのフレームは到着順に適用し、
	// 再配送された古いseqは破棄する
	LastSeq uint16
	SeqSeen bool

	survivalCountdown int
}

// Bounds は衝突判定用のAABBを返します。
func (p *Player) Bounds() AABB {
	return AABB{X: p.X, Y: p.Y, Width: PlayerWidth, Height: PlayerHeight}
}

// HasEffect は指定のパワーアップ効果が有効かを返します。
func (p *Player) HasEffect(kind PowerUpKind) bool {
	_, ok := p.Effects[kind]
	return ok
}

// GameOver はラウンド終了イベントです。
type GameOver struct {
	Winner           domain.SessionID // 勝者なしの場合はゼロ値
	FinalScore       int
	FinalTime        time.Duration
	ObstaclesCleared int
}

// PlayerResult は外部の永続化コラボレータへ渡す最終記録です。
type PlayerResult struct {
	ID               domain.SessionID
	Score            int
	Winner           bool
	FinalTime        time.Duration
	ObstaclesCleared int
}

// StepEvents は1ステップで発生した観測可能なイベントです。
type StepEvents struct {
	EntitiesChanged bool // 障害物・パワーアップ列が変化した
	ScoreChanged    []domain.SessionID
	Deaths          []domain.SessionID
	GameOver        *GameOver
}

const (
	obstaclePoolSize = 32
	powerUpPoolSize  = 16
	colorCount       = 8
)

// Course はルーム1つ分の権威的なゲーム状態です。
// waiting → playing → ended のフェーズを遷移し、すべての書き込みは
// 検証済みイベントハンドラ経由で行われます。外部から直接変更してはいけません。
type Course struct {
	roomID   domain.RoomID
	capacity int
	phase    domain.GamePhase

	players map[domain.SessionID]*Player
	order   []domain.SessionID // 参加順。スナップショットと抽選の安定順序

	rng             *domain.SeededRand
	seed            uint64
	obstacleFactory *ObstacleFactory
	powerUpFactory  *PowerUpFactory
	obstaclePool    *Pool[*Obstacle]
	powerUpPool     *Pool[*PowerUp]
	obstacles       []*Obstacle
	powerUps        []*PowerUp

	difficulty *Difficulty
	gameTime   time.Duration
	tick       uint64

	nextObstacleID uint16
	nextPowerUpID  uint16
	spawnCountdown int
	aliveAtStart   int

	results []PlayerResult
}

func NewCourse(roomID domain.RoomID, capacity int, seed uint64) *Course {
	rng := domain.NewSeededRand(seed)
	return &Course{
		roomID:   roomID,
		capacity: capacity,
		phase:    domain.PhaseWaiting,
		players:  make(map[domain.SessionID]*Player),

		rng:             rng,
		seed:            seed,
		obstacleFactory: NewObstacleFactory(rng),
		powerUpFactory:  NewPowerUpFactory(rng),
		obstaclePool: NewPool(
			func() *Obstacle { return &Obstacle{} },
			func(o *Obstacle) { *o = Obstacle{} },
			obstaclePoolSize,
		),
		powerUpPool: NewPool(
			func() *PowerUp { return &PowerUp{} },
			func(p *PowerUp) { *p = PowerUp{} },
			powerUpPoolSize,
		),

		difficulty:     NewDifficulty(),
		spawnCountdown: SpawnIntervalTicks,
	}
}

func (c *Course) Phase() domain.GamePhase {
	return c.phase
}

func (c *Course) Seed() uint64 {
	return c.seed
}

func (c *Course) GameTime() time.Duration {
	return c.gameTime
}

func (c *Course) Difficulty() *Difficulty {
	return c.difficulty
}

func (c *Course) NumPlayers() int {
	return len(c.players)
}

func (c *Course) Player(id domain.SessionID) (*Player, bool) {
	p, ok := c.players[id]
	return p, ok
}

// Results は直近のラウンドの最終記録を返します。playing中は空です。
func (c *Course) Results() []PlayerResult {
	return c.results
}

// Join はプレイヤーを参加させます。playing中の参加は拒否され、
// 定員を超える参加は ErrRoomFull になります。重複joinは何もしません。
func (c *Course) Join(id domain.SessionID) error {
	if _, ok := c.players[id]; ok {
		return nil
	}
	if c.phase == domain.PhasePlaying {
		return domain.ErrGameInProgress
	}
	if len(c.players) >= c.capacity {
		return domain.ErrRoomFull
	}

	slot := len(c.order)
	p := &Player{
		ID:       id,
		X:        PlayerBaseX + float32(slot)*PlayerSpacingX,
		Y:        GroundY - PlayerHeight,
		Grounded: true,
		Alive:    true,
		Color:    uint8(slot % colorCount),
		Score:    NewScoreManager(),
		Effects:  make(map[PowerUpKind]int),

		survivalCountdown: SurvivalPointsInterval,
	}
	c.players[id] = p
	c.order = append(c.order, id)
	return nil
}

// Leave はプレイヤーを取り除きます。playing中に生存者がいなくなった場合は
// ラウンドを終了し、GameOverイベントを返します。
func (c *Course) Leave(id domain.SessionID) *GameOver {
	if _, ok := c.players[id]; !ok {
		return nil
	}
	delete(c.players, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	if c.phase != domain.PhasePlaying {
		return nil
	}
	if len(c.players) == 0 || c.countAlive() == 0 {
		return c.finishRound()
	}
	// 2人以上で始まったラウンドで残り1人になったら勝ち抜け
	if len(c.players) >= 1 && c.countAlive() == 1 && c.roundStartedWithMultiple() {
		return c.finishRound()
	}
	return nil
}

// Start はラウンドを開始します。waitingフェーズかつ1人以上でのみ成功します。
// gameTimeをリセットし、乱数ストリームを再シードし、障害物をすべて消します。
func (c *Course) Start(seed uint64) error {
	if c.phase != domain.PhaseWaiting {
		return ErrWrongPhase
	}
	if len(c.players) == 0 {
		return ErrEmptyRoom
	}

	c.seed = seed
	c.rng.Seed(seed)
	c.gameTime = 0
	c.tick = 0
	c.difficulty.Reset()
	c.clearEntities()
	c.spawnCountdown = SpawnIntervalTicks
	c.results = nil
	c.aliveAtStart = len(c.players)

	for i, id := range c.order {
		p := c.players[id]
		p.X = PlayerBaseX + float32(i)*PlayerSpacingX
		p.Y = GroundY - PlayerHeight
		p.VelocityY = 0
		p.Jumping = false
		p.Grounded = true
		p.Alive = true
		p.Score.Reset()
		p.ObstaclesCleared = 0
		p.survivalCountdown = SurvivalPointsInterval
		clear(p.Effects)
	}

	c.phase = domain.PhasePlaying
	return nil
}

// ResetRound はendedフェーズからwaitingへ戻します。プレイヤーは残ります。
func (c *Course) ResetRound() error {
	if c.phase != domain.PhaseEnded {
		return ErrWrongPhase
	}
	c.clearEntities()
	c.gameTime = 0
	c.difficulty.Reset()
	c.phase = domain.PhaseWaiting
	return nil
}

// Jump はプレイヤーをジャンプさせます。接地していない場合は何もしないため、
// 同一ジャンプの再配送が速度を二重に適用することはありません。
func (c *Course) Jump(id domain.SessionID) {
	p, ok := c.players[id]
	if !ok || c.phase != domain.PhasePlaying || !p.Alive || !p.Grounded {
		return
	}
	p.VelocityY = JumpVelocity
	p.Grounded = false
	p.Jumping = true
}

// UpdatePosition はクライアント報告の位置を適用します。
// 位置はクライアント主導で、サーバーは境界クランプ以上の物理検証を行いません。
func (c *Course) UpdatePosition(id domain.SessionID, x, y float32) {
	p, ok := c.players[id]
	if !ok || c.phase != domain.PhasePlaying || !p.Alive {
		return
	}
	p.X = clampf(x, 0, WorldWidth-PlayerWidth)
	p.Y = clampf(y, 0, GroundY-PlayerHeight)
	p.Grounded = p.Y >= GroundY-PlayerHeight
	if p.Grounded {
		p.VelocityY = 0
		p.Jumping = false
	}
}

// ReportScore はクライアント報告のスコアを検証して採用します。
// サーバー側スコアを下回る値や、許容乖離を超える値は拒否します。
func (c *Course) ReportScore(id domain.SessionID, score int) error {
	p, ok := c.players[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if c.phase != domain.PhasePlaying || !p.Alive {
		return ErrWrongPhase
	}
	server := p.Score.Score()
	if score < server || score > server+ScoreReportTolerance {
		return ErrScoreOutOfBounds
	}
	p.Score.SetScore(score)
	return nil
}

// Step はシミュレーションを固定デルタ1つ分進めます。
// 物理 → 衝突 → スコア → 勝敗判定の順で、途中に受信処理は挟まりません。
func (c *Course) Step(delta time.Duration) StepEvents {
	var events StepEvents
	if c.phase != domain.PhasePlaying {
		return events
	}

	c.tick++
	c.gameTime += delta
	c.difficulty.Advance(delta)

	c.stepPhysics()
	c.stepEffects()
	if c.stepSpawn() {
		events.EntitiesChanged = true
	}
	c.stepEntities()
	if c.stepPickups() {
		events.EntitiesChanged = true
	}
	c.stepCollisions(&events)
	if c.stepCleanup(&events) {
		events.EntitiesChanged = true
	}
	c.stepSurvivalPoints(&events)
	c.checkRoundEnd(&events)

	return events
}

// Snapshot はルーム全体のスナップショットを構築します。参加順で安定しています。
func (c *Course) Snapshot() *domain.RoomStatePayload {
	payload := &domain.RoomStatePayload{
		Phase:    c.phase,
		GameTime: uint32(c.gameTime / time.Millisecond),
		Seed:     c.seed,
	}
	for _, id := range c.order {
		p := c.players[id]
		var flags uint8
		if p.Alive {
			flags |= domain.PlayerFlagAlive
		}
		if p.Jumping {
			flags |= domain.PlayerFlagJumping
		}
		if p.Grounded {
			flags |= domain.PlayerFlagGrounded
		}
		var effects uint8
		for kind := range p.Effects {
			effects |= kind.EffectBit()
		}
		payload.Players = append(payload.Players, domain.PlayerState{
			SessionID: p.ID.Bytes(),
			X:         p.X,
			Y:         p.Y,
			VelocityY: p.VelocityY,
			Flags:     flags,
			Color:     p.Color,
			Score:     uint32(p.Score.Score()),
			Combo:     uint16(p.Score.Combo()),
			Effects:   effects,
		})
	}
	sync := c.EntitySync()
	payload.Obstacles = sync.Obstacles
	payload.PowerUps = sync.PowerUps
	return payload
}

// EntitySync は権威側の障害物・パワーアップ列を構築します。
func (c *Course) EntitySync() *domain.ObstacleSyncPayload {
	payload := &domain.ObstacleSyncPayload{}
	for _, o := range c.obstacles {
		payload.Obstacles = append(payload.Obstacles, domain.ObstacleState{
			ID:     o.ID,
			Kind:   uint8(o.Kind),
			X:      o.X,
			Y:      o.Y,
			Width:  o.Width,
			Height: o.Height,
			Speed:  o.Speed,
		})
	}
	for _, p := range c.powerUps {
		payload.PowerUps = append(payload.PowerUps, domain.PowerUpState{
			ID:       p.ID,
			Kind:     uint8(p.Kind),
			X:        p.X,
			Y:        p.Y,
			Duration: p.Duration,
		})
	}
	return payload
}

// --- 内部処理 ---

func (c *Course) stepPhysics() {
	for _, id := range c.order {
		p := c.players[id]
		if !p.Alive || p.Grounded {
			continue
		}
		p.VelocityY += Gravity
		p.Y += p.VelocityY
		if p.Y >= GroundY-PlayerHeight {
			p.Y = GroundY - PlayerHeight
			p.VelocityY = 0
			p.Grounded = true
			p.Jumping = false
		}
	}
}

func (c *Course) stepEffects() {
	for _, id := range c.order {
		p := c.players[id]
		if !p.Alive {
			continue
		}
		for kind, ticks := range p.Effects {
			ticks--
			if ticks <= 0 {
				delete(p.Effects, kind) // 効果は自動で切れる
				continue
			}
			p.Effects[kind] = ticks
		}
	}
}

// stepSpawn は障害物（と確率でパワーアップ）を生成します。
// 乱数の消費順は固定で、同一シードなら生成列は完全に再現されます。
func (c *Course) stepSpawn() bool {
	c.spawnCountdown--
	if c.spawnCountdown > 0 {
		return false
	}

	o := c.obstaclePool.Acquire()
	c.obstacleFactory.CreateRandom(o, WorldWidth, GroundY)
	o.ID = c.nextObstacleID
	c.nextObstacleID++
	c.obstacles = append(c.obstacles, o)

	if c.rng.Intn(100) < PowerUpChancePercent {
		pu := c.powerUpPool.Acquire()
		c.powerUpFactory.CreateRandom(pu, WorldWidth+powerUpSize, GroundY)
		pu.ID = c.nextPowerUpID
		c.nextPowerUpID++
		c.powerUps = append(c.powerUps, pu)
	}

	interval := int(float64(SpawnIntervalTicks) / c.difficulty.Multiplier())
	if interval < SpawnIntervalMinTicks {
		interval = SpawnIntervalMinTicks
	}
	c.spawnCountdown = interval
	return true
}

func (c *Course) stepEntities() {
	speed := c.difficulty.Speed()
	for _, o := range c.obstacles {
		o.X -= speed * o.Speed
	}
	for _, pu := range c.powerUps {
		pu.X -= speed
	}
}

func (c *Course) stepPickups() bool {
	changed := false
	kept := c.powerUps[:0]
	for _, pu := range c.powerUps {
		taken := false
		for _, id := range c.order {
			p := c.players[id]
			if !p.Alive {
				continue
			}
			if Intersects(p.Bounds(), pu.Bounds()) {
				p.Effects[pu.Kind] = int(pu.Duration)
				taken = true
				break
			}
		}
		if taken {
			c.powerUpPool.Release(pu)
			changed = true
			continue
		}
		kept = append(kept, pu)
	}
	c.powerUps = kept
	return changed
}

func (c *Course) stepCollisions(events *StepEvents) {
	consumed := make(map[*Obstacle]struct{})
	for _, id := range c.order {
		p := c.players[id]
		if !p.Alive {
			continue
		}
		for _, o := range c.obstacles {
			if _, ok := consumed[o]; ok {
				continue
			}
			if !Intersects(p.Bounds(), o.Bounds()) {
				continue
			}
			if p.HasEffect(PowerUpInvincibility) {
				continue
			}
			if p.HasEffect(PowerUpShield) {
				// シールドは1発だけ吸収する。被弾扱いなのでコンボは切れる
				delete(p.Effects, PowerUpShield)
				p.Score.ResetCombo()
				consumed[o] = struct{}{}
				events.EntitiesChanged = true
				continue
			}
			p.Alive = false
			p.Score.ResetCombo()
			events.Deaths = append(events.Deaths, p.ID)
			break
		}
	}

	if len(consumed) > 0 {
		kept := c.obstacles[:0]
		for _, o := range c.obstacles {
			if _, ok := consumed[o]; ok {
				c.obstaclePool.Release(o)
				continue
			}
			kept = append(kept, o)
		}
		c.obstacles = kept
	}
}

// stepCleanup は画面外に出た障害物を回収し、生存者にクリア点を与えます。
func (c *Course) stepCleanup(events *StepEvents) bool {
	changed := false
	kept := c.obstacles[:0]
	for _, o := range c.obstacles {
		if o.X+o.Width >= 0 {
			kept = append(kept, o)
			continue
		}
		c.obstaclePool.Release(o)
		changed = true
		for _, id := range c.order {
			p := c.players[id]
			if !p.Alive {
				continue
			}
			c.awardPoints(p, ObstacleClearPoints)
			p.Score.IncrementCombo()
			p.ObstaclesCleared++
			events.ScoreChanged = appendUnique(events.ScoreChanged, p.ID)
		}
	}
	c.obstacles = kept

	keptPU := c.powerUps[:0]
	for _, pu := range c.powerUps {
		if pu.X+powerUpSize >= 0 {
			keptPU = append(keptPU, pu)
			continue
		}
		c.powerUpPool.Release(pu)
		changed = true
	}
	c.powerUps = keptPU
	return changed
}

func (c *Course) stepSurvivalPoints(events *StepEvents) {
	for _, id := range c.order {
		p := c.players[id]
		if !p.Alive {
			continue
		}
		p.survivalCountdown--
		if p.survivalCountdown > 0 {
			continue
		}
		p.survivalCountdown = SurvivalPointsInterval
		c.awardPoints(p, SurvivalPoints)
		events.ScoreChanged = appendUnique(events.ScoreChanged, p.ID)
	}
}

func (c *Course) checkRoundEnd(events *StepEvents) {
	if c.phase != domain.PhasePlaying {
		return
	}
	alive := c.countAlive()
	switch {
	case len(c.players) == 0:
		events.GameOver = c.finishRound()
	case alive == 0:
		events.GameOver = c.finishRound()
	case alive == 1 && c.roundStartedWithMultiple():
		events.GameOver = c.finishRound()
	case c.gameTime >= RunTimeLimit:
		events.GameOver = c.finishRound()
	}
	if events.GameOver != nil && !events.GameOver.Winner.IsEmpty() {
		events.ScoreChanged = appendUnique(events.ScoreChanged, events.GameOver.Winner)
	}
}

// finishRound はラウンドを終了し、勝者の確定・タイムボーナス付与・最終記録の作成を行います。
func (c *Course) finishRound() *GameOver {
	c.phase = domain.PhaseEnded

	var winner *Player
	for _, id := range c.order {
		p := c.players[id]
		if !p.Alive {
			continue
		}
		if winner == nil || p.Score.Score() > winner.Score.Score() {
			winner = p
		}
	}

	over := &GameOver{FinalTime: c.gameTime}
	if winner != nil {
		winner.Score.AddBonus(TimeBonus(int(c.gameTime / time.Second)))
		over.Winner = winner.ID
		over.FinalScore = winner.Score.Score()
		over.ObstaclesCleared = winner.ObstaclesCleared
	}

	c.results = c.results[:0]
	for _, id := range c.order {
		p := c.players[id]
		c.results = append(c.results, PlayerResult{
			ID:               p.ID,
			Score:            p.Score.Score(),
			Winner:           winner != nil && p == winner,
			FinalTime:        c.gameTime,
			ObstaclesCleared: p.ObstaclesCleared,
		})
	}
	return over
}

func (c *Course) clearEntities() {
	c.obstaclePool.ReleaseAll()
	c.powerUpPool.ReleaseAll()
	c.obstacles = c.obstacles[:0]
	c.powerUps = c.powerUps[:0]
}

func (c *Course) countAlive() int {
	count := 0
	for _, p := range c.players {
		if p.Alive {
			count++
		}
	}
	return count
}

func (c *Course) roundStartedWithMultiple() bool {
	return c.aliveAtStart >= 2
}

func (c *Course) awardPoints(p *Player, n int) {
	if p.HasEffect(PowerUpDoubleScore) {
		n *= 2
	}
	p.Score.AddPoints(n)
}

func appendUnique(ids []domain.SessionID, id domain.SessionID) []domain.SessionID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
