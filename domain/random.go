package domain

// SeededRand は明示的なシードから初期化される決定論的な擬似乱数ストリームです。
// ルーム（またはソロセッション）ごとに1つ生成し、ファクトリへ明示的に引き回します。
// グローバルな乱数源を共有しないため、複数ルームが並行しても列は衝突しません。
// 同一シードなら障害物・パワーアップの生成列は常に一致します。
type SeededRand struct {
	state uint64
}

// LCG定数 (Knuth MMIX)
const (
	lcgMultiplier uint64 = 6364136223846793005
	lcgIncrement  uint64 = 1442695040888963407
)

func NewSeededRand(seed uint64) *SeededRand {
	return &SeededRand{state: seed}
}

// Seed は状態をシードで再初期化します。
func (r *SeededRand) Seed(seed uint64) {
	r.state = seed
}

// Uint32 は次の32bit乱数を返します。LCGの上位32bitを使用します。
func (r *SeededRand) Uint32() uint32 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return uint32(r.state >> 32)
}

// Intn は [0, n) の乱数を返します。n <= 0 の場合は0を返します。
func (r *SeededRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint32() % uint32(n))
}

// Float32 は [0, 1) の乱数を返します。
func (r *SeededRand) Float32() float32 {
	return float32(r.Uint32()>>8) / (1 << 24)
}
