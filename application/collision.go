package application

// AABB は軸平行の矩形です。
type AABB struct {
	X, Y          float32
	Width, Height float32
}

// Intersects は2つのAABBが重なっているかを返します。対称で副作用はありません。
// 境界は包含的で、辺がちょうど接している場合（aの右端 == bの左端）も衝突とみなします。
// 障害物の間隔はこの判定前提で調整されているため、排他的な判定に変えないでください。
func Intersects(a, b AABB) bool {
	return a.X <= b.X+b.Width &&
		a.X+a.Width >= b.X &&
		a.Y <= b.Y+b.Height &&
		a.Y+a.Height >= b.Y
}
