package application

import "testing"

func TestIntersects_Overlap(t *testing.T) {
	a := AABB{X: 0, Y: 0, Width: 30, Height: 40}
	b := AABB{X: 20, Y: 20, Width: 30, Height: 40}

	if !Intersects(a, b) {
		t.Error("overlapping rects should intersect")
	}
	if !Intersects(b, a) {
		t.Error("Intersects should be symmetric")
	}
}

func TestIntersects_Separate(t *testing.T) {
	a := AABB{X: 0, Y: 0, Width: 30, Height: 40}
	b := AABB{X: 100, Y: 0, Width: 30, Height: 40}

	if Intersects(a, b) {
		t.Error("separated rects should not intersect")
	}
	if Intersects(b, a) {
		t.Error("Intersects should be symmetric")
	}
}

// 辺がちょうど接している場合は衝突扱い
func TestIntersects_EdgeTouch(t *testing.T) {
	a := AABB{X: 0, Y: 0, Width: 30, Height: 40}
	right := AABB{X: 30, Y: 0, Width: 30, Height: 40}  // aの右端 == rightの左端
	below := AABB{X: 0, Y: 40, Width: 30, Height: 40}  // aの下端 == belowの上端
	corner := AABB{X: 30, Y: 40, Width: 10, Height: 10} // 角だけ接触

	if !Intersects(a, right) {
		t.Error("edge-touching rects (x) should intersect")
	}
	if !Intersects(a, below) {
		t.Error("edge-touching rects (y) should intersect")
	}
	if !Intersects(a, corner) {
		t.Error("corner-touching rects should intersect")
	}
}

func TestIntersects_Contained(t *testing.T) {
	outer := AABB{X: 0, Y: 0, Width: 100, Height: 100}
	inner := AABB{X: 40, Y: 40, Width: 10, Height: 10}

	if !Intersects(outer, inner) || !Intersects(inner, outer) {
		t.Error("contained rect should intersect")
	}
}

func TestIntersects_ZeroSize(t *testing.T) {
	point := AABB{X: 10, Y: 10, Width: 0, Height: 0}
	box := AABB{X: 0, Y: 0, Width: 30, Height: 30}

	if !Intersects(point, box) {
		t.Error("zero-size rect inside a box should intersect")
	}
}
