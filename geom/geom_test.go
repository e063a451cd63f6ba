package geom

import "testing"

func TestRectFromLTRBNormalizes(t *testing.T) {
	r := RectFromLTRB(10, 20, 0, 5)
	if r.X != 0 || r.Y != 5 || r.W != 10 || r.H != 15 {
		t.Fatalf("矩形未归一化: %+v", r)
	}
	if !r.IsValid() {
		t.Fatalf("归一化后的矩形应当有效")
	}
}

func TestIntersectedAndUnited(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}
	got := a.Intersected(b)
	if got != (Rect{X: 5, Y: 5, W: 5, H: 5}) {
		t.Fatalf("交集错误: %+v", got)
	}
	if u := a.United(b); u != (Rect{X: 0, Y: 0, W: 15, H: 15}) {
		t.Fatalf("并集错误: %+v", u)
	}
	c := Rect{X: 20, Y: 20, W: 1, H: 1}
	if a.Intersected(c).IsValid() {
		t.Fatalf("不相交的矩形交集应为空")
	}
	if u := (Rect{}).United(c); u != c {
		t.Fatalf("空矩形应被忽略: %+v", u)
	}
}

func TestTouchingRectsDoNotIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 10, Y: 0, W: 10, H: 10}
	if a.Intersects(b) {
		t.Fatalf("仅共享边的矩形不应相交")
	}
}

func TestPolygonBoundsAndInflate(t *testing.T) {
	p := RectPolygon(Rect{X: 10, Y: 10, W: 20, H: 10})
	if b := p.Bounds(); b != (Rect{X: 10, Y: 10, W: 20, H: 10}) {
		t.Fatalf("多边形包围盒错误: %+v", b)
	}
	inflated := p.Inflated(1, 2, 3, 4).Bounds()
	want := Rect{X: 9, Y: 8, W: 24, H: 16}
	if inflated != want {
		t.Fatalf("膨胀后包围盒错误: got=%+v want=%+v", inflated, want)
	}
	if len(p.Edges()) != 4 {
		t.Fatalf("矩形多边形应有 4 条边")
	}
}

func TestMatrixMapAndMul(t *testing.T) {
	m := Scale(2, 3).Mul(Translate(5, 7))
	got := m.Map(Point{X: 1, Y: 1})
	if got != (Point{X: 7, Y: 10}) {
		t.Fatalf("先缩放后平移结果错误: %+v", got)
	}
	if !Identity().IsIdentity() {
		t.Fatalf("Identity 应为单位矩阵")
	}
	r := Translate(10, 0).MapRect(Rect{W: 5, H: 5})
	if r != (Rect{X: 10, W: 5, H: 5}) {
		t.Fatalf("MapRect 错误: %+v", r)
	}
}
