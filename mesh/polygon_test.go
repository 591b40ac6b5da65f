package mesh

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	"navgraph/geometry"
)

func rect(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

func triangulated(t *testing.T, contour orb.Ring, holes ...orb.Ring) *Polygon {
	t.Helper()

	p, err := NewPolygon(contour)
	if err != nil {
		t.Fatalf("NewPolygon() error = %v", err)
	}
	for _, hole := range holes {
		if err := p.AddChild(hole); err != nil {
			t.Fatalf("AddChild() error = %v", err)
		}
	}
	if err := p.Triangulate(); err != nil {
		t.Fatalf("Triangulate() error = %v", err)
	}
	return p
}

// checkTopology verifies the triangulation covers the walkable area exactly once
// and that every line borders one or two triangles.
func checkTopology(t *testing.T, p *Polygon, wantBoundary int) {
	t.Helper()

	area := 0.0
	for _, tri := range p.Triangles() {
		if tri.Area() <= 0 {
			t.Errorf("triangle %d is degenerate", tri.Index)
		}
		area += tri.Area()
		for _, lineIdx := range tri.Lines {
			if lineIdx == NoLine {
				t.Errorf("triangle %d has an empty line slot", tri.Index)
			}
		}
	}
	want := 0.0
	for _, r := range walkableRegions(p.contour, p.children) {
		want += r.area()
	}
	if math.Abs(area-want) > 1e-6 {
		t.Errorf("triangles cover %v, want %v", area, want)
	}

	boundary := 0
	for _, line := range p.Lines() {
		switch n := len(p.TrianglesFromLineIndex(line.Index)); n {
		case 1:
			boundary++
		case 2:
		default:
			t.Errorf("line %d borders %d triangles", line.Index, n)
		}
	}
	if boundary != wantBoundary {
		t.Errorf("boundary lines = %d, want %d", boundary, wantBoundary)
	}
}

func TestTriangulateSquare(t *testing.T) {
	p := triangulated(t, rect(0, 0, 10, 10))

	if got := len(p.Triangles()); got != 2 {
		t.Fatalf("triangles = %d, want 2", got)
	}
	if got := len(p.Lines()); got != 5 {
		t.Fatalf("lines = %d, want 5", got)
	}
	checkTopology(t, p, 4)
}

func TestTriangulateConcave(t *testing.T) {
	// L-shape
	contour := orb.Ring{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	p := triangulated(t, contour)

	if got := len(p.Triangles()); got != 4 {
		t.Fatalf("triangles = %d, want 4", got)
	}
	checkTopology(t, p, 6)
}

func TestTriangulateClockwiseClosedContour(t *testing.T) {
	contour := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	p := triangulated(t, contour)

	checkTopology(t, p, 4)
	if math.Abs(p.Area()-100) > 1e-9 {
		t.Errorf("Area() = %v, want 100", p.Area())
	}
}

func TestTriangulateWithHole(t *testing.T) {
	p := triangulated(t, rect(0, 0, 10, 10), rect(4, 4, 6, 6))

	if math.Abs(p.Area()-96) > 1e-9 {
		t.Fatalf("Area() = %v, want 96", p.Area())
	}
	if got := len(p.Triangles()); got != 8 {
		t.Errorf("triangles = %d, want 8", got)
	}
	checkTopology(t, p, 8)
}

func TestTriangulateWithTwoHoles(t *testing.T) {
	p := triangulated(t, rect(0, 0, 20, 10), rect(3, 4, 5, 6), rect(12, 4, 14, 6))

	if math.Abs(p.Area()-192) > 1e-9 {
		t.Fatalf("Area() = %v, want 192", p.Area())
	}
	checkTopology(t, p, 12)
}

func TestAddChildPreconditions(t *testing.T) {
	p, err := NewPolygon(rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	if err := p.AddChild(orb.Ring{{1, 1}, {2, 2}}); !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("AddChild(degenerate) error = %v, want ErrTooFewVertices", err)
	}
	if err := p.AddChild(rect(8, 8, 12, 12)); err != nil {
		t.Errorf("AddChild(straddling) error = %v", err)
	}
	if err := p.AddChild(rect(2, 2, 4, 4)); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if err := p.AddChild(rect(3, 3, 5, 5)); err != nil {
		t.Errorf("AddChild(overlapping) error = %v", err)
	}
	if got := len(p.Children()); got != 3 {
		t.Errorf("Children() = %d, want 3", got)
	}
	if err := p.Triangulate(); err != nil {
		t.Fatalf("Triangulate() error = %v", err)
	}
	if err := p.AddChild(rect(6, 6, 7, 7)); !errors.Is(err, ErrAlreadyTriangulated) {
		t.Errorf("AddChild(after triangulation) error = %v, want ErrAlreadyTriangulated", err)
	}
	if err := p.Triangulate(); !errors.Is(err, ErrAlreadyTriangulated) {
		t.Errorf("Triangulate() twice error = %v, want ErrAlreadyTriangulated", err)
	}
}

func TestTriangulateOverlappingChildren(t *testing.T) {
	p := triangulated(t, rect(0, 0, 20, 10), rect(4, 2, 8, 8), rect(7, 3, 11, 7))

	if math.Abs(p.Area()-164) > 1e-6 {
		t.Fatalf("Area() = %v, want 164", p.Area())
	}
	for _, blocked := range []orb.Point{{6, 5}, {7.5, 5}, {10, 5}} {
		if p.Contains(blocked) {
			t.Errorf("Contains(%v) = true inside a child", blocked)
		}
	}
	if !p.Contains(orb.Point{15, 5}) || !p.Contains(orb.Point{9.5, 2.5}) {
		t.Error("Contains() lost walkable area next to the children")
	}
	checkTopology(t, p, 12)
}

func TestTriangulateChildOnContourEdge(t *testing.T) {
	tests := []struct {
		name  string
		child orb.Ring
	}{
		{"crossing the edge", rect(9, -1, 11, 8)},
		{"flush with the edge", rect(9, 0, 11, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := triangulated(t, rect(0, 0, 20, 10), tt.child)

			if math.Abs(p.Area()-184) > 1e-6 {
				t.Fatalf("Area() = %v, want 184", p.Area())
			}
			if p.Contains(orb.Point{10, 2}) {
				t.Error("Contains() = true inside the wall")
			}
			if got := len(p.Triangles()); got != 6 {
				t.Errorf("triangles = %d, want 6", got)
			}
			checkTopology(t, p, 8)
		})
	}
}

func TestTriangulateSplitContour(t *testing.T) {
	p := triangulated(t, rect(0, 0, 20, 10), rect(9, -1, 11, 11))

	if math.Abs(p.Area()-180) > 1e-6 {
		t.Fatalf("Area() = %v, want 180", p.Area())
	}
	if got := len(p.Triangles()); got != 4 {
		t.Errorf("triangles = %d, want 4", got)
	}
	if !p.Contains(orb.Point{2, 5}) || !p.Contains(orb.Point{18, 5}) || p.Contains(orb.Point{10, 5}) {
		t.Error("Contains() disagrees with the two halves")
	}
	checkTopology(t, p, 8)
}

func TestTriangulateChildOutsideContour(t *testing.T) {
	p := triangulated(t, rect(0, 0, 10, 10), rect(20, 20, 22, 22))

	if math.Abs(p.Area()-100) > 1e-6 {
		t.Fatalf("Area() = %v, want 100", p.Area())
	}
	checkTopology(t, p, 4)
}

func TestTriangulateCoveredContour(t *testing.T) {
	p, err := NewPolygon(rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AddChild(rect(-1, -1, 11, 11)); err != nil {
		t.Fatal(err)
	}

	if got := p.Area(); math.Abs(got) > 1e-9 {
		t.Errorf("Area() = %v, want 0", got)
	}
	if err := p.Triangulate(); !errors.Is(err, ErrEmptyArea) {
		t.Errorf("Triangulate() error = %v, want ErrEmptyArea", err)
	}
}

// Holes are scattered over a grid of cells, at most one per cell, so they never
// touch and the triangle count is fixed by the vertex and hole counts.
func TestTriangulateRandomHoles(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		contour := rect(0, 0, 40, 40)
		want := 1600.0
		vertices := len(contour)

		var holes []orb.Ring
		for cx := 0.0; cx < 40; cx += 10 {
			for cy := 0.0; cy < 40; cy += 10 {
				if rng.Float64() < 0.4 {
					continue
				}
				x0, y0 := cx+1+rng.Float64()*3, cy+1+rng.Float64()*3
				x1, y1 := cx+5+rng.Float64()*4, cy+5+rng.Float64()*4

				hole := rect(x0, y0, x1, y1)
				if rng.Float64() < 0.5 {
					hole = orb.Ring{{x0, y0}, {x1, y0}, {(x0 + x1) / 2, y1}}
				}
				holes = append(holes, hole)
				want -= math.Abs(geometry.SignedArea(hole))
				vertices += len(hole)
			}
		}

		p := triangulated(t, contour, holes...)
		if math.Abs(p.Area()-want) > 1e-6 {
			t.Fatalf("round %d: Area() = %v, want %v", round, p.Area(), want)
		}
		if got, wantTris := len(p.Triangles()), vertices+2*len(holes)-2; got != wantTris {
			t.Fatalf("round %d: triangles = %d, want %d", round, got, wantTris)
		}
		checkTopology(t, p, vertices)
	}
}

func TestUntriangulatedPolygonHasNoTopology(t *testing.T) {
	p, err := NewPolygon(rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Lines()) != 0 || len(p.Triangles()) != 0 || len(p.BoundaryLines()) != 0 {
		t.Error("untriangulated polygon reports lines or triangles")
	}
	if _, ok := p.TriangleAt(orb.Point{5, 5}); ok {
		t.Error("TriangleAt() found a triangle before Triangulate")
	}
	if !p.Contains(orb.Point{5, 5}) {
		t.Error("Contains() needs a triangulation")
	}
}

func TestNewPolygonRejectsDegenerateContour(t *testing.T) {
	if _, err := NewPolygon(orb.Ring{{0, 0}, {1, 0}, {2, 0}}); !errors.Is(err, ErrTooFewVertices) {
		t.Errorf("NewPolygon() error = %v, want ErrTooFewVertices", err)
	}
}

func TestTriangleAtAndContains(t *testing.T) {
	p := triangulated(t, rect(0, 0, 10, 10), rect(4, 4, 6, 6))

	if _, ok := p.TriangleAt(orb.Point{5, 5}); ok {
		t.Error("TriangleAt() found a triangle inside the hole")
	}
	if _, ok := p.TriangleAt(orb.Point{11, 5}); ok {
		t.Error("TriangleAt() found a triangle outside the contour")
	}

	tri, ok := p.TriangleAt(orb.Point{1, 2})
	if !ok {
		t.Fatal("TriangleAt() found no triangle for a walkable point")
	}
	if !tri.Contains(orb.Point{1, 2}) {
		t.Errorf("triangle %d does not contain the query point", tri.Index)
	}

	if !p.Contains(orb.Point{9, 9}) || p.Contains(orb.Point{5, 5}) {
		t.Error("Contains() disagrees with the walkable area")
	}
}

func TestContainsBeforeTriangulation(t *testing.T) {
	p, err := NewPolygon(rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AddChild(rect(4, 4, 6, 6)); err != nil {
		t.Fatal(err)
	}

	if !p.Contains(orb.Point{1, 1}) || p.Contains(orb.Point{5, 5}) {
		t.Error("Contains() disagrees with the walkable area")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	original, err := NewPolygon(rect(0, 0, 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	c := original.Copy()
	if err := c.AddChild(rect(4, 4, 6, 6)); err != nil {
		t.Fatal(err)
	}
	if err := c.Triangulate(); err != nil {
		t.Fatal(err)
	}

	if len(original.Children()) != 0 || original.IsTriangulated() {
		t.Error("changes to the copy leaked into the original")
	}

	again := c.Copy()
	if len(again.Triangles()) != len(c.Triangles()) || len(again.Lines()) != len(c.Lines()) {
		t.Error("copy of a triangulated polygon lost its triangulation")
	}
	if _, ok := again.TriangleAt(orb.Point{1, 1}); !ok {
		t.Error("copy of a triangulated polygon lost its point index")
	}
}

func TestFromTriangles(t *testing.T) {
	center := orb.Point{5, 5}
	p, err := FromTriangles([][3]orb.Point{
		{{0, 0}, {10, 0}, center},
		{{10, 0}, {10, 10}, center},
		{center, {10, 10}, {0, 10}}, // clockwise on purpose
		{{0, 10}, {0, 0}, center},
	})
	if err != nil {
		t.Fatalf("FromTriangles() error = %v", err)
	}

	if got := len(p.Lines()); got != 8 {
		t.Errorf("lines = %d, want 8", got)
	}
	interior := 0
	for _, line := range p.Lines() {
		if !p.IsBoundaryLine(line.Index) {
			interior++
		}
	}
	if interior != 4 {
		t.Errorf("interior lines = %d, want 4", interior)
	}
	if got := len(p.BoundaryLines()); got != 4 {
		t.Errorf("BoundaryLines() = %d, want 4", got)
	}
}

func TestFromTrianglesRejectsDegenerate(t *testing.T) {
	_, err := FromTriangles([][3]orb.Point{{{0, 0}, {1, 1}, {2, 2}}})
	if !errors.Is(err, ErrTriangulation) {
		t.Errorf("FromTriangles() error = %v, want ErrTriangulation", err)
	}
}
