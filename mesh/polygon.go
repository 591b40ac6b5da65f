package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"navgraph/geometry"
)

// NoLine marks an unused line slot in a triangle
const NoLine = -1

var (
	ErrTooFewVertices      = errors.New("ring needs at least 3 distinct vertices")
	ErrAlreadyTriangulated = errors.New("polygon is already triangulated")
	ErrEmptyArea           = errors.New("children cover the whole contour")
	ErrTriangulation       = errors.New("triangulation failed")
)

// Line is a unique edge of the triangulation
type Line struct {
	Index  int
	P1, P2 orb.Point
}

// Midpoint returns the point halfway along the line
func (l Line) Midpoint() orb.Point {
	return geometry.Midpoint(l.P1, l.P2)
}

// Triangle is one counter-clockwise triangle of the triangulation.
// Lines holds the indices of its three bounding lines.
type Triangle struct {
	Index      int
	P1, P2, P3 orb.Point
	Lines      [3]int
}

// Contains reports whether p lies inside the triangle or on its border
func (t Triangle) Contains(p orb.Point) bool {
	return geometry.Orientation(t.P1, t.P2, p) >= -geometry.Epsilon &&
		geometry.Orientation(t.P2, t.P3, p) >= -geometry.Epsilon &&
		geometry.Orientation(t.P3, t.P1, p) >= -geometry.Epsilon
}

// Area returns the triangle area
func (t Triangle) Area() float64 {
	return math.Abs(geometry.Orientation(t.P1, t.P2, t.P3)) / 2
}

// Ring returns the triangle outline
func (t Triangle) Ring() orb.Ring {
	return orb.Ring{t.P1, t.P2, t.P3}
}

// triangleEntry wraps a triangle for R-tree storage
type triangleEntry struct {
	index int
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *triangleEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// Polygon is a walkable contour with child shapes cut out of it.
// Children may overlap each other or cross the contour; only the part of the
// contour outside every child is walkable. Children must all be added before
// Triangulate is called.
type Polygon struct {
	contour  orb.Ring
	children []orb.Ring

	triangulated  bool
	lines         []Line
	triangles     []Triangle
	lineTriangles [][]int
	tree          *rtreego.Rtree
}

// NewPolygon creates a polygon from a contour ring in any orientation
func NewPolygon(contour orb.Ring) (*Polygon, error) {
	ring := geometry.EnsureCCW(geometry.NormalizeRing(contour))
	if isDegenerate(ring) {
		return nil, ErrTooFewVertices
	}
	return &Polygon{contour: ring}, nil
}

func isDegenerate(ring orb.Ring) bool {
	return len(ring) < 3 || math.Abs(geometry.SignedArea(ring)) <= geometry.Epsilon
}

// Copy returns an independent deep copy of the polygon
func (p *Polygon) Copy() *Polygon {
	c := &Polygon{
		contour:      p.contour.Clone(),
		children:     make([]orb.Ring, len(p.children)),
		triangulated: p.triangulated,
	}
	for i, child := range p.children {
		c.children[i] = child.Clone()
	}

	if p.triangulated {
		c.lines = append([]Line(nil), p.lines...)
		c.triangles = append([]Triangle(nil), p.triangles...)
		c.lineTriangles = make([][]int, len(p.lineTriangles))
		for i, tris := range p.lineTriangles {
			c.lineTriangles[i] = append([]int(nil), tris...)
		}
		c.buildIndex()
	}
	return c
}

// AddChild cuts a shape out of the walkable area
func (p *Polygon) AddChild(ring orb.Ring) error {
	if p.triangulated {
		return ErrAlreadyTriangulated
	}

	child := geometry.EnsureCW(geometry.NormalizeRing(ring))
	if isDegenerate(child) {
		return ErrTooFewVertices
	}

	p.children = append(p.children, child)
	return nil
}

// Contour returns the counter-clockwise outer ring
func (p *Polygon) Contour() orb.Ring {
	return p.contour
}

// Children returns the clockwise child rings
func (p *Polygon) Children() []orb.Ring {
	return p.children
}

// IsTriangulated reports whether Triangulate has completed
func (p *Polygon) IsTriangulated() bool {
	return p.triangulated
}

// Area returns the walkable area: the contour minus the union of its children
func (p *Polygon) Area() float64 {
	area := 0.0
	if p.triangulated {
		for _, t := range p.triangles {
			area += t.Area()
		}
		return area
	}

	for _, r := range walkableRegions(p.contour, p.children) {
		area += r.area()
	}
	return area
}

// Contains reports whether point lies in the walkable area
func (p *Polygon) Contains(point orb.Point) bool {
	if p.triangulated {
		_, ok := p.TriangleAt(point)
		return ok
	}

	if !planar.RingContains(p.contour, point) {
		return false
	}
	for _, child := range p.children {
		if planar.RingContains(child, point) {
			return false
		}
	}
	return true
}

// Triangulate splits the walkable area into triangles and derives the line topology
func (p *Polygon) Triangulate() error {
	if p.triangulated {
		return ErrAlreadyTriangulated
	}

	regions := walkableRegions(p.contour, p.children)
	if len(regions) == 0 {
		return ErrEmptyArea
	}

	var tris [][3]orb.Point
	for i, r := range regions {
		ring, err := bridgeHoles(r.outer, r.holes)
		if err != nil {
			return fmt.Errorf("failed to merge holes of region %d: %w", i, err)
		}

		regionTris, err := earClip(ring)
		if err != nil {
			return fmt.Errorf("failed to triangulate region %d: %w", i, err)
		}
		tris = append(tris, regionTris...)
	}

	p.buildTopology(tris)
	p.buildIndex()
	p.triangulated = true
	return nil
}

// buildTopology assigns stable line indices in triangle order
func (p *Polygon) buildTopology(tris [][3]orb.Point) {
	type lineKey struct{ a, b orb.Point }
	keyOf := func(a, b orb.Point) lineKey {
		if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
			a, b = b, a
		}
		return lineKey{a, b}
	}

	lineIndex := make(map[lineKey]int)
	p.lines = p.lines[:0]
	p.triangles = make([]Triangle, 0, len(tris))
	p.lineTriangles = p.lineTriangles[:0]

	for _, tri := range tris {
		t := Triangle{Index: len(p.triangles), P1: tri[0], P2: tri[1], P3: tri[2]}

		corners := [3]orb.Point{tri[0], tri[1], tri[2]}
		for i := 0; i < 3; i++ {
			a, b := corners[i], corners[(i+1)%3]
			key := keyOf(a, b)

			idx, ok := lineIndex[key]
			if !ok {
				idx = len(p.lines)
				lineIndex[key] = idx
				p.lines = append(p.lines, Line{Index: idx, P1: a, P2: b})
				p.lineTriangles = append(p.lineTriangles, nil)
			}

			t.Lines[i] = idx
			p.lineTriangles[idx] = append(p.lineTriangles[idx], t.Index)
		}

		p.triangles = append(p.triangles, t)
	}
}

func (p *Polygon) buildIndex() {
	p.tree = rtreego.NewTree(2, 25, 50)
	for _, t := range p.triangles {
		bound := t.Ring().Bound()
		width := math.Max(bound.Max[0]-bound.Min[0], geometry.Epsilon)
		height := math.Max(bound.Max[1]-bound.Min[1], geometry.Epsilon)

		rect, err := rtreego.NewRect(rtreego.Point{bound.Min[0], bound.Min[1]}, []float64{width, height})
		if err != nil {
			continue
		}
		p.tree.Insert(&triangleEntry{index: t.Index, bbox: rect})
	}
}

// Lines returns every line of the triangulation ordered by index,
// empty until Triangulate has run
func (p *Polygon) Lines() []Line {
	return p.lines
}

// Triangles returns every triangle of the triangulation ordered by index
func (p *Polygon) Triangles() []Triangle {
	return p.triangles
}

// TrianglesFromLineIndex returns the one or two triangles bordering a line
func (p *Polygon) TrianglesFromLineIndex(lineIdx int) []Triangle {
	if lineIdx < 0 || lineIdx >= len(p.lineTriangles) {
		return nil
	}

	tris := make([]Triangle, 0, len(p.lineTriangles[lineIdx]))
	for _, idx := range p.lineTriangles[lineIdx] {
		tris = append(tris, p.triangles[idx])
	}
	return tris
}

// IsBoundaryLine reports whether a line borders a single triangle
func (p *Polygon) IsBoundaryLine(lineIdx int) bool {
	return lineIdx >= 0 && lineIdx < len(p.lineTriangles) && len(p.lineTriangles[lineIdx]) == 1
}

// BoundaryLines returns the lines on the outline of the walkable area
func (p *Polygon) BoundaryLines() []Line {
	var boundary []Line
	for _, line := range p.lines {
		if p.IsBoundaryLine(line.Index) {
			boundary = append(boundary, line)
		}
	}
	return boundary
}

// TriangleAt returns the lowest indexed triangle containing point.
// An untriangulated polygon has no triangles.
func (p *Polygon) TriangleAt(point orb.Point) (Triangle, bool) {
	if !p.triangulated {
		return Triangle{}, false
	}

	rect, err := rtreego.NewRect(
		rtreego.Point{point[0] - geometry.Epsilon, point[1] - geometry.Epsilon},
		[]float64{2 * geometry.Epsilon, 2 * geometry.Epsilon},
	)
	if err != nil {
		return Triangle{}, false
	}

	best := -1
	for _, item := range p.tree.SearchIntersect(rect) {
		idx := item.(*triangleEntry).index
		if p.triangles[idx].Contains(point) && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return Triangle{}, false
	}
	return p.triangles[best], true
}

// FromTriangles builds an already triangulated polygon from explicit triangles,
// for meshes produced by an external tool. Triangles are reoriented
// counter-clockwise and the contour is the convex hull of all corners.
func FromTriangles(triangles [][3]orb.Point) (*Polygon, error) {
	if len(triangles) == 0 {
		return nil, ErrTooFewVertices
	}

	tris := make([][3]orb.Point, 0, len(triangles))
	corners := make([]orb.Point, 0, 3*len(triangles))
	for i, tri := range triangles {
		orientation := geometry.Orientation(tri[0], tri[1], tri[2])
		switch {
		case math.Abs(orientation) <= geometry.Epsilon:
			return nil, fmt.Errorf("%w: triangle %d is degenerate", ErrTriangulation, i)
		case orientation < 0:
			tri[1], tri[2] = tri[2], tri[1]
		}
		tris = append(tris, tri)
		corners = append(corners, tri[0], tri[1], tri[2])
	}

	p := &Polygon{contour: geometry.ConvexHull(corners)}
	p.buildTopology(tris)
	p.buildIndex()
	p.triangulated = true
	return p, nil
}
