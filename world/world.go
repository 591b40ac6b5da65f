package world

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"navgraph/geometry"
)

// Flags classifies shapes for world queries
type Flags uint32

const (
	// NavigationCollider marks shapes that are carved out of the navigation mesh
	NavigationCollider Flags = 1 << iota
	// Trigger marks sensor shapes that do not block movement
	Trigger
)

// minExtent keeps degenerate bounding boxes valid for the R-tree
const minExtent = 1e-6

// Shape is a polygonal collider registered in the world
type Shape struct {
	ID     int
	Ring   orb.Ring
	Flags  Flags
	Static bool
}

// HasFlags reports whether the shape carries every bit in flags
func (s Shape) HasFlags(flags Flags) bool {
	return s.Flags&flags == flags
}

// shapeEntry wraps a shape for R-tree storage
type shapeEntry struct {
	shape Shape
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *shapeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// World stores the collision shapes of a scene and answers shape queries
type World struct {
	tree    *rtreego.Rtree
	entries []*shapeEntry
}

// New creates an empty world
func New() *World {
	return &World{
		tree: rtreego.NewTree(2, 25, 50), // 2D, min 25, max 50 entries per node
	}
}

// AddStaticShape registers a static shape and returns its id
func (w *World) AddStaticShape(ring orb.Ring, flags Flags) int {
	return w.addShape(ring, flags, true)
}

// AddDynamicShape registers a moving shape and returns its id.
// Dynamic shapes never take part in navigation mesh construction.
func (w *World) AddDynamicShape(ring orb.Ring, flags Flags) int {
	return w.addShape(ring, flags, false)
}

func (w *World) addShape(ring orb.Ring, flags Flags, static bool) int {
	entry := &shapeEntry{
		shape: Shape{
			ID:     len(w.entries),
			Ring:   geometry.OpenRing(ring),
			Flags:  flags,
			Static: static,
		},
		bbox: boundToRect(ring.Bound()),
	}
	w.entries = append(w.entries, entry)
	w.tree.Insert(entry)
	return entry.shape.ID
}

// ShapeCount returns the number of registered shapes
func (w *World) ShapeCount() int {
	return len(w.entries)
}

// StaticShapes returns all static shapes carrying flags, in insertion order
func (w *World) StaticShapes(flags Flags) []Shape {
	shapes := make([]Shape, 0, len(w.entries))
	for _, entry := range w.entries {
		if entry.shape.Static && entry.shape.HasFlags(flags) {
			shapes = append(shapes, entry.shape)
		}
	}
	return shapes
}

// StaticShapesInRegion returns the static shapes carrying flags whose bounding
// box intersects region, in insertion order
func (w *World) StaticShapesInRegion(region orb.Bound, flags Flags) []Shape {
	results := w.tree.SearchIntersect(boundToRect(region))

	shapes := make([]Shape, 0, len(results))
	for _, item := range results {
		entry := item.(*shapeEntry)
		if entry.shape.Static && entry.shape.HasFlags(flags) {
			shapes = append(shapes, entry.shape)
		}
	}

	// The tree returns entries in node order, callers expect registration order
	sortShapesByID(shapes)
	return shapes
}

func sortShapesByID(shapes []Shape) {
	sort.Slice(shapes, func(i, j int) bool { return shapes[i].ID < shapes[j].ID })
}

// NewBoxShape returns the ring of an axis-aligned box centered on center
func NewBoxShape(center orb.Point, width, height float64) orb.Ring {
	hw, hh := width/2, height/2
	return orb.Ring{
		{center[0] - hw, center[1] - hh},
		{center[0] + hw, center[1] - hh},
		{center[0] + hw, center[1] + hh},
		{center[0] - hw, center[1] + hh},
	}
}

// NewCircleShape returns a polygon with the given number of segments that
// circumscribes the circle, so the polygon never cuts into the circle.
func NewCircleShape(center orb.Point, radius float64, segments int) orb.Ring {
	if segments < 3 {
		segments = 3
	}

	outer := radius / math.Cos(math.Pi/float64(segments))
	ring := make(orb.Ring, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		ring[i] = orb.Point{center[0] + outer*math.Cos(angle), center[1] + outer*math.Sin(angle)}
	}
	return ring
}

// boundToRect converts an orb bound into an R-tree rectangle
func boundToRect(b orb.Bound) rtreego.Rect {
	width := math.Max(b.Max[0]-b.Min[0], minExtent)
	height := math.Max(b.Max[1]-b.Min[1], minExtent)

	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{width, height})
	if err != nil {
		// Lengths are clamped positive above, so this only happens on NaN input
		return rtreego.Rect{}
	}
	return rect
}
