// Package geom implements the axis-aligned bounding box collision test used by
// every moving entity in a room.
package geom

// Footprint half-sizes of moving entities.
const (
	// ActorHalf is the collision half-size of players and monsters when they move.
	ActorHalf = 16.0
	// LootHalf is the collision half-size of loot items.
	LootHalf = 8.0
)

// Body is the footprint of a moving entity: its center, its current vertical
// velocity, and a square half-extent.
type Body struct {
	X, Y float64
	VY   float64
	Half float64
}

// Left returns the left edge of b.
func (b Body) Left() float64 { return b.X - b.Half }

// Right returns the right edge of b.
func (b Body) Right() float64 { return b.X + b.Half }

// Top returns the top edge of b.
func (b Body) Top() float64 { return b.Y - b.Half }

// Bottom returns the bottom edge of b.
func (b Body) Bottom() float64 { return b.Y + b.Half }

// ShapeKind distinguishes static geometry from dynamic actors.
type ShapeKind int

const (
	// StaticObstacle is map geometry; it may be a one-way platform.
	StaticObstacle ShapeKind = iota
	// DynamicActor is a live entity (a monster) treated as a solid box.
	DynamicActor
)

// String returns the kind name.
func (k ShapeKind) String() string {
	switch k {
	case StaticObstacle:
		return "obstacle"
	case DynamicActor:
		return "actor"
	}
	return "unknown"
}

// Shape is a box something can collide with.
//
// Invariant: OneWay is false when Kind == DynamicActor.
type Shape struct {
	Kind         ShapeKind
	X, Y         float64
	HalfW, HalfH float64
	OneWay       bool
}

// Obstacle builds a StaticObstacle shape centered at (x, y).
func Obstacle(x, y, width, height float64, oneWay bool) Shape {
	return Shape{Kind: StaticObstacle, X: x, Y: y, HalfW: width / 2, HalfH: height / 2, OneWay: oneWay}
}

// Actor builds a DynamicActor shape centered at (x, y).
func Actor(x, y, width, height float64) Shape {
	return Shape{Kind: DynamicActor, X: x, Y: y, HalfW: width / 2, HalfH: height / 2}
}

// Left returns the left edge of s.
func (s Shape) Left() float64 { return s.X - s.HalfW }

// Right returns the right edge of s.
func (s Shape) Right() float64 { return s.X + s.HalfW }

// Top returns the top edge of s.
func (s Shape) Top() float64 { return s.Y - s.HalfH }

// Bottom returns the bottom edge of s.
func (s Shape) Bottom() float64 { return s.Y + s.HalfH }

// Collides reports whether b overlaps s.
//
// The overlap test uses strict inequalities, so boxes that only share an edge do
// not collide. A one-way shape only collides with a body that is not rising and
// whose bottom edge, before this step's vertical displacement, was at or above
// the shape's top edge.
//
// Postcondition: Collides is side-effect free.
func Collides(b Body, s Shape) bool {
	if s.OneWay && s.Kind == StaticObstacle {
		if b.VY < 0 {
			return false
		}
		if b.Bottom()-b.VY > s.Top() {
			return false
		}
	}
	return b.Right() > s.Left() &&
		b.Left() < s.Right() &&
		b.Bottom() > s.Top() &&
		b.Top() < s.Bottom()
}

// Penetration returns how far b would have to move along each axis to stop
// overlapping s, ignoring the one-way gate. Both values are zero or negative
// when the boxes do not overlap.
func Penetration(b Body, s Shape) (dx, dy float64) {
	dx = min(b.Right(), s.Right()) - max(b.Left(), s.Left())
	dy = min(b.Bottom(), s.Bottom()) - max(b.Top(), s.Top())
	return dx, dy
}

// WithinBox reports whether two centers are closer than reach on both axes.
func WithinBox(ax, ay, bx, by, reach float64) bool {
	return abs(ax-bx) < reach && abs(ay-by) < reach
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
