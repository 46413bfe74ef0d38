package geom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/geom"
)

func TestCollides_SolidOverlap(t *testing.T) {
	wall := geom.Obstacle(100, 100, 32, 32, false)
	assert.True(t, geom.Collides(geom.Body{X: 90, Y: 100, Half: 16}, wall))
	assert.False(t, geom.Collides(geom.Body{X: 50, Y: 100, Half: 16}, wall))
}

func TestCollides_TouchingEdgesDoNotCollide(t *testing.T) {
	wall := geom.Obstacle(100, 100, 32, 32, false)
	// right edge of body == left edge of wall
	assert.False(t, geom.Collides(geom.Body{X: 68, Y: 100, Half: 16}, wall))
	// bottom edge of body == top edge of wall
	assert.False(t, geom.Collides(geom.Body{X: 100, Y: 68, Half: 16}, wall))
}

func TestCollides_OneWayHorizontalPassThrough(t *testing.T) {
	platform := geom.Obstacle(100, 100, 32, 32, true)
	// Same height, walking sideways into it while standing still vertically:
	// the bottom edge is below the platform top, so no collision.
	assert.False(t, geom.Collides(geom.Body{X: 90, Y: 100, VY: 0, Half: 16}, platform))
	// Rising through it from below.
	assert.False(t, geom.Collides(geom.Body{X: 100, Y: 110, VY: -6, Half: 16}, platform))
}

func TestCollides_OneWayLandingFromAbove(t *testing.T) {
	platform := geom.Obstacle(100, 100, 32, 32, true)
	// Top of platform is 84. Body bottom moved from 82 to 86 this step.
	body := geom.Body{X: 100, Y: 70, VY: 4, Half: 16}
	assert.True(t, geom.Collides(body, platform))
}

func TestCollides_ActorIgnoresOneWayGate(t *testing.T) {
	monster := geom.Actor(100, 100, 50, 50)
	assert.True(t, geom.Collides(geom.Body{X: 100, Y: 110, VY: -6, Half: 16}, monster))
}

func TestPenetration(t *testing.T) {
	wall := geom.Obstacle(100, 100, 32, 32, false)
	dx, dy := geom.Penetration(geom.Body{X: 90, Y: 95, Half: 16}, wall)
	assert.InDelta(t, 22.0, dx, 1e-9)
	assert.InDelta(t, 27.0, dy, 1e-9)
}

func TestWithinBox(t *testing.T) {
	assert.True(t, geom.WithinBox(0, 0, 63.9, -63.9, 64))
	assert.False(t, geom.WithinBox(0, 0, 64, 0, 64))
}

// Property: solid collision is symmetric under swapping two equal-sized boxes.
func TestPropertySolidCollisionSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ax := rapid.Float64Range(-500, 500).Draw(t, "ax")
		ay := rapid.Float64Range(-500, 500).Draw(t, "ay")
		bx := rapid.Float64Range(-500, 500).Draw(t, "bx")
		by := rapid.Float64Range(-500, 500).Draw(t, "by")
		ab := geom.Collides(geom.Body{X: ax, Y: ay, Half: 16}, geom.Obstacle(bx, by, 32, 32, false))
		ba := geom.Collides(geom.Body{X: bx, Y: by, Half: 16}, geom.Obstacle(ax, ay, 32, 32, false))
		if ab != ba {
			t.Fatalf("asymmetric collision: (%v,%v) vs (%v,%v)", ax, ay, bx, by)
		}
	})
}

// Property: a rising body never collides with a one-way platform.
func TestPropertyRisingNeverHitsOneWay(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float64Range(-100, 100).Draw(t, "x")
		y := rapid.Float64Range(-100, 100).Draw(t, "y")
		vy := rapid.Float64Range(-20, -0.0001).Draw(t, "vy")
		if geom.Collides(geom.Body{X: x, Y: y, VY: vy, Half: 16}, geom.Obstacle(0, 0, 32, 32, true)) {
			t.Fatalf("rising body at (%v,%v) vy=%v collided with one-way platform", x, y, vy)
		}
	})
}

// Property: a one-way platform never blocks more than the equivalent solid obstacle.
func TestPropertyOneWaySubsetOfSolid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := geom.Body{
			X:    rapid.Float64Range(-60, 60).Draw(t, "x"),
			Y:    rapid.Float64Range(-60, 60).Draw(t, "y"),
			VY:   rapid.Float64Range(-15, 15).Draw(t, "vy"),
			Half: 16,
		}
		if geom.Collides(b, geom.Obstacle(0, 0, 32, 32, true)) && !geom.Collides(b, geom.Obstacle(0, 0, 32, 32, false)) {
			t.Fatalf("one-way collided where solid did not: %+v", b)
		}
	})
}
