package movement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teacon/eldbook/record"
)

func TestTracker_SameSectionIsSilent(t *testing.T) {
	tr := NewTracker(record.Vec3{X: 10, Y: 64, Z: 10})

	_, _, crossed := tr.Update(record.Vec3{X: 15, Y: 64, Z: 10})
	assert.False(t, crossed)
	assert.Equal(t, record.Vec3{X: 15, Y: 64, Z: 10}, tr.Position())
	assert.Equal(t, record.Section{X: 0, Y: 4, Z: 0}, tr.Section())
}

func TestTracker_Crossing(t *testing.T) {
	tr := NewTracker(record.Vec3{X: 10, Y: 64, Z: 10})
	tr.Update(record.Vec3{X: 15, Y: 64, Z: 10})

	from, to, crossed := tr.Update(record.Vec3{X: 16, Y: 64, Z: 10})
	assert.True(t, crossed)
	assert.Equal(t, record.Vec3{X: 15, Y: 64, Z: 10}, from)
	assert.Equal(t, record.Vec3{X: 16, Y: 64, Z: 10}, to)
	assert.Equal(t, 0, record.SectionOf(from).X)
	assert.Equal(t, 1, record.SectionOf(to).X)
	assert.Equal(t, record.Section{X: 1, Y: 4, Z: 0}, tr.Section())

	// Following moves compare against the new section.
	_, _, crossed = tr.Update(record.Vec3{X: 31.9, Y: 64, Z: 10})
	assert.False(t, crossed)
}

func TestTracker_NegativeCoordinates(t *testing.T) {
	tr := NewTracker(record.Vec3{X: 0.5, Y: 64, Z: 0})

	from, to, crossed := tr.Update(record.Vec3{X: -0.5, Y: 64, Z: 0})
	assert.True(t, crossed)
	assert.Equal(t, 0.5, from.X)
	assert.Equal(t, -0.5, to.X)
	assert.Equal(t, -1, tr.Section().X)

	_, _, crossed = tr.Update(record.Vec3{X: -16, Y: 64, Z: 0})
	assert.False(t, crossed)
	_, _, crossed = tr.Update(record.Vec3{X: -16.01, Y: 64, Z: 0})
	assert.True(t, crossed)
	assert.Equal(t, -2, tr.Section().X)
}

func TestTracker_VerticalAndDepth(t *testing.T) {
	tr := NewTracker(record.Vec3{X: 1, Y: 63.9, Z: 1})
	_, _, crossed := tr.Update(record.Vec3{X: 1, Y: 64, Z: 1})
	assert.True(t, crossed)
	_, _, crossed = tr.Update(record.Vec3{X: 1, Y: 64, Z: 16})
	assert.True(t, crossed)
}

func TestTracker_NaNStaysInOrigin(t *testing.T) {
	tr := NewTracker(record.Vec3{X: 1, Y: 1, Z: 1})
	_, _, crossed := tr.Update(record.Vec3{X: math.NaN(), Y: 1, Z: 1})
	assert.False(t, crossed)
}
