package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_IsPenUp(t *testing.T) {
	nan := float32(math.NaN())

	assert.True(t, Vec3{}.IsPenUp())
	assert.True(t, Vec3{X: 0.9, Y: -0.9, Z: 0.5}.IsPenUp())
	assert.False(t, Vec3{X: 1}.IsPenUp())
	assert.False(t, Vec3{X: nan}.IsPenUp())
	assert.False(t, Vec3{Y: float32(math.Inf(-1))}.IsPenUp())
}

func TestVec3_IsFinite(t *testing.T) {
	assert.True(t, Vec3{X: 1, Y: -2, Z: 3}.IsFinite())
	assert.False(t, Vec3{Z: float32(math.NaN())}.IsFinite())
	assert.False(t, Vec3{X: float32(math.Inf(1))}.IsFinite())
}
