package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXYZW_Arithmetic(t *testing.T) {
	a := NewXYZW(1, 2, 3, 4)
	b := NewXYZW(0.5, 0.25, 2, -1)

	assert.Equal(t, NewXYZW(1.5, 2.25, 5, 3), a.Add(b))
	assert.Equal(t, NewXYZW(2, 4, 6, 8), a.Multiply(2))
	assert.Equal(t, NewXYZW(0.5, 0.5, 6, -4), a.MultiplyXYZW(b))
	assert.Equal(t, NewXYZW(2, 2.5, 7, 2), a.AddScaled(b, 2))
	assert.Equal(t, 2.0, a.Luminance())
}

func TestXYZW_IsZero(t *testing.T) {
	assert.True(t, XYZW{}.IsZero())
	assert.True(t, Splat(0).IsZero())
	assert.False(t, NewXYZW(0, 0, 0, 1e-300).IsZero())
}

func TestLogger_DefaultIsSilent(t *testing.T) {
	l := Logger()
	assert.NotNil(t, l)
	assert.False(t, l.Enabled(t.Context(), 0))

	SetLogger(nil)
	assert.NotNil(t, Logger())
}
