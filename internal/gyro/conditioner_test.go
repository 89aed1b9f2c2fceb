package gyro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionerStepBlendsTowardRaw(t *testing.T) {
	c := NewConditioner(0.5, 0)

	got := c.Step(1.0)
	assert.InDelta(t, 0.5, got, 1e-9)

	got = c.Step(1.0)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestConditionerDeadZoneSilencesSmallSignal(t *testing.T) {
	c := NewConditioner(1.0, 0.3)

	assert.Zero(t, c.Step(0.29))
	// The moving average keeps updating even while silenced.
	assert.InDelta(t, 0.29, c.Smoothed(), 1e-9)

	assert.InDelta(t, 0.31, c.Step(0.31), 1e-9)
}

func TestConditionerDeadZoneIsSymmetric(t *testing.T) {
	c := NewConditioner(1.0, 0.3)

	assert.Zero(t, c.Step(-0.2))
	assert.InDelta(t, -0.5, c.Step(-0.5), 1e-9)
}

func TestConditionerReset(t *testing.T) {
	c := NewConditioner(0.09, 0.3)
	for i := 0; i < 50; i++ {
		c.Step(2.0)
	}

	c.Reset(0.1)
	assert.InDelta(t, 0.1, c.Smoothed(), 1e-9)
	// First step after reset blends from the reset point, not from the
	// old average, so no spurious jump.
	assert.Zero(t, c.Step(0.1))
}
