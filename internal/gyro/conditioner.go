package gyro

import "math"

// Conditioner turns a raw, noisy angular-velocity signal into a clean
// one: an exponential moving average followed by a dead zone that
// silences sensor noise. One instance per recognizer; the smoothed
// value persists across ticks.
type Conditioner struct {
	// Smoothing is the per-tick blend factor in (0,1]. It is a plain
	// constant, not time-normalized: retune it if the tick rate changes.
	Smoothing float64
	// DeadZone is the amplitude (rad/s) below which the smoothed
	// signal is reported as zero.
	DeadZone float64

	smoothed float64
}

// NewConditioner returns a conditioner with the given blend factor and
// dead zone. The smoothed value starts at zero.
func NewConditioner(smoothing, deadZone float64) *Conditioner {
	return &Conditioner{Smoothing: smoothing, DeadZone: deadZone}
}

// Step feeds one raw sample and returns the conditioned value for this
// tick: the updated moving average, or 0 while it sits inside the dead
// zone.
func (c *Conditioner) Step(raw float64) float64 {
	c.smoothed = lerp(c.smoothed, raw, c.Smoothing)
	if math.Abs(c.smoothed) < c.DeadZone {
		return 0
	}
	return c.smoothed
}

// Reset snaps the moving average to the current raw reading. Called
// after any forced interruption of motion (collision, pause-resume) so
// the next Step does not see a large spurious delta.
func (c *Conditioner) Reset(raw float64) {
	c.smoothed = raw
}

// Smoothed returns the current moving average, dead zone not applied.
func (c *Conditioner) Smoothed() float64 {
	return c.smoothed
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
