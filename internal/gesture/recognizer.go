// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package gesture

import (
	"math"

	"github.com/relabs-tech/gyro_trainer/internal/gyro"
)

const radToDeg = 180.0 / math.Pi

// Mode identifies which wrist exercise a recognizer is tracking.
type Mode int

const (
	// AbductionAdduction is the road mode: lateral wrist movement on
	// gyro Z, free lane-to-lane changes.
	AbductionAdduction Mode = iota
	// FlexionExtension is the cave mode: vertical wrist movement on
	// gyro X, center-gated with automatic return.
	FlexionExtension
)

// String returns the mode name used in logs and MQTT payloads.
func (m Mode) String() string {
	if m == FlexionExtension {
		return "flexion-extension"
	}
	return "abduction-adduction"
}

// Axis returns the gyroscope axis label recorded for this mode.
func (m Mode) Axis() string {
	if m == FlexionExtension {
		return "Gyro X"
	}
	return "Gyro Z"
}

// Movement is a single committed gesture. Immutable once emitted; the
// session recorder appends it to the current session in arrival order.
type Movement struct {
	Mode      Mode    `json:"mode"`
	Type      string  `json:"movementType"`
	Angle     float64 `json:"angle"`     // accumulated degrees at emission
	Threshold float64 `json:"threshold"` // threshold in force at emission
	Timestamp float64 `json:"timeStamp"` // seconds since session start
	Lane      int     `json:"lane"`      // lane after the transition
}

// Options configures a Recognizer.
type Options struct {
	Mode Mode

	// Threshold returns the rotation threshold in degrees. It is
	// consulted every tick, so a settings change takes effect even
	// mid-accumulation.
	Threshold func() float64

	// Cooldown is the minimum time in seconds between two committed
	// gestures. Zero disables it.
	Cooldown float64

	// LeftJoycon selects controller handedness. It flips the movement
	// labels in road mode and the sign of the input in cave mode.
	LeftJoycon bool

	// CenterGated enables the cave behavior: gestures are only
	// accepted from the center lane, a committed gesture jumps
	// directly to lane 0 or 2, and the recognizer schedules a return
	// to center after ReturnDelay seconds.
	CenterGated bool

	// ReturnDelay is the time in seconds before a center-gated
	// recognizer returns to the center lane. Ignored otherwise.
	ReturnDelay float64

	// Smoothing and DeadZone configure the signal conditioner.
	Smoothing float64
	DeadZone  float64
}

// Recognizer integrates conditioned angular velocity into an
// accumulated angle and emits a Movement each time the accumulated
// rotation crosses the configured threshold. A gesture that decays back
// into the dead zone before crossing is discarded, and a cooldown
// suppresses accumulation entirely for a short time after each commit.
type Recognizer struct {
	opts Options
	cond *gyro.Conditioner

	accumulated   float64
	accumulating  bool
	lane          int
	lastEventTime float64

	returnDue float64 // center-gated: when to snap back to lane 1
	idle      float64

	// OnMovement, when set, is called synchronously for every emitted
	// movement, in addition to the Tick return value.
	OnMovement func(Movement)
}

// NewRecognizer builds a recognizer starting at the center lane.
func NewRecognizer(opts Options) *Recognizer {
	if opts.Threshold == nil {
		panic("gesture: Options.Threshold is required")
	}
	return &Recognizer{
		opts:          opts,
		cond:          gyro.NewConditioner(opts.Smoothing, opts.DeadZone),
		lane:          1,
		lastEventTime: math.Inf(-1),
		returnDue:     math.Inf(1),
	}
}

// Lane returns the current lane (0, 1 or 2; 1 is center).
func (r *Recognizer) Lane() int {
	return r.lane
}

// IdleSeconds returns how long the conditioned signal has been
// continuously inside the dead zone without a committed gesture.
func (r *Recognizer) IdleSeconds() float64 {
	return r.idle
}

// ResetMovementState discards any in-flight accumulation. Called by the
// game layer on collisions and pauses.
func (r *Recognizer) ResetMovementState() {
	r.accumulated = 0
	r.accumulating = false
}

// ResetGyro snaps the conditioner to the current raw reading so the
// next tick does not integrate a stale delta. Called on pause-resume.
func (r *Recognizer) ResetGyro(raw float64) {
	r.cond.Reset(raw)
}

// SetLeftJoycon switches controller handedness at runtime.
func (r *Recognizer) SetLeftJoycon(left bool) {
	r.opts.LeftJoycon = left
}

// Tick advances the state machine by one fixed simulation step. raw is
// the angular velocity in rad/s, now the session clock in seconds, dt
// the tick length in seconds. It returns the committed movement for
// this tick, or nil.
func (r *Recognizer) Tick(raw, now, dt float64) *Movement {
	if r.opts.CenterGated {
		if r.opts.LeftJoycon {
			raw = -raw
		}
		if r.lane != 1 {
			if now >= r.returnDue {
				r.returnToCenter()
			}
			// Off-center: the gesture input is ignored until the
			// scheduled return completes.
			r.cond.Step(raw)
			return nil
		}
	}

	// The conditioner keeps tracking the signal every tick, cooldown
	// included, so the moving average never goes stale.
	c := r.cond.Step(raw)

	if now-r.lastEventTime <= r.opts.Cooldown {
		r.accumulated = 0
		r.accumulating = false
		return nil
	}

	if !r.accumulating && math.Abs(c) > r.opts.DeadZone {
		r.accumulating = true
	}
	if !r.accumulating {
		r.idle += dt
		return nil
	}

	r.accumulated += c * radToDeg * dt

	threshold := r.opts.Threshold()
	if math.Abs(r.accumulated) >= threshold {
		mv := r.commit(now, threshold)
		r.accumulated = 0
		r.accumulating = false
		if mv != nil {
			r.idle = 0
			if r.OnMovement != nil {
				r.OnMovement(*mv)
			}
		}
		return mv
	}

	// Back in the dead zone before reaching the threshold: the gesture
	// decayed, discard it rather than credit a partial movement.
	if math.Abs(c) < r.opts.DeadZone {
		r.accumulated = 0
		r.accumulating = false
		r.idle += dt
	}
	return nil
}

// commit resolves the lane transition for a completed gesture. A
// gesture against a lane boundary is swallowed: accumulation resets but
// no movement is emitted and the lane does not change.
func (r *Recognizer) commit(now, threshold float64) *Movement {
	positive := r.accumulated > 0

	if r.opts.CenterGated {
		if positive {
			r.lane = 0
		} else {
			r.lane = 2
		}
		r.returnDue = now + r.opts.ReturnDelay
	} else {
		switch {
		case positive && r.lane < 2:
			r.lane++
		case !positive && r.lane > 0:
			r.lane--
		default:
			return nil
		}
	}

	r.lastEventTime = now
	return &Movement{
		Mode:      r.opts.Mode,
		Type:      r.label(positive),
		Angle:     r.accumulated,
		Threshold: threshold,
		Timestamp: now,
		Lane:      r.lane,
	}
}

// returnToCenter completes the scheduled snap back to the center lane.
// The return itself is not a gesture and emits nothing.
func (r *Recognizer) returnToCenter() {
	r.lane = 1
	r.returnDue = math.Inf(1)
	r.accumulated = 0
	r.accumulating = false
	r.cond.Reset(0)
}

// label classifies a committed gesture. The labels are the clinical
// terms stored in the session files; road mode flips them with
// handedness because the same physical abduction rotates the opposite
// way on the left wrist.
func (r *Recognizer) label(positive bool) string {
	if r.opts.Mode == FlexionExtension {
		if positive {
			return "Extensión"
		}
		return "Flexión"
	}
	if positive == r.opts.LeftJoycon {
		return "Aducción"
	}
	return "Abducción"
}
