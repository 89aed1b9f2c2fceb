// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package gyro

import (
	"math"
	"time"
)

type mockSource struct {
	axis  string
	start time.Time
}

// NewMockSource creates a mock gyro source that generates a smooth
// oscillating angular velocity, strong enough to cross a 20° threshold
// every few seconds. Useful without a Joy-Con or IMU attached.
func NewMockSource(axis string) Source {
	return &mockSource{axis: axis, start: time.Now()}
}

func (m *mockSource) Next() (Sample, error) {
	elapsed := time.Since(m.start).Seconds()

	return Sample{
		Source: "mock",
		Axis:   m.axis,
		Omega:  1.5 * math.Sin(elapsed*0.8),
		Time:   time.Now().Format(time.RFC3339),
	}, nil
}
