package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/gyro_trainer/internal/gyro"
)

// GyroSource adapts one axis of an MPU9250 to the gyro.Source
// interface consumed by the recognizer and the producers.
type GyroSource struct {
	imu    *MPU9250
	axis   string // "Gyro X" or "Gyro Z"
	source string // "left" or "right"
}

// NewGyroSource wraps the IMU for the given axis label.
func NewGyroSource(imu *MPU9250, axis, source string) (*GyroSource, error) {
	if axis != "Gyro X" && axis != "Gyro Z" {
		return nil, fmt.Errorf("unsupported axis %q", axis)
	}
	return &GyroSource{imu: imu, axis: axis, source: source}, nil
}

// Next reads the current angular velocity on the configured axis.
func (g *GyroSource) Next() (gyro.Sample, error) {
	x, _, z, err := g.imu.ReadGyro()
	if err != nil {
		return gyro.Sample{}, err
	}
	omega := z
	if g.axis == "Gyro X" {
		omega = x
	}
	return gyro.Sample{
		Source: g.source,
		Axis:   g.axis,
		Omega:  omega,
		Time:   time.Now().Format(time.RFC3339),
	}, nil
}
