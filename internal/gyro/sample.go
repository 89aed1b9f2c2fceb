package gyro

// Sample represents a single angular-velocity reading on one axis.
type Sample struct {
	Source string `json:"source"` // "left" or "right" Joy-Con
	Axis   string `json:"axis"`   // "Gyro X" or "Gyro Z"

	Omega float64 `json:"omega_rad_s"` // rad/s
	Time  string  `json:"time"`        // RFC3339, set by the producer
}

// Source is anything that can provide gyro samples over time:
// mock source, MQTT subscriber, serial Joy-Con bridge, real IMU.
type Source interface {
	Next() (Sample, error)
}
