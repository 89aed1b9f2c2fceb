package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trainer.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
# trainer deployment config
MQTT_BROKER=tcp://localhost:1883
DATA_DIR=/var/lib/gyro_trainer
TICK_INTERVAL=20
`

func TestLoadMinimalConfigUsesTuningDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "/var/lib/gyro_trainer", cfg.DataDir)
	assert.Equal(t, 20, cfg.TickInterval)
	assert.Equal(t, 0.02, cfg.TickSeconds())

	// Shipped tuning defaults.
	assert.Equal(t, 0.09, cfg.SmoothingAbAd)
	assert.Equal(t, 0.05, cfg.SmoothingFE)
	assert.Equal(t, 0.3, cfg.DeadZone)
	assert.Equal(t, 150, cfg.CooldownMS)
	assert.Equal(t, 2500, cfg.ReturnDelayMS)

	assert.Equal(t, "rehab/movement", cfg.TopicMovement)
	assert.Equal(t, "gyro-trainer", cfg.MQTTClientIDTrainer)
	assert.Equal(t, 8080, cfg.WebServerPort)
}

func TestLoadOverridesTuning(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
SMOOTHING_ABAD=0.2
DEAD_ZONE=0.5
COOLDOWN_MS=300
IMU_GYRO_RANGE=2
JOYCON_SERIAL_PORT=/dev/ttyUSB0
JOYCON_BAUD_RATE=115200
`))
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.SmoothingAbAd)
	assert.Equal(t, 0.5, cfg.DeadZone)
	assert.Equal(t, 300, cfg.CooldownMS)
	assert.Equal(t, byte(2), cfg.IMUGyroRange)
	assert.Equal(t, "/dev/ttyUSB0", cfg.JoyconSerialPort)
	assert.Equal(t, 115200, cfg.JoyconBaudRate)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"NO_SUCH_KEY=1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+"not a key value pair\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config line")
}

func TestLoadValidatesRanges(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"smoothing above one", "SMOOTHING_FE=1.5"},
		{"smoothing zero", "SMOOTHING_ABAD=0"},
		{"negative dead zone", "DEAD_ZONE=-0.1"},
		{"gyro range too high", "IMU_GYRO_RANGE=4"},
		{"negative cooldown", "COOLDOWN_MS=-1"},
		{"zero tick", "TICK_INTERVAL=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, minimalConfig+tt.line+"\n"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresBrokerAndDataDir(t *testing.T) {
	_, err := Load(writeConfig(t, "TICK_INTERVAL=20\nDATA_DIR=/tmp/x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT_BROKER is required")

	_, err = Load(writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\nTICK_INTERVAL=20\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_DIR is required")
}
