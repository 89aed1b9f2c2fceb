package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDTrainer string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDIMU     string
	MQTTClientIDJoycon  string

	// Topics
	TopicGyroLeft  string
	TopicGyroRight string
	TopicMovement  string
	TopicLane      string
	TopicSession   string
	TopicReward    string
	TopicControl   string

	// Persistence
	DataDir string

	// Timing
	TickInterval int // milliseconds, fixed simulation step

	// Recognizer tuning. The smoothing factors are per-tick blend
	// constants: they must be retuned if TICK_INTERVAL changes.
	SmoothingAbAd float64
	SmoothingFE   float64
	DeadZone      float64 // rad/s
	CooldownMS    int     // minimum time between lane changes
	ReturnDelayMS int     // cave mode: delay before auto-return to center
	IdleAlertMS   int     // nudge the player after this much stillness

	// IMU Hardware
	IMUSPIDevice string
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	// Digital Low Pass Filter configuration (0-7)
	IMUDLPFConfig byte
	// Sample rate divider (output rate = internal rate / (1 + div))
	IMUSampleRateDiv byte

	// Joy-Con serial bridge
	JoyconSerialPort string
	JoyconBaudRate   int

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config pre-filled with the shipped recognizer
// tuning. Everything else must come from the config file.
func defaults() *Config {
	return &Config{
		MQTTClientIDTrainer: "gyro-trainer",
		MQTTClientIDConsole: "gyro-trainer-console",
		MQTTClientIDWeb:     "gyro-trainer-web",
		MQTTClientIDIMU:     "gyro-trainer-imu-producer",
		MQTTClientIDJoycon:  "gyro-trainer-joycon-producer",

		TopicGyroLeft:  "rehab/gyro/left",
		TopicGyroRight: "rehab/gyro/right",
		TopicMovement:  "rehab/movement",
		TopicLane:      "rehab/lane",
		TopicSession:   "rehab/session",
		TopicReward:    "rehab/reward",
		TopicControl:   "rehab/control",

		SmoothingAbAd: 0.09,
		SmoothingFE:   0.05,
		DeadZone:      0.3,
		CooldownMS:    150,
		ReturnDelayMS: 2500,
		IdleAlertMS:   6000,

		IMUSPIDevice: "/dev/spidev0.0",

		JoyconSerialPort: "/dev/serial0",
		JoyconBaudRate:   9600,

		WebServerPort: 8080,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRAINER":
		c.MQTTClientIDTrainer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_IMU":
		c.MQTTClientIDIMU = value
	case "MQTT_CLIENT_ID_JOYCON":
		c.MQTTClientIDJoycon = value

	// Topics
	case "TOPIC_GYRO_LEFT":
		c.TopicGyroLeft = value
	case "TOPIC_GYRO_RIGHT":
		c.TopicGyroRight = value
	case "TOPIC_MOVEMENT":
		c.TopicMovement = value
	case "TOPIC_LANE":
		c.TopicLane = value
	case "TOPIC_SESSION":
		c.TopicSession = value
	case "TOPIC_REWARD":
		c.TopicReward = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	// Persistence
	case "DATA_DIR":
		c.DataDir = value

	// Timing
	case "TICK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("TICK_INTERVAL must be positive, got %d", interval)
		}
		c.TickInterval = interval

	// Recognizer tuning
	case "SMOOTHING_ABAD":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_ABAD %q: %w", value, err)
		}
		if val <= 0 || val > 1 {
			return fmt.Errorf("SMOOTHING_ABAD must be in (0,1], got %g", val)
		}
		c.SmoothingAbAd = val
	case "SMOOTHING_FE":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_FE %q: %w", value, err)
		}
		if val <= 0 || val > 1 {
			return fmt.Errorf("SMOOTHING_FE must be in (0,1], got %g", val)
		}
		c.SmoothingFE = val
	case "DEAD_ZONE":
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DEAD_ZONE %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("DEAD_ZONE must be >= 0, got %g", val)
		}
		c.DeadZone = val
	case "COOLDOWN_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COOLDOWN_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("COOLDOWN_MS must be >= 0, got %d", val)
		}
		c.CooldownMS = val
	case "RETURN_DELAY_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RETURN_DELAY_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("RETURN_DELAY_MS must be >= 0, got %d", val)
		}
		c.ReturnDelayMS = val
	case "IDLE_ALERT_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IDLE_ALERT_MS %q: %w", value, err)
		}
		if val < 0 {
			return fmt.Errorf("IDLE_ALERT_MS must be >= 0, got %d", val)
		}
		c.IdleAlertMS = val

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)
	case "IMU_DLPF_CFG":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_DLPF_CFG %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("IMU_DLPF_CFG must be 0-7, got %d", val)
		}
		c.IMUDLPFConfig = byte(val)
	case "IMU_SMPLRT_DIV":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SMPLRT_DIV %q: %w", value, err)
		}
		if val < 0 || val > 255 {
			return fmt.Errorf("IMU_SMPLRT_DIV must be 0-255, got %d", val)
		}
		c.IMUSampleRateDiv = byte(val)

	// Joy-Con serial bridge
	case "JOYCON_SERIAL_PORT":
		c.JoyconSerialPort = value
	case "JOYCON_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid JOYCON_BAUD_RATE %q: %w", value, err)
		}
		c.JoyconBaudRate = rate

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.TickInterval == 0 {
		return fmt.Errorf("TICK_INTERVAL is required")
	}
	return nil
}

// TickSeconds returns the fixed simulation step as seconds.
func (c *Config) TickSeconds() float64 {
	return float64(c.TickInterval) / 1000.0
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
