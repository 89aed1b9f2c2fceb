package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_trainer/internal/config"
	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/sensors"
)

// IMUProducerOptions selects which controller side this producer feeds
// and which exercise axis it samples.
type IMUProducerOptions struct {
	Left             bool
	FlexionExtension bool
}

// RunIMUProducer reads angular velocity from an SPI-attached MPU-9250
// and publishes one sample per tick to the side's gyro topic. The
// trainer consumes the stream through its MQTT gyro source.
func RunIMUProducer(opts IMUProducerOptions) error {
	log.Println("starting gyro-trainer IMU producer")

	cfg := config.Get()

	mode := gesture.AbductionAdduction
	if opts.FlexionExtension {
		mode = gesture.FlexionExtension
	}

	side := "right"
	topic := cfg.TopicGyroRight
	if opts.Left {
		side = "left"
		topic = cfg.TopicGyroLeft
	}

	// --- Initialize the IMU ---
	imu, err := sensors.NewMPU9250(cfg.IMUSPIDevice, cfg.IMUGyroRange, cfg.IMUDLPFConfig, cfg.IMUSampleRateDiv)
	if err != nil {
		return err
	}
	defer imu.Close()
	log.Printf("MPU-9250 ready on %s", cfg.IMUSPIDevice)

	src, err := sensors.NewGyroSource(imu, mode.Axis(), side)
	if err != nil {
		return err
	}

	// --- connect to MQTT ---
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDIMU + "-" + side)

	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Printf("connected to MQTT, publishing %s to %s", mode.Axis(), topic)

	// main tick
	ticker := time.NewTicker(time.Duration(cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("IMU read error: %v", err)
			continue
		}

		payload, err := json.Marshal(sample)
		if err != nil {
			log.Printf("sample marshal error: %v", err)
			continue
		}
		if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", topic, token.Error())
		}
	}
	return nil
}
