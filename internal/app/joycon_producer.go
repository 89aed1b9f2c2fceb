package app

import (
	"bufio"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gyro_trainer/internal/config"
	"github.com/relabs-tech/gyro_trainer/internal/gyro"
)

// RunJoyconProducer reads the serial Joy-Con bridge and republishes its
// angular-velocity stream to the per-side gyro topics.
//
// The bridge prints one CSV line per reading:
//
//	<side>,<gx>,<gy>,<gz>
//
// where side is "L" or "R" and the rates are rad/s. Malformed lines are
// skipped; the bridge restarts mid-line after a reconnect.
func RunJoyconProducer() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDJoycon)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Joy-Con producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open the bridge serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.JoyconSerialPort,
		BaudRate:              uint(cfg.JoyconBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("Joy-Con serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	reader := bufio.NewReader(port)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Joy-Con read error: %v", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			continue
		}

		side := strings.ToUpper(strings.TrimSpace(fields[0]))
		var source, topic string
		switch side {
		case "L":
			source, topic = "left", cfg.TopicGyroLeft
		case "R":
			source, topic = "right", cfg.TopicGyroRight
		default:
			continue
		}

		rates := make([]float64, 3)
		bad := false
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				bad = true
				break
			}
			rates[i] = v
		}
		if bad {
			continue
		}

		now := time.Now().Format(time.RFC3339)
		for axis, omega := range map[string]float64{"Gyro X": rates[0], "Gyro Z": rates[2]} {
			sample := gyro.Sample{
				Source: source,
				Axis:   axis,
				Omega:  omega,
				Time:   now,
			}

			payload, err := json.Marshal(sample)
			if err != nil {
				log.Printf("Joy-Con JSON marshal error: %v", err)
				continue
			}

			token := client.Publish(topic, 0, false, payload)
			token.Wait()
			if token.Error() != nil {
				log.Printf("Joy-Con publish error: %v", token.Error())
			}
		}
	}
}
