package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_trainer/internal/config"
	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/gyro"
)

// RunConsoleMQTT dumps the trainer's live MQTT traffic to stdout. It is
// the quickest way to watch a session from a second terminal.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to both gyro streams
	gyroHandler := func(tag string) mqtt.MessageHandler {
		return func(_ mqtt.Client, msg mqtt.Message) {
			var s gyro.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: gyro unmarshal error: %v", err)
				return
			}

			fmt.Printf(
				"[GYRO-%s] axis=%-6s omega=%8.4f rad/s  t=%s\n",
				tag, s.Axis, s.Omega, s.Time,
			)
		}
	}

	leftToken := client.Subscribe(cfg.TopicGyroLeft, 0, gyroHandler("L"))
	leftToken.Wait()
	if leftToken.Error() != nil {
		return leftToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGyroLeft)

	rightToken := client.Subscribe(cfg.TopicGyroRight, 0, gyroHandler("R"))
	rightToken.Wait()
	if rightToken.Error() != nil {
		return rightToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGyroRight)

	// Subscribe to committed movements
	movementToken := client.Subscribe(cfg.TopicMovement, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var mv gesture.Movement
		if err := json.Unmarshal(msg.Payload(), &mv); err != nil {
			log.Printf("console: movement unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[MOVE]  %-10s angle=%7.2f° threshold=%5.1f° lane=%d t=%.2fs\n",
			mv.Type, mv.Angle, mv.Threshold, mv.Lane, mv.Timestamp,
		)
	})
	movementToken.Wait()
	if movementToken.Error() != nil {
		return movementToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicMovement)

	// Subscribe to lane changes
	laneToken := client.Subscribe(cfg.TopicLane, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var l laneState
		if err := json.Unmarshal(msg.Payload(), &l); err != nil {
			log.Printf("console: lane unmarshal error: %v", err)
			return
		}

		fmt.Printf("[LANE]  lane=%d mode=%s\n", l.Lane, l.Mode)
	})
	laneToken.Wait()
	if laneToken.Error() != nil {
		return laneToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicLane)

	// Subscribe to session summaries
	sessionToken := client.Subscribe(cfg.TopicSession, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s sessionSummary
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: session unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[SESS]  user=%s mode=%s movements=%d rewards=%d\n",
			s.User, s.Mode, s.Movements, s.Rewards,
		)
	})
	sessionToken.Wait()
	if sessionToken.Error() != nil {
		return sessionToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSession)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
