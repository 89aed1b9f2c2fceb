// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package app

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_trainer/internal/config"
	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/gyro"
	"github.com/relabs-tech/gyro_trainer/internal/session"
	"github.com/relabs-tech/gyro_trainer/internal/store"
)

// TrainerOptions selects the session parameters that are not part of
// the deployment config: who plays, which exercise, and whether to run
// against the mock gyro source.
type TrainerOptions struct {
	User             string
	FlexionExtension bool
	Mock             bool
}

// laneState is the retained MQTT payload describing the player lane.
type laneState struct {
	Lane int    `json:"lane"`
	Mode string `json:"mode"`
}

// sessionSummary is published once per saved session.
type sessionSummary struct {
	User      string `json:"user"`
	Mode      string `json:"mode"`
	Movements int    `json:"movements"`
	Rewards   int    `json:"rewards"`
}

// RunTrainer wires the whole pipeline and drives it with a fixed
// simulation tick: gyro source -> conditioner -> recognizer ->
// session recorder, with movement events mirrored to MQTT. This is the
// composition root; every component is constructed and owned here.
func RunTrainer(opts TrainerOptions) error {
	log.Printf("starting gyro-trainer session for user %q", opts.User)

	cfg := config.Get()

	// --- Persistence and session recording ---
	st, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := st.AddUser(opts.User); err != nil {
		return err
	}

	recorder := session.NewRecorder(st)
	if err := recorder.SetUser(opts.User); err != nil {
		return err
	}

	// Load settings after SetUser: the login just refreshed the high
	// scores and characters from the user's latest history file.
	game, err := st.LoadGameData()
	if err != nil {
		return err
	}

	mode := gesture.AbductionAdduction
	smoothing := cfg.SmoothingAbAd
	threshold := game.ThresholdAngleAbAd
	if opts.FlexionExtension {
		mode = gesture.FlexionExtension
		smoothing = cfg.SmoothingFE
		threshold = game.ThresholdAngleFE
	}

	rec := gesture.NewRecognizer(gesture.Options{
		Mode:        mode,
		Threshold:   func() float64 { return threshold },
		Cooldown:    float64(cfg.CooldownMS) / 1000.0,
		LeftJoycon:  game.IsLeftJoyCon,
		CenterGated: opts.FlexionExtension,
		ReturnDelay: float64(cfg.ReturnDelayMS) / 1000.0,
		Smoothing:   smoothing,
		DeadZone:    cfg.DeadZone,
	})

	// --- MQTT ---
	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDTrainer)

	client := mqtt.NewClient(mqttOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	// --- Gyro source ---
	var src gyro.Source
	if opts.Mock {
		log.Println("using mock gyro source")
		src = gyro.NewMockSource(mode.Axis())
	} else {
		topic := cfg.TopicGyroRight
		if game.IsLeftJoyCon {
			topic = cfg.TopicGyroLeft
		}
		src, err = newMQTTSource(client, topic, mode.Axis())
		if err != nil {
			return err
		}
	}

	recorder.SetSessionInfo(mode, threshold, mode.Axis(), float64(game.GameTime), game.IsLeftJoyCon)
	recorder.ResetTimer(mode)

	rec.OnMovement = func(mv gesture.Movement) {
		recorder.Record(mv)
		log.Printf("[MOVEMENT] %s | accumulated %.2f° | threshold %.0f° | lane %d",
			mv.Type, mv.Angle, mv.Threshold, mv.Lane)
		if payload, err := json.Marshal(mv); err != nil {
			log.Printf("movement marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicMovement, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (movement): %v", token.Error())
		}
		publishLane(client, cfg.TopicLane, mv.Lane, mode)
	}

	// The game layer reports collected rewards and control commands
	// over MQTT. Both are funneled into channels so every state
	// mutation still happens on the tick goroutine.
	rewardCh := make(chan int, 8)
	token := client.Subscribe(cfg.TopicReward, 0, func(_ mqtt.Client, msg mqtt.Message) {
		n, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
		if err != nil {
			log.Printf("reward payload %q: %v", msg.Payload(), err)
			return
		}
		select {
		case rewardCh <- n:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	controlCh := make(chan string, 8)
	token = client.Subscribe(cfg.TopicControl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case controlCh <- strings.TrimSpace(string(msg.Payload())):
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	// --- Fixed-tick simulation loop ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	dt := cfg.TickSeconds()
	assigned := float64(game.GameTime)
	idleAlert := float64(cfg.IdleAlertMS) / 1000.0

	// Threshold and handedness are hot-reloaded from the settings file
	// about once a second so a change in the settings UI takes effect
	// mid-session, mid-accumulation included.
	refreshTicks := 1000 / cfg.TickInterval
	if refreshTicks < 1 {
		refreshTicks = 1
	}

	var (
		simNow      float64
		tickCount   int
		lastRaw     float64
		idleAlerted bool
	)

	publishLane(client, cfg.TopicLane, rec.Lane(), mode)

loop:
	for {
		select {
		case <-sigCh:
			log.Println("interrupt: ending session")
			break loop

		case n := <-rewardCh:
			recorder.SetRewardCount(mode, n)

		case cmd := <-controlCh:
			switch cmd {
			case "reset_movement":
				rec.ResetMovementState()
			case "reset_gyro":
				rec.ResetGyro(lastRaw)
			case "save":
				saveSession(client, cfg, recorder, game, mode)
				recorder.SetSessionInfo(mode, threshold, mode.Axis(), float64(game.GameTime), game.IsLeftJoyCon)
				recorder.ResetTimer(mode)
			case "end":
				log.Println("end command received")
				break loop
			default:
				log.Printf("unknown control command %q", cmd)
			}

		case <-ticker.C:
			simNow += dt
			tickCount++

			sample, err := src.Next()
			if err != nil {
				log.Printf("gyro source error: %v", err)
				continue
			}
			lastRaw = sample.Omega

			rec.Tick(sample.Omega, simNow, dt)

			if rec.IdleSeconds() >= idleAlert {
				if !idleAlerted {
					log.Printf("[IDLE] no movement for %.0f s", rec.IdleSeconds())
					idleAlerted = true
				}
			} else {
				idleAlerted = false
			}

			if tickCount%refreshTicks == 0 {
				fresh, err := st.LoadGameData()
				if err != nil {
					log.Printf("settings reload error: %v", err)
				} else {
					if opts.FlexionExtension {
						threshold = fresh.ThresholdAngleFE
					} else {
						threshold = fresh.ThresholdAngleAbAd
					}
					if fresh.IsLeftJoyCon != game.IsLeftJoyCon {
						log.Printf("controller handedness changed, now left=%v", fresh.IsLeftJoyCon)
						rec.SetLeftJoycon(fresh.IsLeftJoyCon)
						recorder.SetSessionInfo(mode, threshold, mode.Axis(), float64(fresh.GameTime), fresh.IsLeftJoyCon)
					}
					game = fresh
				}
			}

			if simNow >= assigned {
				log.Printf("assigned game time (%.0f s) is over", assigned)
				break loop
			}
		}
	}

	saveSession(client, cfg, recorder, game, mode)

	// The tutorial cache is volatile: wipe it so the next run starts
	// from a clean slate.
	if err := st.RemoveTutorialFlags(); err != nil {
		log.Printf("tutorial flag cleanup error: %v", err)
	}
	return nil
}

// saveSession persists the active session and publishes a summary. A
// failed save is logged, not fatal: the in-memory session survives and
// a later save may succeed.
func saveSession(client mqtt.Client, cfg *config.Config, recorder *session.Recorder, game *store.GameData, mode gesture.Mode) {
	character := game.CharacterAbAd
	if mode == gesture.FlexionExtension {
		character = game.CharacterFE
	}

	active := &recorder.Full().AbduccionAduccion
	if mode == gesture.FlexionExtension {
		active = &recorder.Full().FlexionExtension
	}
	summary := sessionSummary{
		User:      recorder.Full().UserName,
		Mode:      mode.String(),
		Movements: active.TotalMovements,
		Rewards:   active.RewardCount,
	}

	if err := recorder.SaveSession(character); err != nil {
		log.Printf("session save failed (keeping session in memory): %v", err)
		return
	}
	log.Printf("session saved: %d movements, %d rewards -> %s",
		summary.Movements, summary.Rewards, recorder.UserFilePath())

	if payload, err := json.Marshal(summary); err != nil {
		log.Printf("session summary marshal error: %v", err)
	} else if token := client.Publish(cfg.TopicSession, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (session): %v", token.Error())
	}
}

func publishLane(client mqtt.Client, topic string, lane int, mode gesture.Mode) {
	payload, err := json.Marshal(laneState{Lane: lane, Mode: mode.String()})
	if err != nil {
		log.Printf("lane marshal error: %v", err)
		return
	}
	// Retained so late subscribers immediately see the current lane.
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (lane): %v", token.Error())
	}
}
