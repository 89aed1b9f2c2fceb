// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/gyro_trainer/internal/app"
	"github.com/relabs-tech/gyro_trainer/internal/config"
)

func main() {
	configPath := flag.String("config", "./trainer_config.txt", "path to configuration file")
	left := flag.Bool("left", false, "publish as the left-hand controller")
	fe := flag.Bool("fe", false, "sample the flexion/extension axis instead of abduction/adduction")
	flag.Parse()

	log.Println("starting gyro-trainer IMU producer (MPU-9250 → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunIMUProducer(app.IMUProducerOptions{
		Left:             *left,
		FlexionExtension: *fe,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
