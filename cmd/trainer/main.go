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
	user := flag.String("user", "", "name of the player logging in")
	fe := flag.Bool("fe", false, "run the flexion/extension exercise instead of abduction/adduction")
	mock := flag.Bool("mock", false, "use the built-in mock gyro source instead of MQTT samples")
	flag.Parse()

	if *user == "" {
		log.Fatal("missing required -user flag")
	}

	log.Println("starting gyro-trainer session loop (gyro → gestures → session history)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunTrainer(app.TrainerOptions{
		User:             *user,
		FlexionExtension: *fe,
		Mock:             *mock,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
