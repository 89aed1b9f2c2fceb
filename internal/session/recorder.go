// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// Package session accumulates committed movements and session metadata
// in memory and hands finished sessions to the store.
package session

import (
	"fmt"
	"time"

	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/store"
	"github.com/relabs-tech/gyro_trainer/internal/telemetry"
)

// Recorder owns the in-memory session state for both exercise modes.
// All methods are called from the simulation tick goroutine; there are
// no concurrent writers and no locking.
type Recorder struct {
	store *store.Store
	now   func() time.Time

	full      telemetry.FullSessionData
	lastWasFE bool

	startFE   time.Time
	startAbAd time.Time

	userFilePath string
}

// NewRecorder returns a recorder with an empty session for both modes.
func NewRecorder(s *store.Store) *Recorder {
	r := &Recorder{store: s, now: time.Now}
	r.StartNewSession()
	return r
}

// Full exposes the current in-memory session, read-only by convention.
func (r *Recorder) Full() *telemetry.FullSessionData {
	return &r.full
}

// UserFilePath returns the per-login history file chosen by SetUser.
func (r *Recorder) UserFilePath() string {
	return r.userFilePath
}

// StartNewSession replaces both mode sessions with empty ones and
// stamps the current date. The user name carries over.
func (r *Recorder) StartNewSession() {
	user := r.full.UserName
	r.full = telemetry.FullSessionData{
		Date:     r.now().Format("2006-01-02 15:04:05"),
		UserName: user,
	}
}

// SetUser switches the active user: starts a fresh session, derives the
// per-login history file for this login, and pulls the user's latest
// high scores and character choices into the settings file.
func (r *Recorder) SetUser(name string) error {
	r.StartNewSession()
	r.full.UserName = name
	r.userFilePath = r.store.NewUserFile(name)
	if err := r.store.LoadLatestHighScores(name); err != nil {
		return fmt.Errorf("load high scores for %s: %w", name, err)
	}
	if err := r.store.LoadLatestCharacterIDs(name); err != nil {
		return fmt.Errorf("load character ids for %s: %w", name, err)
	}
	return nil
}

func (r *Recorder) session(mode gesture.Mode) *telemetry.SessionData {
	if mode == gesture.FlexionExtension {
		return &r.full.FlexionExtension
	}
	return &r.full.AbduccionAduccion
}

// SetSessionInfo sets the mode's session metadata. Idempotent; called
// again on a settings change, last write wins.
func (r *Recorder) SetSessionInfo(mode gesture.Mode, threshold float64, axis string, gameTime float64, leftJoycon bool) {
	session := r.session(mode)
	session.ThresholdAngle = threshold
	session.AxisUsed = axis
	session.AssignedGameTime = gameTime
	if leftJoycon {
		session.JoyconUsed = "izquierdo"
	} else {
		session.JoyconUsed = "derecho"
	}
}

// RecordMovement appends a committed gesture to the mode's history and
// bumps the movement counter. Insertion order is chronological order;
// nothing ever reorders or mutates recorded movements.
func (r *Recorder) RecordMovement(mode gesture.Mode, movementType string, angle, threshold, timestamp float64) {
	session := r.session(mode)
	session.Movements = append(session.Movements, telemetry.MovementData{
		MovementType:   movementType,
		Angle:          angle,
		ThresholdAngle: threshold,
		TimeStamp:      timestamp,
	})
	session.TotalMovements++
}

// Record appends a recognizer movement, routing by its mode.
func (r *Recorder) Record(mv gesture.Movement) {
	r.RecordMovement(mv.Mode, mv.Type, mv.Angle, mv.Threshold, mv.Timestamp)
}

// SetRewardCount stores the rewards collected this session. Last write
// wins.
func (r *Recorder) SetRewardCount(mode gesture.Mode, count int) {
	r.session(mode).RewardCount = count
}

// ResetTimer anchors the wall-clock start of the mode's play time and
// marks the mode as the most recently active one, which decides what
// SaveSession persists.
func (r *Recorder) ResetTimer(mode gesture.Mode) {
	if mode == gesture.FlexionExtension {
		r.startFE = r.now()
		r.lastWasFE = true
	} else {
		r.startAbAd = r.now()
		r.lastWasFE = false
	}
}

// LastWasFE reports which mode ResetTimer saw last.
func (r *Recorder) LastWasFE() bool {
	return r.lastWasFE
}

// SaveSession persists the last active mode's session and starts a new
// one. On error the in-memory session is kept so the caller may retry.
func (r *Recorder) SaveSession(character string) error {
	var elapsed float64
	if r.lastWasFE {
		if r.full.FlexionExtension.TotalMovements > 0 && !r.startFE.IsZero() {
			elapsed = r.now().Sub(r.startFE).Seconds()
		}
	} else {
		if r.full.AbduccionAduccion.TotalMovements > 0 && !r.startAbAd.IsZero() {
			elapsed = r.now().Sub(r.startAbAd).Seconds()
		}
	}

	if err := r.store.SaveSession(r.userFilePath, &r.full, r.lastWasFE, elapsed, character); err != nil {
		return err
	}
	r.StartNewSession()
	return nil
}
