// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// Package telemetry holds the persisted session data model. Field names
// are fixed: the JSON files are read by external clinical analysis
// tooling and must stay byte-compatible across versions.
package telemetry

// MovementData is one committed wrist gesture inside a session.
type MovementData struct {
	MovementType   string  `json:"movementType"`
	Angle          float64 `json:"Angle"`
	ThresholdAngle float64 `json:"thresholdAngle"`
	TimeStamp      float64 `json:"timeStamp"` // seconds since session start
}

// SessionData is the movement history and metadata for one exercise
// mode, from login (or mode re-entry) until saved.
type SessionData struct {
	ThresholdAngle   float64        `json:"thresholdAngle"`
	AxisUsed         string         `json:"axisUsed"`
	TotalMovements   int            `json:"totalMovements"`
	AssignedGameTime float64        `json:"assignedGameTime"`
	TotalGameTime    float64        `json:"totalGameTime"`
	RewardCount      int            `json:"rewardCount"`
	CharacterID      string         `json:"characterID"`
	JoyconUsed       string         `json:"joyconUsed"` // "izquierdo" or "derecho"
	Movements        []MovementData `json:"movements"`
}

// FullSessionData groups the current in-memory session for both modes.
type FullSessionData struct {
	Date              string      `json:"date"`
	UserName          string      `json:"userName"`
	AbduccionAduccion SessionData `json:"abduccionAduccion"`
	FlexionExtension  SessionData `json:"flexionExtension"`
}

// AccumulatedUserData is the per-login historical aggregate: every
// saved session for each mode plus the rolling high scores. One file
// per login event; sessions within a login append to the same file.
type AccumulatedUserData struct {
	UserName          string        `json:"userName"`
	Date              string        `json:"date"`
	HighScoreAbAd     int           `json:"highScoreAbAd"`
	HighScoreFE       int           `json:"highScoreFE"`
	FlexionExtension  []SessionData `json:"flexionExtension"`
	AbduccionAduccion []SessionData `json:"abduccionAduccion"`
}
