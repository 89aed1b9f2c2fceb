// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// Package store persists game settings and per-user session history as
// pretty-printed JSON files, in the exact format the clinical analysis
// tooling already parses.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/relabs-tech/gyro_trainer/internal/telemetry"
)

// userFileStamp is the per-login file timestamp layout (minute
// granularity). Two logins within the same minute reuse the same file;
// the history format relies on it.
const userFileStamp = "2006-01-02-1504"

// GameData is the flat settings/progress file shared by all users on a
// device. Absent fields keep their defaults.
type GameData struct {
	HighScoreAbAd int `json:"highScoreAbAd"`
	HighScoreFE   int `json:"highScoreFE"`

	TotalCoins int `json:"totalCoins"`
	TotalGems  int `json:"totalGems"`

	ThresholdAngleAbAd float64 `json:"thresholdAngleAbAd"`
	ThresholdAngleFE   float64 `json:"thresholdAngleFE"`

	IsLeftJoyCon bool `json:"isLeftJoyCon"`
	GameTime     int  `json:"GameTime"` // assigned session length, seconds

	CharacterAbAd string `json:"characterAbAd"`
	CharacterFE   string `json:"characterFE"`
}

// DefaultGameData returns the settings used before anything was saved.
func DefaultGameData() *GameData {
	return &GameData{
		ThresholdAngleAbAd: 20,
		ThresholdAngleFE:   20,
		IsLeftJoyCon:       true,
		GameTime:           60,
	}
}

// Store reads and writes all persisted files under one data directory.
type Store struct {
	dir string
	now func() time.Time
}

// New creates the data directory if needed and returns a store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) gameDataPath() string {
	return filepath.Join(s.dir, "game_data.json")
}

// LoadGameData reads the settings file, or returns defaults when it
// does not exist yet.
func (s *Store) LoadGameData() (*GameData, error) {
	data, err := os.ReadFile(s.gameDataPath())
	if errors.Is(err, os.ErrNotExist) {
		return DefaultGameData(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read game data: %w", err)
	}
	game := DefaultGameData()
	if err := json.Unmarshal(data, game); err != nil {
		return nil, fmt.Errorf("parse game data: %w", err)
	}
	return game, nil
}

// SaveGameData writes the settings file.
func (s *Store) SaveGameData(game *GameData) error {
	return writeJSON(s.gameDataPath(), game)
}

// NewUserFile returns the per-login history file path for a user,
// stamped with the current minute. One call per login; every save in
// that login accumulates into the same file.
func (s *Store) NewUserFile(user string) string {
	name := fmt.Sprintf("%s_%s.json", user, s.now().Format(userFileStamp))
	return filepath.Join(s.dir, name)
}

// latestUserFile finds the most recently modified history file for the
// user. The mtime sort leaves ties in an arbitrary (stable within one
// scan) order.
func (s *Store) latestUserFile(user string) (string, bool, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, user+"*.json"))
	if err != nil {
		return "", false, fmt.Errorf("scan user files: %w", err)
	}
	if len(files) == 0 {
		return "", false, nil
	}
	type entry struct {
		path  string
		mtime time.Time
	}
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", false, fmt.Errorf("stat %s: %w", f, err)
		}
		entries = append(entries, entry{path: f, mtime: info.ModTime()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].mtime.After(entries[j].mtime)
	})
	return entries[0].path, true, nil
}

// LatestUserData loads the user's newest accumulated history. The
// second return is false when the user has no history files yet.
func (s *Store) LatestUserData(user string) (*telemetry.AccumulatedUserData, bool, error) {
	latest, ok, err := s.latestUserFile(user)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := s.loadUserData(latest)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Store) loadUserData(path string) (*telemetry.AccumulatedUserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user data %s: %w", path, err)
	}
	var user telemetry.AccumulatedUserData
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse user data %s: %w", path, err)
	}
	return &user, nil
}

// LoadLatestHighScores copies the high scores from the user's newest
// history file into the settings file. A user without history gets a
// blank slate: both scores reset to 0 and persisted immediately.
func (s *Store) LoadLatestHighScores(user string) error {
	game, err := s.LoadGameData()
	if err != nil {
		return err
	}
	latest, ok, err := s.latestUserFile(user)
	if err != nil {
		return err
	}
	if !ok {
		game.HighScoreAbAd = 0
		game.HighScoreFE = 0
		return s.SaveGameData(game)
	}
	data, err := s.loadUserData(latest)
	if err != nil {
		return err
	}
	game.HighScoreAbAd = data.HighScoreAbAd
	game.HighScoreFE = data.HighScoreFE
	return s.SaveGameData(game)
}

// LoadLatestCharacterIDs copies the last used character of each mode
// from the user's newest history file into the settings file, resetting
// to empty for a user without history.
func (s *Store) LoadLatestCharacterIDs(user string) error {
	game, err := s.LoadGameData()
	if err != nil {
		return err
	}
	latest, ok, err := s.latestUserFile(user)
	if err != nil {
		return err
	}
	if !ok {
		game.CharacterAbAd = ""
		game.CharacterFE = ""
		return s.SaveGameData(game)
	}
	data, err := s.loadUserData(latest)
	if err != nil {
		return err
	}
	if n := len(data.AbduccionAduccion); n > 0 {
		game.CharacterAbAd = data.AbduccionAduccion[n-1].CharacterID
	}
	if n := len(data.FlexionExtension); n > 0 {
		game.CharacterFE = data.FlexionExtension[n-1].CharacterID
	}
	return s.SaveGameData(game)
}

// SaveSession merges the finished session into the per-login aggregate
// at path. Only the mode that was last active is persisted, and only
// when it recorded at least one movement; a zero-movement session
// leaves the history untouched. High scores are monotonic: the
// persisted value is max(existing, rewardCount), written both into the
// aggregate and into the settings file. Any I/O error is returned and
// leaves the in-memory session untouched, so a later retry can succeed.
func (s *Store) SaveSession(path string, full *telemetry.FullSessionData, lastWasFE bool, elapsed float64, character string) error {
	game, err := s.LoadGameData()
	if err != nil {
		return err
	}

	var agg *telemetry.AccumulatedUserData
	if _, err := os.Stat(path); err == nil {
		agg, err = s.loadUserData(path)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		agg = &telemetry.AccumulatedUserData{
			UserName:      full.UserName,
			Date:          full.Date,
			HighScoreFE:   game.HighScoreFE,
			HighScoreAbAd: game.HighScoreAbAd,
		}
	} else {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if character == "" {
		character = "Default"
	}

	active := &full.AbduccionAduccion
	if lastWasFE {
		active = &full.FlexionExtension
	}

	if active.TotalMovements > 0 {
		active.TotalGameTime = elapsed
		active.CharacterID = character
		if lastWasFE {
			agg.FlexionExtension = append(agg.FlexionExtension, *active)
		} else {
			agg.AbduccionAduccion = append(agg.AbduccionAduccion, *active)
		}
	}

	score := active.RewardCount
	if lastWasFE {
		if score > game.HighScoreFE {
			agg.HighScoreFE = score
			game.HighScoreFE = score
		}
	} else {
		if score > game.HighScoreAbAd {
			agg.HighScoreAbAd = score
			game.HighScoreAbAd = score
		}
	}
	if err := s.SaveGameData(game); err != nil {
		return err
	}

	return writeJSON(path, agg)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
