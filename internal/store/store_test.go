package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_trainer/internal/telemetry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func readAggregate(t *testing.T, path string) telemetry.AccumulatedUserData {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var agg telemetry.AccumulatedUserData
	require.NoError(t, json.Unmarshal(data, &agg))
	return agg
}

func sessionWithMovements(n int) telemetry.SessionData {
	session := telemetry.SessionData{
		ThresholdAngle:   30,
		AxisUsed:         "Gyro Z",
		AssignedGameTime: 60,
		JoyconUsed:       "derecho",
	}
	for i := 0; i < n; i++ {
		session.Movements = append(session.Movements, telemetry.MovementData{
			MovementType:   "Abducción",
			Angle:          31.5,
			ThresholdAngle: 30,
			TimeStamp:      float64(i) * 1.2,
		})
		session.TotalMovements++
	}
	return session
}

func TestLoadGameDataDefaults(t *testing.T) {
	s := newTestStore(t)

	game, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, 20.0, game.ThresholdAngleAbAd)
	assert.Equal(t, 20.0, game.ThresholdAngleFE)
	assert.True(t, game.IsLeftJoyCon)
	assert.Equal(t, 60, game.GameTime)
	assert.Zero(t, game.HighScoreAbAd)
}

func TestGameDataRoundTrip(t *testing.T) {
	s := newTestStore(t)

	game := DefaultGameData()
	game.HighScoreAbAd = 7
	game.ThresholdAngleFE = 45.5
	game.IsLeftJoyCon = false
	require.NoError(t, s.SaveGameData(game))

	loaded, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, game, loaded)
}

func TestNewUserFileNaming(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	path := s.NewUserFile("Ana")
	assert.Equal(t, "Ana_2026-03-14-1509.json", filepath.Base(path))
}

func TestSameMinuteLoginsCollide(t *testing.T) {
	// Minute-granularity stamps: two logins in the same minute map to
	// the same file. The second login overwrites the first on its next
	// save; that is the accepted behavior, not a bug to paper over.
	s := newTestStore(t)
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	first := s.NewUserFile("Ana")
	second := s.NewUserFile("Ana")
	assert.Equal(t, first, second)
}

func TestLoadLatestHighScoresBlankSlate(t *testing.T) {
	s := newTestStore(t)

	game := DefaultGameData()
	game.HighScoreAbAd = 9
	game.HighScoreFE = 4
	require.NoError(t, s.SaveGameData(game))

	// No history for this user: scores reset to zero and the reset is
	// persisted immediately.
	require.NoError(t, s.LoadLatestHighScores("Nadie"))

	loaded, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Zero(t, loaded.HighScoreAbAd)
	assert.Zero(t, loaded.HighScoreFE)
}

func TestLoadLatestHighScoresPicksNewestFile(t *testing.T) {
	s := newTestStore(t)

	old := telemetry.AccumulatedUserData{UserName: "Ana", HighScoreAbAd: 3, HighScoreFE: 1}
	recent := telemetry.AccumulatedUserData{UserName: "Ana", HighScoreAbAd: 8, HighScoreFE: 5}

	oldPath := filepath.Join(s.Dir(), "Ana_2026-01-01-1200.json")
	newPath := filepath.Join(s.Dir(), "Ana_2026-02-01-1200.json")
	require.NoError(t, writeJSON(oldPath, old))
	require.NoError(t, writeJSON(newPath, recent))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldPath, base, base))
	require.NoError(t, os.Chtimes(newPath, base.Add(time.Minute), base.Add(time.Minute)))

	require.NoError(t, s.LoadLatestHighScores("Ana"))

	game, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, 8, game.HighScoreAbAd)
	assert.Equal(t, 5, game.HighScoreFE)
}

func TestLoadLatestCharacterIDs(t *testing.T) {
	s := newTestStore(t)

	data := telemetry.AccumulatedUserData{
		UserName: "Ana",
		AbduccionAduccion: []telemetry.SessionData{
			{CharacterID: "Zorro"}, {CharacterID: "Oso"},
		},
		FlexionExtension: []telemetry.SessionData{{CharacterID: "Buho"}},
	}
	require.NoError(t, writeJSON(filepath.Join(s.Dir(), "Ana_2026-01-01-1200.json"), data))

	require.NoError(t, s.LoadLatestCharacterIDs("Ana"))

	game, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, "Oso", game.CharacterAbAd)
	assert.Equal(t, "Buho", game.CharacterFE)
}

func TestSaveSessionAppendsAndRaisesHighScore(t *testing.T) {
	s := newTestStore(t)

	game := DefaultGameData()
	game.HighScoreAbAd = 2
	require.NoError(t, s.SaveGameData(game))

	full := &telemetry.FullSessionData{
		Date:              "2026-03-14 15:09:26",
		UserName:          "Ana",
		AbduccionAduccion: sessionWithMovements(3),
	}
	full.AbduccionAduccion.RewardCount = 5

	path := filepath.Join(s.Dir(), "Ana_2026-03-14-1509.json")
	require.NoError(t, s.SaveSession(path, full, false, 42.5, "Zorro"))

	agg := readAggregate(t, path)
	require.Len(t, agg.AbduccionAduccion, 1)
	assert.Empty(t, agg.FlexionExtension)
	assert.Equal(t, 5, agg.HighScoreAbAd)
	assert.Equal(t, "Zorro", agg.AbduccionAduccion[0].CharacterID)
	assert.Equal(t, 42.5, agg.AbduccionAduccion[0].TotalGameTime)
	assert.Equal(t, 3, agg.AbduccionAduccion[0].TotalMovements)

	loaded, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.HighScoreAbAd)
}

func TestSaveSessionDropsZeroMovementSessions(t *testing.T) {
	s := newTestStore(t)

	full := &telemetry.FullSessionData{UserName: "Ana", Date: "2026-03-14 15:09:26"}
	path := filepath.Join(s.Dir(), "Ana_2026-03-14-1509.json")

	require.NoError(t, s.SaveSession(path, full, false, 42.5, "Zorro"))

	agg := readAggregate(t, path)
	assert.Empty(t, agg.AbduccionAduccion)
	assert.Empty(t, agg.FlexionExtension)
	// Neither the character nor the elapsed time was stamped.
	assert.Empty(t, full.AbduccionAduccion.CharacterID)
	assert.Zero(t, full.AbduccionAduccion.TotalGameTime)
}

func TestSaveSessionHighScoreIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "Ana_2026-03-14-1509.json")

	full := &telemetry.FullSessionData{UserName: "Ana", FlexionExtension: sessionWithMovements(2)}
	full.FlexionExtension.RewardCount = 6
	require.NoError(t, s.SaveSession(path, full, true, 30, ""))

	// A worse run afterwards must not lower the persisted high score.
	lower := &telemetry.FullSessionData{UserName: "Ana", FlexionExtension: sessionWithMovements(1)}
	lower.FlexionExtension.RewardCount = 2
	require.NoError(t, s.SaveSession(path, lower, true, 15, ""))

	agg := readAggregate(t, path)
	assert.Equal(t, 6, agg.HighScoreFE)
	require.Len(t, agg.FlexionExtension, 2)

	game, err := s.LoadGameData()
	require.NoError(t, err)
	assert.Equal(t, 6, game.HighScoreFE)
}

func TestSaveSessionDefaultCharacter(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "Ana_2026-03-14-1509.json")

	full := &telemetry.FullSessionData{UserName: "Ana", AbduccionAduccion: sessionWithMovements(1)}
	require.NoError(t, s.SaveSession(path, full, false, 10, ""))

	agg := readAggregate(t, path)
	require.Len(t, agg.AbduccionAduccion, 1)
	assert.Equal(t, "Default", agg.AbduccionAduccion[0].CharacterID)
}

func TestSaveSessionAccumulatesWithinOneLogin(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Dir(), "Ana_2026-03-14-1509.json")

	for i := 1; i <= 3; i++ {
		full := &telemetry.FullSessionData{UserName: "Ana", AbduccionAduccion: sessionWithMovements(i)}
		require.NoError(t, s.SaveSession(path, full, false, float64(i), ""))
	}

	agg := readAggregate(t, path)
	require.Len(t, agg.AbduccionAduccion, 3)
	// Append-only: insertion order is preserved.
	for i, session := range agg.AbduccionAduccion {
		assert.Equal(t, i+1, session.TotalMovements)
	}
}

func TestUserRoster(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddUser("Ana"))
	require.NoError(t, s.AddUser("Luis"))
	require.NoError(t, s.AddUser("Ana")) // duplicate, ignored

	users, err := s.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana", "Luis"}, users)
}

func TestTutorialFlags(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.HasSeenTutorial("Ana")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkTutorialSeen("Ana"))
	seen, err = s.HasSeenTutorial("Ana")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.RemoveTutorialFlags())
	seen, err = s.HasSeenTutorial("Ana")
	require.NoError(t, err)
	assert.False(t, seen)

	// Removing twice is fine; the file is already gone.
	require.NoError(t, s.RemoveTutorialFlags())
}
