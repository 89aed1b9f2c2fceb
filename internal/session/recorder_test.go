package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/store"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewRecorder(s)
}

func TestRecordMovementPreservesOrder(t *testing.T) {
	r := newTestRecorder(t)

	r.RecordMovement(gesture.AbductionAdduction, "Abducción", 31, 30, 1.0)
	r.RecordMovement(gesture.AbductionAdduction, "Aducción", -33, 30, 2.5)
	r.RecordMovement(gesture.FlexionExtension, "Flexión", -21, 20, 0.8)

	road := r.Full().AbduccionAduccion
	require.Equal(t, 2, road.TotalMovements)
	require.Len(t, road.Movements, 2)
	assert.Equal(t, "Abducción", road.Movements[0].MovementType)
	assert.Equal(t, "Aducción", road.Movements[1].MovementType)
	assert.Less(t, road.Movements[0].TimeStamp, road.Movements[1].TimeStamp)

	cave := r.Full().FlexionExtension
	assert.Equal(t, 1, cave.TotalMovements)
}

func TestRecordRoutesByMode(t *testing.T) {
	r := newTestRecorder(t)

	r.Record(gesture.Movement{
		Mode: gesture.FlexionExtension, Type: "Extensión",
		Angle: 22, Threshold: 20, Timestamp: 3.3,
	})

	require.Len(t, r.Full().FlexionExtension.Movements, 1)
	assert.Empty(t, r.Full().AbduccionAduccion.Movements)
}

func TestSetSessionInfoLastWriteWins(t *testing.T) {
	r := newTestRecorder(t)

	r.SetSessionInfo(gesture.AbductionAdduction, 30, "Gyro Z", 60, false)
	r.SetSessionInfo(gesture.AbductionAdduction, 45, "Gyro Z", 90, true)

	road := r.Full().AbduccionAduccion
	assert.Equal(t, 45.0, road.ThresholdAngle)
	assert.Equal(t, 90.0, road.AssignedGameTime)
	assert.Equal(t, "izquierdo", road.JoyconUsed)
}

func TestSetUserStartsFreshSessionAndFile(t *testing.T) {
	r := newTestRecorder(t)
	r.RecordMovement(gesture.AbductionAdduction, "Abducción", 31, 30, 1.0)

	require.NoError(t, r.SetUser("Ana"))
	assert.Equal(t, "Ana", r.Full().UserName)
	assert.Empty(t, r.Full().AbduccionAduccion.Movements)
	assert.Contains(t, r.UserFilePath(), "Ana_")
}

func TestSaveSessionPersistsActiveModeAndResets(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.SetUser("Ana"))

	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.SetSessionInfo(gesture.AbductionAdduction, 30, "Gyro Z", 60, false)
	r.ResetTimer(gesture.AbductionAdduction)
	r.RecordMovement(gesture.AbductionAdduction, "Abducción", 31, 30, 1.0)
	r.SetRewardCount(gesture.AbductionAdduction, 4)

	// 42 seconds of play before the save.
	r.now = func() time.Time { return base.Add(42 * time.Second) }
	require.NoError(t, r.SaveSession("Zorro"))

	// Session was replaced by a fresh one for the same user.
	assert.Equal(t, "Ana", r.Full().UserName)
	assert.Empty(t, r.Full().AbduccionAduccion.Movements)
	assert.Zero(t, r.Full().AbduccionAduccion.TotalMovements)
}

func TestSaveSessionElapsedOnlyWithMovements(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.SetUser("Ana"))

	r.ResetTimer(gesture.FlexionExtension)
	// No movements recorded: the save must not stamp a play time.
	require.NoError(t, r.SaveSession(""))
	assert.Zero(t, r.Full().FlexionExtension.TotalGameTime)
}

func TestResetTimerTracksLastActiveMode(t *testing.T) {
	r := newTestRecorder(t)

	r.ResetTimer(gesture.FlexionExtension)
	assert.True(t, r.LastWasFE())

	r.ResetTimer(gesture.AbductionAdduction)
	assert.False(t, r.LastWasFE())
}
