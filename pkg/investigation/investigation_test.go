package investigation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvestigation(t *testing.T) {
	inv := New(Scenario{Command: "make bench", BaselineVersion: "v1.0.0"})

	assert.Equal(t, CurrentSchemaVersion, inv.SchemaVersion)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, StatusActive, inv.Status)
	assert.Equal(t, PhaseReproduce, inv.Phase)
	assert.Equal(t, "make bench", inv.Scenario.Command)
	assert.NoError(t, inv.Validate())
}

func TestGenerateIDFormat(t *testing.T) {
	id := GenerateID()

	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)

	_, err := time.Parse("20060102T150405", parts[0])
	assert.NoError(t, err)
	assert.Len(t, parts[1], 8)

	assert.NotEqual(t, id, GenerateID())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, status)

	_, err = ParseStatus("done")
	assert.Error(t, err)
}

func TestParsePhase(t *testing.T) {
	phase, err := ParsePhase("isolate")
	require.NoError(t, err)
	assert.Equal(t, PhaseIsolate, phase)

	_, err = ParsePhase("fixing")
	assert.Error(t, err)
}

func TestValidateReportsAllProblems(t *testing.T) {
	err := Investigation{}.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "schemaVersion is required")
	assert.Contains(t, msg, "id is required")
	assert.Contains(t, msg, "invalid status")
	assert.Contains(t, msg, "invalid phase")
	assert.Contains(t, msg, "scenario.command is required")
}

func TestValidateRejectsNewerSchemaVersion(t *testing.T) {
	inv := New(Scenario{Command: "make bench"})
	inv.SchemaVersion = CurrentSchemaVersion + 1

	err := inv.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestSetPhaseBumpsUpdatedAt(t *testing.T) {
	inv := New(Scenario{Command: "make bench"})
	before := inv.UpdatedAt

	time.Sleep(time.Millisecond)
	require.NoError(t, inv.SetPhase(PhaseMeasure))

	assert.Equal(t, PhaseMeasure, inv.Phase)
	assert.True(t, inv.UpdatedAt.After(before))

	assert.Error(t, inv.SetPhase(Phase("nope")))
}

func TestSetStatus(t *testing.T) {
	inv := New(Scenario{Command: "make bench"})

	require.NoError(t, inv.SetStatus(StatusPaused))
	assert.Equal(t, StatusPaused, inv.Status)

	assert.Error(t, inv.SetStatus(Status("nope")))
}
