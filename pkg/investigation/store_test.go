package investigation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	store, err := NewStore(dataDir)
	require.NoError(t, err)
	return store, dataDir
}

func TestStartCreatesAndMarksCurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	inv, err := store.Start(ctx, Scenario{Command: "make bench"})
	require.NoError(t, err)
	require.NotNil(t, inv)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, inv.ID, current.ID)
	assert.Equal(t, StatusActive, current.Status)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t)

	inv, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestLoadCorruptedReturnsNil(t *testing.T) {
	store, dataDir := newTestStore(t)
	path := filepath.Join(dataDir, "investigations", "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	inv, err := store.Load(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestLoadNewerSchemaTreatedAsAbsent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	inv, err := store.Start(ctx, Scenario{Command: "make bench"})
	require.NoError(t, err)

	// Rewrite the file claiming a future schema version.
	raw, err := os.ReadFile(store.path(inv.ID))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["schemaVersion"] = CurrentSchemaVersion + 1
	rewritten, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.path(inv.ID), rewritten, 0o644))

	loaded, err := store.Load(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSetPhasePersists(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	inv, err := store.Start(ctx, Scenario{Command: "make bench"})
	require.NoError(t, err)

	updated, err := store.SetPhase(ctx, inv.ID, PhaseIsolate)
	require.NoError(t, err)
	assert.Equal(t, PhaseIsolate, updated.Phase)

	loaded, err := store.Load(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, PhaseIsolate, loaded.Phase)
}

func TestSetPhaseUnknownID(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SetPhase(context.Background(), "missing", PhaseMeasure)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "investigation not found")
}

func TestResolveClearsCurrentMarker(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	inv, err := store.Start(ctx, Scenario{Command: "make bench"})
	require.NoError(t, err)

	resolved, err := store.Resolve(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestResolveOtherInvestigationKeepsCurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Start(ctx, Scenario{Command: "make bench one"})
	require.NoError(t, err)
	second, err := store.Start(ctx, Scenario{Command: "make bench two"})
	require.NoError(t, err)

	_, err = store.Resolve(ctx, first.ID)
	require.NoError(t, err)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestListSortedByID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Start(ctx, Scenario{Command: "one"})
	require.NoError(t, err)
	second, err := store.Start(ctx, Scenario{Command: "two"})
	require.NoError(t, err)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	ids := []string{list[0].ID, list[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	assert.LessOrEqual(t, list[0].ID, list[1].ID)
}

func TestPauseAndResume(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	inv, err := store.Start(ctx, Scenario{Command: "make bench"})
	require.NoError(t, err)

	paused, err := store.SetStatus(ctx, inv.ID, StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)

	resumed, err := store.SetStatus(ctx, inv.ID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, resumed.Status)
}
