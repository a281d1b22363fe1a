package profilecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/patient-records-viewer/internal/records"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewFileStore(path)
	ctx := context.Background()

	entries := map[string]Entry{
		"jane": {Status: StatusReady, Summary: records.Summary{
			MedicationSummary:        "None.",
			LifestyleRecommendations: "Exercise.",
			ConditionSummary:         "Healthy.",
		}},
		"bob": {Status: StatusFailed, Reason: "live failure text"},
	}
	require.NoError(t, store.Save(ctx, entries))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, StatusReady, loaded["jane"].Status)
	require.Equal(t, "None.", loaded["jane"].Summary.MedicationSummary)

	// The live reason does not survive persistence; the fact of the
	// failure does.
	require.Equal(t, StatusFailed, loaded["bob"].Status)
	require.Equal(t, ReloadedFailureReason, loaded["bob"].Reason)
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %T: %v", err, err)
	}
}

func TestFileStoreSaveCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "cache.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(context.Background(), map[string]Entry{}))

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), map[string]Entry{}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}
