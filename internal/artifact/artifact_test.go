package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/course-compass/backend/internal/storage/models"
)

func sampleBatch() []models.TrainingSample {
	return []models.TrainingSample{
		{Question: "what is cs5010 about", Context: "Course Information: cs5010", Response: "It covers program design."},
		{Question: "who teaches cs6140", Context: "Course Information: cs6140", Response: "Machine learning faculty."},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_train_data_drift.jsonl")

	require.NoError(t, Write(sampleBatch(), path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, sampleBatch(), got)
}

func TestWriteProducesOneLinePerSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.jsonl")

	require.NoError(t, Write(sampleBatch(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"question":"what is cs5010 about"`)
}

func TestWriteReplacesStaleArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale rows\n"), 0644))

	require.NoError(t, Write(sampleBatch()[:1], path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "what is cs5010 about", got[0].Question)
}

func TestWriteEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")

	require.NoError(t, Write(nil, path))

	got, err := Read(path)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDirStoreUpload(t *testing.T) {
	local := filepath.Join(t.TempDir(), "batch.jsonl")
	require.NoError(t, Write(sampleBatch(), local))

	bucket := t.TempDir()
	store := NewDirStore(bucket)

	objectName := "processed_trace_data/llm_train_data_drift.jsonl"
	require.NoError(t, store.Upload(context.Background(), local, objectName))

	got, err := Read(filepath.Join(bucket, "processed_trace_data", "llm_train_data_drift.jsonl"))
	require.NoError(t, err)
	require.Equal(t, sampleBatch(), got)
}

func TestDirStoreUploadMissingSource(t *testing.T) {
	store := NewDirStore(t.TempDir())

	err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), "obj.jsonl")
	require.Error(t, err)
}
