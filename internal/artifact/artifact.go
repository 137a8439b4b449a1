package artifact

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/storage/models"
	"github.com/course-compass/backend/pkg/logger"
)

// Store is the object-storage tier the batch artifact is handed off to.
type Store interface {
	Upload(ctx context.Context, localPath, objectName string) error
}

// Write serializes a sample batch as JSONL at path. A leftover artifact
// from an earlier run is removed first so the new batch never appends onto
// stale rows.
func Write(samples []models.TrainingSample, path string) error {
	if _, err := os.Stat(path); err == nil {
		logger.Info("Removing existing artifact", zap.String("path", path))
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing artifact: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode sample: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush artifact: %w", err)
	}

	logger.Info("Artifact written", zap.String("path", path), zap.Int("samples", len(samples)))
	return nil
}

// Read loads a JSONL artifact back into sample rows.
func Read(path string) ([]models.TrainingSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	var samples []models.TrainingSample
	dec := json.NewDecoder(f)
	for {
		var s models.TrainingSample
		if err := dec.Decode(&s); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// DirStore is an object store rooted at a local bucket directory.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Upload(ctx context.Context, localPath, objectName string) error {
	target := filepath.Join(s.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create object path: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy artifact: %w", err)
	}

	logger.Info("Artifact uploaded", zap.String("object", objectName))
	return nil
}
