package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
)

// File is the flat-file fallback Backend. The whole dataset lives in
// memory and every save rewrites the full file, which is acceptable only
// because the dataset is small. The on-disk format is a single JSON
// object mapping player UUID to accumulated seconds.
type File struct {
	mu     sync.Mutex
	path   string
	data   map[uuid.UUID]int64
	closed bool
}

// NewFile loads the dataset from path. A missing file yields an empty
// dataset; a file that exists but cannot be parsed is an error.
func NewFile(path string) (*File, error) {
	f := &File{path: path, data: make(map[uuid.UUID]int64)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, apperrors.Storage(err)
	}
	if len(raw) == 0 {
		return f, nil
	}

	var parsed map[string]int64
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("parse %s: %w", path, err))
	}
	for key, seconds := range parsed {
		id, err := uuid.Parse(key)
		if err != nil {
			log.Warn().Str("key", key).Msg("skipping non-UUID key in data file")
			continue
		}
		f.data[id] = seconds
	}
	return f, nil
}

// NewEmptyFile returns a store for path without reading it, discarding
// whatever the file held. Used when the existing file is unreadable.
func NewEmptyFile(path string) *File {
	return &File{path: path, data: make(map[uuid.UUID]int64)}
}

func (f *File) GetPlayTime(_ context.Context, player uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[player], nil
}

func (f *File) SavePlayTime(_ context.Context, player uuid.UUID, seconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return apperrors.Storage(fmt.Errorf("store is closed"))
	}
	f.data[player] = seconds
	return f.persistLocked()
}

func (f *File) LoadAll(_ context.Context) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[uuid.UUID]int64, len(f.data))
	for id, seconds := range f.data {
		snapshot[id] = seconds
	}
	return snapshot, nil
}

// Close flushes the dataset one final time. Further writes are rejected.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.persistLocked()
}

// persistLocked writes the full dataset to a temp file and renames it
// into place so a crash mid-write never leaves a torn file. Callers must
// hold f.mu.
func (f *File) persistLocked() error {
	out := make(map[string]int64, len(f.data))
	for id, seconds := range f.data {
		out[id.String()] = seconds
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return apperrors.Storage(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".playtimes-*.tmp")
	if err != nil {
		return apperrors.Storage(err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.Storage(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Storage(err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.Storage(err)
	}
	return nil
}
