// Package buffer provides a local file-based buffer for offline metric storage.
// Batches are written as timestamped JSON files when the sink is unavailable.
// Data persists across crashes and reboots. Auto-cleanup enforces size limits.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// Buffer provides local file-based storage for batches that could not be sent.
// Each batch is stored as a separate timestamped JSON file in the configured directory.
type Buffer struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	mu        sync.Mutex
	now       func() time.Time
}

// New creates a new file-based buffer at the given directory path.
// The directory is created if it does not exist.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating buffer directory: %w", err)
	}
	return &Buffer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Store saves a batch to a timestamped JSON file.
// If the buffer exceeds the configured size limit, the oldest batch is dropped.
func (b *Buffer) Store(batch models.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentSizeMB() >= b.maxSizeMB {
		b.logger.Warn("Buffer full, dropping oldest batch")
		b.dropOldest()
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}

	name := b.now().UTC().Format("20060102T150405.000")
	if batch.ID != "" {
		name += "-" + batch.ID
	}
	return os.WriteFile(filepath.Join(b.dir, name+".json"), data, 0640)
}

// RetrieveAll reads all buffered batches and removes the corresponding files.
// Corrupted files are removed and logged. Returns batches in chronological order.
func (b *Buffer) RetrieveAll() ([]models.Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.files()
	if err != nil {
		return nil, err
	}

	var batches []models.Batch
	for _, name := range names {
		path := filepath.Join(b.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Failed to read buffer file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var batch models.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			b.logger.Warn("Failed to parse buffer file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}

		batches = append(batches, batch)
		os.Remove(path)
	}

	return batches, nil
}

// Count returns the number of buffered batch files.
func (b *Buffer) Count() int {
	names, err := b.files()
	if err != nil {
		return 0
	}
	return len(names)
}

// files lists buffered batch files, oldest first.
func (b *Buffer) files() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// currentSizeMB returns the total size of all buffer files in megabytes.
// Must be called with b.mu held.
func (b *Buffer) currentSizeMB() int {
	var totalSize int64
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
	}
	return int(totalSize / (1024 * 1024))
}

// dropOldest removes the oldest buffer file to free space.
// Must be called with b.mu held.
func (b *Buffer) dropOldest() {
	names, err := b.files()
	if err != nil || len(names) == 0 {
		return
	}
	path := filepath.Join(b.dir, names[0])
	if err := os.Remove(path); err != nil {
		b.logger.Warn("Failed to remove oldest buffer file",
			zap.String("file", path),
			zap.Error(err))
	}
}
