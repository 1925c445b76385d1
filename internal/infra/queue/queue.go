package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"apiary-voice/internal/domain"
)

const (
	filePrefix = "monitoreo_"
	fileSuffix = ".json"
	// fixed width so name order is creation order
	timestampLayout = "20060102T150405.000000000Z"
)

// FileQueue stores pending records as one JSON file each in a directory.
type FileQueue struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func New(dir string, logger *slog.Logger) *FileQueue {
	return &FileQueue{dir: dir, logger: logger, now: time.Now}
}

func (q *FileQueue) Dir() string {
	return q.dir
}

// Enqueue writes the record to a new file. The file appears atomically
// under its final name.
func (q *FileQueue) Enqueue(_ context.Context, record domain.Record) (domain.PendingRecord, error) {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return domain.PendingRecord{}, fmt.Errorf("creating queue dir: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return domain.PendingRecord{}, fmt.Errorf("encoding record: %w", err)
	}

	name := fileName(q.now())
	tmp, err := os.CreateTemp(q.dir, ".pending-*")
	if err != nil {
		return domain.PendingRecord{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.PendingRecord{}, fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.PendingRecord{}, fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.PendingRecord{}, fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(q.dir, name)); err != nil {
		return domain.PendingRecord{}, fmt.Errorf("publishing %s: %w", name, err)
	}

	return domain.PendingRecord{FileID: name, Record: record}, nil
}

func fileName(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return filePrefix + now.UTC().Format(timestampLayout) + "_" + suffix + fileSuffix
}

// List returns pending records oldest first. Files that cannot be decoded are
// logged and skipped so one bad file does not block the rest.
func (q *FileQueue) List(_ context.Context) ([]domain.PendingRecord, error) {
	entries, err := os.ReadDir(q.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isQueueFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	pending := make([]domain.PendingRecord, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var record domain.Record
		if err := json.Unmarshal(data, &record); err != nil {
			q.logger.Warn("skipping unreadable queue file", "file", name, "error", err)
			continue
		}
		pending = append(pending, domain.PendingRecord{FileID: name, Record: record})
	}
	return pending, nil
}

func (q *FileQueue) Remove(_ context.Context, fileID string) error {
	if !isQueueFile(fileID) || filepath.Base(fileID) != fileID {
		return fmt.Errorf("invalid queue file id %q", fileID)
	}
	err := os.Remove(filepath.Join(q.dir, fileID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", fileID, err)
	}
	return nil
}

func isQueueFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
