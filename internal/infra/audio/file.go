package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"apiary-voice/internal/domain"
)

var fileExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".webm": true, ".txt": true,
}

// FileSource takes replies from files dropped into a directory, in name
// order. Audio files are returned as audio, .txt files as text. Consumed
// files are renamed with a .processed suffix.
type FileSource struct {
	dir  string
	wait time.Duration
	poll time.Duration
}

func NewFileSource(dir string, wait time.Duration) *FileSource {
	return &FileSource{dir: dir, wait: wait, poll: 200 * time.Millisecond}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating reply dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) Capture(ctx context.Context, d time.Duration) (Utterance, error) {
	if f.wait > d {
		d = f.wait
	}
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	for {
		u, err := f.next()
		if err != nil {
			return Utterance{}, err
		}
		if !u.Empty() {
			return u, nil
		}

		select {
		case <-ctx.Done():
			return Utterance{}, ctx.Err()
		case <-deadline.C:
			return Utterance{}, domain.ErrNoSpeech
		case <-ticker.C:
		}
	}
}

func (f *FileSource) next() (Utterance, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return Utterance{}, fmt.Errorf("reading dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !fileExtensions[filepath.Ext(entry.Name())] {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return Utterance{}, nil
	}
	sort.Strings(names)

	path := filepath.Join(f.dir, names[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return Utterance{}, fmt.Errorf("reading file %s: %w", path, err)
	}
	if err := os.Rename(path, path+".processed"); err != nil {
		return Utterance{}, fmt.Errorf("marking %s processed: %w", path, err)
	}

	if filepath.Ext(path) == ".txt" {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return Utterance{}, domain.ErrNoSpeech
		}
		return Utterance{Text: text}, nil
	}
	return Utterance{Audio: data}, nil
}
