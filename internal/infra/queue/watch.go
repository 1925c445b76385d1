package queue

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// Changes signals after new queue files settle. It returns nil when the
// directory cannot be watched; callers then rely on polling.
func (q *FileQueue) Changes(ctx context.Context) <-chan struct{} {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		q.logger.Warn("queue watch disabled", "dir", q.dir, "error", err)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		q.logger.Warn("queue watch disabled", "error", err)
		return nil
	}
	if err := watcher.Add(q.dir); err != nil {
		_ = watcher.Close()
		q.logger.Warn("queue watch disabled", "dir", q.dir, "error", err)
		return nil
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isQueueFile(filepath.Base(event.Name)) || !event.Has(fsnotify.Create|fsnotify.Rename|fsnotify.Write) {
					continue
				}
				timer.Reset(debounce)
			case <-timer.C:
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				q.logger.Warn("queue watcher error", "error", err)
			}
		}
	}()
	return out
}
