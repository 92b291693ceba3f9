package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource pushes the contents of a file to a sink whenever it changes.
// The parent directory is watched so that editors which save by rename are
// still observed.
type FileSource struct {
	path   string
	sink   func(string)
	logger *slog.Logger
	poll   time.Duration

	last    string
	hasLast bool
}

// NewFileSource creates a FileSource for path. sink is typically a
// Watcher's Push method.
func NewFileSource(path string, sink func(string), logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   filepath.Clean(path),
		sink:   sink,
		logger: logger.With("component", "watch", "file", path),
	}
}

// WithPollInterval re-reads the file every d in case a filesystem event
// was missed. Re-reads only push changed contents. Zero disables it.
func (f *FileSource) WithPollInterval(d time.Duration) *FileSource {
	f.poll = d
	return f
}

// Run pushes the current contents once, then on every write or create
// event and on changed re-reads, until ctx is cancelled.
func (f *FileSource) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	var tick <-chan time.Time
	if f.poll > 0 {
		ticker := time.NewTicker(f.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	f.emit(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick:
			f.emit(true)

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				f.emit(false)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("file watcher error", "error", err)
		}
	}
}

// emit reads the file and pushes its contents. With onlyChanged, contents
// equal to the last push are dropped.
func (f *FileSource) emit(onlyChanged bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("read watched file failed", "error", err)
		}
		return
	}
	text := string(data)
	if onlyChanged && f.hasLast && text == f.last {
		return
	}
	f.last, f.hasLast = text, true
	f.sink(text)
}
