package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"hlspack/internal/logging"
	"hlspack/internal/services"
)

// Options tune how long a new file must sit unchanged before it is handed
// to the pipeline. Copies into the watch directory arrive in chunks, so a
// create event alone is not enough.
type Options struct {
	StabilityWindow  time.Duration
	StabilityTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.StabilityWindow <= 0 {
		o.StabilityWindow = 500 * time.Millisecond
	}
	if o.StabilityTimeout <= 0 {
		o.StabilityTimeout = 10 * time.Minute
	}
	return o
}

// Handler processes one stable source file.
type Handler func(ctx context.Context, path string)

type fingerprint struct {
	size  int64
	mtime int64
}

// Watcher delivers new video files from a directory once they stop growing.
type Watcher struct {
	dir    string
	opts   Options
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	seen   map[string]fingerprint
}

// NewWatcher registers a watch on dir. The returned watcher must be closed.
func NewWatcher(dir string, opts Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "watch", "create watcher", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "watch", fmt.Sprintf("watch directory %s", dir), err)
	}
	return &Watcher{
		dir:    dir,
		opts:   opts.withDefaults(),
		fsw:    fsw,
		logger: logging.NewComponentLogger(logger, "ingest"),
		seen:   make(map[string]fingerprint),
	}, nil
}

// Close releases the underlying filesystem watch.
func (w *Watcher) Close() error {
	if w == nil || w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}

// Run delivers stable video files to handle until the context ends. Files
// are handled one at a time; a rewritten file is delivered again once its
// new contents settle.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !IsVideoFile(event.Name) {
				continue
			}
			fp, err := w.waitStable(ctx, event.Name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Warn("file never settled",
					logging.Source(event.Name),
					logging.Error(err),
					logging.Alert("unstable_source"),
				)
				continue
			}
			if prev, known := w.seen[event.Name]; known && prev == fp {
				continue
			}
			w.seen[event.Name] = fp
			handle(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// waitStable polls until two consecutive observations of the file agree on
// size and mtime.
func (w *Watcher) waitStable(ctx context.Context, path string) (fingerprint, error) {
	deadline := time.Now().Add(w.opts.StabilityTimeout)
	var last fingerprint
	var observed bool
	for {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.Size() > 0:
			current := fingerprint{size: info.Size(), mtime: info.ModTime().UnixNano()}
			if observed && current == last {
				return current, nil
			}
			last = current
			observed = true
		case errors.Is(err, fs.ErrNotExist):
			return fingerprint{}, fmt.Errorf("%s removed before settling", path)
		default:
			observed = false
		}

		if time.Now().After(deadline) {
			return fingerprint{}, fmt.Errorf("timeout waiting for %s to settle", path)
		}
		select {
		case <-ctx.Done():
			return fingerprint{}, ctx.Err()
		case <-time.After(w.opts.StabilityWindow):
		}
	}
}
