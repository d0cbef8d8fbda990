/*
watcher.go - Import directory polling

PURPOSE:
  Periodically picks up chat export files dropped into a directory and
  runs them through Pipeline.Import, so exports can be fed without
  running the importer CLI by hand.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each *.json file is imported, then moved to processed/
  - Files that cannot be decoded are moved to failed/ so they are not
    retried every tick
  - Files with store failures stay in place and are retried on the next
    tick; messages already stored are skipped as duplicates then
  - Stop cancels an import in progress

USAGE:
  w := NewWatcher(pipeline, dir, time.Minute, logger)
  w.Start()
  // ... later
  w.Stop()

SEE ALSO:
  - importer.go: Import, ReadExportFile
*/
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultWatchInterval = time.Minute
	processedDir         = "processed"
	failedDir            = "failed"
)

// Watcher imports export files appearing in Dir.
type Watcher struct {
	Pipeline *Pipeline
	Dir      string
	Interval time.Duration

	logger *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewWatcher creates a watcher. A non-positive interval uses DefaultWatchInterval.
func NewWatcher(p *Pipeline, dir string, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		Pipeline: p,
		Dir:      dir,
		Interval: interval,
		logger:   logger.Named("watcher"),
	}
}

// Start begins polling. It is a no-op when Dir is empty or already started.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Dir == "" {
		w.logger.Info("no watch dir, not starting")
		return
	}
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("started", zap.String("dir", w.Dir), zap.Duration("interval", w.Interval))
}

// Stop stops polling and waits for the current pass to end.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.cancel = nil
	w.logger.Info("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	// Run immediately on start
	w.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			w.RunNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow imports every pending file once and returns how many were moved
// to processed/.
func (w *Watcher) RunNow(ctx context.Context) int {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		w.logger.Error("reading watch dir", zap.Error(err))
		return 0
	}

	processed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if w.importFile(ctx, e.Name()) {
			processed++
		}
	}
	return processed
}

func (w *Watcher) importFile(ctx context.Context, name string) bool {
	path := filepath.Join(w.Dir, name)
	log := w.logger.With(zap.String("file", name))

	msgs, err := ReadExportFile(path)
	if err != nil {
		log.Warn("export file unreadable", zap.Error(err))
		w.move(name, failedDir)
		return false
	}

	report, err := w.Pipeline.Import(ctx, msgs, nil)
	if err != nil {
		// Interrupted: leave the file for the next start.
		log.Warn("import interrupted", zap.Error(err))
		return false
	}

	if report.Failed > 0 {
		log.Warn("export file kept for retry", zap.Stringer("report", report))
		return false
	}

	log.Info("export file imported", zap.Stringer("report", report))
	return w.move(name, processedDir)
}

func (w *Watcher) move(name, sub string) bool {
	dst := filepath.Join(w.Dir, sub)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		w.logger.Error("creating dir", zap.String("dir", dst), zap.Error(err))
		return false
	}
	if err := os.Rename(filepath.Join(w.Dir, name), filepath.Join(dst, name)); err != nil {
		w.logger.Error("moving file", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}
