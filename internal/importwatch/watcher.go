// Package importwatch watches an inbox directory for dropped backup files
// and imports them into the tracker. A processed file is renamed with an
// .imported suffix so it is never picked up twice.
package importwatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ronnes/glucolog/internal/codec"
	"github.com/ronnes/glucolog/internal/tracker"
)

const settleDelay = 500 * time.Millisecond

// ImportCallback is called after a watcher-driven import succeeds.
type ImportCallback func(filename string, result *codec.ImportResult)

// Watch starts an fsnotify watcher on the inbox directory and processes
// dropped .csv and .json backups until ctx is cancelled. Files present at
// startup are imported first. Writes are debounced so a file is only read
// once the producer has finished writing it.
func Watch(ctx context.Context, svc *tracker.Service, inboxDir string, logger *slog.Logger, cb ImportCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inboxDir); err != nil {
		return err
	}

	logger.Info("importwatch: started", slog.String("dir", inboxDir))

	processAll(svc, inboxDir, logger, cb)

	// settleTimer debounces bursts of write events for the same drop.
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("importwatch: stopped")
			return nil

		case <-settleCh:
			processAll(svc, inboxDir, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !importable(ev.Name) {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importwatch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// importable reports whether path names a backup the watcher should pick up.
func importable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

// processAll imports every importable file currently in the inbox.
func processAll(svc *tracker.Service, inboxDir string, logger *slog.Logger, cb ImportCallback) {
	entries, err := os.ReadDir(inboxDir)
	if err != nil {
		logger.Warn("importwatch: read dir failed", slog.String("error", err.Error()))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !importable(entry.Name()) {
			continue
		}
		processFile(svc, filepath.Join(inboxDir, entry.Name()), logger, cb)
	}
}

func processFile(svc *tracker.Service, path string, logger *slog.Logger, cb ImportCallback) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("importwatch: read failed", slog.String("file", name), slog.String("error", err.Error()))
		return
	}

	result, err := svc.ImportBackup(name, data)
	if err != nil {
		logger.Warn("importwatch: import failed", slog.String("file", name), slog.String("error", err.Error()))
		// Park the file so a malformed drop is not retried forever.
		if renameErr := os.Rename(path, path+".failed"); renameErr != nil {
			logger.Warn("importwatch: park failed", slog.String("file", name), slog.String("error", renameErr.Error()))
		}
		return
	}

	if err := os.Rename(path, path+".imported"); err != nil {
		logger.Warn("importwatch: rename failed", slog.String("file", name), slog.String("error", err.Error()))
	}

	logger.Info("importwatch: imported",
		slog.String("file", name),
		slog.Int("meals", len(result.Meals)),
		slog.Int("fasting", len(result.FastingEntries)),
		slog.Int("dropped", result.Dropped))

	if cb != nil {
		cb(name, result)
	}
}
