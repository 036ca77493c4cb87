package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/roadmapper/internal/checksum"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// Change describes a roadmap that was added, modified, or removed.
// Path is empty for roadmaps that do not live in the library.
type Change struct {
	Kind string
	ID   string
	Path string
}

// EventCallback is called after an index change.
type EventCallback func(Change)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the library root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation. Events for files the index already
// reflects, such as writes and deletes made through the service, are
// skipped. Files are parsed with opts.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db RoadmapIndex, store storage.Provider, root string, logger *slog.Logger, cb EventCallback, opts ...parser.Option) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(kind, rel string) {
		if cb != nil {
			cb(Change{Kind: kind, ID: LibraryID(rel), Path: rel})
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, emit, opts)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, store, root, absPath, logger, emit, opts)
					continue
				}
			}

			if !storage.IsRoadmapFile(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				prev, _ := db.GetChecksum(rel)
				if prev == checksum.Sum(data) {
					logger.Debug("watcher: unchanged", slog.String("path", rel))
					continue
				}
				if _, _, idxErr := IndexFile(db, rel, data, opts...); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := ChangeUpdated
				if prev == "" {
					kind = ChangeCreated
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				emit(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if prev, _ := db.GetChecksum(rel); prev == "" {
					continue
				}
				if delErr := db.DeleteByPath(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				emit(ChangeDeleted, rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old path only; the new path
				// arrives as a Create if it stays inside a watched dir.
				if prev, _ := db.GetChecksum(rel); prev == "" {
					scheduleReconcile()
					continue
				}
				if delErr := db.DeleteByPath(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					emit(ChangeDeleted, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file on disk and indexes
// on-disk files whose checksum is unknown.
func reconcile(db RoadmapIndex, store storage.Provider, logger *slog.Logger, emit func(kind, rel string), opts []parser.Option) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteByPath(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				emit(ChangeDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if _, _, idxErr := IndexFile(db, p, data, opts...); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			kind := ChangeUpdated
			if _, known := checksums[p]; !known {
				kind = ChangeCreated
			}
			emit(kind, p)
		}
	}
}

// indexNewDir indexes any roadmap files found in a newly created directory.
func indexNewDir(db RoadmapIndex, store storage.Provider, root, dirPath string, logger *slog.Logger, emit func(kind, rel string), opts []parser.Option) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsRoadmapFile(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if prev, _ := db.GetChecksum(rel); prev == checksum.Sum(data) {
			return nil
		}
		if _, _, idxErr := IndexFile(db, rel, data, opts...); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			emit(ChangeCreated, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
