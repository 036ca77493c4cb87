package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/roadmapper/internal/apperr"
	"github.com/starford/roadmapper/internal/storage"
)

// watcherTestEnv sets up a library dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, path string) bool {
	cs, _ := db.GetChecksum(path)
	return cs != ""
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []Change

	go Watch(ctx, db, store, libDir, quietLogger(), func(c Change) {
		mu.Lock()
		events = append(events, c)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(libDir, "new.txt"), []byte("# New\n| A"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "new.txt")
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Kind == ChangeCreated && e.Path == "new.txt" && e.ID == LibraryID("new.txt") {
				return true
			}
		}
		return false
	}, "expected created change for new.txt")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(libDir, "readme.md"), []byte("| not a roadmap"), 0o644)
	_ = os.WriteFile(filepath.Join(libDir, "real.txt"), []byte("| A"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "real.txt")
	}, "real.txt not indexed")

	all, _ := db.AllChecksums()
	if _, ok := all["readme.md"]; ok {
		t.Error("readme.md should not be indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(libDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.txt"), []byte("| Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "subdir/deep.txt")
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(libDir, "del.txt"), []byte("| Delete Me"), 0o644)
	_ = Sync(db, store, quietLogger())
	if !indexed(db, "del.txt") {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(libDir, "del.txt"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetRoadmap(LibraryID("del.txt"))
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(libDir, "old.txt"), []byte("| Rename"), 0o644)
	_ = Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(libDir, "old.txt"), filepath.Join(libDir, "renamed.txt"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, "old.txt") && indexed(db, "renamed.txt")
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestWatcher_SkipsChangesAlreadyIndexed(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(libDir, "gone.txt"), []byte("| Gone"), 0o644)
	_ = Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []Change
	go Watch(ctx, db, store, libDir, quietLogger(), func(c Change) {
		mu.Lock()
		events = append(events, c)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	// Index first, then touch disk, as the service does for uploads and deletes.
	data := []byte("# Known\n| A")
	if _, _, err := IndexFile(db, "known.txt", data); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("known.txt", data); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteByPath("gone.txt"); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(filepath.Join(libDir, "gone.txt"))

	// Events are handled in order, so once this one is seen the others are done.
	_ = os.WriteFile(filepath.Join(libDir, "marker.txt"), []byte("| M"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Path == "marker.txt" {
				return true
			}
		}
		return false
	}, "expected change for marker.txt")

	mu.Lock()
	defer mu.Unlock()
	for _, e := range events {
		if e.Path != "marker.txt" {
			t.Errorf("unexpected change %+v", e)
		}
	}
}

func TestWatcher_ModifiedFileEmitsUpdated(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(libDir, "edit.txt"), []byte("| One"), 0o644)
	_ = Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var kinds []string
	go Watch(ctx, db, store, libDir, quietLogger(), func(c Change) {
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(libDir, "edit.txt"), []byte("| One\n| Two"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		r, err := db.GetRoadmap(LibraryID("edit.txt"))
		return err == nil && r.NodeCount == 2
	}, "edit not reindexed")

	mu.Lock()
	defer mu.Unlock()
	for _, k := range kinds {
		if k != ChangeUpdated {
			t.Errorf("kinds = %v, want only %s", kinds, ChangeUpdated)
			break
		}
	}
}
