package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// Backup waits for queued mutations, flushes the engine and copies the
// database directory to path. path must not exist or be an empty
// directory. The copy is assembled under a temporary name and renamed into
// place, so a failed backup leaves nothing behind.
func (d *Database) Backup(ctx context.Context, path string) error {
	if err := checkBackupTarget(path); err != nil {
		return err
	}
	if err := d.Drain(ctx); err != nil {
		return err
	}

	start := time.Now()
	files := 0
	err := d.coord.Exclusive(func() error {
		if err := d.docs.Flush(); err != nil {
			return err
		}
		tmpPath := path + ".tmp"
		os.RemoveAll(tmpPath)
		n, err := copyDir(d.dir, tmpPath)
		if err != nil {
			os.RemoveAll(tmpPath)
			return err
		}
		os.Remove(path)
		if err := os.Rename(tmpPath, path); err != nil {
			os.RemoveAll(tmpPath)
			return fmt.Errorf("%w: failed to move backup into place: %w", domain.ErrStorageFault, err)
		}
		files = n
		return nil
	})
	if err != nil {
		d.logger.Errorf("[backup] %q to %s failed: %v", d.name, path, err)
		return err
	}
	d.logger.Infof("[backup] copied %d files of %q to %s in %v", files, d.name, path, time.Since(start))
	return nil
}

func checkBackupTarget(path string) error {
	entries, err := os.ReadDir(path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return domain.Invalidf("backup target %s is not a directory", path)
	case len(entries) > 0:
		return domain.Invalidf("backup target %s is not empty", path)
	}
	return nil
}

// Restore replaces the database contents with a backup taken by Backup.
// It runs as an operation ordered after everything submitted before it
// and blocks until it finishes. If the backup cannot be opened the previous
// contents are put back.
func (d *Database) Restore(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NotFoundf("backup %s", path)
		}
		return fmt.Errorf("%w: %w", domain.ErrStorageFault, err)
	}
	if !info.IsDir() {
		return domain.Invalidf("backup %s is not a directory", path)
	}

	op := d.coord.Submit(KindRestore, nil, func() (interface{}, error) {
		return nil, d.applyRestore(path)
	})
	return op.Wait(ctx)
}

// applyRestore swaps directories while holding the writer section.
func (d *Database) applyRestore(path string) error {
	start := time.Now()
	if err := d.kv.Close(); err != nil {
		d.logger.Warnf("[restore] closing %q before restore: %v", d.name, err)
	}

	aside := fmt.Sprintf("%s.restore-%d", d.dir, time.Now().UnixNano())
	if err := os.Rename(d.dir, aside); err != nil {
		if aerr := d.attach(); aerr != nil {
			return fmt.Errorf("%w: failed to move %q aside: %w (reopen: %v)", domain.ErrStorageFault, d.name, err, aerr)
		}
		return fmt.Errorf("%w: failed to move %q aside: %w", domain.ErrStorageFault, d.name, err)
	}

	rollback := func(cause error) error {
		os.RemoveAll(d.dir)
		if err := os.Rename(aside, d.dir); err != nil {
			return fmt.Errorf("%w: restore failed (%v) and the previous contents remain in %s: %w",
				domain.ErrStorageFault, cause, aside, err)
		}
		if err := d.attach(); err != nil {
			return fmt.Errorf("restore failed (%v) and reopening the previous contents failed: %w", cause, err)
		}
		d.logger.Warnf("[restore] rolled %q back after: %v", d.name, cause)
		return cause
	}

	if _, err := copyDir(path, d.dir); err != nil {
		return rollback(err)
	}
	if err := d.attach(); err != nil {
		return rollback(err)
	}
	if err := os.RemoveAll(aside); err != nil {
		d.logger.Warnf("[restore] failed to remove %s: %v", aside, err)
	}
	d.logger.Infof("[restore] restored %q from %s in %v", d.name, path, time.Since(start))
	return nil
}

// copyDir copies the regular files under src into dst, creating dst.
// Temporary files and SQLite shared-memory files are skipped.
func copyDir(src, dst string) (int, error) {
	files := 0
	err := filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, "-shm") || !entry.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("%w: failed to copy %s to %s: %w", domain.ErrStorageFault, src, dst, err)
	}
	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
