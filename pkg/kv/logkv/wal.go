package logkv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	walFilePrefix = "wal_"
	walFileSuffix = ".log"
	// maxWALEntrySize bounds a single WAL line
	maxWALEntrySize = 64 << 20
)

// walWriter appends entries to the current WAL file. It is not safe for
// concurrent use; the store serializes writers.
type walWriter struct {
	dir        string
	durability DurabilityLevel
	file       *os.File
	path       string
	size       int64
	entries    int64
}

func newWALWriter(dir string, durability DurabilityLevel) *walWriter {
	return &walWriter{dir: dir, durability: durability}
}

// append writes a WAL entry, opening a new file named after its LSN if none
// is open.
func (w *walWriter) append(entry *walEntry) (int, error) {
	entry.Checksum = calculateChecksum(entry)

	if err := w.ensureFile(entry.LSN); err != nil {
		return 0, fmt.Errorf("failed to ensure WAL file: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal WAL entry: %w", err)
	}
	data = append(data, '\n')

	n, err := w.file.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write to WAL file: %w", err)
	}
	w.size += int64(n)
	w.entries++

	if w.durability == DurabilityFull {
		if err := w.file.Sync(); err != nil {
			return n, fmt.Errorf("failed to sync WAL file: %w", err)
		}
	}
	return n, nil
}

func (w *walWriter) ensureFile(lsn int64) error {
	if w.file != nil {
		return nil
	}
	name := fmt.Sprintf("%s%020d%s", walFilePrefix, lsn, walFileSuffix)
	path := filepath.Join(w.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create WAL file: %w", err)
	}
	w.file = file
	w.path = path
	w.size = 0
	w.entries = 0
	return nil
}

// sync forces the current file to disk.
func (w *walWriter) sync() error {
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// truncate closes the current file and removes every WAL file. Called once a
// snapshot covers all logged entries.
func (w *walWriter) truncate() error {
	if err := w.close(); err != nil {
		return err
	}
	files, err := listWALFiles(w.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove WAL file %s: %w", f, err)
		}
	}
	return nil
}

func (w *walWriter) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.path = ""
	w.size = 0
	w.entries = 0
	return err
}

// listWALFiles returns WAL file paths in LSN order.
func listWALFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, walFilePrefix) || !strings.HasSuffix(name, walFileSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// errTornEntry marks a WAL line that was cut short by a crash.
var errTornEntry = errors.New("torn WAL entry")

// readWALFile reads entries from a WAL file. A damaged final line is a write
// that never completed and is reported as errTornEntry alongside the entries
// read before it; damage anywhere else is an error.
func readWALFile(path string) ([]*walEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	defer file.Close()

	var entries []*walEntry
	var pending error
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxWALEntrySize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if pending != nil {
			return nil, pending
		}

		var entry walEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			pending = fmt.Errorf("failed to unmarshal WAL entry: %w", err)
			continue
		}
		if calculateChecksum(&entry) != entry.Checksum {
			pending = fmt.Errorf("checksum verification failed for LSN %d", entry.LSN)
			continue
		}
		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading WAL file: %w", err)
	}
	if pending != nil {
		return entries, fmt.Errorf("%w: %v", errTornEntry, pending)
	}
	return entries, nil
}

func calculateChecksum(entry *walEntry) uint32 {
	entryCopy := *entry
	entryCopy.Checksum = 0

	data, err := json.Marshal(entryCopy)
	if err != nil {
		return 0
	}
	return crc32.ChecksumIEEE(data)
}
