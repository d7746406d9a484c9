package logkv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adfharrison1/neemo/pkg/kv"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
)

const (
	MagicBytes    = "NEMO"
	FormatVersion = 1
	// SnapshotFile is the snapshot's name inside the store directory.
	SnapshotFile = "snapshot.nmo"
)

// FileHeader opens a snapshot file. It is followed by the body length, the
// compressed msgpack body and an xxh3 checksum of the body.
type FileHeader struct {
	Magic       [4]byte
	Version     uint8
	Compression uint8
	_           [2]byte
}

// snapshotData is the body of a snapshot: every live pair plus the LSN of
// the last WAL entry folded into it.
type snapshotData struct {
	LSN   int64     `msgpack:"lsn"`
	Pairs []kv.Pair `msgpack:"pairs"`
}

func newHeader(c Compression) FileHeader {
	h := FileHeader{Version: FormatVersion, Compression: uint8(c)}
	copy(h.Magic[:], MagicBytes)
	return h
}

// check rejects files this build cannot read.
func (h FileHeader) check() error {
	switch {
	case string(h.Magic[:]) != MagicBytes:
		return fmt.Errorf("not a snapshot file (magic %q)", h.Magic[:])
	case h.Version != FormatVersion:
		return fmt.Errorf("snapshot version %d, this build reads %d", h.Version, FormatVersion)
	}
	return nil
}

// writeSnapshot writes data to path atomically via a temp file and rename.
func writeSnapshot(path string, data *snapshotData, c Compression) error {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	body, err := compress(c, raw)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, newHeader(c)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(body))); err != nil {
		return fmt.Errorf("failed to write body length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, xxh3.Hash(body)); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return syncDir(filepath.Dir(path))
}

// readSnapshot loads a snapshot. A missing file yields (nil, nil).
func readSnapshot(path string) (*snapshotData, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := header.check(); err != nil {
		return nil, err
	}

	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read body length: %w", err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	var checksum uint64
	if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	if got := xxh3.Hash(body); got != checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch: stored %x, computed %x", checksum, got)
	}

	raw, err := decompress(Compression(header.Compression), body)
	if err != nil {
		return nil, err
	}
	var data snapshotData
	if err := msgpack.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &data, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}
