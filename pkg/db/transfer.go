package db

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adfharrison1/neemo/pkg/coordinator"
	"github.com/adfharrison1/neemo/pkg/domain"
)

// Export writes every document to path as a JSON array of
// {"key": ..., "fields": {...}} objects in key order. The file is written
// to a temporary name and renamed into place.
func (d *Database) Export(path string) (int, error) {
	count := 0
	err := d.coord.Read(func() error {
		var err error
		count, err = d.writeExport(path)
		return err
	})
	if err == nil {
		d.logger.Infof("[transfer] exported %d documents from %q to %s", count, d.name, path)
	}
	return count, err
}

func (d *Database) writeExport(path string) (int, error) {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create export file: %w", domain.ErrStorageFault, err)
	}
	defer func() {
		file.Close()
		os.Remove(tmpPath)
	}()

	count, err := WriteDocuments(file, d.docs.Scan())
	if err != nil {
		return 0, err
	}
	if err := file.Sync(); err != nil {
		return 0, fmt.Errorf("%w: failed to sync export file: %w", domain.ErrStorageFault, err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("%w: failed to close export file: %w", domain.ErrStorageFault, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("%w: failed to rename export file: %w", domain.ErrStorageFault, err)
	}
	return count, nil
}

// ExportTo streams every document to w in the export format.
func (d *Database) ExportTo(w io.Writer) (int, error) {
	count := 0
	err := d.coord.Read(func() error {
		var err error
		count, err = WriteDocuments(w, d.docs.Scan())
		return err
	})
	return count, err
}

// DocumentScanner yields documents in order.
type DocumentScanner interface {
	Next() bool
	Document() *domain.Document
	Err() error
}

// WriteDocuments streams documents to w as a JSON array, one element per
// line.
func WriteDocuments(w io.Writer, src DocumentScanner) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return 0, err
	}
	count := 0
	for src.Next() {
		data, err := json.Marshal(src.Document())
		if err != nil {
			return count, fmt.Errorf("failed to encode %q: %w", src.Document().Key, err)
		}
		sep := ",\n"
		if count == 0 {
			sep = "\n"
		}
		if _, err := bw.WriteString(sep); err != nil {
			return count, err
		}
		if _, err := bw.Write(data); err != nil {
			return count, err
		}
		count++
	}
	if err := src.Err(); err != nil {
		return count, err
	}
	if _, err := bw.WriteString("\n]\n"); err != nil {
		return count, err
	}
	return count, bw.Flush()
}

// ReadDocuments parses a JSON array of {"key", "fields"} records. The
// whole input is validated before anything is returned.
func ReadDocuments(r io.Reader) ([]Mutation, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	tok, err := dec.Token()
	if err != nil {
		return nil, domain.Invalidf("import file is not a JSON array: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, domain.Invalidf("import file must hold a JSON array")
	}

	var mutations []Mutation
	for i := 0; dec.More(); i++ {
		var rec domain.Document
		if err := dec.Decode(&rec); err != nil {
			return nil, domain.Invalidf("record %d: %v", i, err)
		}
		mutations = append(mutations, InsertMutation(rec.Key, rec.Fields))
	}
	if _, err := dec.Token(); err != nil {
		return nil, domain.Invalidf("unterminated JSON array: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.Invalidf("trailing data after JSON array")
	}
	return mutations, nil
}

// Import loads every record of an export file through the batch path as
// one operation ordered against all other operations. A malformed file
// fails the operation before anything is applied; records that fail
// individually (an empty key, say) are reported in the *BatchResult while
// the rest still apply.
func (d *Database) Import(path string) *coordinator.Operation {
	return d.coord.Submit(KindImport, nil, func() (interface{}, error) {
		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, domain.NotFoundf("import file %s", path)
			}
			return nil, fmt.Errorf("%w: failed to open import file: %w", domain.ErrStorageFault, err)
		}
		defer file.Close()

		mutations, err := ReadDocuments(file)
		if err != nil {
			return nil, err
		}
		res := d.applyBatch(mutations)
		d.logger.Infof("[transfer] imported %d of %d records into %q from %s",
			res.Applied, res.Total, d.name, path)
		return res, res.Err()
	})
}
