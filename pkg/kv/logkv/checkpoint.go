package logkv

import (
	"fmt"
	"path/filepath"
	"time"
)

// runCheckpoints is the background checkpoint worker
func (s *Store) runCheckpoints() {
	defer s.backgroundWg.Done()

	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.checkpointIfDirty(); err != nil {
				s.logger.Errorf("[checkpoint] failed: %v", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Store) checkpointIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.dirty {
		return nil
	}
	return s.checkpointLocked()
}

// checkpointLocked writes a snapshot covering every entry up to the current
// LSN, then drops the WAL files it makes redundant.
func (s *Store) checkpointLocked() error {
	if !s.dirty {
		return s.wal.sync()
	}
	start := time.Now()

	data := &snapshotData{LSN: s.lsn}
	s.mem.Ascend(func(it item) bool {
		data.Pairs = append(data.Pairs, kvPair(it))
		return true
	})

	if err := writeSnapshot(filepath.Join(s.dir, SnapshotFile), data, s.compression); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := s.wal.truncate(); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}

	s.dirty = false
	s.stats.CheckpointsPerformed++
	s.stats.LastCheckpoint = time.Now()
	s.logger.Debugf("[checkpoint] wrote %d pairs at LSN %d in %v", len(data.Pairs), data.LSN, time.Since(start))
	return nil
}
