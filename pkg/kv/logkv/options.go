package logkv

import (
	"time"

	"github.com/adfharrison1/neemo/pkg/logging"
)

// Option configures the store
type Option func(*Store)

// WithDurability sets the durability guarantee level
func WithDurability(level DurabilityLevel) Option {
	return func(s *Store) {
		s.durability = level
	}
}

// WithCompression sets the snapshot compression codec
func WithCompression(c Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithCheckpointInterval sets how often the background worker folds the WAL
// into a snapshot. Zero disables the worker.
func WithCheckpointInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.checkpointInterval = interval
	}
}

// WithMaxWALSize sets the WAL size that forces a checkpoint on write
func WithMaxWALSize(size int64) Option {
	return func(s *Store) {
		s.maxWALSize = size
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrDiscard(logger)
	}
}
