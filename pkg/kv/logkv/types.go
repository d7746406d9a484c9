package logkv

import (
	"fmt"
	"strings"
	"time"
)

// DurabilityLevel represents the level of durability guarantee
type DurabilityLevel int

const (
	DurabilityNone DurabilityLevel = iota // No write-ahead log; data survives only Flush/Close
	DurabilityOS                          // WAL written to the OS page cache (default)
	DurabilityFull                        // WAL fsynced on every write
)

func (d DurabilityLevel) String() string {
	switch d {
	case DurabilityNone:
		return "none"
	case DurabilityOS:
		return "os"
	case DurabilityFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ParseDurability maps none, os or full to a level.
func ParseDurability(s string) (DurabilityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return DurabilityNone, nil
	case "os", "":
		return DurabilityOS, nil
	case "full":
		return DurabilityFull, nil
	default:
		return DurabilityOS, fmt.Errorf("unknown durability level %q", s)
	}
}

// walEntryType represents the type of WAL entry
type walEntryType uint8

const (
	walEntryPut walEntryType = iota + 1
	walEntryDelete
)

// walEntry represents a single entry in the write-ahead log
type walEntry struct {
	Type      walEntryType `json:"type"`
	LSN       int64        `json:"lsn"` // Log Sequence Number
	Timestamp int64        `json:"timestamp"`
	Key       []byte       `json:"key"`
	Value     []byte       `json:"value,omitempty"`
	Checksum  uint32       `json:"checksum"`
}

// storeStats holds engine counters
type storeStats struct {
	WALEntriesWritten    int64
	WALBytesWritten      int64
	CheckpointsPerformed int64
	RecoveryTime         time.Duration
	RecoveredEntries     int64
	LastCheckpoint       time.Time
}
