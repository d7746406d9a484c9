package db

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/adfharrison1/neemo/pkg/kv"
	"github.com/adfharrison1/neemo/pkg/kv/logkv"
	"github.com/adfharrison1/neemo/pkg/kv/sqlitekv"
	"github.com/adfharrison1/neemo/pkg/logging"
)

// Engine names a kv backend.
type Engine string

const (
	EngineLog    Engine = "log"
	EngineSQLite Engine = "sqlite"
)

// Options configures how databases are opened.
type Options struct {
	Engine             Engine
	Workers            int
	QueueSize          int
	CacheSize          int
	Durability         logkv.DurabilityLevel
	Compression        logkv.Compression
	CheckpointInterval time.Duration
	MaxWALSize         int64
	Retention          time.Duration
	Logger             logging.Logger
}

// Option configures Options
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Engine:             EngineLog,
		Workers:            runtime.GOMAXPROCS(0),
		QueueSize:          1024,
		CacheSize:          1024,
		Durability:         logkv.DurabilityOS,
		Compression:        logkv.CompressionLZ4,
		CheckpointInterval: 30 * time.Second,
		MaxWALSize:         64 << 20,
		Retention:          10 * time.Minute,
		Logger:             logging.Discard,
	}
}

func WithEngine(e Engine) Option { return func(o *Options) { o.Engine = e } }

func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

func WithQueueSize(n int) Option { return func(o *Options) { o.QueueSize = n } }

// WithCacheSize sets the decoded-document cache size; zero disables it.
func WithCacheSize(n int) Option { return func(o *Options) { o.CacheSize = n } }

func WithDurability(d logkv.DurabilityLevel) Option { return func(o *Options) { o.Durability = d } }

func WithCompression(c logkv.Compression) Option { return func(o *Options) { o.Compression = c } }

// WithCheckpointInterval sets how often the log engine snapshots; zero
// disables background checkpoints.
func WithCheckpointInterval(d time.Duration) Option {
	return func(o *Options) { o.CheckpointInterval = d }
}

func WithMaxWALSize(n int64) Option { return func(o *Options) { o.MaxWALSize = n } }

// WithRetention sets how long finished operations stay queryable.
func WithRetention(d time.Duration) Option { return func(o *Options) { o.Retention = d } }

func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = logging.OrDiscard(l) }
}

// ParseEngine accepts log or sqlite.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineLog, "":
		return EngineLog, nil
	case EngineSQLite:
		return EngineSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage engine %q (supported: log, sqlite)", s)
	}
}

// openKV opens the configured backend rooted at dir.
func openKV(dir string, o Options) (kv.Store, error) {
	switch o.Engine {
	case EngineLog, "":
		return logkv.Open(dir,
			logkv.WithDurability(o.Durability),
			logkv.WithCompression(o.Compression),
			logkv.WithCheckpointInterval(o.CheckpointInterval),
			logkv.WithMaxWALSize(o.MaxWALSize),
			logkv.WithLogger(o.Logger),
		)
	case EngineSQLite:
		return sqlitekv.Open(filepath.Clean(dir))
	default:
		return nil, fmt.Errorf("unknown storage engine %q (supported: log, sqlite)", o.Engine)
	}
}
