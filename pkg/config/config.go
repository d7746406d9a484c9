// Package config resolves neemo's settings from command line flags,
// NEEMO_* environment variables and .env files, in that order of
// precedence, and turns them into database and logger options.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/kv/logkv"
	"github.com/adfharrison1/neemo/pkg/logging"
)

// EnvPrefix is prepended to every environment variable, e.g.
// NEEMO_DATA_DIR for --data-dir.
const EnvPrefix = "neemo"

// Wrap is the number of characters help text is wrapped at
const Wrap = 50

// Config holds every setting a neemo process reads.
type Config struct {
	DataDir            string
	Database           string
	Engine             db.Engine
	Workers            int
	QueueSize          int
	CacheSize          int
	Durability         logkv.DurabilityLevel
	Compression        logkv.Compression
	CheckpointInterval time.Duration
	MaxWALSize         int64
	Retention          time.Duration
	LogLevel           logging.Level
	LogFile            string
	Format             string
	Addr               string
	Timeout            time.Duration
}

// LoadEnvFiles loads .env and .env.local, or the given files, into the
// process environment. Missing files are ignored and variables already set
// are left alone.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// NewViper returns a viper instance reading NEEMO_* variables, with dashes
// in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddStorageFlags registers the flags every command that opens a database
// understands.
func AddStorageFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "data-dir"
	flags.String(key, "data", WrapString("Directory holding one subdirectory per database"))

	key = "database"
	flags.String(key, db.DefaultDatabase, WrapString("Database to make active at startup; created when missing"))

	key = "engine"
	flags.String(key, string(db.EngineLog), WrapString("Storage engine for new and existing databases (log, sqlite)"))

	key = "workers"
	flags.Int(key, 0, WrapString("Number of operation workers, 0 means one per CPU"))

	key = "queue-size"
	flags.Int(key, 1024, WrapString("Operations that can be queued before submission blocks"))

	key = "cache-size"
	flags.Int(key, 1024, WrapString("Decoded documents kept in the read cache, 0 disables it"))

	key = "durability"
	flags.String(key, "os", WrapString("Write-ahead log durability of the log engine (none, os, full)"))

	key = "compression"
	flags.String(key, "lz4", WrapString("Snapshot compression of the log engine (none, snappy, lz4, zstd)"))

	key = "checkpoint-interval"
	flags.Duration(key, 30*time.Second, WrapString("How often the log engine writes a snapshot and truncates its log, 0 disables background checkpoints"))

	key = "max-wal-size"
	flags.Int64(key, 64<<20, WrapString("Log size in bytes that forces a checkpoint"))

	key = "retention"
	flags.Duration(key, 10*time.Minute, WrapString("How long finished operations stay visible to STATUS"))

	key = "log-level"
	flags.String(key, "info", WrapString("Level at which logs are written (debug, info, warn, error)"))

	key = "log-file"
	flags.String(key, "", WrapString("Append the operation log to this file instead of stderr"))

	key = "timeout"
	flags.Duration(key, 5*time.Minute, WrapString("Upper bound for WAIT, BACKUP and RESTORE"))
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		DataDir:            v.GetString("data-dir"),
		Database:           v.GetString("database"),
		Workers:            v.GetInt("workers"),
		QueueSize:          v.GetInt("queue-size"),
		CacheSize:          v.GetInt("cache-size"),
		CheckpointInterval: v.GetDuration("checkpoint-interval"),
		MaxWALSize:         v.GetInt64("max-wal-size"),
		Retention:          v.GetDuration("retention"),
		LogFile:            v.GetString("log-file"),
		Format:             v.GetString("format"),
		Addr:               v.GetString("addr"),
		Timeout:            v.GetDuration("timeout"),
	}

	var err error
	if c.Engine, err = db.ParseEngine(v.GetString("engine")); err != nil {
		return nil, err
	}
	if c.Durability, err = logkv.ParseDurability(v.GetString("durability")); err != nil {
		return nil, err
	}
	if c.Compression, err = logkv.ParseCompression(v.GetString("compression")); err != nil {
		return nil, err
	}
	if c.LogLevel, err = logging.ParseLevel(v.GetString("log-level")); err != nil {
		return nil, err
	}

	if c.DataDir == "" {
		return nil, fmt.Errorf("data-dir must not be empty")
	}
	if c.Database == "" {
		c.Database = db.DefaultDatabase
	}
	if err := db.ValidateName(c.Database); err != nil {
		return nil, err
	}
	if c.Workers < 0 || c.QueueSize < 0 || c.CacheSize < 0 {
		return nil, fmt.Errorf("workers, queue-size and cache-size must not be negative")
	}
	return c, nil
}

// Logger opens the configured log destination. The returned closer must be
// closed when the process is done logging.
func (c *Config) Logger() (*logging.StdLogger, io.Closer, error) {
	if c.LogFile == "" {
		return logging.New(os.Stderr, c.LogLevel), nopCloser{}, nil
	}
	logger, f, err := logging.OpenFile(c.LogFile, c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// DatabaseOptions converts the configuration into db options.
func (c *Config) DatabaseOptions(logger logging.Logger) []db.Option {
	options := []db.Option{
		db.WithEngine(c.Engine),
		db.WithCacheSize(c.CacheSize),
		db.WithDurability(c.Durability),
		db.WithCompression(c.Compression),
		db.WithCheckpointInterval(c.CheckpointInterval),
		db.WithLogger(logger),
	}
	if c.Workers > 0 {
		options = append(options, db.WithWorkers(c.Workers))
	}
	if c.QueueSize > 0 {
		options = append(options, db.WithQueueSize(c.QueueSize))
	}
	if c.MaxWALSize > 0 {
		options = append(options, db.WithMaxWALSize(c.MaxWALSize))
	}
	if c.Retention > 0 {
		options = append(options, db.WithRetention(c.Retention))
	}
	return options
}

// WrapString wraps text at Wrap characters for flag help
func WrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
