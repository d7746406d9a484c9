package db

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/logging"
)

// DefaultDatabase is opened when a manager starts.
const DefaultDatabase = "default"

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName reports whether name can be used as a database name.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return domain.Invalidf("invalid database name %q: use letters, digits, '_' or '-'", name)
	}
	return nil
}

// Manager keeps one database open at a time under dataDir, one directory
// per database.
type Manager struct {
	dataDir string
	options []Option
	logger  logging.Logger

	mu     sync.RWMutex
	active *Database
}

// NewManager creates dataDir if needed and opens the default database.
func NewManager(dataDir string, options ...Option) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %w", domain.ErrStorageFault, err)
	}
	o := defaultOptions()
	for _, option := range options {
		option(&o)
	}
	m := &Manager{
		dataDir: dataDir,
		options: options,
		logger:  logging.OrDiscard(o.Logger),
	}
	d, err := Open(m.path(DefaultDatabase), DefaultDatabase, options...)
	if err != nil {
		return nil, err
	}
	m.active = d
	return m, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dataDir, name)
}

// Active returns the database commands currently run against. The handle
// is closed by the next Create or Use.
func (m *Manager) Active() *Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Create makes a new database and switches to it. Creating a name that
// already exists is an error.
func (m *Manager) Create(name string) (*Database, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(m.path(name)); err == nil {
		return nil, domain.Invalidf("database %q already exists", name)
	}
	return m.switchTo(name)
}

// Use switches to an existing database. Switching to the active database
// is a no-op.
func (m *Manager) Use(name string) (*Database, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	info, err := os.Stat(m.path(name))
	if err != nil || !info.IsDir() {
		return nil, domain.NotFoundf("database %q", name)
	}
	return m.switchTo(name)
}

// switchTo closes the active database, finishing its queued operations and
// flushing it, then opens name. If name fails to open the previous database
// is reopened.
func (m *Manager) switchTo(name string) (*Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.active
	if prev != nil && prev.Name() == name {
		return prev, nil
	}
	if prev != nil {
		if err := prev.Close(); err != nil {
			return nil, err
		}
	}

	d, err := Open(m.path(name), name, m.options...)
	if err != nil {
		m.logger.Errorf("[manager] failed to open %q: %v", name, err)
		if prev != nil {
			reopened, rerr := Open(prev.Dir(), prev.Name(), m.options...)
			if rerr != nil {
				m.active = nil
				return nil, fmt.Errorf("%w (reopening %q also failed: %v)", err, prev.Name(), rerr)
			}
			m.active = reopened
		}
		return nil, err
	}
	m.active = d
	m.logger.Infof("[manager] switched to database %q", name)
	return d, nil
}

// Databases lists the database names under the data directory.
func (m *Manager) Databases() ([]string, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFault, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && validName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the active database.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}
