package db

import (
	"testing"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(dir, WithWorkers(2), WithCheckpointInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, dir
}

func TestManagerStartsOnDefault(t *testing.T) {
	m, _ := newTestManager(t)
	require.NotNil(t, m.Active())
	assert.Equal(t, DefaultDatabase, m.Active().Name())

	names, err := m.Databases()
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, names)
}

func TestManagerCreateAndUse(t *testing.T) {
	m, _ := newTestManager(t)
	mustInsert(t, m.Active(), "shared", "db", "default")

	sales, err := m.Create("sales")
	require.NoError(t, err)
	assert.Same(t, sales, m.Active())
	_, err = sales.Get("shared")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mustInsert(t, sales, "shared", "db", "sales")

	def, err := m.Use("default")
	require.NoError(t, err)
	doc, err := def.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, domain.String("default"), field(doc, "db"))

	sales, err = m.Use("sales")
	require.NoError(t, err)
	doc, err = sales.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, domain.String("sales"), field(doc, "db"))

	same, err := m.Use("sales")
	require.NoError(t, err)
	assert.Same(t, sales, same)

	names, err := m.Databases()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "sales"}, names)
}

func TestManagerSwitchFlushesQueuedWrites(t *testing.T) {
	m, _ := newTestManager(t)
	d := m.Active()
	for i := 0; i < 20; i++ {
		d.Insert("k", domain.FieldsOf("n", i))
	}
	_, err := m.Create("other")
	require.NoError(t, err)

	d, err = m.Use("default")
	require.NoError(t, err)
	doc, err := d.Get("k")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(19), field(doc, "n"))
}

func TestManagerErrors(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create("default")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = m.Use("nowhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, name := range []string{"", "../up", "a b", "x.y"} {
		_, err = m.Create(name)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, name)
	}
	assert.Equal(t, DefaultDatabase, m.Active().Name())
}
