package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestBackupRestore(t *testing.T) {
	for _, engine := range []Engine{EngineLog, EngineSQLite} {
		t.Run(string(engine), func(t *testing.T) {
			d := openTestDB(t, WithEngine(engine))
			mustInsert(t, d, "a", "city", "Oslo", "n", 1)
			mustInsert(t, d, "b", "city", "Bergen", "n", 2)

			backup := filepath.Join(t.TempDir(), "snap")
			require.NoError(t, d.Backup(testContext(t), backup))

			// Diverge from the backup.
			require.NoError(t, wait(t, d.Delete("a")))
			mustInsert(t, d, "c", "city", "Trondheim", "n", 3)
			mustInsert(t, d, "b", "city", "Stavanger", "n", 20)

			require.NoError(t, d.Restore(testContext(t), backup))

			keys, err := d.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, keys)

			docs, err := d.QueryEqual("city", domain.String("Bergen"))
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, docKeys(docs))

			docs, err = d.QueryEqual("city", domain.String("Trondheim"))
			require.NoError(t, err)
			assert.Empty(t, docs)
			require.NoError(t, d.Verify())

			// Writes keep working against the restored store.
			mustInsert(t, d, "d", "city", "Tromsø", "n", 4)
			docs, err = d.QueryRange("n", 3, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"d"}, docKeys(docs))
		})
	}
}

func TestBackupRefusesNonEmptyTarget(t *testing.T) {
	d := openTestDB(t)
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "x"), []byte("x"), 0644))

	err := d.Backup(testContext(t), target)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBackupIntoEmptyDirectory(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "a", "v", 1)
	target := t.TempDir()
	require.NoError(t, d.Backup(testContext(t), target))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestBackupWaitsForQueuedMutations(t *testing.T) {
	d := openTestDB(t)
	for i := 0; i < 50; i++ {
		d.Insert("k", domain.FieldsOf("n", i))
	}
	backup := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, d.Backup(testContext(t), backup))

	restored, err := Open(backup, "copy", WithCheckpointInterval(0))
	require.NoError(t, err)
	defer restored.Close()

	doc, err := restored.Get("k")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(49), field(doc, "n"))
}

func TestRestoreMissingBackup(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "a", "v", 1)

	err := d.Restore(testContext(t), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = d.Get("a")
	assert.NoError(t, err)
}

func TestRestoreRollsBackUnreadableBackup(t *testing.T) {
	d := openTestDB(t)
	mustInsert(t, d, "a", "v", 1)

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "snapshot.nmo"), []byte("not a snapshot"), 0644))

	err := d.Restore(testContext(t), bad)
	require.Error(t, err)

	doc, err := d.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.Int(1), field(doc, "v"))
	require.NoError(t, d.Verify())
}
