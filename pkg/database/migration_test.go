package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_init.up.sql",
		"000001_init.down.sql",
		"000002_seed_categories.up.sql",
		"000010_near_miss.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000099_dir.up.sql"), 0o700))

	latest, err := latestMigrationVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, latest)
}

func TestLatestMigrationVersion_Empty(t *testing.T) {
	_, err := latestMigrationVersion(t.TempDir())
	assert.ErrorContains(t, err, "no migration files")
}

func TestLatestMigrationVersion_RepoSchema(t *testing.T) {
	latest, err := latestMigrationVersion("../../db/pg")
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
}

func TestMigrate_MissingFolder(t *testing.T) {
	svc := NewMigrationService(nil, &MigrationConfig{MigrationFolderPath: filepath.Join(t.TempDir(), "missing")})
	err := svc.Migrate(nil)
	assert.ErrorContains(t, err, "does not exist")
}
