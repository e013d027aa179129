package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	migrations, err := loadMigrations(migrationFS)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].version)
	assert.Equal(t, "001_initial", migrations[0].name)
	assert.Contains(t, migrations[0].sql, "CREATE TABLE IF NOT EXISTS usuarios")
	assert.Equal(t, 2, migrations[1].version)
	assert.Contains(t, migrations[1].sql, "ADMIN_CONDOMINIO")
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_late.up.sql":  {Data: []byte("SELECT 10")},
		"migrations/002_early.up.sql": {Data: []byte("SELECT 2")},
		"migrations/README.md":        {Data: []byte("ignored")},
	}

	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, []int{2, 10}, []int{migrations[0].version, migrations[1].version})
}

func TestLoadMigrationsRejectsBadNames(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"no version":        {"migrations/initial.up.sql": {Data: []byte("x")}},
		"non numeric":       {"migrations/abc_initial.up.sql": {Data: []byte("x")}},
		"duplicate version": {"migrations/001_a.up.sql": {Data: []byte("x")}, "migrations/1_b.up.sql": {Data: []byte("y")}},
	}

	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadMigrations(fsys)
			require.Error(t, err)
		})
	}
}
