package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/homestead/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add permits table", "add_permits_table"},
		{"Add-Permit-Docs", "add_permit_docs"},
		{"ADD__PERMIT__DOCS", "add_permit_docs"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add permits", "track county permits")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_add_permits.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_permits.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- add_permits")
	assert.Contains(t, string(up), "-- track county permits")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback for add_permits")

	second, err := CreateMigration(dir, "Index Deliveries", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	list, err := ListMigrations(os.DirFS(dir))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "index_deliveries", list[1].Name)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("orders by version and ignores other files", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000002_b.up.sql":   {},
			"000002_b.down.sql": {},
			"000001_a.up.sql":   {},
			"000001_a.down.sql": {},
			"README.md":         {},
		}
		list, err := ListMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].Name)
		assert.Equal(t, "b", list[1].Name)
	})

	t.Run("missing half", func(t *testing.T) {
		_, err := ListMigrations(fstest.MapFS{"000001_a.up.sql": {}})
		assert.ErrorContains(t, err, "missing its up or down half")
	})

	t.Run("duplicate version", func(t *testing.T) {
		_, err := ListMigrations(fstest.MapFS{
			"000001_a.up.sql":   {},
			"000001_a.down.sql": {},
			"000001_b.up.sql":   {},
			"000001_b.down.sql": {},
		})
		assert.ErrorContains(t, err, "used by both")
	})
}

func TestEmbeddedMigrationsAreContiguous(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i, f := range list {
		assert.Equal(t, uint(i+1), f.Version, f.BaseName())
	}
}
