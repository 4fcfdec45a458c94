package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestForeignKeysAreDeferred(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init_inventory.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.NotContains(t, strings.ToUpper(sql), "ON DELETE CASCADE")
	assert.Equal(t, strings.Count(sql, "REFERENCES"), strings.Count(sql, "DEFERRABLE INITIALLY DEFERRED"))
}

func TestMigrateAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	require.NoError(t, Migrate(conn, "sqlite"))
	for _, table := range []string{"tenants", "stocks", "stock_tags", "print_jobs", "archive_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
