package database

import (
	"context"
	"testing"
	"testing/fstest"

	"uboard/internal/config"
	"uboard/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: NewGormLogger(middleware.Logger)})
	require.NoError(t, err)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5, DBConnMaxLifetimeMinutes: 15}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "uboard"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=uboard sslmode=disable", DSN(cfg))
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(middleware.Logger)
	silent := l.LogMode(logger.Silent).(*CustomGormLogger)
	assert.Equal(t, logger.Silent, silent.Config.LogLevel)
	assert.Equal(t, logger.Warn, l.Config.LogLevel)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		mode, env       string
		wantSQL, wantAM bool
		wantErr         bool
	}{
		{"", "development", true, true, false},
		{"hybrid", "production", true, false, false},
		{"sql", "development", true, false, false},
		{"auto", "test", false, true, false},
		{"auto", "production", false, false, true},
		{"bogus", "development", false, false, true},
	}
	for _, tt := range tests {
		runSQL, runAuto, err := schemaPolicy(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
		if tt.wantErr {
			assert.Error(t, err, tt.mode)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.wantSQL, runSQL, tt.mode)
		assert.Equal(t, tt.wantAM, runAuto, tt.mode)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := Migrations()
	require.Len(t, ms, 2)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "init", ms[0].Name)
	assert.Contains(t, ms[0].UpScript, "CREATE TABLE IF NOT EXISTS user_checkins")
	assert.Equal(t, "000002_search_indexes", ms[1].String())
}

func TestRunAndRollbackMigrations(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"m/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"m/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"m/000002_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
		"m/000002_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets;")},
	}
	ms, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)

	require.NoError(t, RunMigrations(ctx, db, ms))
	require.NoError(t, RunMigrations(ctx, db, ms))

	applied, err := AppliedVersions(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	require.NoError(t, RollbackMigration(ctx, db, ms, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.Error(t, RollbackMigration(ctx, db, ms, 2))

	assert.Error(t, RunMigrations(ctx, db, ms[1:]), "unknown applied version 1 must be rejected")
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))
	for _, table := range []string{"users", "posts", "tags", "post_tags", "comments", "user_post_likes", "user_checkins", "user_reports"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
