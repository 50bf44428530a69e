package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/model"
)

func TestDialector(t *testing.T) {
	testCases := []struct {
		name      string
		dsn       string
		expected  string
		expectErr bool
	}{
		{name: "Postgres URL", dsn: "postgres://u:p@localhost:5432/venue", expected: "postgres"},
		{name: "Postgres keywords", dsn: "host=localhost user=u dbname=venue", expected: "postgres"},
		{name: "MySQL URL", dsn: "mysql://u:p@db/venue", expected: "mysql"},
		{name: "MySQL native", dsn: "u:p@tcp(db:3306)/venue", expected: "mysql"},
		{name: "SQLite file", dsn: "file::memory:?cache=shared", expected: "sqlite"},
		{name: "SQLite path", dsn: "./venue.db", expected: "sqlite"},
		{name: "Empty", dsn: "", expectErr: true},
		{name: "Unknown", dsn: "redis://localhost", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Dialector(tc.dsn)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d.Name())
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	assert.Equal(t, "u:p@tcp(db:3306)/venue?parseTime=True&charset=utf8mb4", mysqlDSN("u:p@db/venue"))
	assert.Equal(t, "u:p@tcp(db:3307)/venue?tls=true&parseTime=True&charset=utf8mb4", mysqlDSN("u:p@db:3307/venue?tls=true"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***@db/venue", redact("u:secret@db/venue"))
}

func TestInitSQLite(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{DSN: "file:dbinit?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	for _, m := range Models {
		assert.True(t, gormDB.Migrator().HasTable(m), "table for %T should exist", m)
	}
	assert.True(t, gormDB.Migrator().HasIndex(&model.ScheduledJob{}, "LiveKey"))
}
