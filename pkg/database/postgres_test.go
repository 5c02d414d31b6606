package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "tt", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=tt sslmode=disable", dsn)
}

func TestEmbeddedMigrationsAreGooseAnnotated(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		raw, err := fs.ReadFile(migrations, "migrations/"+entry.Name())
		require.NoError(t, err)
		body := string(raw)
		assert.True(t, strings.Contains(body, "-- +goose Up"), entry.Name())
		assert.True(t, strings.Contains(body, "-- +goose Down"), entry.Name())
	}
}
