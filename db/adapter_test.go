package db

import (
	"path/filepath"
	"testing"

	"github.com/kasuganosora/materialplanner/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Mode:       ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "embedded_xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedded_xml")
}

func TestOpen_MySQLEmptyDSN(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.Error(t, err)
}
