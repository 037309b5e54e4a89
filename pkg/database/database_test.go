package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	defer Close(db)

	assert.Equal(t, "sqlite", db.Dialector.Name())
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", nil)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
