package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDSN_InjectsPasswordAndUTC(t *testing.T) {
	out, err := PrepareDSN("app:old@tcp(db:3306)/splitlink", "s3cret")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "splitlink", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
}

func TestPrepareDSN_KeepsPasswordWhenEmpty(t *testing.T) {
	out, err := PrepareDSN("app:keep@tcp(db:3306)/splitlink", "")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.Equal(t, "keep", cfg.Passwd)
}

func TestPrepareDSN_Invalid(t *testing.T) {
	_, err := PrepareDSN("not a dsn", "")
	assert.Error(t, err)
}
