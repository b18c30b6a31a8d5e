package db

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kiln-build/kiln/internal/models"
	"github.com/stretchr/testify/require"
)

func TestOpenSqliteAndMigrate(t *testing.T) {
	gdb, err := Open(TypeSqlite, fmt.Sprintf("file:%s?mode=memory", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	require.True(t, gdb.Migrator().HasTable(&models.Job{}))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("mongo", "")
	require.Error(t, err)
}

func TestNowIsUTCMicros(t *testing.T) {
	now := Now()
	require.Equal(t, "UTC", now.Location().String())
	require.Zero(t, now.Nanosecond()%1000)
}
