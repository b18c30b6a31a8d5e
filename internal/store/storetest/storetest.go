// Package storetest provides throwaway job stores for tests.
package storetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kiln-build/kiln/internal/store"
	"github.com/kiln-build/kiln/pkg/db"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated store backed by a private in-memory sqlite
// database that is closed when the test finishes.
func Open(tb testing.TB) *store.SQLStore {
	tb.Helper()

	gdb, err := db.Open(db.TypeSqlite, fmt.Sprintf("file:%s?mode=memory", uuid.NewString()))
	require.NoError(tb, err)
	require.NoError(tb, db.Migrate(gdb))

	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return store.New(gdb)
}
