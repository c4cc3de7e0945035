package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbase/ticketd/store"
)

func TestDB_OpenModes(t *testing.T) {
	t.Run("in-memory alias", func(t *testing.T) {
		db, err := OpenInMemoryDB(true)
		require.NoError(t, err)
		require.NotNil(t, db)

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("file-based DB", func(t *testing.T) {
		dir := t.TempDir()
		dbName := "ticketd.db"

		db, err := OpenFileDB(dir, dbName, true)
		require.NoError(t, err)
		require.NotNil(t, db)

		assert.FileExists(t, filepath.Join(dir, dbName))

		runSampleInsertSelectTest(t, db)
		assert.NoError(t, db.Close())
	})

	t.Run("invalid path fails", func(t *testing.T) {
		db, err := OpenFileDB("///invalid", "db.db", true)
		require.ErrorContains(t, err, "failed to prepare database path")
		require.Nil(t, db)
	})
}

func TestCheckInUniqueIndex(t *testing.T) {
	db, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer db.Close()

	first := store.CheckInRecord{EventID: "1", TokenID: "42"}
	require.NoError(t, db.Client().Create(&first).Error)

	dup := store.CheckInRecord{EventID: "1", TokenID: "42"}
	require.Error(t, db.Client().Create(&dup).Error)

	// Same token for a different event is a distinct key.
	other := store.CheckInRecord{EventID: "2", TokenID: "42"}
	require.NoError(t, db.Client().Create(&other).Error)
}

func runSampleInsertSelectTest(t *testing.T, db *DB) {
	t.Helper()

	entry := store.ClaimSubmission{
		TicketID:  "3",
		TxHash:    "0xdeadbeef",
		AmountWei: "1000000000000000",
		Status:    "submitted",
	}
	require.NoError(t, db.Client().Create(&entry).Error)

	var result store.ClaimSubmission
	require.NoError(t, db.Client().First(&result).Error)
	assert.Equal(t, "3", result.TicketID)
	assert.Equal(t, "submitted", result.Status)
}
