package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAuditEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	entry := &AuditEntry{
		Actor:     "admin:1",
		Action:    "booking_confirmed",
		BookingID: 7,
		Details:   `{"booking_id":7}`,
	}
	require.NoError(t, db.InsertAuditEntry(ctx, entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestGetAuditEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := &AuditEntry{Actor: "system", Action: fmt.Sprintf("action_%d", i)}
		require.NoError(t, db.InsertAuditEntry(ctx, entry))
	}

	entries, err := db.GetAuditEntries(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Новые записи первыми
	assert.Equal(t, "action_4", entries[0].Action)

	all, err := db.GetAuditEntries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
