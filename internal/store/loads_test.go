package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loadwatch-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "loadwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func sampleRecord(loadID string, foundAt time.Time) domain.LoadRecord {
	var r domain.LoadRecord
	r.LoadID = domain.Known(loadID)
	r.Company = domain.Known("ACME CO")
	r.PickupCity = domain.Known("DALLAS")
	r.PickupState = domain.Known("TX")
	r.DeliveryCity = domain.Known("HOUSTON")
	r.DeliveryState = domain.Known("TX")
	r.Miles = domain.Known(240)
	r.VehicleType = domain.Known("STRAIGHT")
	r.ContactEmail = domain.Known("dispatch@acme.com")
	r.SpecialInstructions = []string{"HAZMAT"}
	r.FoundAt = foundAt
	return r
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))
}

func TestInsertAndListLoads(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	base := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, InsertLoad(ctx, db.Pool, "key-1", sampleRecord("445566", base)))
	require.NoError(t, InsertLoad(ctx, db.Pool, "key-2", sampleRecord("445567", base.Add(time.Minute))))

	loads, err := ListLoads(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, loads, 2)

	// Newest first.
	require.Equal(t, "445567", loads[0].LoadID)
	require.Equal(t, "445566", loads[1].LoadID)
	require.Equal(t, "ACME CO", loads[1].Company)
	require.Equal(t, 240, loads[1].Miles)
	require.Equal(t, "HAZMAT", loads[1].Instructions)
	require.Equal(t, "2025-09-15T08:00:00Z", loads[1].FoundAt)
}

func TestInsertLoadIgnoresDuplicateKey(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, InsertLoad(ctx, db.Pool, "key-1", sampleRecord("445566", at)))
	require.NoError(t, InsertLoad(ctx, db.Pool, "key-1", sampleRecord("445566", at)))

	loads, err := ListLoads(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, loads, 1)
}

func TestListLoadsUnresolvedFieldsAreZero(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var r domain.LoadRecord
	r.LoadID = domain.Known("445566")
	r.FoundAt = time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, InsertLoad(ctx, db.Pool, "key-1", r))

	loads, err := ListLoads(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	require.Empty(t, loads[0].Company)
	require.Zero(t, loads[0].Miles)
	require.Empty(t, loads[0].ContactEmail)
}
