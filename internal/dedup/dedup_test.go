package dedup

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"loadwatch-engine/internal/domain"
)

func recordFor(loadID, pickCity, pickState, delCity, delState string) domain.LoadRecord {
	var r domain.LoadRecord
	r.LoadID = domain.Known(loadID)
	r.PickupCity = domain.Known(pickCity)
	r.PickupState = domain.Known(pickState)
	r.DeliveryCity = domain.Known(delCity)
	r.DeliveryState = domain.Known(delState)
	return r
}

func TestKeyShape(t *testing.T) {
	r := recordFor("445566", "DALLAS", "TX", "HOUSTON", "TX")
	require.Equal(t, "445566_DALLAS, TX_HOUSTON, TX", Key(r))
}

func TestKeyReusedLoadIDDiffersByRoute(t *testing.T) {
	// The board reuses numeric ids; the route keeps the keys apart.
	a := recordFor("445566", "DALLAS", "TX", "HOUSTON", "TX")
	b := recordFor("445566", "DALLAS", "TX", "AUSTIN", "TX")
	require.NotEqual(t, Key(a), Key(b))
}

func TestKeyUnresolvedFields(t *testing.T) {
	var r domain.LoadRecord
	r.LoadID = domain.Known("445566")
	require.Equal(t, "445566_Unknown, Unknown_Unknown, Unknown", Key(r))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Contains(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, "k1"))
	ok, err = s.Contains(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sent_items.txt")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "445566_DALLAS, TX_HOUSTON, TX"))
	require.NoError(t, s.Add(ctx, "445567_MIAMI, FL_TAMPA, FL"))
	// Adding the same key twice is a no-op, not a duplicate line.
	require.NoError(t, s.Add(ctx, "445566_DALLAS, TX_HOUSTON, TX"))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	ok, err := reopened.Contains(ctx, "445566_DALLAS, TX_HOUSTON, TX")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reopened.Contains(ctx, "999999_X, Y_Z, W")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE seen_loads (key TEXT PRIMARY KEY);`)
	require.NoError(t, err)

	s := NewSQLStore(db)
	ok, err := s.Contains(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, "k1"))
	require.NoError(t, s.Add(ctx, "k1"))

	ok, err = s.Contains(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
}
