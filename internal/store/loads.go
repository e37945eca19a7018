package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"loadwatch-engine/internal/domain"
)

// StoredLoad is the archived form of a delivered posting, flattened for the
// local HTTP surface. Empty strings and zero ints mean the field never
// resolved.
type StoredLoad struct {
	ID            int64  `json:"id"`
	SeenKey       string `json:"seenKey"`
	Company       string `json:"company"`
	LoadID        string `json:"loadId"`
	PickupCity    string `json:"pickupCity"`
	PickupState   string `json:"pickupState"`
	DeliveryCity  string `json:"deliveryCity"`
	DeliveryState string `json:"deliveryState"`
	PickupDate    string `json:"pickupDate"`
	DeliveryDate  string `json:"deliveryDate"`
	Miles         int    `json:"miles"`
	Pieces        int    `json:"pieces"`
	WeightLbs     int    `json:"weightLbs"`
	VehicleType   string `json:"vehicleType"`
	RateUSD       string `json:"rateUsd"`
	ContactEmail  string `json:"contactEmail"`
	ContactPhone  string `json:"contactPhone"`
	Instructions  string `json:"instructions"`
	FoundAt       string `json:"foundAt"`
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS loads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  seen_key TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  load_id TEXT NOT NULL DEFAULT '',
  pickup_city TEXT NOT NULL DEFAULT '',
  pickup_state TEXT NOT NULL DEFAULT '',
  delivery_city TEXT NOT NULL DEFAULT '',
  delivery_state TEXT NOT NULL DEFAULT '',
  pickup_date TEXT NOT NULL DEFAULT '',
  delivery_date TEXT NOT NULL DEFAULT '',
  miles INTEGER NOT NULL DEFAULT 0,
  pieces INTEGER NOT NULL DEFAULT 0,
  weight_lbs INTEGER NOT NULL DEFAULT 0,
  vehicle_type TEXT NOT NULL DEFAULT '',
  rate_usd TEXT NOT NULL DEFAULT '',
  contact_email TEXT NOT NULL DEFAULT '',
  contact_phone TEXT NOT NULL DEFAULT '',
  instructions TEXT NOT NULL DEFAULT '',
  found_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS seen_loads (
  key TEXT PRIMARY KEY
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_loads_found_at ON loads(found_at DESC);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_loads_seen_key ON loads(seen_key);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertLoad archives a delivered posting. Duplicate seen keys are ignored:
// delivery already dedups, this is belt and suspenders for restarts.
func InsertLoad(ctx context.Context, db *sql.DB, key string, r domain.LoadRecord) error {
	foundAt := r.FoundAt
	if foundAt.IsZero() {
		foundAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO loads (
  seen_key, company, load_id,
  pickup_city, pickup_state, delivery_city, delivery_state,
  pickup_date, delivery_date,
  miles, pieces, weight_lbs, vehicle_type, rate_usd,
  contact_email, contact_phone, instructions, found_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		key,
		r.Company.Or(""), r.LoadID.Or(""),
		r.PickupCity.Or(""), r.PickupState.Or(""),
		r.DeliveryCity.Or(""), r.DeliveryState.Or(""),
		r.PickupDate.Or(""), r.DeliveryDate.Or(""),
		r.Miles.Or(0), r.Pieces.Or(0), r.WeightLbs.Or(0),
		r.VehicleType.Or(""), r.RateUSD.Or(""),
		r.ContactEmail.Or(""), r.ContactPhone.Or(""),
		strings.Join(r.SpecialInstructions, ", "),
		foundAt.UTC().Format(time.RFC3339),
	)
	return err
}

func ListLoads(ctx context.Context, db *sql.DB, limit int) ([]StoredLoad, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, seen_key, company, load_id,
       pickup_city, pickup_state, delivery_city, delivery_state,
       pickup_date, delivery_date,
       miles, pieces, weight_lbs, vehicle_type, rate_usd,
       contact_email, contact_phone, instructions, found_at
FROM loads
ORDER BY found_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredLoad
	for rows.Next() {
		var l StoredLoad
		if err := rows.Scan(
			&l.ID, &l.SeenKey, &l.Company, &l.LoadID,
			&l.PickupCity, &l.PickupState, &l.DeliveryCity, &l.DeliveryState,
			&l.PickupDate, &l.DeliveryDate,
			&l.Miles, &l.Pieces, &l.WeightLbs, &l.VehicleType, &l.RateUSD,
			&l.ContactEmail, &l.ContactPhone, &l.Instructions, &l.FoundAt,
		); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
