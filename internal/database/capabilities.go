package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
)

// Capabilities records which optional tables exist in the connected
// schema. It is resolved once at startup and injected into the services
// that depend on optional features.
type Capabilities struct {
	SeatHolds  bool // seat_holds table present
	Promotions bool // promotions and promotion_redemptions tables present
}

// ProbeCapabilities inspects information_schema for the optional tables.
func ProbeCapabilities(ctx context.Context, db *sql.DB) (Capabilities, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = DATABASE()
		   AND table_name IN ('seat_holds','promotions','promotion_redemptions')`)
	if err != nil {
		return Capabilities{}, errors.Wrap(err, "query information_schema")
	}
	defer rows.Close()

	present := make(map[string]bool, 3)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Capabilities{}, errors.Wrap(err, "scan table name")
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return Capabilities{}, errors.Wrap(err, "iterate tables")
	}
	return Capabilities{
		SeatHolds:  present["seat_holds"],
		Promotions: present["promotions"] && present["promotion_redemptions"],
	}, nil
}
