package model

import "time"

// SeatHold represents a temporary hold on a seat while a buyer is in the
// checkout flow. Holds expire at ExpiresAt and are released when the
// seat is purchased. Seats sharing a HoldToken were held together.
//
// Fields:
//
//	ID          – primary key identifier.
//	ShowtimeID  – showtime for which the seat is held.
//	SeatLabel   – seat being held (e.g. "C7").
//	HoldToken   – token returned to the client for release.
//	HolderEmail – optional email of the buyer holding the seat.
//	ExpiresAt   – when the hold expires.
//	CreatedAt   – when the hold was created.
type SeatHold struct {
	ID          uint64    // seat_holds.id
	ShowtimeID  uint64    // seat_holds.showtime_id
	SeatLabel   string    // seat_holds.seat_label
	HoldToken   string    // seat_holds.hold_token
	HolderEmail *string   // seat_holds.holder_email (nullable)
	ExpiresAt   time.Time // seat_holds.expires_at
	CreatedAt   time.Time // seat_holds.created_at
}
