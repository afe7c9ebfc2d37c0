package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Showtime is a scheduled screening of a movie in a theater. The pair
// (MovieID, StartsAt) is unique so that "ensure" can find-or-create it.
//
// Fields:
//
//	ID        – primary key identifier.
//	MovieID   – movie being screened.
//	Theater   – free-form theater label (e.g. "Theater 1").
//	StartsAt  – when the screening begins (UTC).
//	BasePrice – default seat price.
//	CreatedAt – creation timestamp.
type Showtime struct {
	ID        uint64          // showtimes.id
	MovieID   uint64          // showtimes.movie_id
	Theater   string          // showtimes.theater
	StartsAt  time.Time       // showtimes.starts_at
	BasePrice decimal.Decimal // showtimes.base_price
	CreatedAt time.Time       // showtimes.created_at
}
