package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/auth"
	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

type userDTO struct {
	ID          uint64  `json:"id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"displayName"`
	Role        string  `json:"role"`
}

func toUserDTO(u auth.PublicUser) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}

type movieDTO struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	DurationMin int       `json:"durationMin"`
	Rating      *string   `json:"rating"`
	PosterURL   *string   `json:"posterUrl"`
	Overview    *string   `json:"overview"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toMovieDTO(m model.Movie) movieDTO {
	return movieDTO{
		ID:          m.ID,
		Title:       m.Title,
		DurationMin: m.DurationMin,
		Rating:      m.Rating,
		PosterURL:   m.PosterURL,
		Overview:    m.Overview,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}

func toMovieDTOs(ms []model.Movie) []movieDTO {
	out := make([]movieDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMovieDTO(m))
	}
	return out
}

type promotionDTO struct {
	ID           uint64              `json:"id"`
	Code         string              `json:"code"`
	Type         string              `json:"type"`
	Value        decimal.Decimal     `json:"value"`
	MaxDiscount  decimal.NullDecimal `json:"maxDiscount"`
	MinSpend     decimal.NullDecimal `json:"minSpend"`
	StartsAt     *time.Time          `json:"startsAt"`
	EndsAt       *time.Time          `json:"endsAt"`
	UsageLimit   *int                `json:"usageLimit"`
	UsagePerUser *int                `json:"usagePerUser"`
	Active       bool                `json:"active"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toPromotionDTO(p model.Promotion) promotionDTO {
	return promotionDTO{
		ID:           p.ID,
		Code:         p.Code,
		Type:         p.Type,
		Value:        p.Value,
		MaxDiscount:  p.MaxDiscount,
		MinSpend:     p.MinSpend,
		StartsAt:     p.StartsAt,
		EndsAt:       p.EndsAt,
		UsageLimit:   p.UsageLimit,
		UsagePerUser: p.UsagePerUser,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type promotionStatsDTO struct {
	promotionDTO
	UsageCount  int `json:"usageCount"`
	UniqueUsers int `json:"uniqueUsers"`
}

type ticketDTO struct {
	ID        uint64          `json:"id"`
	SeatLabel string          `json:"seatLabel"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

type orderMovieDTO struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	DurationMin int     `json:"durationMin"`
	Rating      *string `json:"rating"`
}

type orderShowtimeDTO struct {
	ID        uint64          `json:"id"`
	Theater   string          `json:"theater"`
	StartsAt  time.Time       `json:"startsAt"`
	BasePrice decimal.Decimal `json:"basePrice"`
	Movie     orderMovieDTO   `json:"movie"`
}

type orderDTO struct {
	OrderID        uint64           `json:"orderId"`
	RefCode        string           `json:"refCode"`
	Status         string           `json:"status"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	PromoCode      *string          `json:"promoCode"`
	CreatedAt      time.Time        `json:"createdAt"`
	PaidAt         *time.Time       `json:"paidAt"`
	BuyerEmail     *string          `json:"buyerEmail"`
	Showtime       orderShowtimeDTO `json:"showtime"`
	Tickets        []ticketDTO      `json:"tickets"`
}

func toOrderDTO(d repository.OrderDetail) orderDTO {
	o := orderDTO{
		OrderID:        d.Order.ID,
		RefCode:        d.Order.RefCode,
		Status:         d.Order.Status,
		TotalAmount:    d.Order.TotalAmount,
		DiscountAmount: d.Order.DiscountAmount,
		PromoCode:      d.Order.PromoCode,
		CreatedAt:      d.Order.CreatedAt,
		PaidAt:         d.Order.PaidAt,
		BuyerEmail:     d.Order.BuyerEmail,
		Showtime: orderShowtimeDTO{
			ID:        d.Showtime.ID,
			Theater:   d.Showtime.Theater,
			StartsAt:  d.Showtime.StartsAt,
			BasePrice: d.Showtime.BasePrice,
			Movie: orderMovieDTO{
				ID:          d.Movie.ID,
				Title:       d.Movie.Title,
				DurationMin: d.Movie.DurationMin,
				Rating:      d.Movie.Rating,
			},
		},
		Tickets: make([]ticketDTO, 0, len(d.Tickets)),
	}
	for _, t := range d.Tickets {
		o.Tickets = append(o.Tickets, ticketDTO{ID: t.ID, SeatLabel: t.SeatLabel, Price: t.Price, CreatedAt: t.CreatedAt})
	}
	return o
}
