package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/promotion"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// Quoter is implemented by *promotion.Service.
type Quoter interface {
	Enabled() bool
	Quote(ctx context.Context, code string, subtotal decimal.Decimal, email string) (promotion.Quote, error)
}

// PromotionAdmin is implemented by *repository.PromotionRepo.
type PromotionAdmin interface {
	List(ctx context.Context, status string) ([]model.PromotionStats, error)
	Create(ctx context.Context, p *model.Promotion) error
	Update(ctx context.Context, id uint64, patch repository.PromotionPatch) (model.Promotion, error)
	Deactivate(ctx context.Context, id uint64) error
}

type PromotionHandler struct {
	Quotes Quoter
	Admin  PromotionAdmin
}

func NewPromotionHandler(quotes Quoter, admin PromotionAdmin) *PromotionHandler {
	return &PromotionHandler{Quotes: quotes, Admin: admin}
}

type applyReq struct {
	Code      string              `json:"code"`
	SeatCount *int                `json:"seatCount"`
	BasePrice decimal.NullDecimal `json:"basePrice"`
	Email     string              `json:"email"`
}

type promotionReq struct {
	Code         string              `json:"code"`
	Type         string              `json:"type"`
	Value        decimal.NullDecimal `json:"value"`
	MaxDiscount  decimal.NullDecimal `json:"maxDiscount"`
	MinSpend     decimal.NullDecimal `json:"minSpend"`
	StartsAt     *time.Time          `json:"startsAt"`
	EndsAt       *time.Time          `json:"endsAt"`
	UsageLimit   *int                `json:"usageLimit"`
	UsagePerUser *int                `json:"usagePerUser"`
	Active       *bool               `json:"active"`
}

type promotionPatchReq struct {
	Code         utils.Optional[string]          `json:"code"`
	Type         utils.Optional[string]          `json:"type"`
	Value        utils.Optional[decimal.Decimal] `json:"value"`
	MaxDiscount  utils.Optional[decimal.Decimal] `json:"maxDiscount"`
	MinSpend     utils.Optional[decimal.Decimal] `json:"minSpend"`
	StartsAt     utils.Optional[time.Time]       `json:"startsAt"`
	EndsAt       utils.Optional[time.Time]       `json:"endsAt"`
	UsageLimit   utils.Optional[int]             `json:"usageLimit"`
	UsagePerUser utils.Optional[int]             `json:"usagePerUser"`
	Active       utils.Optional[bool]            `json:"active"`
}

// Preview prices ?amount= with ?code= for an optional ?email=.
func (h *PromotionHandler) Preview(c echo.Context) error {
	amount := decimal.Zero
	if raw := strings.TrimSpace(c.QueryParam("amount")); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return errBadRequest("amount is invalid")
		}
		amount = v
	}
	q, err := h.Quotes.Quote(c.Request().Context(), c.QueryParam("code"), amount, c.QueryParam("email"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"discount": q.Discount, "final": q.Final})
}

// Apply prices seatCount seats at basePrice. Missing seat counts mean
// one seat; a missing price means zero.
func (h *PromotionHandler) Apply(c echo.Context) error {
	var req applyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	seats := 1
	if req.SeatCount != nil {
		seats = *req.SeatCount
	}
	price := decimal.Zero
	if req.BasePrice.Valid {
		price = req.BasePrice.Decimal
	}
	subtotal := price.Mul(decimal.NewFromInt(int64(seats)))

	q, err := h.Quotes.Quote(c.Request().Context(), req.Code, subtotal, req.Email)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"promo": echo.Map{
		"id":             q.Promotion.ID,
		"code":           q.Promotion.Code,
		"label":          q.Label,
		"discountAmount": q.Discount,
		"finalTotal":     q.Final,
	}})
}

func (h *PromotionHandler) requireEnabled() error {
	if !h.Quotes.Enabled() {
		return promotion.ErrDisabled
	}
	return nil
}

// AdminList filters by ?status=ACTIVE|DISABLED|ALL, ACTIVE by default.
func (h *PromotionHandler) AdminList(c echo.Context) error {
	if err := h.requireEnabled(); err != nil {
		return err
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status == "" {
		status = repository.PromotionStatusActive
	}
	list, err := h.Admin.List(c.Request().Context(), status)
	if err != nil {
		return err
	}
	out := make([]promotionStatsDTO, 0, len(list))
	for _, st := range list {
		out = append(out, promotionStatsDTO{
			promotionDTO: toPromotionDTO(st.Promotion),
			UsageCount:   st.UsageCount,
			UniqueUsers:  st.UniqueUsers,
		})
	}
	return ok(c, http.StatusOK, echo.Map{"promotions": out})
}

func (h *PromotionHandler) Create(c echo.Context) error {
	if err := h.requireEnabled(); err != nil {
		return err
	}
	var req promotionReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Type) == "" || !req.Value.Valid {
		return errBadRequest("Missing fields")
	}
	if !promotion.ValidType(req.Type) {
		return errBadRequest("type must be PERCENT or FIXED")
	}
	if req.Value.Decimal.IsNegative() {
		return errBadRequest("value is invalid")
	}

	p := model.Promotion{
		Code:         req.Code,
		Type:         req.Type,
		Value:        req.Value.Decimal,
		MaxDiscount:  req.MaxDiscount,
		MinSpend:     req.MinSpend,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		UsageLimit:   req.UsageLimit,
		UsagePerUser: req.UsagePerUser,
		Active:       req.Active == nil || *req.Active,
	}
	if err := h.Admin.Create(c.Request().Context(), &p); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"promotion": toPromotionDTO(p)})
}

func (h *PromotionHandler) Update(c echo.Context) error {
	if err := h.requireEnabled(); err != nil {
		return err
	}
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var req promotionPatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Type.Set && !req.Type.Null && !promotion.ValidType(req.Type.Value) {
		return errBadRequest("type must be PERCENT or FIXED")
	}
	if req.Code.Set && strings.TrimSpace(req.Code.Value) == "" {
		return errBadRequest("Missing code")
	}
	if req.Value.Set && (req.Value.Null || req.Value.Value.IsNegative()) {
		return errBadRequest("value is invalid")
	}
	p, err := h.Admin.Update(c.Request().Context(), id, repository.PromotionPatch(req))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"promotion": toPromotionDTO(p)})
}

// Delete deactivates the promotion; redemption history is kept.
func (h *PromotionHandler) Delete(c echo.Context) error {
	if err := h.requireEnabled(); err != nil {
		return err
	}
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := h.Admin.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
