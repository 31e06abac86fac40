package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/services"
)

type CouponHandler struct {
	coupons *services.CouponService
}

func NewCouponHandler(coupons *services.CouponService) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

type createCouponRequest struct {
	Code              string          `json:"code"`
	EventID           string          `json:"event_id"`
	DiscountType      string          `json:"discount_type"`
	DiscountValue     decimal.Decimal `json:"discount_value"`
	MaxUsages         int             `json:"max_usages"`
	ExpiresAt         time.Time       `json:"expires_at"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
}

func (h *CouponHandler) CreateCoupon(c echo.Context) error {
	var req createCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" || req.EventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code and event_id are required")
	}
	discountType := models.DiscountType(req.DiscountType)
	if discountType != models.DiscountPercentage && discountType != models.DiscountFixed {
		return echo.NewHTTPError(http.StatusBadRequest, "discount_type must be PERCENTAGE or FIXED")
	}

	coupon, err := h.coupons.Create(c.Request().Context(), &models.Coupon{
		Code:              req.Code,
		EventID:           req.EventID,
		DiscountType:      discountType,
		DiscountValue:     req.DiscountValue,
		MaxUsages:         req.MaxUsages,
		ExpiresAt:         req.ExpiresAt,
		MinPurchaseAmount: req.MinPurchaseAmount,
		IsActive:          true,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, coupon)
}

func (h *CouponHandler) GetCoupon(c echo.Context) error {
	coupon, err := h.coupons.FindByCode(c.Request().Context(), c.PathParam("code"), c.PathParam("eventId"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, coupon)
}

func (h *CouponHandler) ListEventCoupons(c echo.Context) error {
	coupons, err := h.coupons.ListByEvent(c.Request().Context(), c.PathParam("eventId"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"coupons": coupons})
}
