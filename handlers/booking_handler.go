package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/TrongtrongJ/eventeer/internal/status"
	"github.com/TrongtrongJ/eventeer/services"
)

type BookingHandler struct {
	bookings *services.BookingService
}

func NewBookingHandler(bookings *services.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type createBookingRequest struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Quantity   int    `json:"quantity"`
	CouponCode string `json:"coupon_code"`
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EventID == "" || req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id and a positive quantity are required")
	}

	result, err := h.bookings.Create(c.Request().Context(), services.CreateBookingRequest{
		EventID:    req.EventID,
		UserID:     req.UserID,
		Email:      req.Email,
		Quantity:   req.Quantity,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"booking":       result.Booking,
		"client_secret": result.ClientSecret,
	})
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.bookings.Get(c.Request().Context(), c.PathParam("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	booking, err := h.bookings.Confirm(c.Request().Context(), c.PathParam("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	if err := h.bookings.Cancel(c.Request().Context(), c.PathParam("id")); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *BookingHandler) ListUserBookings(c echo.Context) error {
	bookings, err := h.bookings.ListByUser(c.Request().Context(), c.PathParam("userId"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) ListEventBookings(c echo.Context) error {
	bookings, err := h.bookings.ListByEvent(c.Request().Context(), c.PathParam("eventId"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, bookings)
}

// mapServiceError translates the core error taxonomy to HTTP statuses.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrBookingNotFound),
		errors.Is(err, status.ErrCouponNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, status.ErrInventoryExhausted):
		return echo.NewHTTPError(http.StatusConflict, "insufficient available seats")
	case errors.Is(err, status.ErrResourceBusy),
		errors.Is(err, status.ErrRowLocked):
		return echo.NewHTTPError(http.StatusConflict, "resource busy, please retry")
	case errors.Is(err, status.ErrCouponExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, status.ErrPaymentNotConfirmed):
		return echo.NewHTTPError(http.StatusBadRequest, "payment not confirmed")
	case errors.Is(err, status.ErrPaymentInitFailed),
		errors.Is(err, status.ErrCircuitOpen):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payment provider unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
