package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"github.com/TrongtrongJ/eventeer/models"
	"github.com/TrongtrongJ/eventeer/store"
)

type EventHandler struct {
	store *store.Store
}

func NewEventHandler(st *store.Store) *EventHandler {
	return &EventHandler{store: st}
}

type createEventRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Venue       string          `json:"venue"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Currency    string          `json:"currency"`
	Capacity    int             `json:"capacity"`
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Capacity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name and a positive capacity are required")
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	event := &models.Event{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		Venue:          req.Venue,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		TicketPrice:    req.TicketPrice,
		Currency:       req.Currency,
		Capacity:       req.Capacity,
		AvailableSeats: req.Capacity,
		Status:         "upcoming",
	}
	if err := h.store.InsertEvent(c.Request().Context(), h.store.DB(), event); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.store.ListEvents(c.Request().Context(), h.store.DB())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetAvailability(c echo.Context) error {
	event, err := h.store.GetEvent(c.Request().Context(), h.store.DB(), c.PathParam("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"event_id":        event.ID,
		"available_seats": event.AvailableSeats,
		"capacity":        event.Capacity,
		"version":         event.Version,
	})
}

// TicketHandler validates tickets at the venue door.
type TicketHandler struct {
	store *store.Store
}

func NewTicketHandler(st *store.Store) *TicketHandler {
	return &TicketHandler{store: st}
}

func (h *TicketHandler) ValidateTicket(c echo.Context) error {
	var req struct {
		QRCode string `json:"qr_code"`
	}
	if err := c.Bind(&req); err != nil || req.QRCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qr_code is required")
	}

	validated, err := h.store.MarkTicketValidated(c.Request().Context(), h.store.DB(), req.QRCode)
	if err != nil {
		return mapServiceError(err)
	}
	if !validated {
		return echo.NewHTTPError(http.StatusConflict, "ticket already validated or unknown")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "validated"})
}
