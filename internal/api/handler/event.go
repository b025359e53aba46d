package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akann/events-booking/internal/domain/seat"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	TotalSeats *int `json:"totalSeats" validate:"required" example:"100"`
}

type CreateEventResponse struct {
	EventID    string `json:"eventId" example:"550e8400-e29b-41d4-a716-446655440000"`
	TotalSeats int    `json:"totalSeats" example:"100"`
}

type EventSummaryResponse struct {
	EventID    string `json:"eventId"`
	CreatedAt  string `json:"createdAt"`
	TotalSeats int    `json:"totalSeats"`
	Available  int    `json:"available"`
	Held       int    `json:"held"`
	Reserved   int    `json:"reserved"`
}

type AvailableSeatsResponse struct {
	AvailableSeats []seat.Seat `json:"availableSeats"`
}

// Create godoc
// @Summary イベントを作成
// @Description 全席空席のイベントを作成します（10〜1000席）
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "席数"
// @Success 201 {object} CreateEventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), *req.TotalSeats)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateEventResponse{EventID: e.ID, TotalSeats: e.TotalSeats()})
}

// GetByID godoc
// @Summary イベントの概要を取得
// @Tags events
// @Produce json
// @Param event_id path string true "イベントID"
// @Success 200 {object} EventSummaryResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{event_id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	sum, err := h.eventService.GetEvent(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EventSummaryResponse{
		EventID:    sum.ID,
		CreatedAt:  sum.CreatedAt.Format(time.RFC3339),
		TotalSeats: sum.TotalSeats,
		Available:  sum.Available,
		Held:       sum.Held,
		Reserved:   sum.Reserved,
	})
}

// ListAvailableSeats godoc
// @Summary ホールド可能な座席一覧
// @Description 期限切れのホールドは空席として返します
// @Tags seats
// @Produce json
// @Param event_id path string true "イベントID"
// @Success 200 {object} AvailableSeatsResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{event_id}/seats [get]
func (h *EventHandler) ListAvailableSeats(c echo.Context) error {
	seats, err := h.eventService.ListAvailableSeats(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailableSeatsResponse{AvailableSeats: seats})
}
