package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/akann/events-booking/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

// 空の userId はサービス側で ErrUserIDRequired になる
type SeatUserRequest struct {
	UserID string `json:"userId" validate:"max=255"`
}

type HoldResponse struct {
	SeatID     int         `json:"seatId"`
	Status     seat.Status `json:"status"`
	HoldExpiry int64       `json:"holdExpiry"` // エポックミリ秒
}

type ReserveResponse struct {
	SeatID int         `json:"seatId"`
	Status seat.Status `json:"status"`
}

func seatIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("seat_id"))
	if err != nil {
		return 0, seat.ErrInvalidSeatID
	}
	return id, nil
}

func (h *SeatHandler) bindUser(c echo.Context) (string, error) {
	var req SeatUserRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return "", err
	}
	return req.UserID, nil
}

// Hold godoc
// @Summary 座席をホールド
// @Tags seats
// @Accept json
// @Produce json
// @Param event_id path string true "イベントID"
// @Param seat_id path int true "座席番号"
// @Param request body SeatUserRequest true "ユーザー"
// @Success 200 {object} HoldResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /events/{event_id}/seats/{seat_id}/hold [post]
func (h *SeatHandler) Hold(c echo.Context) error {
	seatID, err := seatIDParam(c)
	if err != nil {
		return err
	}
	userID, err := h.bindUser(c)
	if err != nil {
		return err
	}

	res, err := h.service.Hold(c.Request().Context(), c.Param("event_id"), seatID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HoldResponse{
		SeatID:     res.SeatID,
		Status:     res.Status,
		HoldExpiry: res.HoldExpiry.UnixMilli(),
	})
}

// Reserve godoc
// @Summary ホールド中の座席を予約確定
// @Tags seats
// @Accept json
// @Produce json
// @Param event_id path string true "イベントID"
// @Param seat_id path int true "座席番号"
// @Param request body SeatUserRequest true "ユーザー"
// @Success 200 {object} ReserveResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events/{event_id}/seats/{seat_id}/reserve [post]
func (h *SeatHandler) Reserve(c echo.Context) error {
	seatID, err := seatIDParam(c)
	if err != nil {
		return err
	}
	userID, err := h.bindUser(c)
	if err != nil {
		return err
	}

	res, err := h.service.Reserve(c.Request().Context(), c.Param("event_id"), seatID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReserveResponse{SeatID: res.SeatID, Status: res.Status})
}

// Refresh godoc
// @Summary ホールドの期限を延長
// @Tags seats
// @Produce json
// @Param event_id path string true "イベントID"
// @Param seat_id path int true "座席番号"
// @Success 200 {object} seat.Seat
// @Failure 400 {object} api.ErrorResponse
// @Router /events/{event_id}/seats/{seat_id}/refresh [post]
func (h *SeatHandler) Refresh(c echo.Context) error {
	seatID, err := seatIDParam(c)
	if err != nil {
		return err
	}

	s, err := h.service.Refresh(c.Request().Context(), c.Param("event_id"), seatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}
