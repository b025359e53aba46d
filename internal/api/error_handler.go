package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
	"github.com/akann/events-booking/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// errorStatus はドメインエラーとHTTPステータスの対応
// メッセージはマッチしたエラー自身のものを返す
var errorStatus = []struct {
	target error
	code   int
}{
	{event.ErrInvalidTotalSeats, http.StatusBadRequest},
	{seat.ErrUserIDRequired, http.StatusBadRequest},
	{seat.ErrInvalidSeatID, http.StatusBadRequest},
	{seat.ErrSeatNotFound, http.StatusBadRequest},
	{seat.ErrSeatNotAvailable, http.StatusBadRequest},
	{seat.ErrHoldLimitExceeded, http.StatusBadRequest},
	{seat.ErrSeatNotHeld, http.StatusBadRequest},
	{seat.ErrNotYourSeat, http.StatusBadRequest},
	{seat.ErrSeatNotRefreshable, http.StatusBadRequest},
	{event.ErrEventNotFound, http.StatusNotFound},
	{event.ErrConcurrentUpdate, http.StatusServiceUnavailable},
	{event.ErrStoreUnavailable, http.StatusInternalServerError},
	{event.ErrCorruptedEvent, http.StatusInternalServerError},
}

// StatusFor はエラーに対応するステータスコードとメッセージを返す
func StatusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}
	for _, s := range errorStatus {
		if errors.Is(err, s.target) {
			return s.code, s.target.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := StatusFor(err)

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	// JSONレスポンスを返す
	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
