package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akann/events-booking/internal/pkg/logger"
)

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler はHealthHandlerを作成する
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Check はストアへの疎通を含めたヘルスチェックを行う
// @Summary ヘルスチェック
// @Description アプリケーションとストアの健全性を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	now := time.Now().Format(time.RFC3339)
	if err := h.store.Ping(c.Request().Context()); err != nil {
		logger.FromContext(c.Request().Context()).Warn("ストアに接続できません", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Timestamp: now})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: now})
}
