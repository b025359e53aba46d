package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
	"github.com/akann/events-booking/internal/pkg/clock"
	"github.com/akann/events-booking/internal/pkg/logger"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

type EventService struct {
	eventRepo event.Repository
	clock     clock.Clock
	metrics   *metrics.Metrics
}

// NewEventService はEventServiceを作成する（m は nil 可）
func NewEventService(eventRepo event.Repository, clk clock.Clock, m *metrics.Metrics) *EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &EventService{eventRepo: eventRepo, clock: clk, metrics: m}
}

// CreateEvent は全席空席のイベントを作成する
// 席数が範囲外の場合はストアに触れずに ErrInvalidTotalSeats を返す
func (s *EventService) CreateEvent(ctx context.Context, totalSeats int) (*event.Event, error) {
	if err := event.ValidateTotalSeats(totalSeats); err != nil {
		return nil, err
	}
	e, err := event.NewEvent(uuid.NewString(), totalSeats, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		logger.FromContext(ctx).Error("イベント作成に失敗しました", zap.Error(err))
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EventsCreatedTotal.Inc()
	}
	logger.FromContext(ctx).Info("イベントを作成しました",
		zap.String("event_id", e.ID),
		zap.Int("total_seats", totalSeats),
	)
	return e, nil
}

// EventSummary はイベントの概要
type EventSummary struct {
	ID         string
	CreatedAt  time.Time
	TotalSeats int
	event.Summary
}

// GetEvent はイベントの概要を返す（期限切れのホールドは空席として数える）
func (s *EventService) GetEvent(ctx context.Context, id string) (*EventSummary, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EventSummary{
		ID:         e.ID,
		CreatedAt:  e.CreatedAt,
		TotalSeats: e.TotalSeats(),
		Summary:    e.Summarize(s.clock.Now()),
	}, nil
}

// ListAvailableSeats はホールド可能な座席を返す
// 読み取りのみで、ストアの内容は変更しない
func (s *EventService) ListAvailableSeats(ctx context.Context, id string) ([]seat.Seat, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.AvailableSeats(s.clock.Now()), nil
}
