package handler

import (
	"context"

	"github.com/akann/events-booking/internal/application"
	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, totalSeats int) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*application.EventSummary, error)
	ListAvailableSeats(ctx context.Context, id string) ([]seat.Seat, error)
}

// SeatServiceInterface は座席の状態遷移サービスのインターフェース
type SeatServiceInterface interface {
	Hold(ctx context.Context, eventID string, seatID int, userID string) (*application.HoldResult, error)
	Reserve(ctx context.Context, eventID string, seatID int, userID string) (*application.ReserveResult, error)
	Refresh(ctx context.Context, eventID string, seatID int) (*seat.Seat, error)
}

// Pinger はストアの疎通確認
type Pinger interface {
	Ping(ctx context.Context) error
}
