package event

import (
	"fmt"
	"time"

	"github.com/akann/events-booking/internal/domain/seat"
)

const (
	MinTotalSeats = 10
	MaxTotalSeats = 1000
)

// Event はイベントエンティティを表す
// 座席一覧はイベントと一体で保存され、作成後に席数は変わらない
type Event struct {
	ID        string
	Seats     []*seat.Seat // index = 座席番号 - 1
	CreatedAt time.Time
	Version   int // 楽観的ロック用
}

// HoldPolicy はホールドの期限と上限
type HoldPolicy struct {
	TTL             time.Duration
	MaxHoldsPerUser int
}

// DefaultHoldPolicy は 60秒 / 10席 のポリシーを返す
func DefaultHoldPolicy() HoldPolicy {
	return HoldPolicy{TTL: seat.DefaultHoldTTL, MaxHoldsPerUser: seat.DefaultMaxHoldsPerUser}
}

// ValidateTotalSeats は席数が作成可能な範囲かを検証する
func ValidateTotalSeats(totalSeats int) error {
	if totalSeats < MinTotalSeats || totalSeats > MaxTotalSeats {
		return ErrInvalidTotalSeats
	}
	return nil
}

// NewEvent は全席空席の新しいイベントを作成する
func NewEvent(id string, totalSeats int, now time.Time) (*Event, error) {
	if err := ValidateTotalSeats(totalSeats); err != nil {
		return nil, err
	}
	seats := make([]*seat.Seat, totalSeats)
	for i := range seats {
		seats[i] = seat.NewSeat(i + 1)
	}
	return &Event{
		ID:        id,
		Seats:     seats,
		CreatedAt: now,
	}, nil
}

// TotalSeats は席数を返す
func (e *Event) TotalSeats() int {
	return len(e.Seats)
}

// Seat は座席番号から座席を取得する
func (e *Event) Seat(id int) (*seat.Seat, error) {
	if id < 1 || id > len(e.Seats) {
		return nil, seat.ErrSeatNotFound
	}
	return e.Seats[id-1], nil
}

// CountHeldBy は now 時点で userID が有効にホールドしている席数を返す
// except の座席は数えない
func (e *Event) CountHeldBy(userID string, now time.Time, except int) int {
	count := 0
	for _, s := range e.Seats {
		if s.ID != except && s.IsHeldBy(userID, now) {
			count++
		}
	}
	return count
}

// HoldSeat は座席をホールドする
func (e *Event) HoldSeat(seatID int, userID string, now time.Time, policy HoldPolicy) (*seat.Seat, error) {
	if userID == "" {
		return nil, seat.ErrUserIDRequired
	}
	s, err := e.Seat(seatID)
	if err != nil {
		return nil, err
	}
	if !s.IsAvailableAt(now) {
		return nil, seat.ErrSeatNotAvailable
	}
	if e.CountHeldBy(userID, now, seatID) >= policy.MaxHoldsPerUser {
		return nil, seat.ErrHoldLimitExceeded
	}
	if err := s.Hold(userID, now, policy.TTL); err != nil {
		return nil, err
	}
	return s, nil
}

// ReserveSeat はホールド中の座席を予約確定する
func (e *Event) ReserveSeat(seatID int, userID string, now time.Time) (*seat.Seat, error) {
	if userID == "" {
		return nil, seat.ErrUserIDRequired
	}
	s, err := e.Seat(seatID)
	if err != nil {
		return nil, err
	}
	if err := s.Reserve(userID, now); err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshSeat はホールドの期限を延長する
func (e *Event) RefreshSeat(seatID int, now time.Time, ttl time.Duration) (*seat.Seat, error) {
	s, err := e.Seat(seatID)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(now, ttl); err != nil {
		return nil, err
	}
	return s, nil
}

// AvailableSeats は now 時点でホールド可能な座席を返す
// 期限切れのホールドは空席として返すが、イベント自体は変更しない
func (e *Event) AvailableSeats(now time.Time) []seat.Seat {
	seats := make([]seat.Seat, 0, len(e.Seats))
	for _, s := range e.Seats {
		if s.IsAvailableAt(now) {
			seats = append(seats, s.View(now))
		}
	}
	return seats
}

// Summary は状態ごとの席数
type Summary struct {
	Available int
	Held      int
	Reserved  int
}

// Summarize は now 時点の状態ごとの席数を返す（遅延失効を適用）
func (e *Event) Summarize(now time.Time) Summary {
	var sum Summary
	for _, s := range e.Seats {
		v := s.View(now)
		switch v.Status() {
		case seat.StatusAvailable:
			sum.Available++
		case seat.StatusHeld:
			sum.Held++
		case seat.StatusReserved:
			sum.Reserved++
		}
	}
	return sum
}

// Validate はストアから読み込んだイベントの整合性を検証する
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrCorruptedEvent)
	}
	if err := ValidateTotalSeats(len(e.Seats)); err != nil {
		return fmt.Errorf("%w: %d seats", ErrCorruptedEvent, len(e.Seats))
	}
	for i, s := range e.Seats {
		if s == nil || s.ID != i+1 {
			return fmt.Errorf("%w: seat at position %d is out of order", ErrCorruptedEvent, i+1)
		}
	}
	return nil
}
