package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
	"github.com/akann/events-booking/internal/pkg/clock"
	"github.com/akann/events-booking/internal/pkg/logger"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

const (
	operationHold    = "hold"
	operationReserve = "reserve"
	operationRefresh = "refresh"
)

const (
	resultSuccess  = "success"
	resultRejected = "rejected"
	resultConflict = "conflict"
	resultError    = "error"
)

// Locker はイベント単位の書き込みを直列化する
// 返した関数でロックを解放する
type Locker interface {
	Lock(ctx context.Context, eventID string) (func(), error)
}

// RetryPolicy は楽観的ロック競合時の再試行設定
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy は 5回 / 5ms〜100ms の設定を返す
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 5 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
}

// backoff は attempt 回目の失敗後の待機時間を返す（フルジッター）
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d + 1)))
}

// SeatService は座席の状態遷移を行う
// 読み込み → 変更 → バージョン比較付き保存 を競合時に再試行する
type SeatService struct {
	eventRepo event.Repository
	clock     clock.Clock
	policy    event.HoldPolicy
	retry     RetryPolicy
	locker    Locker
	metrics   *metrics.Metrics
}

type SeatServiceOption func(*SeatService)

func WithHoldPolicy(p event.HoldPolicy) SeatServiceOption {
	return func(s *SeatService) { s.policy = p }
}

func WithRetryPolicy(p RetryPolicy) SeatServiceOption {
	return func(s *SeatService) { s.retry = p }
}

// WithLocker は分散ロックを有効にする（nil なら無効）
func WithLocker(l Locker) SeatServiceOption {
	return func(s *SeatService) { s.locker = l }
}

func WithMetrics(m *metrics.Metrics) SeatServiceOption {
	return func(s *SeatService) { s.metrics = m }
}

func WithClock(c clock.Clock) SeatServiceOption {
	return func(s *SeatService) { s.clock = c }
}

func NewSeatService(eventRepo event.Repository, opts ...SeatServiceOption) *SeatService {
	s := &SeatService{
		eventRepo: eventRepo,
		clock:     clock.NewSystem(),
		policy:    event.DefaultHoldPolicy(),
		retry:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.MaxAttempts < 1 {
		s.retry.MaxAttempts = 1
	}
	return s
}

// HoldResult はホールド結果
type HoldResult struct {
	SeatID     int
	Status     seat.Status
	HoldExpiry time.Time
}

// ReserveResult は予約結果
type ReserveResult struct {
	SeatID int
	Status seat.Status
}

// Hold は座席を userID でホールドする
func (s *SeatService) Hold(ctx context.Context, eventID string, seatID int, userID string) (*HoldResult, error) {
	if userID == "" {
		return nil, seat.ErrUserIDRequired
	}
	st, err := s.transition(ctx, operationHold, eventID, seatID, func(e *event.Event, now time.Time) (*seat.Seat, error) {
		return e.HoldSeat(seatID, userID, now, s.policy)
	})
	if err != nil {
		return nil, err
	}
	expiry, _ := st.HoldExpiry()
	return &HoldResult{SeatID: st.ID, Status: st.Status(), HoldExpiry: expiry}, nil
}

// Reserve は userID がホールドしている座席を予約確定する
func (s *SeatService) Reserve(ctx context.Context, eventID string, seatID int, userID string) (*ReserveResult, error) {
	if userID == "" {
		return nil, seat.ErrUserIDRequired
	}
	st, err := s.transition(ctx, operationReserve, eventID, seatID, func(e *event.Event, now time.Time) (*seat.Seat, error) {
		return e.ReserveSeat(seatID, userID, now)
	})
	if err != nil {
		return nil, err
	}
	return &ReserveResult{SeatID: st.ID, Status: st.Status()}, nil
}

// Refresh はホールドの期限を now + TTL に延長する
func (s *SeatService) Refresh(ctx context.Context, eventID string, seatID int) (*seat.Seat, error) {
	st, err := s.transition(ctx, operationRefresh, eventID, seatID, func(e *event.Event, now time.Time) (*seat.Seat, error) {
		return e.RefreshSeat(seatID, now, s.policy.TTL)
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

type applyFunc func(e *event.Event, now time.Time) (*seat.Seat, error)

func (s *SeatService) transition(ctx context.Context, op, eventID string, seatID int, apply applyFunc) (seat.Seat, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With(
		zap.String("operation", op),
		zap.String("event_id", eventID),
		zap.Int("seat_id", seatID),
	)

	st, err := s.run(ctx, log, op, eventID, apply)
	s.observe(op, start, err)
	return st, err
}

func (s *SeatService) run(ctx context.Context, log *zap.Logger, op, eventID string, apply applyFunc) (seat.Seat, error) {
	if s.locker != nil {
		release, err := s.locker.Lock(ctx, eventID)
		if err != nil {
			log.Warn("イベントロックを取得できませんでした", zap.Error(err))
			return seat.Seat{}, fmt.Errorf("%w: %w", event.ErrConcurrentUpdate, err)
		}
		defer release()
	}

	for attempt := 1; ; attempt++ {
		e, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, event.ErrStoreUnavailable) {
				log.Error("イベント取得に失敗しました", zap.Error(err))
			}
			return seat.Seat{}, err
		}

		st, err := apply(e, s.clock.Now())
		if err != nil {
			return seat.Seat{}, err
		}
		snapshot := *st

		err = s.eventRepo.Save(ctx, e)
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, event.ErrOptimisticLockConflict) {
			if errors.Is(err, event.ErrStoreUnavailable) {
				log.Error("イベント保存に失敗しました", zap.Error(err))
			}
			return seat.Seat{}, err
		}

		if s.metrics != nil {
			s.metrics.StoreConflictsTotal.WithLabelValues(op).Inc()
		}
		if attempt >= s.retry.MaxAttempts {
			log.Warn("競合が解消しないため再試行を打ち切りました", zap.Int("attempts", attempt))
			return seat.Seat{}, event.ErrConcurrentUpdate
		}
		log.Debug("楽観的ロック競合、再試行します", zap.Int("attempt", attempt))

		if err := sleep(ctx, s.retry.backoff(attempt)); err != nil {
			return seat.Seat{}, fmt.Errorf("%w: %w", event.ErrStoreUnavailable, err)
		}
	}
}

func (s *SeatService) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := resultSuccess
	switch {
	case err == nil:
	case seat.IsRuleViolation(err), errors.Is(err, event.ErrEventNotFound):
		result = resultRejected
	case errors.Is(err, event.ErrConcurrentUpdate):
		result = resultConflict
	default:
		result = resultError
	}
	s.metrics.SeatTransitionsTotal.WithLabelValues(op, result).Inc()
	s.metrics.TransitionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
