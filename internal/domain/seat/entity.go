package seat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusHeld      Status = "held"
	StatusReserved  Status = "reserved"
)

const (
	// DefaultHoldTTL はホールドの有効期間
	DefaultHoldTTL = 60 * time.Second
	// DefaultMaxHoldsPerUser は1ユーザーが1イベント内で同時にホールドできる座席数の上限
	DefaultMaxHoldsPerUser = 10
)

// State は座席の状態ごとのデータ
// Available / Held / Reserved のいずれかで、不正な組み合わせは表現できない
type State interface {
	Status() Status
	isState()
}

// Available は空席
type Available struct{}

// Held はユーザーによる期限付きの仮押さえ
type Held struct {
	UserID    string
	ExpiresAt time.Time
}

// Reserved は確定済みの予約
type Reserved struct {
	UserID string
}

func (Available) Status() Status { return StatusAvailable }
func (Held) Status() Status      { return StatusHeld }
func (Reserved) Status() Status  { return StatusReserved }

func (Available) isState() {}
func (Held) isState()      {}
func (Reserved) isState()  {}

// Seat は座席エンティティを表す
// ID はイベント内で 1..totalSeats の連番
type Seat struct {
	ID    int
	State State
}

// NewSeat は空席を作成する
func NewSeat(id int) *Seat {
	return &Seat{ID: id, State: Available{}}
}

// Status は保存されている状態を返す（期限切れの判定はしない）
func (s *Seat) Status() Status {
	if s.State == nil {
		return StatusAvailable
	}
	return s.State.Status()
}

// Holder はホールドまたは予約しているユーザーIDを返す
func (s *Seat) Holder() string {
	switch st := s.State.(type) {
	case Held:
		return st.UserID
	case Reserved:
		return st.UserID
	}
	return ""
}

// HoldExpiry はホールドの期限を返す（ホールド中のみ ok=true）
func (s *Seat) HoldExpiry() (time.Time, bool) {
	if h, ok := s.State.(Held); ok {
		return h.ExpiresAt, true
	}
	return time.Time{}, false
}

// IsExpired はホールドの期限が now より前に切れているかを返す
func (s *Seat) IsExpired(now time.Time) bool {
	h, ok := s.State.(Held)
	return ok && h.ExpiresAt.Before(now)
}

// IsAvailableAt は now 時点でホールド可能かを返す（遅延失効を適用）
func (s *Seat) IsAvailableAt(now time.Time) bool {
	return s.Status() == StatusAvailable || s.IsExpired(now)
}

// IsHeldBy は now 時点で userID が有効なホールドを持っているかを返す
func (s *Seat) IsHeldBy(userID string, now time.Time) bool {
	h, ok := s.State.(Held)
	return ok && h.UserID == userID && !h.ExpiresAt.Before(now)
}

// Hold は座席をホールド状態にする
// 期限切れのホールドは空席として扱い、以前のホルダー情報は残さない
func (s *Seat) Hold(userID string, now time.Time, ttl time.Duration) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if !s.IsAvailableAt(now) {
		return ErrSeatNotAvailable
	}
	s.State = Held{UserID: userID, ExpiresAt: now.Add(ttl)}
	return nil
}

// Reserve はホールド中の座席を予約確定する
func (s *Seat) Reserve(userID string, now time.Time) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	h, ok := s.State.(Held)
	if !ok || h.ExpiresAt.Before(now) {
		return ErrSeatNotHeld
	}
	if h.UserID != userID {
		return ErrNotYourSeat
	}
	s.State = Reserved{UserID: h.UserID}
	return nil
}

// Refresh はホールドの期限を延長する
// 期限切れでもまだ誰にも取られていなければ延長できる
func (s *Seat) Refresh(now time.Time, ttl time.Duration) error {
	h, ok := s.State.(Held)
	if !ok {
		return ErrSeatNotRefreshable
	}
	h.ExpiresAt = now.Add(ttl)
	s.State = h
	return nil
}

// View は now 時点での見え方を返す
// 期限切れのホールドは空席として見せる（保存はしない）
func (s *Seat) View(now time.Time) Seat {
	if s.IsAvailableAt(now) {
		return Seat{ID: s.ID, State: Available{}}
	}
	return Seat{ID: s.ID, State: s.State}
}

// record は永続化・レスポンス用のJSON表現
type record struct {
	ID         int    `json:"id"`
	Status     Status `json:"status"`
	UserID     string `json:"userId,omitempty"`
	HoldExpiry *int64 `json:"holdExpiry,omitempty"`
}

// MarshalJSON は座席を {id, status, userId?, holdExpiry?} に変換する
// holdExpiry はエポックミリ秒
func (s Seat) MarshalJSON() ([]byte, error) {
	r := record{ID: s.ID, Status: s.Status()}
	switch st := s.State.(type) {
	case Held:
		ms := st.ExpiresAt.UnixMilli()
		r.UserID = st.UserID
		r.HoldExpiry = &ms
	case Reserved:
		r.UserID = st.UserID
	}
	return json.Marshal(r)
}

// UnmarshalJSON は保存された座席を読み込む
// 状態とフィールドの組み合わせが不正な場合は ErrInvalidState を返す
func (s *Seat) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.ID <= 0 {
		return fmt.Errorf("%w: seat id %d", ErrInvalidState, r.ID)
	}

	switch r.Status {
	case StatusAvailable:
		if r.UserID != "" || r.HoldExpiry != nil {
			return fmt.Errorf("%w: seat %d is available but has a holder", ErrInvalidState, r.ID)
		}
		s.State = Available{}
	case StatusHeld:
		if r.UserID == "" || r.HoldExpiry == nil {
			return fmt.Errorf("%w: seat %d is held without holder or expiry", ErrInvalidState, r.ID)
		}
		s.State = Held{UserID: r.UserID, ExpiresAt: time.UnixMilli(*r.HoldExpiry).UTC()}
	case StatusReserved:
		if r.UserID == "" || r.HoldExpiry != nil {
			return fmt.Errorf("%w: seat %d is reserved with expiry or without holder", ErrInvalidState, r.ID)
		}
		s.State = Reserved{UserID: r.UserID}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidState, r.Status)
	}
	s.ID = r.ID
	return nil
}
