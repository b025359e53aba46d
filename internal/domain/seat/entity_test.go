package seat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewSeat(t *testing.T) {
	s := NewSeat(7)

	assert.Equal(t, 7, s.ID)
	assert.Equal(t, StatusAvailable, s.Status())
	assert.Empty(t, s.Holder())
	_, ok := s.HoldExpiry()
	assert.False(t, ok)
}

func TestSeat_IsAvailableAt(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"空席", Available{}, true},
		{"状態未設定は空席", nil, true},
		{"有効なホールド", Held{UserID: "u1", ExpiresAt: now.Add(time.Second)}, false},
		{"期限ちょうどのホールドはまだ有効", Held{UserID: "u1", ExpiresAt: now}, false},
		{"期限切れのホールド", Held{UserID: "u1", ExpiresAt: now.Add(-time.Millisecond)}, true},
		{"予約済み", Reserved{UserID: "u1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Seat{ID: 1, State: tt.state}
			assert.Equal(t, tt.expected, s.IsAvailableAt(now))
		})
	}
}

func TestSeat_Hold(t *testing.T) {
	t.Run("空席をホールドできる", func(t *testing.T) {
		s := NewSeat(1)

		err := s.Hold("user-a", now, DefaultHoldTTL)

		require.NoError(t, err)
		assert.Equal(t, StatusHeld, s.Status())
		assert.Equal(t, "user-a", s.Holder())
		exp, ok := s.HoldExpiry()
		assert.True(t, ok)
		assert.Equal(t, now.Add(60*time.Second), exp)
	})

	t.Run("ユーザーIDが空ならエラー", func(t *testing.T) {
		s := NewSeat(1)

		err := s.Hold("", now, DefaultHoldTTL)

		assert.ErrorIs(t, err, ErrUserIDRequired)
		assert.Equal(t, StatusAvailable, s.Status())
	})

	t.Run("他人の有効なホールドは奪えない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(30 * time.Second)}}

		err := s.Hold("user-b", now, DefaultHoldTTL)

		assert.ErrorIs(t, err, ErrSeatNotAvailable)
		assert.Equal(t, "user-a", s.Holder())
	})

	t.Run("期限切れのホールドは別ユーザーが取得でき以前のホルダーは残らない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(-time.Second)}}

		err := s.Hold("user-b", now, DefaultHoldTTL)

		require.NoError(t, err)
		assert.Equal(t, Held{UserID: "user-b", ExpiresAt: now.Add(DefaultHoldTTL)}, s.State)
	})

	t.Run("予約済みの座席はホールドできない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Reserved{UserID: "user-a"}}

		err := s.Hold("user-a", now, DefaultHoldTTL)

		assert.ErrorIs(t, err, ErrSeatNotAvailable)
	})
}

func TestSeat_Reserve(t *testing.T) {
	t.Run("自分のホールドを予約できる", func(t *testing.T) {
		s := NewSeat(1)
		require.NoError(t, s.Hold("user-a", now, DefaultHoldTTL))

		err := s.Reserve("user-a", now.Add(time.Second))

		require.NoError(t, err)
		assert.Equal(t, StatusReserved, s.Status())
		assert.Equal(t, "user-a", s.Holder())
		_, ok := s.HoldExpiry()
		assert.False(t, ok)
	})

	t.Run("他人のホールドは予約できない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(time.Minute)}}

		err := s.Reserve("user-b", now)

		assert.ErrorIs(t, err, ErrNotYourSeat)
		assert.Equal(t, StatusHeld, s.Status())
	})

	t.Run("空席は予約できない", func(t *testing.T) {
		s := NewSeat(1)

		err := s.Reserve("user-a", now)

		assert.ErrorIs(t, err, ErrSeatNotHeld)
	})

	t.Run("期限切れのホールドは予約できない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(-time.Second)}}

		err := s.Reserve("user-a", now)

		assert.ErrorIs(t, err, ErrSeatNotHeld)
	})

	t.Run("予約済みは再予約できない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Reserved{UserID: "user-a"}}

		err := s.Reserve("user-a", now)

		assert.ErrorIs(t, err, ErrSeatNotHeld)
	})
}

func TestSeat_Refresh(t *testing.T) {
	t.Run("ホールドの期限を延長できる", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(10 * time.Second)}}

		err := s.Refresh(now.Add(5*time.Second), DefaultHoldTTL)

		require.NoError(t, err)
		exp, _ := s.HoldExpiry()
		assert.Equal(t, now.Add(65*time.Second), exp)
		assert.Equal(t, "user-a", s.Holder())
	})

	t.Run("期限切れでも未取得なら延長できる", func(t *testing.T) {
		s := &Seat{ID: 1, State: Held{UserID: "user-a", ExpiresAt: now.Add(-time.Minute)}}

		err := s.Refresh(now, DefaultHoldTTL)

		require.NoError(t, err)
		assert.False(t, s.IsExpired(now))
	})

	t.Run("予約済みは延長できない", func(t *testing.T) {
		s := &Seat{ID: 1, State: Reserved{UserID: "user-a"}}

		err := s.Refresh(now, DefaultHoldTTL)

		assert.ErrorIs(t, err, ErrSeatNotRefreshable)
	})

	t.Run("空席は延長できない", func(t *testing.T) {
		err := NewSeat(1).Refresh(now, DefaultHoldTTL)

		assert.ErrorIs(t, err, ErrSeatNotRefreshable)
	})
}

func TestSeat_View(t *testing.T) {
	expired := &Seat{ID: 3, State: Held{UserID: "user-a", ExpiresAt: now.Add(-time.Second)}}
	active := &Seat{ID: 4, State: Held{UserID: "user-a", ExpiresAt: now.Add(time.Second)}}

	assert.Equal(t, Seat{ID: 3, State: Available{}}, expired.View(now))
	assert.Equal(t, *active, active.View(now))
	// 保存されている状態は変わらない
	assert.Equal(t, StatusHeld, expired.Status())
}

func TestSeat_JSON(t *testing.T) {
	t.Run("ホールド中の座席はユーザーと期限を含む", func(t *testing.T) {
		s := Seat{ID: 2, State: Held{UserID: "user-a", ExpiresAt: now}}

		data, err := json.Marshal(s)

		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2,"status":"held","userId":"user-a","holdExpiry":1740830400000}`, string(data))
	})

	t.Run("予約済みの座席は期限を含まない", func(t *testing.T) {
		data, err := json.Marshal(Seat{ID: 2, State: Reserved{UserID: "user-a"}})

		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2,"status":"reserved","userId":"user-a"}`, string(data))
	})

	t.Run("ホールド中の座席を読み込める", func(t *testing.T) {
		var s Seat
		err := json.Unmarshal([]byte(`{"id":5,"status":"held","userId":"u","holdExpiry":1740830400000}`), &s)

		require.NoError(t, err)
		assert.Equal(t, Seat{ID: 5, State: Held{UserID: "u", ExpiresAt: now}}, s)
	})
}

func TestSeat_UnmarshalJSON_InvalidState(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"予約済みに期限がある", `{"id":1,"status":"reserved","userId":"u","holdExpiry":1}`},
		{"予約済みにユーザーがない", `{"id":1,"status":"reserved"}`},
		{"ホールドに期限がない", `{"id":1,"status":"held","userId":"u"}`},
		{"ホールドにユーザーがない", `{"id":1,"status":"held","holdExpiry":1}`},
		{"空席にユーザーがある", `{"id":1,"status":"available","userId":"u"}`},
		{"未知の状態", `{"id":1,"status":"sold"}`},
		{"IDが0", `{"id":0,"status":"available"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Seat
			err := json.Unmarshal([]byte(tt.data), &s)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestIsRuleViolation(t *testing.T) {
	assert.True(t, IsRuleViolation(ErrSeatNotAvailable))
	assert.True(t, IsRuleViolation(ErrHoldLimitExceeded))
	assert.False(t, IsRuleViolation(ErrInvalidState))
	assert.False(t, IsRuleViolation(nil))
}
