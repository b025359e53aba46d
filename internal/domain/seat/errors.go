package seat

import "errors"

// Seat ドメインのエラー定義
// メッセージはそのままクライアントへ返される
var (
	ErrUserIDRequired     = errors.New("user id required")
	ErrSeatNotFound       = errors.New("seat not found")
	ErrInvalidSeatID      = errors.New("seat not found: invalid seat id")
	ErrSeatNotAvailable   = errors.New("only available seats can be held")
	ErrHoldLimitExceeded  = errors.New("hold limit exceeded")
	ErrSeatNotHeld        = errors.New("only held seats can be reserved")
	ErrNotYourSeat        = errors.New("not your seat")
	ErrSeatNotRefreshable = errors.New("only held seats can be refreshed")
	ErrInvalidState       = errors.New("invalid seat state")
)

// IsRuleViolation は err が座席の状態遷移ルール違反かどうかを返す
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrUserIDRequired,
		ErrSeatNotFound,
		ErrInvalidSeatID,
		ErrSeatNotAvailable,
		ErrHoldLimitExceeded,
		ErrSeatNotHeld,
		ErrNotYourSeat,
		ErrSeatNotRefreshable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
