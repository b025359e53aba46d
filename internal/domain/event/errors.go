package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = errors.New("event not found")
	ErrEventAlreadyExists     = errors.New("event already exists")
	ErrInvalidTotalSeats      = errors.New("total seats must be between 10 and 1000")
	ErrCorruptedEvent         = errors.New("stored event is corrupted")
	ErrOptimisticLockConflict = errors.New("optimistic lock conflict")
	// ErrConcurrentUpdate は競合リトライを使い切った場合に返す（一時的なエラー）
	ErrConcurrentUpdate = errors.New("event is being updated concurrently, please retry")
	// ErrStoreUnavailable はストアへの接続・タイムアウト失敗をラップする
	ErrStoreUnavailable = errors.New("store unavailable")
)
