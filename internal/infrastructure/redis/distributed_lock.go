package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akann/events-booking/internal/pkg/logger"
	"github.com/akann/events-booking/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除・延長をアトミックに実行する
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

// AcquireLock はロックを取得する（SET NX PX）
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	lockKey := "lock:" + key
	lockValue := uuid.NewString()

	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*DistributedLock, error) {
	lastErr := ErrLockNotAcquired
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// Release はロックを解放する
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}

// EventLockOptions はイベントロックの取得設定
type EventLockOptions struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// EventLocker はイベント単位で書き込みを直列化する
// 取得できなかった場合は ErrLockNotAcquired を返す
type EventLocker struct {
	manager *LockManager
	opts    EventLockOptions
	metrics *metrics.Metrics
}

// NewEventLocker は EventLocker を作成する（m は nil 可）
func NewEventLocker(manager *LockManager, opts EventLockOptions, m *metrics.Metrics) *EventLocker {
	return &EventLocker{manager: manager, opts: opts, metrics: m}
}

// Lock は lock:event:<id> を取得し、解放用の関数を返す
func (l *EventLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	start := time.Now()
	lock, err := l.manager.AcquireLockWithRetry(ctx, "event:"+eventID, l.opts.TTL, l.opts.MaxRetries, l.opts.RetryDelay)
	l.observe("acquire", start, err)
	if err != nil {
		return nil, err
	}

	return func() {
		// 呼び出し元の ctx が期限切れでも解放できるようにする
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		start := time.Now()
		err := lock.Release(releaseCtx)
		l.observe("release", start, err)
		if err != nil {
			logger.FromContext(ctx).Warn("イベントロックの解放に失敗",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		}
	}, nil
}

func (l *EventLocker) observe(operation string, start time.Time, err error) {
	if l.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	l.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
