package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
)

// イベントは event:<id> のハッシュに version と data(JSON) を持つ
const (
	fieldVersion = "version"
	fieldData    = "data"
)

// createScript は既存キーがない場合のみレコードを作成する
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1], "data", ARGV[2])
return 1
`)

// saveScript はバージョンが一致する場合のみレコードを置き換える
// -1: レコードなし / 0: 競合 / 1: 成功
var saveScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if not current then
	return -1
end
if current ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[2], "data", ARGV[3])
return 1
`)

// eventRecord は保存するJSONの形
type eventRecord struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Seats     []*seat.Seat `json:"seats"`
}

func (r *eventRecord) toEntity(version int) *event.Event {
	return &event.Event{
		ID:        r.ID,
		Seats:     r.Seats,
		CreatedAt: r.CreatedAt,
		Version:   version,
	}
}

func toRecord(e *event.Event) ([]byte, error) {
	return json.Marshal(eventRecord{ID: e.ID, CreatedAt: e.CreatedAt, Seats: e.Seats})
}

// EventStore はイベントストアのRedis実装
// 保存はLuaスクリプトによるバージョン比較でアトミックに行う
type EventStore struct {
	client *redis.Client
}

// NewEventStore はEventStoreを作成する
func NewEventStore(client *redis.Client) *EventStore {
	return &EventStore{client: client}
}

// Create は新しいイベントを保存する
func (s *EventStore) Create(ctx context.Context, e *event.Event) error {
	data, err := toRecord(e)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗しました: %w", err)
	}

	created, err := createScript.Run(ctx, s.client, []string{eventKey(e.ID)}, 1, data).Int()
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", unavailable(err))
	}
	if created == 0 {
		return event.ErrEventAlreadyExists
	}

	e.Version = 1
	return nil
}

// GetByID はIDからイベントを取得する
func (s *EventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	fields, err := s.client.HGetAll(ctx, eventKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", unavailable(err))
	}
	if len(fields) == 0 {
		return nil, event.ErrEventNotFound
	}

	version, err := strconv.Atoi(fields[fieldVersion])
	if err != nil {
		return nil, fmt.Errorf("%w: version %q", event.ErrCorruptedEvent, fields[fieldVersion])
	}
	var rec eventRecord
	if err := json.Unmarshal([]byte(fields[fieldData]), &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", event.ErrCorruptedEvent, err)
	}

	e := rec.toEntity(version)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Save はイベントを置き換える（楽観的ロック）
func (s *EventStore) Save(ctx context.Context, e *event.Event) error {
	data, err := toRecord(e)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗しました: %w", err)
	}

	result, err := saveScript.Run(ctx, s.client, []string{eventKey(e.ID)}, e.Version, e.Version+1, data).Int()
	if err != nil {
		return fmt.Errorf("イベント保存に失敗しました: %w", unavailable(err))
	}
	switch result {
	case -1:
		return event.ErrEventNotFound
	case 0:
		return event.ErrOptimisticLockConflict
	}

	e.Version++
	return nil
}

// Ping はRedis接続を確認する
func (s *EventStore) Ping(ctx context.Context) error {
	if err := Ping(ctx, s.client); err != nil {
		return unavailable(err)
	}
	return nil
}

func eventKey(id string) string {
	return "event:" + id
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", event.ErrStoreUnavailable, err)
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventStore)(nil)
