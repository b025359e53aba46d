package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/akann/events-booking/internal/domain/event"
	"github.com/akann/events-booking/internal/domain/seat"
)

// invalid_text_representation: UUIDとして解釈できないID
const codeInvalidTextRepresentation = "22P02"

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID        string    `db:"id"`
	Seats     []byte    `db:"seats"`
	CreatedAt time.Time `db:"created_at"`
	Version   int       `db:"version"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() (*event.Event, error) {
	var seats []*seat.Seat
	if err := json.Unmarshal(r.Seats, &seats); err != nil {
		return nil, fmt.Errorf("%w: %w", event.ErrCorruptedEvent, err)
	}
	e := &event.Event{
		ID:        r.ID,
		Seats:     seats,
		CreatedAt: r.CreatedAt.UTC(),
		Version:   r.Version,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// EventStore はイベントストアのPostgreSQL実装
// 座席はJSONBに保存し、version 列で楽観的ロックを行う
type EventStore struct {
	db *sqlx.DB
}

// NewEventStore はEventStoreを作成する
func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

// Create は新しいイベントを保存する
func (s *EventStore) Create(ctx context.Context, e *event.Event) error {
	seats, err := json.Marshal(e.Seats)
	if err != nil {
		return fmt.Errorf("座席のエンコードに失敗しました: %w", err)
	}

	query := `
		INSERT INTO events (id, seats, created_at, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, e.ID, seats, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", classify(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", classify(err))
	}
	if rows == 0 {
		return event.ErrEventAlreadyExists
	}

	e.Version = 1
	return nil
}

// GetByID はIDからイベントを取得する
func (s *EventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT id, seats, created_at, version FROM events WHERE id = $1`

	var row eventRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", classify(err))
	}
	return row.toEntity()
}

// Save はイベントを置き換える（楽観的ロック）
func (s *EventStore) Save(ctx context.Context, e *event.Event) error {
	seats, err := json.Marshal(e.Seats)
	if err != nil {
		return fmt.Errorf("座席のエンコードに失敗しました: %w", err)
	}

	query := `
		UPDATE events
		SET seats = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`
	result, err := s.db.ExecContext(ctx, query, seats, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("イベント保存に失敗しました: %w", classify(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("イベント保存に失敗しました: %w", classify(err))
	}
	if rows == 0 {
		return s.missOrConflict(ctx, e.ID)
	}

	e.Version++
	return nil
}

// missOrConflict は更新0件の理由を判定する
func (s *EventStore) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("イベント保存に失敗しました: %w", classify(err))
	}
	if !exists {
		return event.ErrEventNotFound
	}
	return event.ErrOptimisticLockConflict
}

// Ping はデータベース接続を確認する
func (s *EventStore) Ping(ctx context.Context) error {
	if err := Ping(ctx, s.db); err != nil {
		return fmt.Errorf("%w: %w", event.ErrStoreUnavailable, err)
	}
	return nil
}

// classify はドライバのエラーをドメインエラーに変換する
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeInvalidTextRepresentation {
		return event.ErrEventNotFound
	}
	return fmt.Errorf("%w: %w", event.ErrStoreUnavailable, err)
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventStore)(nil)
