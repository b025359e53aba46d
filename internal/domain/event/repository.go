package event

import "context"

// Repository はイベントストアのインターフェース
// 1イベント = 1レコード（座席一覧を含む）で保存する
type Repository interface {
	// Create は新しいイベントを保存する（既存IDは上書きしない）
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// Save はイベントを丸ごと置き換える（楽観的ロック: Version が一致する場合のみ）
	Save(ctx context.Context, event *Event) error

	// Ping はストアへの接続を確認する
	Ping(ctx context.Context) error
}
