// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/likereader/internal/model"
)

// SnapshotRepository はリーダーストアのスナップショットの永続化インターフェース。
// 1つのプロセスが保持するストアは1つのため、保存先も1件のみとする。
type SnapshotRepository interface {
	// Save は既存のスナップショットを置き換えて保存する。
	Save(ctx context.Context, snapshot *model.Snapshot) error

	// Load は保存済みのスナップショットを取得する。未保存の場合はnilを返す。
	Load(ctx context.Context) (*model.Snapshot, error)

	// Delete は保存済みのスナップショットを削除する。未保存の場合もエラーにしない。
	Delete(ctx context.Context) error
}
