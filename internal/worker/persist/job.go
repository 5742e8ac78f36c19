// Package persist はリーダーのスナップショットを定期的に保存し、起動時に復元するジョブを提供する。
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/likereader/internal/model"
	"github.com/hitoshi/likereader/internal/reader"
	"github.com/hitoshi/likereader/internal/repository"
)

// shutdownSaveTimeout は停止時の最終保存に許す時間。
const shutdownSaveTimeout = 10 * time.Second

// Source はスナップショットの取得元。*reader.Storeが実装する。
type Source interface {
	Snapshot() model.Snapshot
	Hydrate(snap model.Snapshot)
	Subscribe(fn func(reader.Change)) (unsubscribe func())
}

// SaveRecorder はスナップショット保存の結果を記録する。
type SaveRecorder interface {
	RecordSnapshotSave(err error)
}

// Job はスナップショットの定期保存と起動時の復元を行う。
// ストアの変更通知を受けた場合のみ保存する。
type Job struct {
	source   Source
	repo     repository.SnapshotRepository
	recorder SaveRecorder
	logger   *slog.Logger

	mu    sync.Mutex
	dirty bool

	unsubscribe func()
}

// NewJob はJobの新しいインスタンスを生成し、ストアの変更通知を購読する。
// recorderはnilでもよい。
func NewJob(source Source, repo repository.SnapshotRepository, recorder SaveRecorder, logger *slog.Logger) *Job {
	j := &Job{
		source:   source,
		repo:     repo,
		recorder: recorder,
		logger:   logger,
	}
	j.unsubscribe = source.Subscribe(j.onChange)
	return j
}

// onChange はストアの変更通知を受けて未保存の変更があることを記録する。
func (j *Job) onChange(change reader.Change) {
	if change == reader.ChangeHydrate {
		return
	}
	j.mu.Lock()
	j.dirty = true
	j.mu.Unlock()
}

// Restore は保存済みのスナップショットを読み込みストアへ復元する。
// 保存済みのスナップショットがない場合は何もしない。
func (j *Job) Restore(ctx context.Context) error {
	snap, err := j.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("スナップショットの読み込みに失敗: %w", err)
	}
	if snap == nil {
		j.logger.Info("保存済みのスナップショットはありません")
		return nil
	}

	j.source.Hydrate(*snap)

	j.logger.Info("スナップショットを復元しました",
		slog.Int("contents", len(snap.Contents)),
		slog.Int("creators", len(snap.Creators)),
		slog.Time("saved_at", snap.SavedAt),
	)
	return nil
}

// SaveNow は現在の状態を即座に保存する。
// ストアが空の場合は保存済みのスナップショットを削除する。
func (j *Job) SaveNow(ctx context.Context) error {
	j.mu.Lock()
	j.dirty = false
	j.mu.Unlock()

	snap := j.source.Snapshot()

	var err error
	if snap.IsEmpty() {
		err = j.repo.Delete(ctx)
	} else {
		err = j.repo.Save(ctx, &snap)
	}

	if j.recorder != nil {
		j.recorder.RecordSnapshotSave(err)
	}
	if err != nil {
		j.mu.Lock()
		j.dirty = true
		j.mu.Unlock()
		return fmt.Errorf("スナップショットの保存に失敗: %w", err)
	}

	j.logger.Info("スナップショットを保存しました",
		slog.Int("contents", len(snap.Contents)),
		slog.Int("creators", len(snap.Creators)),
		slog.Bool("empty", snap.IsEmpty()),
	)
	return nil
}

// Clear は保存済みのスナップショットを削除する。
func (j *Job) Clear(ctx context.Context) error {
	if err := j.repo.Delete(ctx); err != nil {
		return fmt.Errorf("スナップショットの削除に失敗: %w", err)
	}

	j.mu.Lock()
	j.dirty = false
	j.mu.Unlock()

	j.logger.Info("スナップショットを削除しました")
	return nil
}

// Dirty は未保存の変更があるかを返す。
func (j *Job) Dirty() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dirty
}

// Start は指定間隔で未保存の変更を保存する。
// コンテキストがキャンセルされると最終保存を行ってから戻る。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("スナップショット保存ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.flush()
			j.logger.Info("スナップショット保存ジョブを停止しました")
			return
		case <-ticker.C:
			if !j.Dirty() {
				continue
			}
			if err := j.SaveNow(ctx); err != nil {
				j.logger.Error("スナップショットの定期保存に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// flush は停止時に未保存の変更を保存する。
func (j *Job) flush() {
	if !j.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownSaveTimeout)
	defer cancel()

	if err := j.SaveNow(ctx); err != nil {
		j.logger.Error("停止時のスナップショット保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Close はストアの変更通知の購読を解除する。
func (j *Job) Close() {
	if j.unsubscribe != nil {
		j.unsubscribe()
	}
}
