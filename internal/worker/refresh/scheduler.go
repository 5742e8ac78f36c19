// Package refresh はリーダーの一覧を定期的に取得し直すバックグラウンドジョブを提供する。
// 連続して失敗した場合は段階的なバックオフを適用する。
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/likereader/internal/api"
)

// ErrCycleFailed は1回の更新サイクルで失敗した同期があったことを示す。
var ErrCycleFailed = errors.New("refresh cycle failed")

// Syncer は定期更新の対象となる同期操作。*reader.Storeが実装する。
type Syncer interface {
	FetchCreatorList(ctx context.Context) api.Kind
	FetchFollowingList(ctx context.Context) api.Kind
	FetchBookmarkList(ctx context.Context) api.Kind
	EntityCounts() (contents, creators int)
}

// BackoffRecorder は適用中のバックオフを記録する。
type BackoffRecorder interface {
	SetRefreshBackoff(d time.Duration)
}

// 同期操作の名前。ログとサマリーのキーに使う。
const (
	syncCreatorList   = "creator_list"
	syncFollowingList = "following_list"
	syncBookmarkList  = "bookmark_list"
)

// Summary は1回の更新サイクルの結果。
type Summary struct {
	Results  map[string]api.Kind
	Contents int
	Creators int
	Skipped  bool // バックオフ中のため実行しなかった
}

// Scheduler は3つの一覧の定期更新とバックオフ制御を行う。
type Scheduler struct {
	syncer   Syncer
	recorder BackoffRecorder
	logger   *slog.Logger
	now      func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
	backoffUntil        time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewScheduler(syncer Syncer, recorder BackoffRecorder, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("定期更新スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("定期更新スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("定期更新サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は3つの一覧を並行して取得し直す。
// 失敗した同期があった場合はErrCycleFailedをラップしたエラーを返し、連続失敗回数を進める。
// バックオフ中の場合は何もせずSkipped=trueのサマリーを返す。
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	start := s.now()

	s.mu.Lock()
	backoffUntil := s.backoffUntil
	s.mu.Unlock()

	if !backoffUntil.IsZero() && start.Before(backoffUntil) {
		s.logger.Info("定期更新はバックオフ中のためスキップします",
			slog.Time("backoff_until", backoffUntil),
		)
		return Summary{Skipped: true}, nil
	}

	syncs := map[string]func(context.Context) api.Kind{
		syncCreatorList:   s.syncer.FetchCreatorList,
		syncFollowingList: s.syncer.FetchFollowingList,
		syncBookmarkList:  s.syncer.FetchBookmarkList,
	}

	results := make(map[string]api.Kind, len(syncs))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for name, fn := range syncs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kind := fn(ctx)

			resultsMu.Lock()
			results[name] = kind
			resultsMu.Unlock()
		}()
	}
	wg.Wait()

	var failed []string
	for name, kind := range results {
		switch Classify(kind) {
		case OutcomeAuth:
			s.logger.Warn("認証エラーのため一覧を取得できませんでした",
				slog.String("sync", name),
				slog.String("result", string(kind)),
			)
			failed = append(failed, name)
		case OutcomeTransient:
			failed = append(failed, name)
		}
	}

	summary := Summary{Results: results}
	summary.Contents, summary.Creators = s.syncer.EntityCounts()

	backoff := s.updateBackoff(len(failed) > 0)

	s.logger.Info("定期更新サイクルが完了しました",
		slog.Int("failed_syncs", len(failed)),
		slog.Int("contents", summary.Contents),
		slog.Int("creators", summary.Creators),
		slog.Duration("backoff", backoff),
		slog.Float64("duration_ms", float64(s.now().Sub(start).Milliseconds())),
	)

	if len(failed) > 0 {
		return summary, fmt.Errorf("%w: %v", ErrCycleFailed, failed)
	}
	return summary, nil
}

// updateBackoff は連続失敗回数を更新し、適用するバックオフ時間を返す。
func (s *Scheduler) updateBackoff(failed bool) time.Duration {
	s.mu.Lock()
	if failed {
		s.consecutiveFailures++
	} else {
		s.consecutiveFailures = 0
	}

	backoff := CalculateBackoff(s.consecutiveFailures)
	if backoff > 0 {
		s.backoffUntil = s.now().Add(backoff)
	} else {
		s.backoffUntil = time.Time{}
	}
	failures := s.consecutiveFailures
	s.mu.Unlock()

	if backoff > 0 {
		s.logger.Warn("連続失敗によりバックオフを適用します",
			slog.Int("consecutive_failures", failures),
			slog.Duration("backoff_duration", backoff),
		)
	}
	if s.recorder != nil {
		s.recorder.SetRefreshBackoff(backoff)
	}
	return backoff
}

// ConsecutiveFailures は現在の連続失敗回数を返す。
func (s *Scheduler) ConsecutiveFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}
