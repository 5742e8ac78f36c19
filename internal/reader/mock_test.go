package reader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// --- テスト用モック ---

// mockLikerLand はLikerLandAPIのモック。Fnが未設定の呼び出しは成功（空データ）を返す。
type mockLikerLand struct {
	fetchReaderCreatorsFn  func(ctx context.Context) api.Result[model.ReaderCreators]
	fetchReaderFollowingFn func(ctx context.Context, before int64) api.Result[[]model.ContentRecord]
	fetchReaderBookmarksFn func(ctx context.Context) api.Result[[]string]
	addBookmarkFn          func(ctx context.Context, url string) api.GeneralResult
	removeBookmarkFn       func(ctx context.Context, url string) api.GeneralResult
	followLikerFn          func(ctx context.Context, likerID string) api.GeneralResult
	unfollowLikerFn        func(ctx context.Context, likerID string) api.GeneralResult

	mu      sync.Mutex
	befores []int64
}

func (m *mockLikerLand) FetchReaderCreators(ctx context.Context) api.Result[model.ReaderCreators] {
	if m.fetchReaderCreatorsFn != nil {
		return m.fetchReaderCreatorsFn(ctx)
	}
	return api.Result[model.ReaderCreators]{Kind: api.KindOK}
}

func (m *mockLikerLand) FetchReaderFollowing(ctx context.Context, before int64) api.Result[[]model.ContentRecord] {
	m.mu.Lock()
	m.befores = append(m.befores, before)
	m.mu.Unlock()
	if m.fetchReaderFollowingFn != nil {
		return m.fetchReaderFollowingFn(ctx, before)
	}
	return api.Result[[]model.ContentRecord]{Kind: api.KindOK}
}

func (m *mockLikerLand) FetchReaderBookmarks(ctx context.Context) api.Result[[]string] {
	if m.fetchReaderBookmarksFn != nil {
		return m.fetchReaderBookmarksFn(ctx)
	}
	return api.Result[[]string]{Kind: api.KindOK}
}

func (m *mockLikerLand) AddBookmark(ctx context.Context, url string) api.GeneralResult {
	if m.addBookmarkFn != nil {
		return m.addBookmarkFn(ctx, url)
	}
	return api.GeneralResult{Kind: api.KindOK}
}

func (m *mockLikerLand) RemoveBookmark(ctx context.Context, url string) api.GeneralResult {
	if m.removeBookmarkFn != nil {
		return m.removeBookmarkFn(ctx, url)
	}
	return api.GeneralResult{Kind: api.KindOK}
}

func (m *mockLikerLand) FollowLiker(ctx context.Context, likerID string) api.GeneralResult {
	if m.followLikerFn != nil {
		return m.followLikerFn(ctx, likerID)
	}
	return api.GeneralResult{Kind: api.KindOK}
}

func (m *mockLikerLand) UnfollowLiker(ctx context.Context, likerID string) api.GeneralResult {
	if m.unfollowLikerFn != nil {
		return m.unfollowLikerFn(ctx, likerID)
	}
	return api.GeneralResult{Kind: api.KindOK}
}

func (m *mockLikerLand) followingBefores() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.befores...)
}

// mockLikeCo はLikeCoAPIのモック。
type mockLikeCo struct {
	fetchContentInfoFn     func(ctx context.Context, url string) api.Result[model.ContentRecord]
	fetchContentLikeStatFn func(ctx context.Context, likerID, url string) api.Result[model.LikeStat]
	fetchUserInfoByIDFn    func(ctx context.Context, likerID string) api.Result[model.UserInfo]
}

func (m *mockLikeCo) FetchContentInfo(ctx context.Context, url string) api.Result[model.ContentRecord] {
	if m.fetchContentInfoFn != nil {
		return m.fetchContentInfoFn(ctx, url)
	}
	return api.Result[model.ContentRecord]{Kind: api.KindOK}
}

func (m *mockLikeCo) FetchContentLikeStat(ctx context.Context, likerID, url string) api.Result[model.LikeStat] {
	if m.fetchContentLikeStatFn != nil {
		return m.fetchContentLikeStatFn(ctx, likerID, url)
	}
	return api.Result[model.LikeStat]{Kind: api.KindOK}
}

func (m *mockLikeCo) FetchUserInfoByID(ctx context.Context, likerID string) api.Result[model.UserInfo] {
	if m.fetchUserInfoByIDFn != nil {
		return m.fetchUserInfoByIDFn(ctx, likerID)
	}
	return api.Result[model.UserInfo]{Kind: api.KindOK, Data: model.UserInfo{User: likerID}}
}

// mockRecorder はRecorderのモック。記録内容を保持する。
type mockRecorder struct {
	mu        sync.Mutex
	syncs     []string
	rollbacks []string
	contents  int
	creators  int
}

func (m *mockRecorder) RecordSync(operation, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs = append(m.syncs, operation+":"+result)
}

func (m *mockRecorder) RecordRollback(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, operation)
}

func (m *mockRecorder) SetEntityCounts(contents, creators int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents = contents
	m.creators = creators
}

// mockSanitizer は前後に印を付けて無害化の適用を検証できるようにする。
type mockSanitizer struct{}

func (mockSanitizer) SanitizeText(raw string) string {
	return "[" + raw + "]"
}

// mockValidator はValidateURLの結果を差し替えられるモック。
type mockValidator struct {
	err error
}

func (m mockValidator) ValidateURL(string) error {
	return m.err
}

var errBlockedHost = errors.New("blocked host")

var fixedNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *Store
	likerLand *mockLikerLand
	likeCo    *mockLikeCo
	recorder  *mockRecorder
}

// newTestEnv はモックを注入したStoreを生成する。
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		likerLand: &mockLikerLand{},
		likeCo:    &mockLikeCo{},
		recorder:  &mockRecorder{},
	}
	env.store = NewStore(Deps{
		LikerLand: env.likerLand,
		LikeCo:    env.likeCo,
		Recorder:  env.recorder,
		Logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Now:       func() time.Time { return fixedNow },
	})
	return env
}

// seedFollowed はフォロー中リストの先頭ページを取り込んだ状態にする。
func (e *testEnv) seedFollowed(t *testing.T, records ...model.ContentRecord) {
	t.Helper()
	e.likerLand.fetchReaderFollowingFn = func(_ context.Context, _ int64) api.Result[[]model.ContentRecord] {
		return api.Result[[]model.ContentRecord]{Kind: api.KindOK, Data: records}
	}
	if kind := e.store.FetchFollowingList(context.Background()); kind != api.KindOK {
		t.Fatalf("seed FetchFollowingList kind = %q", kind)
	}
	e.likerLand.fetchReaderFollowingFn = nil
}

// seedCreators はクリエイター一覧を取り込んだ状態にする。
func (e *testEnv) seedCreators(t *testing.T, following, unfollowed []string) {
	t.Helper()
	e.likerLand.fetchReaderCreatorsFn = func(context.Context) api.Result[model.ReaderCreators] {
		return api.Result[model.ReaderCreators]{Kind: api.KindOK, Data: model.ReaderCreators{Following: following, Unfollowed: unfollowed}}
	}
	if kind := e.store.FetchCreatorList(context.Background()); kind != api.KindOK {
		t.Fatalf("seed FetchCreatorList kind = %q", kind)
	}
	e.likerLand.fetchReaderCreatorsFn = nil
}

func contentURLs(list []model.Content) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.URL)
	}
	return out
}

func creatorIDs(list []model.Creator) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.LikerID)
	}
	return out
}
