package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
	"github.com/hitoshi/likereader/internal/reader"
)

// --- モック定義 ---

// mockReaderService はリーダー系のサービスインターフェースをまとめて満たすモック実装。
type mockReaderService struct {
	status     reader.Status
	contents   map[string]model.Content
	creators   map[string]model.Creator
	followed   []model.Content
	bookmarks  []model.Content
	following  []model.Creator
	unfollowed []model.Creator

	fetchFollowingListFn    func(ctx context.Context) api.Kind
	fetchMoreFollowedListFn func(ctx context.Context) api.Kind
	fetchBookmarkListFn     func(ctx context.Context) api.Kind
	fetchCreatorListFn      func(ctx context.Context) api.Kind
	fetchDetailsFn          func(ctx context.Context, url string) api.Kind
	fetchLikeStatFn         func(ctx context.Context, url string) api.Kind
	toggleBookmarkFn        func(ctx context.Context, url string) api.Kind
	saveBookmarkFn          func(ctx context.Context, rawURL string) error
	fetchProfileFn          func(ctx context.Context, likerID string) api.Kind
	toggleFollowFn          func(ctx context.Context, likerID string) api.Kind
	validateURLFn           func(url string) error

	resetCalls int
}

func newMockReaderService() *mockReaderService {
	return &mockReaderService{
		contents: make(map[string]model.Content),
		creators: make(map[string]model.Creator),
	}
}

func (m *mockReaderService) Status() reader.Status               { return m.status }
func (m *mockReaderService) FollowedList() []model.Content       { return m.followed }
func (m *mockReaderService) BookmarkList() []model.Content       { return m.bookmarks }
func (m *mockReaderService) FollowingCreators() []model.Creator  { return m.following }
func (m *mockReaderService) UnfollowedCreators() []model.Creator { return m.unfollowed }

func (m *mockReaderService) Reset() {
	m.resetCalls++
	m.contents = make(map[string]model.Content)
	m.creators = make(map[string]model.Creator)
}

func (m *mockReaderService) Content(url string) (model.Content, bool) {
	c, ok := m.contents[url]
	return c, ok
}

func (m *mockReaderService) ContentByURL(url string) (model.Content, bool) {
	if url == "" {
		return model.Content{}, false
	}
	c, ok := m.contents[url]
	if !ok {
		if m.validateURLFn != nil && m.validateURLFn(url) != nil {
			return model.Content{}, false
		}
		c = model.Content{URL: url}
		m.contents[url] = c
	}
	return c, true
}

func (m *mockReaderService) Creator(likerID string) (model.Creator, bool) {
	c, ok := m.creators[likerID]
	return c, ok
}

func (m *mockReaderService) FetchFollowingList(ctx context.Context) api.Kind {
	if m.fetchFollowingListFn == nil {
		return api.KindOK
	}
	return m.fetchFollowingListFn(ctx)
}

func (m *mockReaderService) FetchMoreFollowedList(ctx context.Context) api.Kind {
	if m.fetchMoreFollowedListFn == nil {
		return api.KindOK
	}
	return m.fetchMoreFollowedListFn(ctx)
}

func (m *mockReaderService) FetchBookmarkList(ctx context.Context) api.Kind {
	if m.fetchBookmarkListFn == nil {
		return api.KindOK
	}
	return m.fetchBookmarkListFn(ctx)
}

func (m *mockReaderService) FetchCreatorList(ctx context.Context) api.Kind {
	if m.fetchCreatorListFn == nil {
		return api.KindOK
	}
	return m.fetchCreatorListFn(ctx)
}

func (m *mockReaderService) FetchContentDetails(ctx context.Context, url string) api.Kind {
	if m.fetchDetailsFn == nil {
		return api.KindOK
	}
	return m.fetchDetailsFn(ctx, url)
}

func (m *mockReaderService) FetchContentLikeStat(ctx context.Context, url string) api.Kind {
	if m.fetchLikeStatFn == nil {
		return api.KindOK
	}
	return m.fetchLikeStatFn(ctx, url)
}

func (m *mockReaderService) ToggleBookmark(ctx context.Context, url string) api.Kind {
	if m.toggleBookmarkFn == nil {
		return api.KindOK
	}
	return m.toggleBookmarkFn(ctx, url)
}

func (m *mockReaderService) SaveBookmark(ctx context.Context, rawURL string) error {
	if m.saveBookmarkFn == nil {
		m.contents[rawURL] = model.Content{URL: rawURL, IsBookmarked: true}
		return nil
	}
	return m.saveBookmarkFn(ctx, rawURL)
}

func (m *mockReaderService) FetchCreatorProfile(ctx context.Context, likerID string) api.Kind {
	if m.fetchProfileFn == nil {
		return api.KindOK
	}
	return m.fetchProfileFn(ctx, likerID)
}

func (m *mockReaderService) ToggleFollow(ctx context.Context, likerID string) api.Kind {
	if m.toggleFollowFn == nil {
		return api.KindOK
	}
	return m.toggleFollowFn(ctx, likerID)
}

// mockSnapshotController はSnapshotControllerのモック実装。
type mockSnapshotController struct {
	saveNowFn func(ctx context.Context) error
	clearFn   func(ctx context.Context) error

	saveCalls  int
	clearCalls int
}

func (m *mockSnapshotController) SaveNow(ctx context.Context) error {
	m.saveCalls++
	if m.saveNowFn != nil {
		return m.saveNowFn(ctx)
	}
	return nil
}

func (m *mockSnapshotController) Clear(ctx context.Context) error {
	m.clearCalls++
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m mockHealthChecker) PingContext(context.Context) error { return m.err }

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeJSON はレスポンスボディを指定の型にデコードするヘルパー。
func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
