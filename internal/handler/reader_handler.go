package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
	"github.com/hitoshi/likereader/internal/reader"
)

// ReaderServiceInterface はリーダーハンドラーが必要とするサービスインターフェース。
// *reader.Storeが実装する。
type ReaderServiceInterface interface {
	Status() reader.Status
	FollowedList() []model.Content
	BookmarkList() []model.Content
	FetchFollowingList(ctx context.Context) api.Kind
	FetchMoreFollowedList(ctx context.Context) api.Kind
	FetchBookmarkList(ctx context.Context) api.Kind
}

// ReaderHandler は一覧表示と同期操作のHTTPハンドラー。
type ReaderHandler struct {
	service ReaderServiceInterface
}

// NewReaderHandler はReaderHandlerを生成する。
func NewReaderHandler(service ReaderServiceInterface) *ReaderHandler {
	return &ReaderHandler{service: service}
}

// GetStatus は同期状態を返す。
// GET /api/reader/status
func (h *ReaderHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// ListFollowed はフォロー中クリエイターのコンテンツ一覧を返す。
// GET /api/reader/followed
func (h *ReaderHandler) ListFollowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, contentListResponse{
		Contents: nonNilContents(h.service.FollowedList()),
		Status:   h.service.Status(),
	})
}

// RefreshFollowed はフォロー中一覧を先頭から取得し直す。
// POST /api/reader/followed/refresh
func (h *ReaderHandler) RefreshFollowed(w http.ResponseWriter, r *http.Request) {
	h.writeSync(w, h.service.FetchFollowingList(detachedContext(r)))
}

// FetchMoreFollowed はフォロー中一覧の続きを取得する。
// POST /api/reader/followed/more
func (h *ReaderHandler) FetchMoreFollowed(w http.ResponseWriter, r *http.Request) {
	h.writeSync(w, h.service.FetchMoreFollowedList(detachedContext(r)))
}

// ListBookmarks はブックマーク一覧を返す。
// GET /api/reader/bookmarks
func (h *ReaderHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, contentListResponse{
		Contents: nonNilContents(h.service.BookmarkList()),
		Status:   h.service.Status(),
	})
}

// RefreshBookmarks はブックマーク一覧を取得し直す。
// POST /api/reader/bookmarks/refresh
func (h *ReaderHandler) RefreshBookmarks(w http.ResponseWriter, r *http.Request) {
	h.writeSync(w, h.service.FetchBookmarkList(detachedContext(r)))
}

func (h *ReaderHandler) writeSync(w http.ResponseWriter, kind api.Kind) {
	writeJSON(w, http.StatusOK, syncResponse{
		Result: resultLabel(kind),
		Status: h.service.Status(),
	})
}

// nonNilContents は空の一覧をJSONのnullではなく空配列として返すために使う。
func nonNilContents(contents []model.Content) []model.Content {
	if contents == nil {
		return []model.Content{}
	}
	return contents
}
