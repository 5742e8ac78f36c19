package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// ContentServiceInterface はコンテンツハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	Content(url string) (model.Content, bool)
	ContentByURL(url string) (model.Content, bool)
	FetchContentDetails(ctx context.Context, url string) api.Kind
	FetchContentLikeStat(ctx context.Context, url string) api.Kind
	ToggleBookmark(ctx context.Context, url string) api.Kind
	SaveBookmark(ctx context.Context, rawURL string) error
}

// ContentHandler はコンテンツ単体の操作を扱うHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// saveBookmarkRequest は共有URLのブックマーク保存リクエストのボディ。
type saveBookmarkRequest struct {
	URL string `json:"url"`
}

// GetContent はURLに対応するコンテンツを返す。未登録の場合はURLを検証したうえで作成する。
// GET /api/reader/contents?url=
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	content, ok := h.service.ContentByURL(url)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLを受け付けられません"))
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Content: content})
}

// FetchDetails はコンテンツの詳細を取得する。
// POST /api/reader/contents/details?url=
func (h *ContentHandler) FetchDetails(w http.ResponseWriter, r *http.Request) {
	h.runContentOp(w, r, h.service.FetchContentDetails)
}

// FetchLikeStat はコンテンツのいいね統計を取得する。
// POST /api/reader/contents/like-stat?url=
func (h *ContentHandler) FetchLikeStat(w http.ResponseWriter, r *http.Request) {
	h.runContentOp(w, r, h.service.FetchContentLikeStat)
}

// ToggleBookmark はブックマーク状態を反転する。
// 確定に失敗した場合はロールバック後の状態と結果種別を返す。
// PUT /api/reader/contents/bookmark?url=
func (h *ContentHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.runContentOp(w, r, h.service.ToggleBookmark)
}

// SaveBookmark は共有されたURLをブックマークに追加する。
// POST /api/reader/bookmarks
func (h *ContentHandler) SaveBookmark(w http.ResponseWriter, r *http.Request) {
	var req saveBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if err := h.service.SaveBookmark(detachedContext(r), req.URL); err != nil {
		handleServiceError(w, err)
		return
	}

	content, ok := h.service.Content(req.URL)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewContentNotFoundError(req.URL))
		return
	}
	writeJSON(w, http.StatusCreated, contentResponse{Result: string(api.KindOK), Content: content})
}

// runContentOp はクエリのURLで既存コンテンツに対する操作を実行し、操作後の状態を返す。
func (h *ContentHandler) runContentOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) api.Kind) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}
	if _, ok := h.service.Content(url); !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewContentNotFoundError(url))
		return
	}

	kind := op(detachedContext(r), url)

	content, ok := h.service.Content(url)
	if !ok {
		// 操作中にリセットされた
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewContentNotFoundError(url))
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{Result: resultLabel(kind), Content: content})
}
