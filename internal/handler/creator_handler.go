package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
	"github.com/hitoshi/likereader/internal/reader"
)

// CreatorServiceInterface はクリエイターハンドラーが必要とするサービスインターフェース。
type CreatorServiceInterface interface {
	Status() reader.Status
	Creator(likerID string) (model.Creator, bool)
	FollowingCreators() []model.Creator
	UnfollowedCreators() []model.Creator
	FetchCreatorList(ctx context.Context) api.Kind
	FetchCreatorProfile(ctx context.Context, likerID string) api.Kind
	ToggleFollow(ctx context.Context, likerID string) api.Kind
}

// CreatorHandler はクリエイター一覧とフォロー操作のHTTPハンドラー。
type CreatorHandler struct {
	service CreatorServiceInterface
}

// NewCreatorHandler はCreatorHandlerを生成する。
func NewCreatorHandler(service CreatorServiceInterface) *CreatorHandler {
	return &CreatorHandler{service: service}
}

// creatorListResponse はクリエイター一覧のAPIレスポンス。
type creatorListResponse struct {
	Following  []model.Creator `json:"following"`
	Unfollowed []model.Creator `json:"unfollowed"`
	Status     reader.Status   `json:"status"`
}

// ListCreators はフォロー中・フォロー解除済みのクリエイター一覧を返す。
// GET /api/reader/creators
func (h *CreatorHandler) ListCreators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, creatorListResponse{
		Following:  nonNilCreators(h.service.FollowingCreators()),
		Unfollowed: nonNilCreators(h.service.UnfollowedCreators()),
		Status:     h.service.Status(),
	})
}

// RefreshCreators はクリエイター一覧を取得し直す。
// POST /api/reader/creators/refresh
func (h *CreatorHandler) RefreshCreators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, syncResponse{
		Result: resultLabel(h.service.FetchCreatorList(detachedContext(r))),
		Status: h.service.Status(),
	})
}

// GetCreator はクリエイターを返す。
// GET /api/reader/creators/{likerID}
func (h *CreatorHandler) GetCreator(w http.ResponseWriter, r *http.Request) {
	likerID := chi.URLParam(r, "likerID")

	creator, ok := h.service.Creator(likerID)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCreatorNotFoundError(likerID))
		return
	}
	writeJSON(w, http.StatusOK, creatorResponse{Creator: creator})
}

// FetchProfile はクリエイターのプロフィールを取得する。
// POST /api/reader/creators/{likerID}/profile
func (h *CreatorHandler) FetchProfile(w http.ResponseWriter, r *http.Request) {
	h.runCreatorOp(w, r, h.service.FetchCreatorProfile)
}

// ToggleFollow はフォロー状態を反転する。
// 確定に失敗した場合はロールバック後の状態と結果種別を返す。
// PUT /api/reader/creators/{likerID}/follow
func (h *CreatorHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	h.runCreatorOp(w, r, h.service.ToggleFollow)
}

func (h *CreatorHandler) runCreatorOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) api.Kind) {
	likerID := chi.URLParam(r, "likerID")
	if _, ok := h.service.Creator(likerID); !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCreatorNotFoundError(likerID))
		return
	}

	kind := op(detachedContext(r), likerID)

	creator, ok := h.service.Creator(likerID)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCreatorNotFoundError(likerID))
		return
	}
	writeJSON(w, http.StatusOK, creatorResponse{Result: resultLabel(kind), Creator: creator})
}

func nonNilCreators(creators []model.Creator) []model.Creator {
	if creators == nil {
		return []model.Creator{}
	}
	return creators
}
