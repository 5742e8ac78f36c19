package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/likereader/internal/model"
)

// SessionServiceInterface はセッション終了に必要なサービスインターフェース。
type SessionServiceInterface interface {
	Reset()
}

// SnapshotController はスナップショットの即時保存と削除を行う。
// 永続化が無効な場合はnilを渡す。
type SnapshotController interface {
	SaveNow(ctx context.Context) error
	Clear(ctx context.Context) error
}

// SessionHandler はログアウト時の全消去とスナップショット操作のHTTPハンドラー。
type SessionHandler struct {
	service   SessionServiceInterface
	snapshots SnapshotController
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface, snapshots SnapshotController) *SessionHandler {
	return &SessionHandler{service: service, snapshots: snapshots}
}

// DeleteSession はキャッシュを全消去し、保存済みのスナップショットも削除する。
// DELETE /api/reader/session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()

	if h.snapshots != nil {
		if err := h.snapshots.Clear(r.Context()); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	slog.Info("reader session cleared", slog.Bool("snapshot_cleared", h.snapshots != nil))
	w.WriteHeader(http.StatusNoContent)
}

// SaveSnapshot は現在のキャッシュを即座に保存する。
// POST /api/reader/session/snapshot
func (h *SessionHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewSnapshotUnavailableError())
		return
	}

	if err := h.snapshots.SaveNow(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
