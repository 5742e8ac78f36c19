package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/middleware"
	"github.com/hitoshi/likereader/internal/model"
	"github.com/hitoshi/likereader/internal/reader"
)

// resultSkipped は取得中などの理由で操作が行われなかったことを示す結果ラベル。
const resultSkipped = "skipped"

// syncResponse は同期操作のAPIレスポンス。
// 同期操作の失敗はリーダー側で記録されるため、HTTPステータスは常に200とする。
type syncResponse struct {
	Result string        `json:"result"`
	Status reader.Status `json:"status"`
}

// contentListResponse はコンテンツ一覧のAPIレスポンス。
type contentListResponse struct {
	Contents []model.Content `json:"contents"`
	Status   reader.Status   `json:"status"`
}

// contentResponse はコンテンツ単体のAPIレスポンス。
type contentResponse struct {
	Result  string        `json:"result,omitempty"`
	Content model.Content `json:"content"`
}

// creatorResponse はクリエイター単体のAPIレスポンス。
type creatorResponse struct {
	Result  string        `json:"result,omitempty"`
	Creator model.Creator `json:"creator"`
}

// detachedContext は呼び出し元の切断で取り消されないコンテキストを返す。
// 同期と楽観的更新は一度始めたら完了まで実行し、期限はAPIクライアントのタイムアウトのみとする。
func detachedContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// resultLabel は結果種別をレスポンス用のラベルに変換する。
func resultLabel(kind api.Kind) string {
	if kind == "" {
		return resultSkipped
	}
	return string(kind)
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeInvalidRequest はリクエストボディの解析失敗を書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はリーダーから返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeContentNotFound, model.ErrCodeCreatorNotFound:
		return http.StatusNotFound
	case model.ErrCodeBookmarkSaveFailed:
		return http.StatusBadGateway
	case model.ErrCodeSnapshotUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
