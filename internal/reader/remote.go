package reader

import (
	"fmt"
	"log/slog"

	"github.com/hitoshi/likereader/internal/api"
)

// 操作名。ログとメトリクスのラベルに使用する。
const (
	opFetchCreatorList      = "fetch_creator_list"
	opFetchFollowingList    = "fetch_following_list"
	opFetchMoreFollowedList = "fetch_more_followed_list"
	opFetchBookmarkList     = "fetch_bookmark_list"
	opFetchContentDetails   = "fetch_content_details"
	opFetchContentLikeStat  = "fetch_content_like_stat"
	opFetchCreatorProfile   = "fetch_creator_profile"
	opToggleBookmark        = "toggle_bookmark"
	opToggleFollow          = "toggle_follow"
	opSaveBookmark          = "save_bookmark"
)

// resultPanic はリモート呼び出し中のpanicを結果種別として扱うためのラベル。
const resultPanic = "panic"

// fetchRemote はデータを返すリモート呼び出しを実行する。
// 呼び出し中のpanicは回復してエラーとして返し、呼び出し元のクリーンアップを保証する。
func fetchRemote[T any](call func() api.Result[T]) (result api.Result[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("リモート呼び出し中にpanicが発生しました: %v", r)
		}
	}()
	return call(), nil
}

// commandRemote はコマンド系のリモート呼び出しを実行し、"ok"以外の結果をfailureで包んで返す。
// 呼び出し中のpanicもエラーとして返す。
func commandRemote(call func() api.GeneralResult, failure error) (kind api.Kind, err error) {
	defer func() {
		if r := recover(); r != nil {
			kind = api.KindUnknown
			err = fmt.Errorf("%w: panic: %v", failure, r)
		}
	}()

	result := call()
	if !result.IsOK() {
		return result.Kind, fmt.Errorf("%w: %s", failure, result.Kind)
	}
	return api.KindOK, nil
}

// logFailure は握りつぶす失敗をログに記録する。
func (s *Store) logFailure(operation, sessionID string, kind api.Kind, err error, attrs ...slog.Attr) {
	args := []any{
		slog.String("operation", operation),
		slog.String("session_id", sessionID),
		slog.String("kind", string(kind)),
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.Error("リーダー操作に失敗しました", args...)
}
