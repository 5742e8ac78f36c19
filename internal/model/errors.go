// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, reader, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeContentNotFound     = "CONTENT_NOT_FOUND"
	ErrCodeCreatorNotFound     = "CREATOR_NOT_FOUND"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeBookmarkSaveFailed  = "BOOKMARK_SAVE_FAILED"
	ErrCodeSnapshotUnavailable = "SNAPSHOT_UNAVAILABLE"
)

// 楽観的更新の確定に失敗した場合のドメインエラー。
// リモート呼び出しの結果が"ok"以外のときに送出され、ロールバック経路に統一される。
var (
	ErrBookmarkAddFailed    = errors.New("READER_BOOKMARK_ADD_FAILED")
	ErrBookmarkRemoveFailed = errors.New("READER_BOOKMARK_REMOVE_FAILED")
	ErrFollowFailed         = errors.New("READER_FOLLOW_FAILED")
	ErrUnfollowFailed       = errors.New("READER_UNFOLLOW_FAILED")
)

// NewContentNotFoundError はコンテンツ未検出エラーを生成する。
func NewContentNotFoundError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツが見つかりません: %s", url),
		Category: "reader",
		Action:   "一覧を再読み込みしてから再度お試しください。",
	}
}

// NewCreatorNotFoundError はクリエイター未検出エラーを生成する。
func NewCreatorNotFoundError(likerID string) *APIError {
	return &APIError{
		Code:     ErrCodeCreatorNotFound,
		Message:  fmt.Sprintf("指定されたクリエイターが見つかりません: %s", likerID),
		Category: "reader",
		Action:   "クリエイター一覧を再読み込みしてから再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewBookmarkSaveFailedError はブックマーク保存失敗エラーを生成する。
// kindにはリモートAPIの結果種別が入る。
func NewBookmarkSaveFailedError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkSaveFailed,
		Message:  fmt.Sprintf("ブックマークの保存に失敗しました: %s", kind),
		Category: "reader",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSnapshotUnavailableError はスナップショット永続化が無効な場合のエラーを生成する。
func NewSnapshotUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeSnapshotUnavailable,
		Message:  "スナップショットの永続化が有効になっていません。",
		Category: "system",
		Action:   "DATABASE_URLを設定して再起動してください。",
	}
}
