// Package api はliker.land / like.co のリモートAPIクライアントを提供する。
// 各呼び出しはタグ付きの結果（Kind）を返し、リトライやキャッシュは行わない。
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind はAPI呼び出し結果の種別を表す。
type Kind string

const (
	// KindOK は呼び出しが成功したことを示す。
	KindOK Kind = "ok"
	// KindBadData はレスポンスが想定した形式と一致しなかったことを示す。
	KindBadData Kind = "bad-data"
	// KindTimeout はタイムアウトしたことを示す。
	KindTimeout Kind = "timeout"
	// KindCannotConnect はサーバーに接続できなかったことを示す。
	KindCannotConnect Kind = "cannot-connect"
	// KindServer はサーバーが5xxを返したことを示す。
	KindServer Kind = "server"
	// KindUnauthorized は401を示す。
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden は403を示す。
	KindForbidden Kind = "forbidden"
	// KindNotFound は404を示す。
	KindNotFound Kind = "not-found"
	// KindRejected はその他の4xxを示す。
	KindRejected Kind = "rejected"
	// KindUnknown は分類できない失敗を示す。
	KindUnknown Kind = "unknown"
)

// Result はデータを返すAPI呼び出しの結果。
// KindがKindOKの場合のみDataが有効。
type Result[T any] struct {
	Kind Kind
	Data T
}

// IsOK は結果が成功かどうかを返す。
func (r Result[T]) IsOK() bool {
	return r.Kind == KindOK
}

// GeneralResult はデータを返さないコマンド系API呼び出しの結果。
type GeneralResult struct {
	Kind Kind
}

// IsOK は結果が成功かどうかを返す。
func (r GeneralResult) IsOK() bool {
	return r.Kind == KindOK
}

// ProblemFromStatus はHTTPステータスコードを失敗種別に変換する。
// 成功レスポンス（2xx）の場合はfalseを返す。
func ProblemFromStatus(statusCode int) (Kind, bool) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "", false
	case statusCode == http.StatusUnauthorized:
		return KindUnauthorized, true
	case statusCode == http.StatusForbidden:
		return KindForbidden, true
	case statusCode == http.StatusNotFound:
		return KindNotFound, true
	case statusCode >= 400 && statusCode < 500:
		return KindRejected, true
	case statusCode >= 500:
		return KindServer, true
	default:
		return KindUnknown, true
	}
}

// ProblemFromError はトランスポート層のエラーを失敗種別に変換する。
func ProblemFromError(err error) Kind {
	if err == nil {
		return KindOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindCannotConnect
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindCannotConnect
	}

	return KindUnknown
}
