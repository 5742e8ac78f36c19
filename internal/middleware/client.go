package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIDHeader はクライアントが自身を識別するために送るヘッダー名。
const ClientIDHeader = "X-Client-Id"

// maxClientIDLength はクライアントIDとして受け付ける最大長。
const maxClientIDLength = 64

// ClientKey はログに使うクライアント識別子を返す。
// X-Client-Idヘッダーがあればそれを、なければ接続元IPを使う。
// ヘッダーはクライアントが自由に変えられるため、レート制限にはRateLimitKeyを使う。
func ClientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" && len(id) <= maxClientIDLength {
		return "client:" + id
	}
	return "ip:" + remoteIP(r)
}

// RateLimitKey はレート制限のバケットを選ぶキーを返す。
// 接続元IPのみを使い、X-Client-Idを付け替えても制限を回避できないようにする。
func RateLimitKey(r *http.Request) string {
	return "ip:" + remoteIP(r)
}

// remoteIP はRemoteAddrからホスト部分を取り出す。
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
