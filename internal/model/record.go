package model

// ContentRecord はAPIレスポンスに含まれる未加工のコンテンツレコード。
// 閲覧リスト、ブックマーク、コンテンツ詳細のいずれからも取り込まれる。
type ContentRecord struct {
	URL         string `json:"url"`
	Referrer    string `json:"referrer,omitempty"`
	Timestamp   int64  `json:"ts,omitempty"`
	Like        int    `json:"like,omitempty"`
	User        string `json:"user,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// IdentityKey はレコードの正規の同一性キーを返す。
// referrerが存在する場合はurlより優先する。
func (r ContentRecord) IdentityKey() string {
	if r.Referrer != "" {
		return r.Referrer
	}
	return r.URL
}

// LikeStat はコンテンツのLike集計値。
type LikeStat struct {
	Total      int `json:"total"`
	TotalLiker int `json:"totalLiker"`
}

// ReaderCreators はフォロー中と未フォローのLiker ID一覧。
// サーバーは互いに素な2つのリストを返す。
type ReaderCreators struct {
	Following  []string `json:"following"`
	Unfollowed []string `json:"unfollowed"`
}
