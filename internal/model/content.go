// Package model はドメインモデルを定義する。
package model

// Content はLikeボタンが設置されたコンテンツ（記事）を表す。
// URL（referrerが提供された場合はreferrer）を同一性キーとする。
type Content struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	CreatorLikerID string `json:"creator_liker_id,omitempty"`
	LikeCount      int    `json:"like_count"`
	LikerCount     int    `json:"liker_count"`
	Timestamp      int64  `json:"timestamp"`  // ページネーションのカーソルとして使用する
	HasCached      bool   `json:"has_cached"` // 詳細取得が一度でも完了した（成否を問わない）
	IsBookmarked   bool   `json:"is_bookmarked"`

	// 以下は永続化しない一時状態
	IsFetchingDetails   bool `json:"is_fetching_details"`
	IsFetchingLikeStats bool `json:"is_fetching_like_stats"`
	HasFetchedDetails   bool `json:"has_fetched_details"`
}

// IsLoading は詳細が未キャッシュ、または詳細取得中であるかを返す。
func (c Content) IsLoading() bool {
	return !c.HasCached || c.IsFetchingDetails
}

// SetTimestamp はゼロ以外のタイムスタンプのみを反映する。
// タイムスタンプを含まないページで既知の値が上書きされることを防ぐ。
func (c *Content) SetTimestamp(ts int64) {
	if ts != 0 {
		c.Timestamp = ts
	}
}

// RaiseLikeCount はLike数を単調増加で更新する。現在値より大きい場合のみ反映する。
func (c *Content) RaiseLikeCount(count int) {
	if c.LikeCount < count {
		c.LikeCount = count
	}
}

// Creator はコンテンツの作者（Liker）を表す。
type Creator struct {
	LikerID     string    `json:"liker_id"`
	IsFollowing bool      `json:"is_following"`
	Profile     *UserInfo `json:"profile,omitempty"` // 遅延取得。未取得の場合はnil

	IsFetchingProfile bool `json:"is_fetching_profile"`
}

// UserInfo はLikerのプロフィール情報を表す。
type UserInfo struct {
	User                   string `json:"user"`
	DisplayName            string `json:"displayName"`
	Avatar                 string `json:"avatar"`
	IsSubscribedCivicLiker bool   `json:"isSubscribedCivicLiker"`
}
