package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/likereader/internal/model"
)

// LikerLandClient はliker.land リーダーAPIのクライアント。
// フォロー関係、フォロー中クリエイターのコンテンツ、ブックマークを扱う。
type LikerLandClient struct {
	baseClient
}

// NewLikerLandClient はLikerLandClientの新しいインスタンスを生成する。
func NewLikerLandClient(httpClient *http.Client, logger *slog.Logger, config Config) *LikerLandClient {
	return &LikerLandClient{baseClient: newBaseClient(httpClient, logger, config)}
}

// FetchReaderCreators はフォロー中と未フォローのクリエイター一覧を取得する。
func (c *LikerLandClient) FetchReaderCreators(ctx context.Context) Result[model.ReaderCreators] {
	var body struct {
		Following  *[]string `json:"following"`
		Unfollowed *[]string `json:"unfollowed"`
	}
	kind := c.do(ctx, "fetch_reader_creators", http.MethodGet, "/reader/creators", nil, &body)
	if kind != KindOK {
		return Result[model.ReaderCreators]{Kind: kind}
	}
	if body.Following == nil || body.Unfollowed == nil {
		return Result[model.ReaderCreators]{Kind: KindBadData}
	}
	return Result[model.ReaderCreators]{
		Kind: KindOK,
		Data: model.ReaderCreators{Following: *body.Following, Unfollowed: *body.Unfollowed},
	}
}

// FetchReaderFollowing はフォロー中クリエイターのコンテンツを1ページ取得する。
// beforeが0の場合は先頭ページ、それ以外はbeforeより古いコンテンツを取得する。
func (c *LikerLandClient) FetchReaderFollowing(ctx context.Context, before int64) Result[[]model.ContentRecord] {
	var query url.Values
	if before != 0 {
		query = url.Values{"before": []string{strconv.FormatInt(before, 10)}}
	}

	var body struct {
		List *[]model.ContentRecord `json:"list"`
	}
	kind := c.do(ctx, "fetch_reader_following", http.MethodGet, "/reader/works/followed", query, &body)
	if kind != KindOK {
		return Result[[]model.ContentRecord]{Kind: kind}
	}
	if body.List == nil {
		return Result[[]model.ContentRecord]{Kind: KindBadData}
	}
	return Result[[]model.ContentRecord]{Kind: KindOK, Data: *body.List}
}

// FetchReaderBookmarks はブックマークしたURLの一覧を取得する。
// サーバーは古い順に返す。
func (c *LikerLandClient) FetchReaderBookmarks(ctx context.Context) Result[[]string] {
	var body struct {
		List *[]string `json:"list"`
	}
	kind := c.do(ctx, "fetch_reader_bookmarks", http.MethodGet, "/reader/bookmark", nil, &body)
	if kind != KindOK {
		return Result[[]string]{Kind: kind}
	}
	if body.List == nil {
		return Result[[]string]{Kind: KindBadData}
	}
	return Result[[]string]{Kind: KindOK, Data: *body.List}
}

// AddBookmark はURLをブックマークに追加する。
func (c *LikerLandClient) AddBookmark(ctx context.Context, contentURL string) GeneralResult {
	query := url.Values{"url": []string{contentURL}}
	return GeneralResult{Kind: c.do(ctx, "add_bookmark", http.MethodPost, "/reader/bookmark", query, nil)}
}

// RemoveBookmark はURLをブックマークから削除する。
func (c *LikerLandClient) RemoveBookmark(ctx context.Context, contentURL string) GeneralResult {
	query := url.Values{"url": []string{contentURL}}
	return GeneralResult{Kind: c.do(ctx, "remove_bookmark", http.MethodDelete, "/reader/bookmark", query, nil)}
}

// FollowLiker はクリエイターをフォローする。
func (c *LikerLandClient) FollowLiker(ctx context.Context, likerID string) GeneralResult {
	path := escapePathSegment("/reader/follow/user/%s", likerID)
	return GeneralResult{Kind: c.do(ctx, "follow_liker", http.MethodPost, path, nil, nil)}
}

// UnfollowLiker はクリエイターのフォローを解除する。
func (c *LikerLandClient) UnfollowLiker(ctx context.Context, likerID string) GeneralResult {
	path := escapePathSegment("/reader/follow/user/%s", likerID)
	return GeneralResult{Kind: c.do(ctx, "unfollow_liker", http.MethodDelete, path, nil, nil)}
}
