package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/likereader/internal/model"
)

// LikeCoClient はlike.co APIのクライアント。
// コンテンツ詳細、Like集計、ユーザー情報を取得する。
type LikeCoClient struct {
	baseClient
}

// NewLikeCoClient はLikeCoClientの新しいインスタンスを生成する。
func NewLikeCoClient(httpClient *http.Client, logger *slog.Logger, config Config) *LikeCoClient {
	return &LikeCoClient{baseClient: newBaseClient(httpClient, logger, config)}
}

// FetchContentInfo はコンテンツの詳細情報を取得する。
func (c *LikeCoClient) FetchContentInfo(ctx context.Context, contentURL string) Result[model.ContentRecord] {
	var data model.ContentRecord
	query := url.Values{"url": []string{contentURL}}
	kind := c.do(ctx, "fetch_content_info", http.MethodGet, "/like/info", query, &data)
	if kind != KindOK {
		return Result[model.ContentRecord]{Kind: kind}
	}
	return Result[model.ContentRecord]{Kind: KindOK, Data: data}
}

// FetchContentLikeStat はクリエイターのLikeボタンにおけるコンテンツのLike集計を取得する。
func (c *LikeCoClient) FetchContentLikeStat(ctx context.Context, likerID, contentURL string) Result[model.LikeStat] {
	var data model.LikeStat
	path := escapePathSegment("/like/likebutton/%s/total", likerID)
	query := url.Values{"referrer": []string{contentURL}}
	kind := c.do(ctx, "fetch_content_like_stat", http.MethodGet, path, query, &data)
	if kind != KindOK {
		return Result[model.LikeStat]{Kind: kind}
	}
	return Result[model.LikeStat]{Kind: KindOK, Data: data}
}

// FetchUserInfoByID はLiker IDでユーザー情報を取得する。
func (c *LikeCoClient) FetchUserInfoByID(ctx context.Context, likerID string) Result[model.UserInfo] {
	var data model.UserInfo
	path := escapePathSegment("/users/id/%s/min", likerID)
	kind := c.do(ctx, "fetch_user_info", http.MethodGet, path, nil, &data)
	if kind != KindOK {
		return Result[model.UserInfo]{Kind: kind}
	}
	if data.User == "" {
		return Result[model.UserInfo]{Kind: KindBadData}
	}
	return Result[model.UserInfo]{Kind: KindOK, Data: data}
}
