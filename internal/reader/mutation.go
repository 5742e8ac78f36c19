package reader

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// sharedURLPattern は共有拡張から受け付けるURLの形式。
var sharedURLPattern = regexp.MustCompile(`^https?://`)

// ToggleBookmark はコンテンツのブックマーク状態を楽観的に反転し、リモートAPIで確定する。
// 確定に失敗した場合はフラグとブックマーク一覧を変更前の状態へ一括で戻す。
//
// 実体テーブルに存在しないコンテンツに対しては何もせず空文字を返す。
func (s *Store) ToggleBookmark(ctx context.Context, url string) api.Kind {
	return s.mutateBookmark(ctx, url, opToggleBookmark, nil)
}

// SaveBookmark は共有されたURLをブックマークに追加する。
// コンテンツが未登録の場合は作成し、既にブックマーク済みの場合は何もしない。
// 入力の検証失敗と追加の失敗は*model.APIErrorで返す。
func (s *Store) SaveBookmark(ctx context.Context, rawURL string) error {
	if !sharedURLPattern.MatchString(rawURL) {
		return model.NewInvalidURLError("http:// または https:// で始まっていません")
	}
	if s.validator != nil {
		if err := s.validator.ValidateURL(rawURL); err != nil {
			s.logger.Warn("共有URLの検証に失敗しました",
				slog.String("url", rawURL),
				slog.String("error", err.Error()),
			)
			return model.NewInvalidURLError(err.Error())
		}
	}

	content, ok := s.ContentByURL(rawURL)
	if !ok {
		return model.NewInvalidURLError("URLが空です")
	}

	want := true
	kind := s.mutateBookmark(ctx, content.URL, opSaveBookmark, &want)
	if kind != api.KindOK {
		return model.NewBookmarkSaveFailedError(string(kind))
	}
	return nil
}

// mutateBookmark はブックマークの楽観的更新を行う。
// wantがnilの場合は現在の状態を反転し、指定された場合はその状態へ揃える（既に一致していればKindOK）。
func (s *Store) mutateBookmark(ctx context.Context, url, operation string, want *bool) api.Kind {
	s.mu.Lock()
	content, ok := s.contents[url]
	if !ok {
		s.mu.Unlock()
		return ""
	}
	if want != nil && content.IsBookmarked == *want {
		s.mu.Unlock()
		return api.KindOK
	}

	sessionID := s.sessionID
	prevIsBookmarked := content.IsBookmarked
	prevBookmarkList := slices.Clone(s.bookmarkList)

	content.IsBookmarked = !content.IsBookmarked
	adding := content.IsBookmarked
	if adding {
		s.bookmarkList = withKeyFirst(s.bookmarkList, url)
	} else {
		s.bookmarkList = withoutKey(s.bookmarkList, url)
	}
	s.mu.Unlock()
	s.notify(ChangeBookmarkList)

	var (
		kind api.Kind
		err  error
	)
	if adding {
		kind, err = commandRemote(func() api.GeneralResult {
			return s.likerLand.AddBookmark(ctx, url)
		}, model.ErrBookmarkAddFailed)
	} else {
		kind, err = commandRemote(func() api.GeneralResult {
			return s.likerLand.RemoveBookmark(ctx, url)
		}, model.ErrBookmarkRemoveFailed)
	}
	if err == nil {
		return api.KindOK
	}

	s.logFailure(operation, sessionID, kind, err, slog.String("url", url))

	s.mu.Lock()
	if s.isSessionLocked(sessionID) {
		if c, ok := s.contents[url]; ok {
			c.IsBookmarked = prevIsBookmarked
		}
		s.bookmarkList = prevBookmarkList
	}
	s.mu.Unlock()
	s.recordRollback(operation)
	s.notify(ChangeBookmarkList)
	return kind
}

// ToggleFollow はクリエイターのフォロー状態を楽観的に反転し、
// フォロー中・未フォローの両リスト間で移動した上でリモートAPIで確定する。
// 確定に失敗した場合はフラグと両リストを一括で戻す。
//
// 実体テーブルに存在しないクリエイターに対しては何もせず空文字を返す。
func (s *Store) ToggleFollow(ctx context.Context, likerID string) api.Kind {
	s.mu.Lock()
	creator, ok := s.creators[likerID]
	if !ok {
		s.mu.Unlock()
		return ""
	}

	sessionID := s.sessionID
	prevIsFollowing := creator.IsFollowing
	prevFollowing := slices.Clone(s.followingCreators)
	prevUnfollowed := slices.Clone(s.unfollowedCreators)

	creator.IsFollowing = !creator.IsFollowing
	following := creator.IsFollowing
	if following {
		s.unfollowedCreators = withoutKey(s.unfollowedCreators, likerID)
		s.followingCreators = withKeyLast(s.followingCreators, likerID)
	} else {
		s.followingCreators = withoutKey(s.followingCreators, likerID)
		s.unfollowedCreators = withKeyLast(s.unfollowedCreators, likerID)
	}
	s.mu.Unlock()
	s.notify(ChangeCreatorList)

	var (
		kind api.Kind
		err  error
	)
	if following {
		kind, err = commandRemote(func() api.GeneralResult {
			return s.likerLand.FollowLiker(ctx, likerID)
		}, model.ErrFollowFailed)
	} else {
		kind, err = commandRemote(func() api.GeneralResult {
			return s.likerLand.UnfollowLiker(ctx, likerID)
		}, model.ErrUnfollowFailed)
	}
	if err == nil {
		return api.KindOK
	}

	s.logFailure(opToggleFollow, sessionID, kind, err, slog.String("liker_id", likerID))

	s.mu.Lock()
	if s.isSessionLocked(sessionID) {
		if c, ok := s.creators[likerID]; ok {
			c.IsFollowing = prevIsFollowing
		}
		s.followingCreators = prevFollowing
		s.unfollowedCreators = prevUnfollowed
	}
	s.mu.Unlock()
	s.recordRollback(opToggleFollow)
	s.notify(ChangeCreatorList)
	return kind
}
