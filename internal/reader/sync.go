package reader

import (
	"context"
	"log/slog"
	"slices"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// 同期操作は失敗をログに記録して握りつぶす。呼び出し元から観測できるのは
// 成功時の副作用が起きないことと、取得中フラグが必ず解除されることのみである。
// 戻り値の結果種別は定期更新のバックオフ判定に使う。実行中で何もしなかった場合は空文字を返す。

// FetchCreatorList はフォロー関係を取得し、フォロー中・未フォローの両リストを置き換える。
// 既に実行中の場合は何もしない。結果に関わらずHasFetchedCreatorListを立てる。
func (s *Store) FetchCreatorList(ctx context.Context) api.Kind {
	s.mu.Lock()
	if s.status.IsFetchingCreatorList {
		s.mu.Unlock()
		return ""
	}
	s.status.IsFetchingCreatorList = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeCreatorList)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.status.IsFetchingCreatorList = false
			s.status.HasFetchedCreatorList = true
		}
		s.mu.Unlock()
		s.notify(ChangeCreatorList)
	}()

	result, err := fetchRemote(func() api.Result[model.ReaderCreators] {
		return s.likerLand.FetchReaderCreators(ctx)
	})
	if err != nil {
		s.logFailure(opFetchCreatorList, sessionID, api.KindUnknown, err)
		s.recordSync(opFetchCreatorList, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.replaceCreatorListsLocked(result.Data)
			s.recordEntitiesLocked()
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchCreatorList, sessionID, result.Kind, nil)
	}
	s.recordSync(opFetchCreatorList, result.Kind)
	return result.Kind
}

// replaceCreatorListsLocked はクリエイターの両リストをサーバーの結果で置き換え、
// 各クリエイターのIsFollowingを所属リストに合わせる。
func (s *Store) replaceCreatorListsLocked(data model.ReaderCreators) {
	following := make([]string, 0, len(data.Following))
	for _, id := range data.Following {
		creator := s.resolveOrCreateCreatorLocked(id)
		creator.IsFollowing = true
		following = append(following, id)
	}

	unfollowed := make([]string, 0, len(data.Unfollowed))
	for _, id := range data.Unfollowed {
		creator := s.resolveOrCreateCreatorLocked(id)
		creator.IsFollowing = false
		unfollowed = append(unfollowed, id)
	}

	s.followingCreators = following
	s.unfollowedCreators = unfollowed
}

// FetchFollowingList はフォロー中コンテンツの先頭ページを取得し、リストを作り直す。
// 結果に関わらず終端フラグを下ろし、最終取得日時を更新する。
func (s *Store) FetchFollowingList(ctx context.Context) api.Kind {
	s.mu.Lock()
	if s.status.IsFetchingFollowedList {
		s.mu.Unlock()
		return ""
	}
	s.status.IsFetchingFollowedList = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeFollowedList)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.status.IsFetchingFollowedList = false
			s.status.HasFetchedFollowedList = true
			s.status.FollowedListLastFetchedDate = s.now()
			s.status.HasReachedEndOfFollowedList = false
		}
		s.mu.Unlock()
		s.notify(ChangeFollowedList)
	}()

	result, err := fetchRemote(func() api.Result[[]model.ContentRecord] {
		return s.likerLand.FetchReaderFollowing(ctx, 0)
	})
	if err != nil {
		s.logFailure(opFetchFollowingList, sessionID, api.KindUnknown, err)
		s.recordSync(opFetchFollowingList, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.followedSet = make(map[string]struct{}, len(result.Data))
			s.followedList = nil
			for _, rec := range result.Data {
				s.ingestFollowedLocked(rec)
			}
			s.recordEntitiesLocked()
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchFollowingList, sessionID, result.Kind, nil)
	}
	s.recordSync(opFetchFollowingList, result.Kind)
	return result.Kind
}

// FetchMoreFollowedList はリスト末尾のタイムスタンプをカーソルとして次のページを取得し、
// 既存のリストへマージする。空のページが返った場合のみ終端フラグを立てる。
//
// リストが空でカーソルを決められない場合と、既に実行中の場合は何もしない。
func (s *Store) FetchMoreFollowedList(ctx context.Context) api.Kind {
	s.mu.Lock()
	if s.status.IsFetchingMoreFollowedList {
		s.mu.Unlock()
		return ""
	}
	before, ok := s.lastFollowedTimestampLocked()
	if !ok {
		sessionID := s.sessionID
		s.mu.Unlock()
		s.logger.Warn("カーソルが存在しないため追加取得をスキップします",
			slog.String("operation", opFetchMoreFollowedList),
			slog.String("session_id", sessionID),
		)
		return ""
	}
	s.status.IsFetchingMoreFollowedList = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeFollowedList)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.status.IsFetchingMoreFollowedList = false
		}
		s.mu.Unlock()
		s.notify(ChangeFollowedList)
	}()

	result, err := fetchRemote(func() api.Result[[]model.ContentRecord] {
		return s.likerLand.FetchReaderFollowing(ctx, before)
	})
	if err != nil {
		s.logFailure(opFetchMoreFollowedList, sessionID, api.KindUnknown, err)
		s.recordSync(opFetchMoreFollowedList, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			for _, rec := range result.Data {
				s.ingestFollowedLocked(rec)
			}
			if len(result.Data) == 0 {
				s.status.HasReachedEndOfFollowedList = true
			}
			s.recordEntitiesLocked()
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchMoreFollowedList, sessionID, result.Kind, nil,
			slog.Int64("before", before),
		)
	}
	s.recordSync(opFetchMoreFollowedList, result.Kind)
	return result.Kind
}

// FetchBookmarkList はブックマーク一覧を取得し、リストを新しい順で作り直す。
// 既に実行中の場合は何もしない。
func (s *Store) FetchBookmarkList(ctx context.Context) api.Kind {
	s.mu.Lock()
	if s.status.IsFetchingBookmarkList {
		s.mu.Unlock()
		return ""
	}
	s.status.IsFetchingBookmarkList = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeBookmarkList)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.status.IsFetchingBookmarkList = false
			s.status.HasFetchedBookmarkList = true
		}
		s.mu.Unlock()
		s.notify(ChangeBookmarkList)
	}()

	result, err := fetchRemote(func() api.Result[[]string] {
		return s.likerLand.FetchReaderBookmarks(ctx)
	})
	if err != nil {
		s.logFailure(opFetchBookmarkList, sessionID, api.KindUnknown, err)
		s.recordSync(opFetchBookmarkList, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			s.replaceBookmarkListLocked(result.Data)
			s.recordEntitiesLocked()
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchBookmarkList, sessionID, result.Kind, nil)
	}
	s.recordSync(opFetchBookmarkList, result.Kind)
	return result.Kind
}

// replaceBookmarkListLocked はサーバーが古い順で返すURL一覧を反転し、新しい順のリストを作る。
// 取り込んだコンテンツはブックマーク済みとし、一覧から外れたコンテンツはブックマークを外す。
func (s *Store) replaceBookmarkListLocked(urls []string) {
	reversed := slices.Clone(urls)
	slices.Reverse(reversed)

	list := make([]string, 0, len(reversed))
	seen := make(map[string]struct{}, len(reversed))
	for _, url := range reversed {
		content := s.resolveOrCreateContentLocked(model.ContentRecord{URL: url})
		if content == nil {
			continue
		}
		if _, dup := seen[content.URL]; dup {
			continue
		}
		seen[content.URL] = struct{}{}
		content.IsBookmarked = true
		list = append(list, content.URL)
	}

	for _, key := range s.bookmarkList {
		if _, kept := seen[key]; kept {
			continue
		}
		if c, ok := s.contents[key]; ok {
			c.IsBookmarked = false
		}
	}

	s.bookmarkList = list
}
