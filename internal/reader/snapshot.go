package reader

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/hitoshi/likereader/internal/model"
)

// Snapshot は現在の実体テーブルと各リストを永続化用にコピーして返す。
// 一時状態とプロフィールは含めない。
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.Snapshot{
		Contents:           make([]model.Content, 0, len(s.contents)),
		Creators:           make([]model.Creator, 0, len(s.creators)),
		FollowedList:       slices.Clone(s.followedList),
		BookmarkList:       slices.Clone(s.bookmarkList),
		FollowingCreators:  slices.Clone(s.followingCreators),
		UnfollowedCreators: slices.Clone(s.unfollowedCreators),
		SavedAt:            s.now(),
	}
	for _, c := range s.contents {
		cp := *c
		cp.IsFetchingDetails = false
		cp.IsFetchingLikeStats = false
		cp.HasFetchedDetails = false
		snap.Contents = append(snap.Contents, cp)
	}
	for _, c := range s.creators {
		snap.Creators = append(snap.Creators, model.Creator{
			LikerID:     c.LikerID,
			IsFollowing: c.IsFollowing,
		})
	}

	sort.Slice(snap.Contents, func(i, j int) bool { return snap.Contents[i].URL < snap.Contents[j].URL })
	sort.Slice(snap.Creators, func(i, j int) bool { return snap.Creators[i].LikerID < snap.Creators[j].LikerID })
	return snap
}

// Hydrate はスナップショットから状態を復元する。既存の状態は破棄され、セッションIDは更新される。
// 実体が存在しないリストのキーは取り除き、followedSetはフォロー中リストから再構築する。
func (s *Store) Hydrate(snap model.Snapshot) {
	s.mu.Lock()
	s.resetLocked()

	for _, c := range snap.Contents {
		if c.URL == "" {
			continue
		}
		cp := c
		cp.IsFetchingDetails = false
		cp.IsFetchingLikeStats = false
		cp.HasFetchedDetails = false
		s.contents[cp.URL] = &cp
	}
	for _, c := range snap.Creators {
		if c.LikerID == "" {
			continue
		}
		s.creators[c.LikerID] = &model.Creator{LikerID: c.LikerID, IsFollowing: c.IsFollowing}
	}

	dropped := 0
	keepContents := func(keys []string) []string {
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if _, ok := s.contents[k]; ok {
				out = append(out, k)
			} else {
				dropped++
			}
		}
		return out
	}
	keepCreators := func(keys []string) []string {
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if _, ok := s.creators[k]; ok {
				out = append(out, k)
			} else {
				dropped++
			}
		}
		return out
	}

	for _, k := range keepContents(snap.FollowedList) {
		if _, seen := s.followedSet[k]; seen {
			continue
		}
		s.followedSet[k] = struct{}{}
		s.followedList = append(s.followedList, k)
	}
	s.bookmarkList = keepContents(snap.BookmarkList)
	s.followingCreators = keepCreators(snap.FollowingCreators)
	s.unfollowedCreators = keepCreators(snap.UnfollowedCreators)

	sessionID := s.sessionID
	contents, creators := len(s.contents), len(s.creators)
	s.recordEntitiesLocked()
	s.mu.Unlock()

	s.logger.Info("スナップショットから状態を復元しました",
		slog.String("session_id", sessionID),
		slog.Int("contents", contents),
		slog.Int("creators", creators),
		slog.Int("dropped_keys", dropped),
	)
	s.notify(ChangeHydrate)
}
