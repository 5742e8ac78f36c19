package reader

import (
	"context"
	"log/slog"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// FetchContentDetails はコンテンツの詳細（タイトル・説明文・画像・いいね数）を取得して反映する。
// 成否に関わらず取得済み・キャッシュ済みとして扱う。
// 未登録のコンテンツ、または取得中のコンテンツに対しては何もせず空文字を返す。
func (s *Store) FetchContentDetails(ctx context.Context, url string) api.Kind {
	s.mu.Lock()
	content, ok := s.contents[url]
	if !ok || content.IsFetchingDetails {
		s.mu.Unlock()
		return ""
	}
	content.IsFetchingDetails = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeContent)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			if c, ok := s.contents[url]; ok {
				c.IsFetchingDetails = false
				c.HasFetchedDetails = true
				c.HasCached = true
			}
		}
		s.mu.Unlock()
		s.notify(ChangeContent)
	}()

	result, err := fetchRemote(func() api.Result[model.ContentRecord] {
		return s.likeCo.FetchContentInfo(ctx, url)
	})
	if err != nil {
		s.logFailure(opFetchContentDetails, sessionID, api.KindUnknown, err, slog.String("url", url))
		s.recordSync(opFetchContentDetails, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if c, ok := s.contents[url]; ok && s.isSessionLocked(sessionID) {
			s.applyDetailsLocked(c, result.Data)
			s.recordEntitiesLocked()
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchContentDetails, sessionID, result.Kind, nil, slog.String("url", url))
	}
	s.recordSync(opFetchContentDetails, result.Kind)
	return result.Kind
}

// applyDetailsLocked は詳細取得の結果をコンテンツへ反映する。
// 説明的なフィールドは上書きし、いいね数は増加時のみ更新する。
func (s *Store) applyDetailsLocked(c *model.Content, info model.ContentRecord) {
	if c.CreatorLikerID == "" && info.User != "" {
		c.CreatorLikerID = info.User
		s.resolveOrCreateCreatorLocked(info.User)
	}
	c.Title = s.sanitize(info.Title)
	c.Description = s.sanitize(info.Description)
	c.ImageURL = info.Image
	c.RaiseLikeCount(info.Like)
}

// FetchContentLikeStat はコンテンツのいいね統計を取得する。
// いいね数は増加時のみ、いいねした人数は常に上書きする。
// クリエイターIDが不明なコンテンツは統計を引けないため何もしない。
func (s *Store) FetchContentLikeStat(ctx context.Context, url string) api.Kind {
	s.mu.Lock()
	content, ok := s.contents[url]
	if !ok || content.IsFetchingLikeStats {
		s.mu.Unlock()
		return ""
	}
	likerID := content.CreatorLikerID
	if likerID == "" {
		s.mu.Unlock()
		s.logger.Warn("クリエイターIDが不明なためいいね統計の取得をスキップします",
			slog.String("operation", opFetchContentLikeStat),
			slog.String("url", url),
		)
		return ""
	}
	content.IsFetchingLikeStats = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeContent)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			if c, ok := s.contents[url]; ok {
				c.IsFetchingLikeStats = false
			}
		}
		s.mu.Unlock()
		s.notify(ChangeContent)
	}()

	result, err := fetchRemote(func() api.Result[model.LikeStat] {
		return s.likeCo.FetchContentLikeStat(ctx, likerID, url)
	})
	if err != nil {
		s.logFailure(opFetchContentLikeStat, sessionID, api.KindUnknown, err, slog.String("url", url))
		s.recordSync(opFetchContentLikeStat, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if c, ok := s.contents[url]; ok && s.isSessionLocked(sessionID) {
			c.RaiseLikeCount(result.Data.Total)
			c.LikerCount = result.Data.TotalLiker
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchContentLikeStat, sessionID, result.Kind, nil, slog.String("url", url))
	}
	s.recordSync(opFetchContentLikeStat, result.Kind)
	return result.Kind
}

// FetchCreatorProfile はクリエイターのプロフィールを取得して保持する。
func (s *Store) FetchCreatorProfile(ctx context.Context, likerID string) api.Kind {
	s.mu.Lock()
	creator, ok := s.creators[likerID]
	if !ok || creator.IsFetchingProfile {
		s.mu.Unlock()
		return ""
	}
	creator.IsFetchingProfile = true
	sessionID := s.sessionID
	s.mu.Unlock()
	s.notify(ChangeCreator)

	defer func() {
		s.mu.Lock()
		if s.isSessionLocked(sessionID) {
			if c, ok := s.creators[likerID]; ok {
				c.IsFetchingProfile = false
			}
		}
		s.mu.Unlock()
		s.notify(ChangeCreator)
	}()

	result, err := fetchRemote(func() api.Result[model.UserInfo] {
		return s.likeCo.FetchUserInfoByID(ctx, likerID)
	})
	if err != nil {
		s.logFailure(opFetchCreatorProfile, sessionID, api.KindUnknown, err, slog.String("liker_id", likerID))
		s.recordSync(opFetchCreatorProfile, resultPanic)
		return api.KindUnknown
	}

	switch result.Kind {
	case api.KindOK:
		s.mu.Lock()
		if c, ok := s.creators[likerID]; ok && s.isSessionLocked(sessionID) {
			profile := result.Data
			profile.DisplayName = s.sanitize(profile.DisplayName)
			c.Profile = &profile
		}
		s.mu.Unlock()
	default:
		s.logFailure(opFetchCreatorProfile, sessionID, result.Kind, nil, slog.String("liker_id", likerID))
	}
	s.recordSync(opFetchCreatorProfile, result.Kind)
	return result.Kind
}
