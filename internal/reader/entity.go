package reader

import (
	"log/slog"
	"slices"

	"github.com/hitoshi/likereader/internal/model"
)

// resolveOrCreateContentLocked はレコードの同一性キー（referrer優先）でコンテンツを検索し、
// 存在しなければ作成してテーブルに登録する。
// 既存のコンテンツはタイムスタンプ（ゼロ以外のみ）と未設定のクリエイターIDを除き変更しない。
// 同一性キーが空のレコードはnilを返す。
func (s *Store) resolveOrCreateContentLocked(rec model.ContentRecord) *model.Content {
	key := rec.IdentityKey()
	if key == "" {
		return nil
	}

	content, ok := s.contents[key]
	if !ok {
		content = &model.Content{
			URL:         key,
			Title:       s.sanitize(rec.Title),
			Description: s.sanitize(rec.Description),
			ImageURL:    rec.Image,
			LikeCount:   rec.Like,
			Timestamp:   rec.Timestamp,
		}
		s.contents[key] = content
	}

	if content.CreatorLikerID == "" && rec.User != "" {
		content.CreatorLikerID = rec.User
		s.resolveOrCreateCreatorLocked(rec.User)
	}

	content.SetTimestamp(rec.Timestamp)
	return content
}

// resolveOrCreateCreatorLocked はLiker IDでクリエイターを検索し、存在しなければ作成する。
func (s *Store) resolveOrCreateCreatorLocked(likerID string) *model.Creator {
	creator, ok := s.creators[likerID]
	if !ok {
		creator = &model.Creator{LikerID: likerID}
		s.creators[likerID] = creator
	}
	return creator
}

// ContentByURL はURLに対応するコンテンツを返す。未登録の場合は作成する。
// URLが空の場合と、未登録かつURLの検証に失敗した場合はfalseを返す。
func (s *Store) ContentByURL(url string) (model.Content, bool) {
	if url == "" {
		return model.Content{}, false
	}

	s.mu.Lock()
	_, existed := s.contents[url]
	if !existed && s.validator != nil {
		if err := s.validator.ValidateURL(url); err != nil {
			s.mu.Unlock()
			s.logger.Warn("URLの検証に失敗したためコンテンツを作成しません",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			return model.Content{}, false
		}
	}
	content := s.resolveOrCreateContentLocked(model.ContentRecord{URL: url})
	result := *content
	if !existed {
		s.recordEntitiesLocked()
	}
	s.mu.Unlock()

	if !existed {
		s.notify(ChangeContent)
	}
	return result, true
}

// resolveContentsLocked はキー列を実体テーブルで解決したコピーを返す。
// テーブルに存在しないキーは読み飛ばす。
func (s *Store) resolveContentsLocked(keys []string) []model.Content {
	out := make([]model.Content, 0, len(keys))
	for _, key := range keys {
		if c, ok := s.contents[key]; ok {
			out = append(out, *c)
		}
	}
	return out
}

// resolveCreatorsLocked はキー列をクリエイターテーブルで解決したコピーを返す。
// テーブルに存在しないキーは読み飛ばす。
func (s *Store) resolveCreatorsLocked(keys []string) []model.Creator {
	out := make([]model.Creator, 0, len(keys))
	for _, key := range keys {
		if c, ok := s.creators[key]; ok {
			out = append(out, copyCreator(c))
		}
	}
	return out
}

// ingestFollowedLocked はフォロー中コンテンツのレコードを取り込む。
// followedSetに未登録の場合のみ末尾へ追加し、サーバーの並び順を保つ。
func (s *Store) ingestFollowedLocked(rec model.ContentRecord) {
	content := s.resolveOrCreateContentLocked(rec)
	if content == nil {
		return
	}
	if _, seen := s.followedSet[content.URL]; seen {
		return
	}
	s.followedSet[content.URL] = struct{}{}
	s.followedList = append(s.followedList, content.URL)
}

// lastFollowedTimestampLocked はフォロー中リストの末尾にある（実在する）コンテンツの
// タイムスタンプを返す。リストが空、または末尾のタイムスタンプが不明の場合はfalseを返す。
func (s *Store) lastFollowedTimestampLocked() (int64, bool) {
	for i := len(s.followedList) - 1; i >= 0; i-- {
		c, ok := s.contents[s.followedList[i]]
		if !ok {
			continue
		}
		if c.Timestamp == 0 {
			return 0, false
		}
		return c.Timestamp, true
	}
	return 0, false
}

// withoutKey はキーを除いた新しいスライスを返す。
func withoutKey(keys []string, key string) []string {
	return slices.DeleteFunc(slices.Clone(keys), func(k string) bool { return k == key })
}

// withKeyFirst はキーを先頭に置いた新しいスライスを返す。既存の同じキーは取り除く。
func withKeyFirst(keys []string, key string) []string {
	out := make([]string, 0, len(keys)+1)
	out = append(out, key)
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// withKeyLast はキーを末尾に置いた新しいスライスを返す。既存の同じキーは取り除く。
func withKeyLast(keys []string, key string) []string {
	return append(withoutKey(keys, key), key)
}
