// Package reader はリーダー画面向けのローカルストアを提供する。
//
// Storeはコンテンツとクリエイターの実体テーブルを唯一の情報源として保持し、
// フォロー中コンテンツ・ブックマーク・クリエイター一覧の各リストは
// 実体テーブルへの同一性キーの列として表現する。
// 同期操作はリモートAPIの結果をテーブルへマージし、
// 楽観的更新操作はローカル状態を即時に変更した上で、失敗時に一括でロールバックする。
//
// 状態は1つのミューテックスで保護され、リモート呼び出しの間は常に解放される。
// リモート呼び出しの前後にある各ステップは他の操作に対してアトミックに見える。
package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// LikerLandAPI はStoreが利用するliker.land リーダーAPIのインターフェース。
type LikerLandAPI interface {
	FetchReaderCreators(ctx context.Context) api.Result[model.ReaderCreators]
	FetchReaderFollowing(ctx context.Context, before int64) api.Result[[]model.ContentRecord]
	FetchReaderBookmarks(ctx context.Context) api.Result[[]string]
	AddBookmark(ctx context.Context, url string) api.GeneralResult
	RemoveBookmark(ctx context.Context, url string) api.GeneralResult
	FollowLiker(ctx context.Context, likerID string) api.GeneralResult
	UnfollowLiker(ctx context.Context, likerID string) api.GeneralResult
}

// LikeCoAPI はStoreが利用するlike.co APIのインターフェース。
type LikeCoAPI interface {
	FetchContentInfo(ctx context.Context, url string) api.Result[model.ContentRecord]
	FetchContentLikeStat(ctx context.Context, likerID, url string) api.Result[model.LikeStat]
	FetchUserInfoByID(ctx context.Context, likerID string) api.Result[model.UserInfo]
}

// TextSanitizer はサーバー由来のタイトル・説明文を表示用に無害化する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// URLValidator は共有されたURLの安全性を検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Recorder は同期・更新操作の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordSync(operation, result string)
	RecordRollback(operation string)
	SetEntityCounts(contents, creators int)
}

// Deps はStoreの依存関係。LikerLandとLikeCoは必須。
type Deps struct {
	LikerLand LikerLandAPI
	LikeCo    LikeCoAPI
	Sanitizer TextSanitizer
	Validator URLValidator
	Recorder  Recorder
	Logger    *slog.Logger
	// Now は現在時刻を返す。nilの場合はtime.Nowを使用する。
	Now func() time.Time
}

// Status はリストごとの一時的な取得状態。
type Status struct {
	IsFetchingCreatorList       bool      `json:"is_fetching_creator_list"`
	HasFetchedCreatorList       bool      `json:"has_fetched_creator_list"`
	IsFetchingFollowedList      bool      `json:"is_fetching_followed_list"`
	HasFetchedFollowedList      bool      `json:"has_fetched_followed_list"`
	FollowedListLastFetchedDate time.Time `json:"followed_list_last_fetched_date"`
	IsFetchingMoreFollowedList  bool      `json:"is_fetching_more_followed_list"`
	HasReachedEndOfFollowedList bool      `json:"has_reached_end_of_followed_list"`
	IsFetchingBookmarkList      bool      `json:"is_fetching_bookmark_list"`
	HasFetchedBookmarkList      bool      `json:"has_fetched_bookmark_list"`
}

// Change は購読者に通知される状態変更の種別。
type Change string

const (
	ChangeCreatorList  Change = "creator_list"
	ChangeFollowedList Change = "followed_list"
	ChangeBookmarkList Change = "bookmark_list"
	ChangeContent      Change = "content"
	ChangeCreator      Change = "creator"
	ChangeReset        Change = "reset"
	ChangeHydrate      Change = "hydrate"
)

// Store はリーダーの集約ルート。セッションごとに1つ生成する。
type Store struct {
	likerLand LikerLandAPI
	likeCo    LikeCoAPI
	sanitizer TextSanitizer
	validator URLValidator
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	sessionID string
	contents  map[string]*model.Content
	creators  map[string]*model.Creator

	followedList       []string
	bookmarkList       []string
	followingCreators  []string
	unfollowedCreators []string
	followedSet        map[string]struct{}

	status Status

	listenersMu    sync.Mutex
	listeners      map[int]func(Change)
	nextListenerID int
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(deps Deps) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		likerLand: deps.LikerLand,
		likeCo:    deps.LikeCo,
		sanitizer: deps.Sanitizer,
		validator: deps.Validator,
		recorder:  deps.Recorder,
		logger:    logger,
		now:       now,
		listeners: make(map[int]func(Change)),
	}
	s.resetLocked()
	return s
}

// Reset は実体テーブルと全リストを空に戻し、一時状態を初期値に戻す。
// サインアウト時に使用する。実行中の操作は完了後に結果を破棄する。
func (s *Store) Reset() {
	s.mu.Lock()
	prev := s.sessionID
	s.resetLocked()
	next := s.sessionID
	s.recordEntitiesLocked()
	s.mu.Unlock()

	s.logger.Info("リーダーストアをリセットしました",
		slog.String("previous_session_id", prev),
		slog.String("session_id", next),
	)
	s.notify(ChangeReset)
}

func (s *Store) resetLocked() {
	s.sessionID = uuid.NewString()
	s.contents = make(map[string]*model.Content)
	s.creators = make(map[string]*model.Creator)
	s.followedList = nil
	s.bookmarkList = nil
	s.followingCreators = nil
	s.unfollowedCreators = nil
	s.followedSet = make(map[string]struct{})
	s.status = Status{}
}

// SessionID は現在のセッションIDを返す。Resetのたびに更新される。
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Status は一時状態のコピーを返す。
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Content は同一性キーでコンテンツのコピーを返す。
func (s *Store) Content(url string) (model.Content, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[url]
	if !ok {
		return model.Content{}, false
	}
	return *c, true
}

// Creator はLiker IDでクリエイターのコピーを返す。
func (s *Store) Creator(likerID string) (model.Creator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creators[likerID]
	if !ok {
		return model.Creator{}, false
	}
	return copyCreator(c), true
}

// EntityCounts は実体テーブルの件数を返す。
func (s *Store) EntityCounts() (contents, creators int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contents), len(s.creators)
}

// FollowedList はフォロー中コンテンツ一覧をサーバーの並び順で返す。
func (s *Store) FollowedList() []model.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveContentsLocked(s.followedList)
}

// BookmarkList はブックマーク一覧を新しい順で返す。
func (s *Store) BookmarkList() []model.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveContentsLocked(s.bookmarkList)
}

// FollowingCreators はフォロー中のクリエイター一覧を返す。
func (s *Store) FollowingCreators() []model.Creator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCreatorsLocked(s.followingCreators)
}

// UnfollowedCreators は未フォローのクリエイター一覧を返す。
func (s *Store) UnfollowedCreators() []model.Creator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCreatorsLocked(s.unfollowedCreators)
}

// Subscribe は状態変更の通知を受け取るリスナーを登録する。
// リスナーはロック外で同期的に呼び出される。戻り値の関数で登録を解除する。
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify(change Change) {
	s.listenersMu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// isSessionLocked は操作開始時のセッションが継続しているかを返す。
// Resetを挟んだ操作の結果は新しいセッションへ反映しない。
func (s *Store) isSessionLocked(sessionID string) bool {
	return s.sessionID == sessionID
}

func (s *Store) recordEntitiesLocked() {
	if s.recorder != nil {
		s.recorder.SetEntityCounts(len(s.contents), len(s.creators))
	}
}

func (s *Store) recordSync(operation string, kind api.Kind) {
	if s.recorder != nil {
		s.recorder.RecordSync(operation, string(kind))
	}
}

func (s *Store) recordRollback(operation string) {
	if s.recorder != nil {
		s.recorder.RecordRollback(operation)
	}
}

func (s *Store) sanitize(raw string) string {
	if s.sanitizer == nil || raw == "" {
		return raw
	}
	return s.sanitizer.SanitizeText(raw)
}

func copyCreator(c *model.Creator) model.Creator {
	cp := *c
	if c.Profile != nil {
		p := *c.Profile
		cp.Profile = &p
	}
	return cp
}
