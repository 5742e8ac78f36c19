package reader

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/likereader/internal/api"
	"github.com/hitoshi/likereader/internal/model"
)

// TestStore_FollowedList_PaginationScenario は先頭ページ取得から終端到達までの一連の流れをテストする。
func TestStore_FollowedList_PaginationScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pages := map[int64][]model.ContentRecord{
		0:  {{URL: "a", Timestamp: 100}, {URL: "b", Timestamp: 90}},
		90: {{URL: "c", Timestamp: 80}},
		80: {},
	}
	env.likerLand.fetchReaderFollowingFn = func(_ context.Context, before int64) api.Result[[]model.ContentRecord] {
		page, ok := pages[before]
		if !ok {
			t.Fatalf("unexpected cursor: %d", before)
		}
		return api.Result[[]model.ContentRecord]{Kind: api.KindOK, Data: page}
	}

	env.store.FetchFollowingList(ctx)
	if diff := cmp.Diff([]string{"a", "b"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Fatalf("after first page (-want +got):\n%s", diff)
	}

	env.store.FetchMoreFollowedList(ctx)
	if diff := cmp.Diff([]string{"a", "b", "c"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Fatalf("after second page (-want +got):\n%s", diff)
	}
	if env.store.Status().HasReachedEndOfFollowedList {
		t.Error("end flag should be false after non-empty page")
	}

	env.store.FetchMoreFollowedList(ctx)
	if diff := cmp.Diff([]string{"a", "b", "c"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Fatalf("after empty page (-want +got):\n%s", diff)
	}
	if !env.store.Status().HasReachedEndOfFollowedList {
		t.Error("end flag should be true after empty page")
	}

	if diff := cmp.Diff([]int64{0, 90, 80}, env.likerLand.followingBefores()); diff != "" {
		t.Errorf("cursors (-want +got):\n%s", diff)
	}
}

// TestStore_FetchMoreFollowedList_DuplicatePageKeepsEndFlagFalse は重複のみのページでも終端にならないことをテストする。
func TestStore_FetchMoreFollowedList_DuplicatePageKeepsEndFlagFalse(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t, model.ContentRecord{URL: "a", Timestamp: 100}, model.ContentRecord{URL: "b", Timestamp: 90})

	env.likerLand.fetchReaderFollowingFn = func(_ context.Context, _ int64) api.Result[[]model.ContentRecord] {
		return api.Result[[]model.ContentRecord]{Kind: api.KindOK, Data: []model.ContentRecord{{URL: "a"}, {URL: "b"}}}
	}
	env.store.FetchMoreFollowedList(context.Background())

	if env.store.Status().HasReachedEndOfFollowedList {
		t.Error("end flag should stay false for page of duplicates")
	}
	if diff := cmp.Diff([]string{"a", "b"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Errorf("followed list (-want +got):\n%s", diff)
	}
	// タイムスタンプのないレコードで既知の値が上書きされないこと
	if c, _ := env.store.Content("b"); c.Timestamp != 90 {
		t.Errorf("timestamp = %d, want 90", c.Timestamp)
	}
}

// TestStore_FetchMoreFollowedList_EmptyListIsNoop はリストが空の場合にリモート呼び出しを行わないことをテストする。
func TestStore_FetchMoreFollowedList_EmptyListIsNoop(t *testing.T) {
	env := newTestEnv(t)

	kind := env.store.FetchMoreFollowedList(context.Background())

	if kind != "" {
		t.Errorf("kind = %q, want empty", kind)
	}
	if got := env.likerLand.followingBefores(); len(got) != 0 {
		t.Errorf("remote called with cursors %v", got)
	}
	if env.store.Status().IsFetchingMoreFollowedList {
		t.Error("fetching flag should not be set")
	}
}

// TestStore_FetchMoreFollowedList_ReentrancyGuard は追加取得中の再呼び出しが無視されることをテストする。
func TestStore_FetchMoreFollowedList_ReentrancyGuard(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t, model.ContentRecord{URL: "a", Timestamp: 100})

	calls := 0
	env.likerLand.fetchReaderFollowingFn = func(ctx context.Context, _ int64) api.Result[[]model.ContentRecord] {
		calls++
		if calls == 1 {
			if !env.store.Status().IsFetchingMoreFollowedList {
				t.Error("fetching flag should be set during remote call")
			}
			if kind := env.store.FetchMoreFollowedList(ctx); kind != "" {
				t.Errorf("nested call kind = %q, want empty", kind)
			}
		}
		return api.Result[[]model.ContentRecord]{Kind: api.KindOK, Data: []model.ContentRecord{{URL: "z", Timestamp: 1}}}
	}

	env.store.FetchMoreFollowedList(context.Background())

	if calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
	if env.store.Status().IsFetchingMoreFollowedList {
		t.Error("fetching flag should be cleared")
	}
}

// TestStore_FetchFollowingList_FailureStillStampsDate は失敗時もフラグ解除と日時更新が行われることをテストする。
func TestStore_FetchFollowingList_FailureStillStampsDate(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t, model.ContentRecord{URL: "a", Timestamp: 100})
	env.likerLand.fetchReaderFollowingFn = func(_ context.Context, _ int64) api.Result[[]model.ContentRecord] {
		return api.Result[[]model.ContentRecord]{Kind: api.KindOK}
	}
	env.store.FetchMoreFollowedList(context.Background())
	if !env.store.Status().HasReachedEndOfFollowedList {
		t.Fatal("precondition: end flag should be true")
	}

	env.likerLand.fetchReaderFollowingFn = func(_ context.Context, _ int64) api.Result[[]model.ContentRecord] {
		return api.Result[[]model.ContentRecord]{Kind: api.KindServer}
	}
	kind := env.store.FetchFollowingList(context.Background())

	if kind != api.KindServer {
		t.Errorf("kind = %q, want %q", kind, api.KindServer)
	}
	status := env.store.Status()
	if status.IsFetchingFollowedList {
		t.Error("fetching flag should be cleared")
	}
	if status.HasReachedEndOfFollowedList {
		t.Error("end flag should be reset even on failure")
	}
	if !status.FollowedListLastFetchedDate.Equal(fixedNow) {
		t.Errorf("last fetched date = %v, want %v", status.FollowedListLastFetchedDate, fixedNow)
	}
	if diff := cmp.Diff([]string{"a"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Errorf("list should be untouched on failure (-want +got):\n%s", diff)
	}
}

// TestStore_FetchFollowingList_PanicIsRecovered はリモート呼び出しのpanicが握りつぶされることをテストする。
func TestStore_FetchFollowingList_PanicIsRecovered(t *testing.T) {
	env := newTestEnv(t)
	env.likerLand.fetchReaderFollowingFn = func(_ context.Context, _ int64) api.Result[[]model.ContentRecord] {
		panic("connection reset")
	}

	kind := env.store.FetchFollowingList(context.Background())

	if kind != api.KindUnknown {
		t.Errorf("kind = %q, want %q", kind, api.KindUnknown)
	}
	if env.store.Status().IsFetchingFollowedList {
		t.Error("fetching flag should be cleared after panic")
	}
	if diff := cmp.Diff([]string{"fetch_following_list:panic"}, env.recorder.syncs); diff != "" {
		t.Errorf("recorded syncs (-want +got):\n%s", diff)
	}
}

// TestStore_FetchFollowingList_ReplacesList は再取得でリストと重複排除セットが作り直されることをテストする。
func TestStore_FetchFollowingList_ReplacesList(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t, model.ContentRecord{URL: "a", Timestamp: 100}, model.ContentRecord{URL: "b", Timestamp: 90})
	env.seedFollowed(t, model.ContentRecord{URL: "c", Timestamp: 200}, model.ContentRecord{URL: "a", Timestamp: 100})

	if diff := cmp.Diff([]string{"c", "a"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Errorf("followed list (-want +got):\n%s", diff)
	}
	// 一覧から外れても実体は残る
	if _, ok := env.store.Content("b"); !ok {
		t.Error("entity b should persist until reset")
	}
}

// TestStore_IngestFollowed_Dedup は同一レコードを二重に取り込んでも1件になることをテストする。
func TestStore_IngestFollowed_Dedup(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t,
		model.ContentRecord{URL: "a", Timestamp: 100},
		model.ContentRecord{URL: "a", Timestamp: 100},
		model.ContentRecord{URL: "tracking", Referrer: "a", Timestamp: 100},
	)

	if diff := cmp.Diff([]string{"a"}, contentURLs(env.store.FollowedList())); diff != "" {
		t.Errorf("followed list (-want +got):\n%s", diff)
	}
	env.store.mu.Lock()
	setSize := len(env.store.followedSet)
	env.store.mu.Unlock()
	if setSize != 1 {
		t.Errorf("followedSet size = %d, want 1", setSize)
	}
	if contents, _ := env.store.EntityCounts(); contents != 1 {
		t.Errorf("contents = %d, want 1", contents)
	}
}

// TestStore_Ingest_IdentityAndCreatorLink はreferrer優先の同一性とクリエイターの連結をテストする。
func TestStore_Ingest_IdentityAndCreatorLink(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t,
		model.ContentRecord{URL: "https://t.co/x", Referrer: "https://blog.example/post", Timestamp: 10, Like: 3, User: "alice", Title: "Post"},
	)
	env.seedFollowed(t,
		model.ContentRecord{URL: "https://blog.example/post", Like: 1, User: "bob", Title: "Other"},
	)

	c, ok := env.store.Content("https://blog.example/post")
	if !ok {
		t.Fatal("content should be keyed by referrer")
	}
	if _, ok := env.store.Content("https://t.co/x"); ok {
		t.Error("transient url should not create an entity")
	}
	want := model.Content{
		URL:            "https://blog.example/post",
		Title:          "Post",
		CreatorLikerID: "alice",
		LikeCount:      3,
		Timestamp:      10,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("content (-want +got):\n%s", diff)
	}
	if _, ok := env.store.Creator("alice"); !ok {
		t.Error("creator should be created from ingestion")
	}
	if _, ok := env.store.Creator("bob"); ok {
		t.Error("later ingestion must not relink creator")
	}
}

// TestStore_FetchCreatorList_ReplacesBothLists はクリエイター一覧の置き換えとフラグをテストする。
func TestStore_FetchCreatorList_ReplacesBothLists(t *testing.T) {
	env := newTestEnv(t)
	env.seedCreators(t, []string{"alice", "bob"}, []string{"carol"})
	env.seedCreators(t, []string{"carol"}, []string{"alice"})

	if diff := cmp.Diff([]string{"carol"}, creatorIDs(env.store.FollowingCreators())); diff != "" {
		t.Errorf("following (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alice"}, creatorIDs(env.store.UnfollowedCreators())); diff != "" {
		t.Errorf("unfollowed (-want +got):\n%s", diff)
	}
	carol, _ := env.store.Creator("carol")
	alice, _ := env.store.Creator("alice")
	if !carol.IsFollowing || alice.IsFollowing {
		t.Errorf("isFollowing carol=%v alice=%v, want true/false", carol.IsFollowing, alice.IsFollowing)
	}
	if _, creators := env.store.EntityCounts(); creators != 3 {
		t.Errorf("creators = %d, want 3", creators)
	}
	if !env.store.Status().HasFetchedCreatorList {
		t.Error("HasFetchedCreatorList should be true")
	}
}

// TestStore_FetchCreatorList_FailureSetsFetched は失敗時もHasFetchedCreatorListが立つことをテストする。
func TestStore_FetchCreatorList_FailureSetsFetched(t *testing.T) {
	env := newTestEnv(t)
	env.likerLand.fetchReaderCreatorsFn = func(context.Context) api.Result[model.ReaderCreators] {
		return api.Result[model.ReaderCreators]{Kind: api.KindBadData}
	}

	kind := env.store.FetchCreatorList(context.Background())

	if kind != api.KindBadData {
		t.Errorf("kind = %q, want %q", kind, api.KindBadData)
	}
	status := env.store.Status()
	if status.IsFetchingCreatorList || !status.HasFetchedCreatorList {
		t.Errorf("status = %+v", status)
	}
	if diff := cmp.Diff([]string{"fetch_creator_list:bad-data"}, env.recorder.syncs); diff != "" {
		t.Errorf("recorded syncs (-want +got):\n%s", diff)
	}
}

// TestStore_FetchCreatorList_ReentrancyGuard は取得中の再呼び出しが無視されることをテストする。
func TestStore_FetchCreatorList_ReentrancyGuard(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.likerLand.fetchReaderCreatorsFn = func(ctx context.Context) api.Result[model.ReaderCreators] {
		calls++
		env.store.FetchCreatorList(ctx)
		return api.Result[model.ReaderCreators]{Kind: api.KindOK}
	}

	env.store.FetchCreatorList(context.Background())

	if calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
}

// TestStore_FetchBookmarkList_ReversesAndMarks はブックマーク一覧の反転とフラグ付けをテストする。
func TestStore_FetchBookmarkList_ReversesAndMarks(t *testing.T) {
	env := newTestEnv(t)
	env.likerLand.fetchReaderBookmarksFn = func(context.Context) api.Result[[]string] {
		return api.Result[[]string]{Kind: api.KindOK, Data: []string{"old", "mid", "new"}}
	}
	env.store.FetchBookmarkList(context.Background())

	if diff := cmp.Diff([]string{"new", "mid", "old"}, contentURLs(env.store.BookmarkList())); diff != "" {
		t.Errorf("bookmark list (-want +got):\n%s", diff)
	}
	for _, c := range env.store.BookmarkList() {
		if !c.IsBookmarked {
			t.Errorf("%s should be bookmarked", c.URL)
		}
	}

	env.likerLand.fetchReaderBookmarksFn = func(context.Context) api.Result[[]string] {
		return api.Result[[]string]{Kind: api.KindOK, Data: []string{"mid", "mid"}}
	}
	env.store.FetchBookmarkList(context.Background())

	if diff := cmp.Diff([]string{"mid"}, contentURLs(env.store.BookmarkList())); diff != "" {
		t.Errorf("bookmark list after refresh (-want +got):\n%s", diff)
	}
	if c, _ := env.store.Content("old"); c.IsBookmarked {
		t.Error("removed bookmark should be unmarked")
	}
	if !env.store.Status().HasFetchedBookmarkList {
		t.Error("HasFetchedBookmarkList should be true")
	}
}

// TestStore_Sync_DiscardedAfterReset はリセットを挟んだ同期結果が新しいセッションへ反映されないことをテストする。
func TestStore_Sync_DiscardedAfterReset(t *testing.T) {
	env := newTestEnv(t)
	env.likerLand.fetchReaderBookmarksFn = func(context.Context) api.Result[[]string] {
		env.store.Reset()
		return api.Result[[]string]{Kind: api.KindOK, Data: []string{"a"}}
	}

	env.store.FetchBookmarkList(context.Background())

	if got := env.store.BookmarkList(); len(got) != 0 {
		t.Errorf("bookmark list = %v, want empty", contentURLs(got))
	}
	if diff := cmp.Diff(Status{}, env.store.Status()); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

// TestStore_Subscribe_ReceivesChanges は購読者に変更が通知され、解除後は通知されないことをテストする。
func TestStore_Subscribe_ReceivesChanges(t *testing.T) {
	env := newTestEnv(t)
	var got []Change
	unsubscribe := env.store.Subscribe(func(c Change) { got = append(got, c) })

	env.store.FetchBookmarkList(context.Background())
	unsubscribe()
	env.store.FetchBookmarkList(context.Background())

	want := []Change{ChangeBookmarkList, ChangeBookmarkList}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
}

// TestStore_Reset_ClearsEverything はリセット後に全ての状態が初期値に戻ることをテストする。
func TestStore_Reset_ClearsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.seedFollowed(t, model.ContentRecord{URL: "a", Timestamp: 100, User: "alice"})
	env.seedCreators(t, []string{"alice"}, []string{"bob"})
	env.likerLand.fetchReaderBookmarksFn = func(context.Context) api.Result[[]string] {
		return api.Result[[]string]{Kind: api.KindOK, Data: []string{"a", "b"}}
	}
	env.store.FetchBookmarkList(context.Background())
	env.store.ToggleFollow(context.Background(), "bob")
	before := env.store.SessionID()

	env.store.Reset()

	if contents, creators := env.store.EntityCounts(); contents != 0 || creators != 0 {
		t.Errorf("entity counts = %d/%d, want 0/0", contents, creators)
	}
	if n := len(env.store.FollowedList()) + len(env.store.BookmarkList()) +
		len(env.store.FollowingCreators()) + len(env.store.UnfollowedCreators()); n != 0 {
		t.Errorf("lists should be empty, got %d entries", n)
	}
	if diff := cmp.Diff(Status{}, env.store.Status()); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
	if env.store.SessionID() == before {
		t.Error("session id should rotate")
	}
	if env.recorder.contents != 0 || env.recorder.creators != 0 {
		t.Errorf("recorded counts = %d/%d, want 0/0", env.recorder.contents, env.recorder.creators)
	}
	if !env.store.Status().FollowedListLastFetchedDate.Equal(time.Time{}) {
		t.Error("last fetched date should be zero")
	}
}
