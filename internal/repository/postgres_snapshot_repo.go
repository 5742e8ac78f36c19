package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/likereader/internal/model"
)

// リスト名。reader_list_entries.list_nameのCHECK制約と一致させる。
const (
	listFollowed           = "followed"
	listBookmark           = "bookmark"
	listFollowingCreators  = "following_creators"
	listUnfollowedCreators = "unfollowed_creators"
)

// PostgresSnapshotRepo はPostgreSQLを使用したスナップショットリポジトリ。
type PostgresSnapshotRepo struct {
	db *sql.DB
}

// NewPostgresSnapshotRepo はPostgresSnapshotRepoを生成する。
func NewPostgresSnapshotRepo(db *sql.DB) *PostgresSnapshotRepo {
	return &PostgresSnapshotRepo{db: db}
}

// Save はスナップショットを同一トランザクションで全件置き換える。
func (r *PostgresSnapshotRepo) Save(ctx context.Context, snapshot *model.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}

	contentStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reader_contents
		 (url, title, description, image_url, creator_liker_id, like_count, liker_count, ts, has_cached, is_bookmarked, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	)
	if err != nil {
		return fmt.Errorf("コンテンツ保存の準備に失敗しました: %w", err)
	}
	defer contentStmt.Close()

	for _, c := range snapshot.Contents {
		_, err := contentStmt.ExecContext(ctx,
			c.URL, c.Title, c.Description, c.ImageURL, nullString(c.CreatorLikerID),
			c.LikeCount, c.LikerCount, c.Timestamp, c.HasCached, c.IsBookmarked, snapshot.SavedAt,
		)
		if err != nil {
			return fmt.Errorf("コンテンツの保存に失敗しました (url=%s): %w", c.URL, err)
		}
	}

	creatorStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reader_creators (liker_id, is_following, updated_at) VALUES ($1, $2, $3)`,
	)
	if err != nil {
		return fmt.Errorf("クリエイター保存の準備に失敗しました: %w", err)
	}
	defer creatorStmt.Close()

	for _, c := range snapshot.Creators {
		if _, err := creatorStmt.ExecContext(ctx, c.LikerID, c.IsFollowing, snapshot.SavedAt); err != nil {
			return fmt.Errorf("クリエイターの保存に失敗しました (liker_id=%s): %w", c.LikerID, err)
		}
	}

	entryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reader_list_entries (list_name, position, entity_key) VALUES ($1, $2, $3)`,
	)
	if err != nil {
		return fmt.Errorf("リスト保存の準備に失敗しました: %w", err)
	}
	defer entryStmt.Close()

	lists := []struct {
		name string
		keys []string
	}{
		{listFollowed, snapshot.FollowedList},
		{listBookmark, snapshot.BookmarkList},
		{listFollowingCreators, snapshot.FollowingCreators},
		{listUnfollowedCreators, snapshot.UnfollowedCreators},
	}
	for _, list := range lists {
		for i, key := range list.keys {
			if _, err := entryStmt.ExecContext(ctx, list.name, i, key); err != nil {
				return fmt.Errorf("リストの保存に失敗しました (list=%s): %w", list.name, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reader_snapshot_meta (id, saved_at) VALUES (1, $1)`,
		snapshot.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("スナップショット情報の保存に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load は保存済みのスナップショットを取得する。未保存の場合はnilを返す。
func (r *PostgresSnapshotRepo) Load(ctx context.Context) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{}

	err := r.db.QueryRowContext(ctx,
		`SELECT saved_at FROM reader_snapshot_meta WHERE id = 1`,
	).Scan(&snapshot.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スナップショット情報の取得に失敗しました: %w", err)
	}

	if snapshot.Contents, err = r.loadContents(ctx); err != nil {
		return nil, err
	}
	if snapshot.Creators, err = r.loadCreators(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT list_name, entity_key FROM reader_list_entries ORDER BY list_name, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("リストの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, key string
		if err := rows.Scan(&name, &key); err != nil {
			return nil, fmt.Errorf("リストのスキャンに失敗しました: %w", err)
		}
		switch name {
		case listFollowed:
			snapshot.FollowedList = append(snapshot.FollowedList, key)
		case listBookmark:
			snapshot.BookmarkList = append(snapshot.BookmarkList, key)
		case listFollowingCreators:
			snapshot.FollowingCreators = append(snapshot.FollowingCreators, key)
		case listUnfollowedCreators:
			snapshot.UnfollowedCreators = append(snapshot.UnfollowedCreators, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リストの取得中にエラーが発生しました: %w", err)
	}

	return snapshot, nil
}

func (r *PostgresSnapshotRepo) loadContents(ctx context.Context) ([]model.Content, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url, title, description, image_url, creator_liker_id, like_count, liker_count, ts, has_cached, is_bookmarked
		 FROM reader_contents ORDER BY url`,
	)
	if err != nil {
		return nil, fmt.Errorf("コンテンツの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var contents []model.Content
	for rows.Next() {
		var c model.Content
		var creator sql.NullString
		if err := rows.Scan(
			&c.URL, &c.Title, &c.Description, &c.ImageURL, &creator,
			&c.LikeCount, &c.LikerCount, &c.Timestamp, &c.HasCached, &c.IsBookmarked,
		); err != nil {
			return nil, fmt.Errorf("コンテンツのスキャンに失敗しました: %w", err)
		}
		c.CreatorLikerID = creator.String
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コンテンツの取得中にエラーが発生しました: %w", err)
	}
	return contents, nil
}

func (r *PostgresSnapshotRepo) loadCreators(ctx context.Context) ([]model.Creator, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT liker_id, is_following FROM reader_creators ORDER BY liker_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("クリエイターの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var creators []model.Creator
	for rows.Next() {
		var c model.Creator
		if err := rows.Scan(&c.LikerID, &c.IsFollowing); err != nil {
			return nil, fmt.Errorf("クリエイターのスキャンに失敗しました: %w", err)
		}
		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("クリエイターの取得中にエラーが発生しました: %w", err)
	}
	return creators, nil
}

// Delete は保存済みのスナップショットを削除する。
func (r *PostgresSnapshotRepo) Delete(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"reader_snapshot_meta", "reader_list_entries", "reader_creators", "reader_contents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%s の削除に失敗しました: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ SnapshotRepository = (*PostgresSnapshotRepo)(nil)
