package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/likereader/internal/model"
)

const defaultRedisPrefix = "likereader:"

// RedisSnapshotRepo はRedisを使用したスナップショットリポジトリ。
// スナップショット全体をJSONとして1つのキーに保存する。
type RedisSnapshotRepo struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig はRedisSnapshotRepoの設定を保持する。
type RedisConfig struct {
	URL    string        // redis://[:password@]host:port/db
	Prefix string        // 空の場合は"likereader:"
	TTL    time.Duration // 0の場合は無期限
}

// NewRedisSnapshotRepo はURLを解析してRedisSnapshotRepoを生成する。接続は確認しない。
func NewRedisSnapshotRepo(cfg RedisConfig) (*RedisSnapshotRepo, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &RedisSnapshotRepo{
		client: redis.NewClient(opts),
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

func (r *RedisSnapshotRepo) key() string {
	return r.prefix + "snapshot"
}

// Save はスナップショットをJSONにして既存の値を上書きする。
func (r *RedisSnapshotRepo) Save(ctx context.Context, snapshot *model.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("スナップショットのエンコードに失敗しました: %w", err)
	}
	if err := r.client.Set(ctx, r.key(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("スナップショットの保存に失敗しました: %w", err)
	}
	return nil
}

// Load は保存済みのスナップショットを取得する。キーが存在しない場合はnilを返す。
func (r *RedisSnapshotRepo) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スナップショットの取得に失敗しました: %w", err)
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("スナップショットのデコードに失敗しました: %w", err)
	}
	return &snapshot, nil
}

// Delete はスナップショットのキーを削除する。
func (r *RedisSnapshotRepo) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("スナップショットの削除に失敗しました: %w", err)
	}
	return nil
}

// PingContext はRedisへの疎通を確認する。ヘルスチェックから使用する。
func (r *RedisSnapshotRepo) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close は接続を閉じる。
func (r *RedisSnapshotRepo) Close() error {
	return r.client.Close()
}

var _ SnapshotRepository = (*RedisSnapshotRepo)(nil)
