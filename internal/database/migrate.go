// Package database はスナップショット永続化用のPostgreSQL接続とスキーマ管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// リーダーのスナップショットスキーマ（reader_contents, reader_creators, reader_list_entries, reader_snapshot_meta）。
//
//go:embed migrations/*.sql
var snapshotMigrations embed.FS

// NewMigrator は埋め込みのスナップショットスキーマを対象にしたmigrateインスタンスを生成する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(snapshotMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot schema: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations はスナップショットテーブルを最新のスキーマまで移行する。
// 適用済みの場合は何もしない。serveは移行を行わないため、migrateコマンドから呼び出す。
func RunMigrations(databaseURL string) error {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read snapshot schema version: %w", err)
	}
	slog.Info("snapshot schema is up to date",
		slog.Uint64("schema_version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
