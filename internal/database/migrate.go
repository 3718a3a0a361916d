// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// 方言ごとにmigrations/<dialect>/ 配下のSQLを使用する。
//
//go:embed migrations
var migrationsFS embed.FS

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
// 戻り値のrelease関数はマイグレーション完了後に必ず呼び出すこと。
// release はmigrate側が確保した資源のみを解放し、dbは閉じない。
func NewMigrator(ctx context.Context, db *sql.DB, dialect Dialect) (*migrate.Migrate, func() error, error) {
	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	switch dialect {
	case DialectPostgres:
		// 専用コネクションで実行し、Close時にプール全体が閉じられないようにする
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
		}
		driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
		}
		release := func() error {
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr)
		}
		return m, release, nil

	case DialectSQLite:
		driver, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
		}
		// sqliteドライバのCloseはdbそのものを閉じるため、ソースのみ閉じる
		return m, source.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// Migrate は開いているDBにすべての未適用マイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	m, release, err := NewMigrator(ctx, db, dialect)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RunMigrations はデータベースURLで指定されたDBにすべてのマイグレーションを適用する。
// migrateサブコマンドから呼び出される。
func RunMigrations(databaseURL string) error {
	db, dialect, err := Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return Migrate(context.Background(), db, dialect)
}
