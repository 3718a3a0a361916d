package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/homefav/internal/model"
)

// SQLFavoriteRepo はdatabase/sqlを使用したお気に入りリポジトリ。
type SQLFavoriteRepo struct {
	db *sql.DB
}

// NewSQLFavoriteRepo はSQLFavoriteRepoを生成する。
func NewSQLFavoriteRepo(db *sql.DB) *SQLFavoriteRepo {
	return &SQLFavoriteRepo{db: db}
}

// ListHousesByUserID はユーザーがお気に入り登録した物件をID昇順で返す。
// 該当がない場合は空スライスを返す。
func (r *SQLFavoriteRepo) ListHousesByUserID(ctx context.Context, userID int64) ([]*model.House, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+houseColumns+`
		 FROM favorites f
		 INNER JOIN house h ON h.id = f.house_id
		 WHERE f.user_id = $1
		 ORDER BY h.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	return scanHouses(rows)
}

// compile-time interface check
var _ FavoriteRepository = (*SQLFavoriteRepo)(nil)
