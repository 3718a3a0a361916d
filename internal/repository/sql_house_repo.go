package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/homefav/internal/model"
)

const houseColumns = `h.id, h.property_id, h.price, h.city, h.state_code, h.beds, h.baths, h.prop_type, h.thumbnail`

// SQLHouseRepo はdatabase/sqlを使用した物件リポジトリ。
type SQLHouseRepo struct {
	db *sql.DB
}

// NewSQLHouseRepo はSQLHouseRepoを生成する。
func NewSQLHouseRepo(db *sql.DB) *SQLHouseRepo {
	return &SQLHouseRepo{db: db}
}

// CreateWithFavorite は物件とお気に入り関連を同一トランザクションで作成する。
// どちらかの挿入に失敗した場合はロールバックし、何も残さない。
func (r *SQLHouseRepo) CreateWithFavorite(ctx context.Context, userID int64, house *model.House) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 物件を作成
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO house (property_id, price, city, state_code, beds, baths, prop_type, thumbnail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		house.PropertyID, house.Price, house.City, house.StateCode,
		house.Beds, house.Baths, house.PropType, house.Thumbnail,
	).Scan(&id)
	if err != nil {
		return wrapWriteError("failed to insert house", err)
	}

	// お気に入り関連を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO favorites (user_id, house_id) VALUES ($1, $2)`,
		userID, id,
	)
	if err != nil {
		return wrapWriteError("failed to insert favorite", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	house.ID = id
	return nil
}

// ListAll は全物件をID昇順で返す。
func (r *SQLHouseRepo) ListAll(ctx context.Context) ([]*model.House, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+houseColumns+` FROM house h ORDER BY h.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list houses: %w", err)
	}
	defer rows.Close()

	return scanHouses(rows)
}

// scanHouses は物件の行をすべて読み取る。行がない場合は空スライスを返す。
func scanHouses(rows *sql.Rows) ([]*model.House, error) {
	houses := []*model.House{}
	for rows.Next() {
		h := &model.House{}
		if err := rows.Scan(
			&h.ID, &h.PropertyID, &h.Price, &h.City, &h.StateCode,
			&h.Beds, &h.Baths, &h.PropType, &h.Thumbnail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan house: %w", err)
		}
		houses = append(houses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate houses: %w", err)
	}
	return houses, nil
}

// compile-time interface check
var _ HouseRepository = (*SQLHouseRepo)(nil)
