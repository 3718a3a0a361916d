// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/homefav/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// emailが既に存在する場合はErrUniqueViolationをラップしたエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// HouseRepository は物件データの永続化インターフェース。
type HouseRepository interface {
	// CreateWithFavorite は物件とお気に入り関連を同一トランザクションで作成する。
	// 採番されたIDをhouse.IDに設定する。
	// property_idが既に存在する場合はErrUniqueViolationをラップしたエラーを返し、
	// 物件・関連のいずれも作成しない。
	CreateWithFavorite(ctx context.Context, userID int64, house *model.House) error

	// ListAll は全物件をID昇順で返す。
	ListAll(ctx context.Context) ([]*model.House, error)
}

// FavoriteRepository はお気に入り関連の永続化インターフェース。
type FavoriteRepository interface {
	// ListHousesByUserID はユーザーがお気に入り登録した物件をID昇順で返す。
	ListHousesByUserID(ctx context.Context, userID int64) ([]*model.House, error)
}
