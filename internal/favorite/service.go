// Package favorite はお気に入り物件管理のドメインロジックを提供する。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/repository"
	"github.com/hitoshi/homefav/internal/security"
	"github.com/hitoshi/homefav/internal/user"
)

// ConflictKindProperty は重複property_id発生時にRecorderへ渡す種別。
const ConflictKindProperty = "property"

// UserResolver はRefからユーザーを解決するインターフェース。
// 存在しない場合はUSER_NOT_FOUNDのAPIErrorを返すこと。
type UserResolver interface {
	Resolve(ctx context.Context, ref user.Ref) (*model.User, error)
}

// Recorder はお気に入り操作の計測インターフェース。
type Recorder interface {
	FavoriteAdded()
	Conflict(kind string)
}

type noopRecorder struct{}

func (noopRecorder) FavoriteAdded()       {}
func (noopRecorder) Conflict(kind string) {}

// Service はお気に入り管理のサービス層。
type Service struct {
	users        UserResolver
	houseRepo    repository.HouseRepository
	favoriteRepo repository.FavoriteRepository
	detector     security.MarkupDetector
	recorder     Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合は計測を行わない。
func NewService(
	users UserResolver,
	houseRepo repository.HouseRepository,
	favoriteRepo repository.FavoriteRepository,
	detector security.MarkupDetector,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		users:        users,
		houseRepo:    houseRepo,
		favoriteRepo: favoriteRepo,
		detector:     detector,
		recorder:     recorder,
	}
}

// ListFavorites はユーザーのお気に入り物件一覧を返す。
// お気に入りが0件の場合は空スライスを返す。
func (s *Service) ListFavorites(ctx context.Context, ref user.Ref) ([]*model.House, error) {
	u, err := s.users.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	houses, err := s.favoriteRepo.ListHousesByUserID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if houses == nil {
		houses = []*model.House{}
	}
	return houses, nil
}

// AddFavorite は物件を作成し、ユーザーのお気に入りに追加する。
// 処理順序: 入力検証 → 物件構築 → ユーザー解決 → 物件と関連の同一トランザクション挿入
func (s *Service) AddFavorite(ctx context.Context, ref user.Ref, input HouseInput) (*model.House, error) {
	if err := input.Validate(s.detector); err != nil {
		return nil, err
	}
	house := input.House()

	u, err := s.users.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if err := s.houseRepo.CreateWithFavorite(ctx, u.ID, house); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			s.recorder.Conflict(ConflictKindProperty)
			return nil, model.NewDuplicatePropertyError(house.PropertyID)
		}
		return nil, fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}

	s.recorder.FavoriteAdded()
	slog.Info("お気に入りを追加しました",
		slog.Int64("user_id", u.ID),
		slog.Int64("house_id", house.ID),
		slog.String("property_id", house.PropertyID),
	)

	return house, nil
}

// ListHouses は全物件を返す。デバッグ用途のため絞り込みやページングは行わない。
func (s *Service) ListHouses(ctx context.Context) ([]*model.House, error) {
	houses, err := s.houseRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("物件一覧の取得に失敗しました: %w", err)
	}
	if houses == nil {
		houses = []*model.House{}
	}
	return houses, nil
}
