// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/repository"
	"github.com/hitoshi/homefav/internal/security"
)

// MaxEmailLength はemailの最大文字数。
const MaxEmailLength = 200

// ConflictKindEmail は重複email発生時にRecorderへ渡す種別。
const ConflictKindEmail = "email"

// Recorder はユーザー操作の計測インターフェース。
type Recorder interface {
	UserRegistered()
	Conflict(kind string)
}

type noopRecorder struct{}

func (noopRecorder) UserRegistered()      {}
func (noopRecorder) Conflict(kind string) {}

// Service はユーザー管理のサービス層。
// 登録と識別子からのユーザー解決を提供する。
type Service struct {
	userRepo repository.UserRepository
	detector security.MarkupDetector
	recorder Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合は計測を行わない。
func NewService(
	userRepo repository.UserRepository,
	detector security.MarkupDetector,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		userRepo: userRepo,
		detector: detector,
		recorder: recorder,
	}
}

// Register はemailでユーザーを登録する。
// emailは前後の空白を除去してから検証する。
func (s *Service) Register(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}

	user := &model.User{Email: email}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			s.recorder.Conflict(ConflictKindEmail)
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.recorder.UserRegistered()
	slog.Info("ユーザーを登録しました",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// Resolve はRefが指すユーザーを取得する。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Resolve(ctx context.Context, ref Ref) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if id, ok := ref.ID(); ok {
		user, err = s.userRepo.FindByID(ctx, id)
	} else {
		email, _ := ref.Email()
		user, err = s.userRepo.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func (s *Service) validateEmail(email string) error {
	if email == "" {
		return model.NewMissingFieldError("email")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return model.NewInvalidFieldError("email", fmt.Sprintf("%d文字以内で指定してください", MaxEmailLength))
	}
	if s.detector != nil && s.detector.ContainsMarkup(email) {
		return model.NewInvalidFieldError("email", "HTMLを含めることはできません")
	}
	return nil
}
