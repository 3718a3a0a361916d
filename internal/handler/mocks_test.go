package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/homefav/internal/auth"
	"github.com/hitoshi/homefav/internal/favorite"
	"github.com/hitoshi/homefav/internal/middleware"
	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/user"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	registerFn func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, email string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email)
	}
	return &model.User{ID: 1, Email: email}, nil
}

// mockFavoriteService はFavoriteServiceInterfaceのモック実装。
type mockFavoriteService struct {
	listFavoritesFn func(ctx context.Context, ref user.Ref) ([]*model.House, error)
	addFavoriteFn   func(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error)
	listHousesFn    func(ctx context.Context) ([]*model.House, error)
}

func (m *mockFavoriteService) ListFavorites(ctx context.Context, ref user.Ref) ([]*model.House, error) {
	if m.listFavoritesFn != nil {
		return m.listFavoritesFn(ctx, ref)
	}
	return []*model.House{}, nil
}

func (m *mockFavoriteService) AddFavorite(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error) {
	if m.addFavoriteFn != nil {
		return m.addFavoriteFn(ctx, ref, input)
	}
	h := input.House()
	h.ID = 1
	return h, nil
}

func (m *mockFavoriteService) ListHouses(ctx context.Context) ([]*model.House, error) {
	if m.listHousesFn != nil {
		return m.listHousesFn(ctx)
	}
	return []*model.House{}, nil
}

// mockTokenResolver はmiddleware.TokenResolverのモック実装。
// validに一致するトークンのみsubjectに解決する。
type mockTokenResolver struct {
	valid   string
	subject string
}

func (m *mockTokenResolver) Resolve(ctx context.Context, token string) (string, error) {
	if m.valid != "" && token == m.valid {
		return m.subject, nil
	}
	return "", auth.ErrInvalidToken
}

// mockPinger はPingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

// --- ヘルパー ---

// withSubject はテスト用に検証済みsubjectを注入するヘルパー。
func withSubject(r *http.Request, subject string) *http.Request {
	return r.WithContext(middleware.ContextWithSubject(r.Context(), subject))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// decodeErrorBody はエラーレスポンスのボディをデコードする。
func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// assertError はステータスコードとエラーコードを検証する。
func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	if body := decodeErrorBody(t, w); body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}

func sampleHouse() *model.House {
	return &model.House{
		ID:         1,
		PropertyID: "P1",
		Price:      100000,
		City:       "Austin",
		StateCode:  "TX",
		Beds:       3,
		Baths:      2,
		PropType:   "single_family",
		Thumbnail:  "http://img/1.jpg",
	}
}

const sampleHouseJSON = `{
	"property_id": "P1",
	"price": 100000,
	"city": "Austin",
	"state_code": "TX",
	"beds": 3,
	"baths": 2,
	"prop_type": "single_family",
	"thumbnail": "http://img/1.jpg"
}`
