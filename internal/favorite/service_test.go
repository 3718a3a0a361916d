package favorite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/repository"
	"github.com/hitoshi/homefav/internal/security"
	"github.com/hitoshi/homefav/internal/user"
)

// --- モック ---

type mockUserResolver struct {
	resolveFn func(ctx context.Context, ref user.Ref) (*model.User, error)
}

func (m *mockUserResolver) Resolve(ctx context.Context, ref user.Ref) (*model.User, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, ref)
	}
	return &model.User{ID: 1, Email: "a@b.com"}, nil
}

type mockHouseRepo struct {
	createWithFavoriteFn func(ctx context.Context, userID int64, house *model.House) error
	listAllFn            func(ctx context.Context) ([]*model.House, error)
}

func (m *mockHouseRepo) CreateWithFavorite(ctx context.Context, userID int64, house *model.House) error {
	if m.createWithFavoriteFn != nil {
		return m.createWithFavoriteFn(ctx, userID, house)
	}
	house.ID = 1
	return nil
}
func (m *mockHouseRepo) ListAll(ctx context.Context) ([]*model.House, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

type mockFavoriteRepo struct {
	listHousesByUserIDFn func(ctx context.Context, userID int64) ([]*model.House, error)
}

func (m *mockFavoriteRepo) ListHousesByUserID(ctx context.Context, userID int64) ([]*model.House, error) {
	if m.listHousesByUserIDFn != nil {
		return m.listHousesByUserIDFn(ctx, userID)
	}
	return nil, nil
}

type mockRecorder struct {
	added     int
	conflicts []string
}

func (m *mockRecorder) FavoriteAdded()       { m.added++ }
func (m *mockRecorder) Conflict(kind string) { m.conflicts = append(m.conflicts, kind) }

func ptr[T any](v T) *T { return &v }

func validInput() HouseInput {
	return HouseInput{
		PropertyID: ptr("P1"),
		Price:      ptr(int64(100000)),
		City:       ptr("Austin"),
		StateCode:  ptr("TX"),
		Beds:       ptr(3),
		Baths:      ptr(2),
		PropType:   ptr("single_family"),
		Thumbnail:  ptr("t.jpg"),
	}
}

func newTestService(resolver UserResolver, houses *mockHouseRepo, favorites *mockFavoriteRepo, rec Recorder) *Service {
	return NewService(resolver, houses, favorites, security.NewMarkupDetector(), rec)
}

func assertAPIErrorCode(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
	return apiErr
}

// --- ListFavorites ---

func TestService_ListFavorites_ReturnsHouses(t *testing.T) {
	want := []*model.House{{ID: 1, PropertyID: "P1"}, {ID: 2, PropertyID: "P2"}}
	favorites := &mockFavoriteRepo{
		listHousesByUserIDFn: func(ctx context.Context, userID int64) ([]*model.House, error) {
			if userID != 1 {
				t.Errorf("userID = %d, want 1", userID)
			}
			return want, nil
		},
	}
	svc := newTestService(&mockUserResolver{}, &mockHouseRepo{}, favorites, nil)

	got, err := svc.ListFavorites(context.Background(), user.RefFromIdentifier("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestService_ListFavorites_EmptyIsNotNil(t *testing.T) {
	svc := newTestService(&mockUserResolver{}, &mockHouseRepo{}, &mockFavoriteRepo{}, nil)

	got, err := svc.ListFavorites(context.Background(), user.RefFromIdentifier("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestService_ListFavorites_UserNotFound(t *testing.T) {
	resolver := &mockUserResolver{
		resolveFn: func(ctx context.Context, ref user.Ref) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	svc := newTestService(resolver, &mockHouseRepo{}, &mockFavoriteRepo{}, nil)

	_, err := svc.ListFavorites(context.Background(), user.RefFromIdentifier("999"))

	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- AddFavorite ---

func TestService_AddFavorite_Success(t *testing.T) {
	var gotUserID int64
	houses := &mockHouseRepo{
		createWithFavoriteFn: func(ctx context.Context, userID int64, house *model.House) error {
			gotUserID = userID
			house.ID = 10
			return nil
		},
	}
	rec := &mockRecorder{}
	resolver := &mockUserResolver{
		resolveFn: func(ctx context.Context, ref user.Ref) (*model.User, error) {
			return &model.User{ID: 5, Email: "a@b.com"}, nil
		},
	}
	svc := newTestService(resolver, houses, &mockFavoriteRepo{}, rec)

	house, err := svc.AddFavorite(context.Background(), user.RefFromEmail("a@b.com"), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &model.House{
		ID: 10, PropertyID: "P1", Price: 100000, City: "Austin", StateCode: "TX",
		Beds: 3, Baths: 2, PropType: "single_family", Thumbnail: "t.jpg",
	}
	if *house != *want {
		t.Errorf("house = %+v, want %+v", house, want)
	}
	if gotUserID != 5 {
		t.Errorf("userID = %d, want 5", gotUserID)
	}
	if rec.added != 1 {
		t.Errorf("added = %d, want 1", rec.added)
	}
}

func TestService_AddFavorite_DuplicateProperty(t *testing.T) {
	houses := &mockHouseRepo{
		createWithFavoriteFn: func(ctx context.Context, userID int64, house *model.House) error {
			return fmt.Errorf("failed to insert house: %w", repository.ErrUniqueViolation)
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(&mockUserResolver{}, houses, &mockFavoriteRepo{}, rec)

	_, err := svc.AddFavorite(context.Background(), user.RefFromIdentifier("1"), validInput())

	apiErr := assertAPIErrorCode(t, err, model.ErrCodeDuplicateProperty)
	if !strings.Contains(apiErr.Message, "P1") {
		t.Errorf("Message = %q, want to contain P1", apiErr.Message)
	}
	if rec.added != 0 {
		t.Errorf("added = %d, want 0", rec.added)
	}
	if len(rec.conflicts) != 1 || rec.conflicts[0] != ConflictKindProperty {
		t.Errorf("conflicts = %v, want [property]", rec.conflicts)
	}
}

func TestService_AddFavorite_UserNotFound(t *testing.T) {
	resolver := &mockUserResolver{
		resolveFn: func(ctx context.Context, ref user.Ref) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	houses := &mockHouseRepo{
		createWithFavoriteFn: func(ctx context.Context, userID int64, house *model.House) error {
			t.Error("CreateWithFavorite should not be called")
			return nil
		},
	}
	svc := newTestService(resolver, houses, &mockFavoriteRepo{}, nil)

	_, err := svc.AddFavorite(context.Background(), user.RefFromIdentifier("999"), validInput())

	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// 入力検証はユーザー解決より先に行う
func TestService_AddFavorite_ValidatesBeforeResolvingUser(t *testing.T) {
	resolver := &mockUserResolver{
		resolveFn: func(ctx context.Context, ref user.Ref) (*model.User, error) {
			t.Error("Resolve should not be called for invalid input")
			return nil, model.NewUserNotFoundError()
		},
	}
	svc := newTestService(resolver, &mockHouseRepo{}, &mockFavoriteRepo{}, nil)

	input := validInput()
	input.City = nil

	_, err := svc.AddFavorite(context.Background(), user.RefFromIdentifier("999"), input)

	assertAPIErrorCode(t, err, model.ErrCodeMissingField)
}

func TestService_AddFavorite_StoreError(t *testing.T) {
	dbErr := errors.New("disk full")
	houses := &mockHouseRepo{
		createWithFavoriteFn: func(ctx context.Context, userID int64, house *model.House) error {
			return dbErr
		},
	}
	svc := newTestService(&mockUserResolver{}, houses, &mockFavoriteRepo{}, nil)

	_, err := svc.AddFavorite(context.Background(), user.RefFromIdentifier("1"), validInput())

	if !errors.Is(err, dbErr) {
		t.Errorf("err = %v, want wrapped %v", err, dbErr)
	}
}

// --- HouseInput.Validate ---

func TestHouseInput_Validate_MissingFieldsInFixedOrder(t *testing.T) {
	input := HouseInput{City: ptr("Austin"), Beds: ptr(1)}

	err := input.Validate(security.NewMarkupDetector())

	apiErr := assertAPIErrorCode(t, err, model.ErrCodeMissingField)
	want := "property_id, price, state_code, baths, prop_type, thumbnail"
	if !strings.Contains(apiErr.Message, want) {
		t.Errorf("Message = %q, want to contain %q", apiErr.Message, want)
	}
}

// overRoomCount はINTEGERカラムに収まらない最小の値。
var overRoomCount int64 = MaxRoomCount + 1

func TestHouseInput_Validate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *HouseInput)
		field  string
	}{
		{"empty property_id", func(in *HouseInput) { in.PropertyID = ptr("") }, "property_id"},
		{"state_code too short", func(in *HouseInput) { in.StateCode = ptr("T") }, "state_code"},
		{"state_code too long", func(in *HouseInput) { in.StateCode = ptr("TEX") }, "state_code"},
		{"negative price", func(in *HouseInput) { in.Price = ptr(int64(-1)) }, "price"},
		{"negative beds", func(in *HouseInput) { in.Beds = ptr(-1) }, "beds"},
		{"negative baths", func(in *HouseInput) { in.Baths = ptr(-2) }, "baths"},
		{"beds above column range", func(in *HouseInput) { in.Beds = ptr(int(overRoomCount)) }, "beds"},
		{"baths above column range", func(in *HouseInput) { in.Baths = ptr(int(overRoomCount)) }, "baths"},
		{"city too long", func(in *HouseInput) { in.City = ptr(strings.Repeat("x", MaxTextLength+1)) }, "city"},
		{"markup in city", func(in *HouseInput) { in.City = ptr("<script>x</script>") }, "city"},
		{"markup in thumbnail", func(in *HouseInput) { in.Thumbnail = ptr(`<img src=x>`) }, "thumbnail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.modify(&input)

			err := input.Validate(security.NewMarkupDetector())

			apiErr := assertAPIErrorCode(t, err, model.ErrCodeInvalidField)
			if !strings.HasPrefix(apiErr.Message, tt.field) {
				t.Errorf("Message = %q, want to start with %q", apiErr.Message, tt.field)
			}
		})
	}
}

func TestHouseInput_Validate_AcceptsBoundaryValues(t *testing.T) {
	input := validInput()
	input.Price = ptr(int64(0))
	input.Beds = ptr(0)
	input.Baths = ptr(MaxRoomCount)
	input.City = ptr(strings.Repeat("x", MaxTextLength))
	input.PropType = ptr("")
	input.Thumbnail = ptr("")

	if err := input.Validate(security.NewMarkupDetector()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- ListHouses ---

func TestService_ListHouses(t *testing.T) {
	houses := &mockHouseRepo{
		listAllFn: func(ctx context.Context) ([]*model.House, error) {
			return []*model.House{{ID: 1}, {ID: 2}, {ID: 3}}, nil
		},
	}
	svc := newTestService(&mockUserResolver{}, houses, &mockFavoriteRepo{}, nil)

	got, err := svc.ListHouses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestService_ListHouses_EmptyIsNotNil(t *testing.T) {
	svc := newTestService(&mockUserResolver{}, &mockHouseRepo{}, &mockFavoriteRepo{}, nil)

	got, err := svc.ListHouses(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty slice", got)
	}
}
