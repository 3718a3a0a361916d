package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/homefav/internal/favorite"
	"github.com/hitoshi/homefav/internal/model"
	"github.com/hitoshi/homefav/internal/user"
)

// --- GET /favorites テスト ---

func TestFavoriteHandler_ListMine_UsesSubjectAsEmail(t *testing.T) {
	var gotRef user.Ref
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context, ref user.Ref) ([]*model.House, error) {
			gotRef = ref
			return []*model.House{sampleHouse()}, nil
		},
	}
	h := NewFavoriteHandler(svc)

	// 数字のみのsubjectでもemailとして扱う
	req := withSubject(httptest.NewRequest(http.MethodGet, "/favorites", nil), "12345")
	w := httptest.NewRecorder()

	h.ListMine(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if email, ok := gotRef.Email(); !ok || email != "12345" {
		t.Errorf("ref = %s, want email:12345", gotRef)
	}

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	want := map[string]any{
		"id":         float64(1),
		"price":      float64(100000),
		"city":       "Austin",
		"state_code": "TX",
		"beds":       float64(3),
		"baths":      float64(2),
		"prop_type":  "single_family",
		"thumbnail":  "http://img/1.jpg",
	}
	for k, v := range want {
		if resp[0][k] != v {
			t.Errorf("%s = %v, want %v", k, resp[0][k], v)
		}
	}
	if _, ok := resp[0]["property_id"]; ok {
		t.Error("summary should not contain property_id")
	}
}

func TestFavoriteHandler_ListMine_NoSubject(t *testing.T) {
	h := NewFavoriteHandler(&mockFavoriteService{})

	w := httptest.NewRecorder()
	h.ListMine(w, httptest.NewRequest(http.MethodGet, "/favorites", nil))

	assertError(t, w, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}

func TestFavoriteHandler_ListMine_EmptyIsArray(t *testing.T) {
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context, ref user.Ref) ([]*model.House, error) {
			return nil, nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := withSubject(httptest.NewRequest(http.MethodGet, "/favorites", nil), "a@b.com")
	w := httptest.NewRecorder()

	h.ListMine(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

// --- GET /user/{id} テスト ---

func TestFavoriteHandler_ListByIdentifier_NumericIsID(t *testing.T) {
	var gotRef user.Ref
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context, ref user.Ref) ([]*model.House, error) {
			gotRef = ref
			return []*model.House{}, nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/user/7", nil), "id", "7")
	w := httptest.NewRecorder()

	h.ListByIdentifier(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if id, ok := gotRef.ID(); !ok || id != 7 {
		t.Errorf("ref = %s, want id:7", gotRef)
	}
}

func TestFavoriteHandler_ListByIdentifier_EmailIdentifier(t *testing.T) {
	var gotRef user.Ref
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context, ref user.Ref) ([]*model.House, error) {
			gotRef = ref
			return []*model.House{}, nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/user/a@b.com", nil), "id", "a@b.com")
	w := httptest.NewRecorder()

	h.ListByIdentifier(w, req)

	if email, ok := gotRef.Email(); !ok || email != "a@b.com" {
		t.Errorf("ref = %s, want email:a@b.com", gotRef)
	}
}

func TestFavoriteHandler_ListByIdentifier_UserNotFound(t *testing.T) {
	svc := &mockFavoriteService{
		listFavoritesFn: func(ctx context.Context, ref user.Ref) ([]*model.House, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewFavoriteHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/user/99", nil), "id", "99")
	w := httptest.NewRecorder()

	h.ListByIdentifier(w, req)

	assertError(t, w, http.StatusNotFound, model.ErrCodeUserNotFound)
}

// --- POST /favorite テスト ---

func TestFavoriteHandler_AddMine_Success(t *testing.T) {
	var (
		gotRef   user.Ref
		gotInput favorite.HouseInput
	)
	svc := &mockFavoriteService{
		addFavoriteFn: func(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error) {
			gotRef = ref
			gotInput = input
			return sampleHouse(), nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/favorite", strings.NewReader(sampleHouseJSON))
	req = withSubject(req, "a@b.com")
	w := httptest.NewRecorder()

	h.AddMine(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if email, ok := gotRef.Email(); !ok || email != "a@b.com" {
		t.Errorf("ref = %s, want email:a@b.com", gotRef)
	}
	if gotInput.PropertyID == nil || *gotInput.PropertyID != "P1" {
		t.Errorf("input.PropertyID = %v, want P1", gotInput.PropertyID)
	}

	var resp houseResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp != toHouseResponse(sampleHouse()) {
		t.Errorf("response = %+v, want %+v", resp, toHouseResponse(sampleHouse()))
	}
}

func TestFavoriteHandler_AddMine_NoSubject(t *testing.T) {
	h := NewFavoriteHandler(&mockFavoriteService{})

	w := httptest.NewRecorder()
	h.AddMine(w, httptest.NewRequest(http.MethodPost, "/favorite", strings.NewReader(sampleHouseJSON)))

	assertError(t, w, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}

// --- POST /favorite/{user_id} テスト ---

func TestFavoriteHandler_AddForUser_UsesPathIdentifier(t *testing.T) {
	var gotRef user.Ref
	svc := &mockFavoriteService{
		addFavoriteFn: func(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error) {
			gotRef = ref
			return sampleHouse(), nil
		},
	}
	h := NewFavoriteHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/favorite/1", strings.NewReader(sampleHouseJSON))
	req = withChiURLParam(req, "user_id", "1")
	w := httptest.NewRecorder()

	h.AddForUser(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if id, ok := gotRef.ID(); !ok || id != 1 {
		t.Errorf("ref = %s, want id:1", gotRef)
	}
}

func TestFavoriteHandler_AddForUser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"invalid json", `{"price":`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"trailing data", sampleHouseJSON + ` {"price":1}`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"missing fields", `{}`, model.NewMissingFieldError("property_id"), http.StatusBadRequest, model.ErrCodeMissingField},
		{"invalid field", sampleHouseJSON, model.NewInvalidFieldError("state_code", "2文字"), http.StatusBadRequest, model.ErrCodeInvalidField},
		{"user not found", sampleHouseJSON, model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"duplicate property", sampleHouseJSON, model.NewDuplicatePropertyError("P1"), http.StatusConflict, model.ErrCodeDuplicateProperty},
		{"internal", sampleHouseJSON, errors.New("tx failed"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockFavoriteService{
				addFavoriteFn: func(ctx context.Context, ref user.Ref, input favorite.HouseInput) (*model.House, error) {
					called = true
					return nil, tt.err
				},
			}
			h := NewFavoriteHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/favorite/1", strings.NewReader(tt.body))
			req = withChiURLParam(req, "user_id", "1")
			w := httptest.NewRecorder()

			h.AddForUser(w, req)

			assertError(t, w, tt.status, tt.code)
			if tt.err == nil && called {
				t.Error("service should not be called for malformed JSON")
			}
		})
	}
}

// --- GET /houses テスト ---

func TestFavoriteHandler_ListHouses(t *testing.T) {
	second := sampleHouse()
	second.ID = 2
	second.PropertyID = "P2"
	svc := &mockFavoriteService{
		listHousesFn: func(ctx context.Context) ([]*model.House, error) {
			return []*model.House{sampleHouse(), second}, nil
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ListHouses(w, httptest.NewRequest(http.MethodGet, "/houses", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp []houseSummary
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != 1 || resp[1].ID != 2 {
		t.Errorf("response = %+v, want ids [1 2]", resp)
	}
}

func TestFavoriteHandler_ListHouses_InternalError(t *testing.T) {
	svc := &mockFavoriteService{
		listHousesFn: func(ctx context.Context) ([]*model.House, error) {
			return nil, errors.New("query failed")
		},
	}
	h := NewFavoriteHandler(svc)

	w := httptest.NewRecorder()
	h.ListHouses(w, httptest.NewRequest(http.MethodGet, "/houses", nil))

	assertError(t, w, http.StatusInternalServerError, model.ErrCodeInternal)
}
