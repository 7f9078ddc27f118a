package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/andina-pos/api/internal/database"
	"github.com/andina-pos/api/internal/enum"
	"github.com/andina-pos/api/internal/handler"
	"github.com/andina-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockUserStore struct {
	users []database.User
}

func (m *mockUserStore) ListUsers(_ context.Context) ([]database.User, error) {
	return m.users, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range m.users {
		if u.Username == arg.Username {
			return database.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	u := database.User{
		ID:             uuid.New(),
		Username:       arg.Username,
		FullName:       arg.FullName,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleAdmin))
		r.Route("/users", h.RegisterRoutes)
	})
	return r
}

func TestCreateUser_AsAdmin(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})

	rr := doAuthRequest(t, router, "POST", "/users", map[string]interface{}{
		"username":  "cajero2",
		"password":  "secreto123",
		"full_name": "Luisa Gomez",
		"role":      "CASHIER",
	}, adminClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["username"] != "cajero2" {
		t.Errorf("username: got %v, want cajero2", resp["username"])
	}
	if resp["role"] != "CASHIER" {
		t.Errorf("role: got %v, want CASHIER", resp["role"])
	}
	if _, ok := resp["hashed_password"]; ok {
		t.Error("response must not expose the password hash")
	}
}

func TestCreateUser_CashierForbidden(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})

	rr := doAuthRequest(t, router, "POST", "/users", map[string]interface{}{
		"username":  "cajero2",
		"password":  "secreto123",
		"full_name": "Luisa Gomez",
		"role":      "CASHIER",
	}, cashierClaims())

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})
	claims := adminClaims()

	body := map[string]interface{}{
		"username":  "cajero2",
		"password":  "secreto123",
		"full_name": "Luisa Gomez",
		"role":      "CASHIER",
	}
	if rr := doAuthRequest(t, router, "POST", "/users", body, claims); rr.Code != http.StatusCreated {
		t.Fatalf("first create: got %d; body: %s", rr.Code, rr.Body.String())
	}

	rr := doAuthRequest(t, router, "POST", "/users", body, claims)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})
	claims := adminClaims()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing username", map[string]interface{}{"password": "secreto123", "full_name": "X", "role": "CASHIER"}},
		{"short password", map[string]interface{}{"username": "c", "password": "corta", "full_name": "X", "role": "CASHIER"}},
		{"bad role", map[string]interface{}{"username": "c", "password": "secreto123", "full_name": "X", "role": "SUPERVISOR"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/users", tc.body, claims)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListUsers_AsAdmin(t *testing.T) {
	store := &mockUserStore{users: []database.User{
		{ID: uuid.New(), Username: "admin", FullName: "Admin", Role: "ADMIN", IsActive: true},
		{ID: uuid.New(), Username: "cajero1", FullName: "Carlos Mendoza", Role: "CASHIER", IsActive: true},
	}}
	router := setupUserRouter(store)

	rr := doAuthRequest(t, router, "GET", "/users", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 2 {
		t.Errorf("expected 2 users, got %d", len(resp))
	}
}
