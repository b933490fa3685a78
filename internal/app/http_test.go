package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"atelier/api/internal/authpw"
	"atelier/api/internal/store"
)

type fakeUsers struct {
	byEmail map[string]store.User
	byID    map[string]store.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]store.User), byID: make(map[string]store.User)}
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (store.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, user store.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	user := f.byID[userID]
	user.PasswordHash = passwordHash
	f.byID[userID] = user
	f.byEmail[user.Email] = user
	return nil
}

func newTestServer(t *testing.T, svc *Service) *HTTPServer {
	t.Helper()
	return NewHTTPServer(svc, "*", nil, nil, "")
}

func signInAs(t *testing.T, server *HTTPServer, email, password string) string {
	t.Helper()
	body := bytes.NewBufferString(`{"email":"` + email + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", body)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin failed: %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse signin response: %v", err)
	}
	token, _ := payload["accessToken"].(string)
	if token == "" {
		t.Fatalf("expected accessToken in %s", rr.Body.String())
	}
	return token
}

func seedAdmin(t *testing.T, users *fakeUsers) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_ = users.CreateUser(context.Background(), store.User{
		ID:           "usr-admin",
		Email:        "artist@example.com",
		DisplayName:  "Artist",
		Role:         "admin",
		PasswordHash: string(hash),
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, newTestService(nil, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header on response")
	}
}

func TestSignInReturnsSessionContract(t *testing.T) {
	users := newFakeUsers()
	seedAdmin(t, users)
	svc := newTestService(nil, nil)
	svc.pw = authpw.NewService(users)
	server := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		bytes.NewBufferString(`{"email":"ARTIST@example.com ","password":"correct horse"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["accessToken"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("expected tokens in %s", rr.Body.String())
	}
	if payload["userName"] != "Artist" {
		t.Fatalf("expected userName Artist, got %v", payload["userName"])
	}
	if payload["role"] != "admin" {
		t.Fatalf("expected role admin, got %v", payload["role"])
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	users := newFakeUsers()
	seedAdmin(t, users)
	svc := newTestService(nil, nil)
	svc.pw = authpw.NewService(users)
	server := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		bytes.NewBufferString(`{"email":"artist@example.com","password":"wrong"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMutationsRejectMissingToken(t *testing.T) {
	server := newTestServer(t, newTestService(nil, nil))

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/artworks"},
		{http.MethodPatch, "/api/artworks/tidepools"},
		{http.MethodDelete, "/api/artworks/tidepools"},
		{http.MethodPost, "/api/artworks/reorder"},
		{http.MethodPost, "/api/artworks/art-1/images"},
		{http.MethodPut, "/api/artworks/art-1/tags"},
	} {
		req := httptest.NewRequest(route.method, route.path, bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, rr.Code)
		}
	}
}

func TestGetArtworkReturns404ForUnknownSlug(t *testing.T) {
	server := newTestServer(t, newTestService(&fakeRows{}, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/artworks/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND code, got %v", payload["code"])
	}
}

func TestPatchArtworkEndToEnd(t *testing.T) {
	users := newFakeUsers()
	seedAdmin(t, users)
	rows := &fakeRows{
		updateFn: func(_ context.Context, _ string, filter store.Filter, patch store.Row) ([]store.Row, error) {
			row := artworkRow("art-1", "tidepools", "Tidepools")
			for key, value := range patch {
				row[key] = value
			}
			return []store.Row{row}, nil
		},
	}
	svc := newTestService(rows, nil)
	svc.pw = authpw.NewService(users)
	seedGallery(svc)
	server := newTestServer(t, svc)

	token := signInAs(t, server, "artist@example.com", "correct horse")

	req := httptest.NewRequest(http.MethodPatch, "/api/artworks/tidepools",
		bytes.NewBufferString(`{"description":"rocky shore at low tide"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	detail, ok := svc.cache.GetDetail("tidepools")
	if !ok {
		t.Fatalf("expected detail cached after update")
	}
	if detail.Description != "rocky shore at low tide" {
		t.Fatalf("expected committed description, got %q", detail.Description)
	}
}
