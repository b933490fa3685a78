package authpw

import (
	"context"
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"atelier/api/internal/store"
)

type fakeUserStore struct {
	users map[string]store.User // keyed by email
	byID  map[string]store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[string]store.User),
		byID:  make(map[string]store.User),
	}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.users[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	user := f.byID[userID]
	user.PasswordHash = passwordHash
	f.byID[userID] = user
	f.users[user.Email] = user
	return nil
}

func seedUser(t *testing.T, fs *fakeUserStore, email, password string) store.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := store.User{ID: "usr_1", Email: email, DisplayName: "Mara", PasswordHash: string(hash), Role: "admin"}
	_ = fs.CreateUser(context.Background(), user)
	return user
}

func TestSignInSucceedsWithCorrectPassword(t *testing.T) {
	fs := newFakeUserStore()
	seedUser(t, fs, "mara@example.com", "correct horse")
	svc := NewService(fs)

	user, err := svc.SignIn(context.Background(), " Mara@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.ID != "usr_1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fs := newFakeUserStore()
	seedUser(t, fs, "mara@example.com", "correct horse")
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), "mara@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignInRejectsUnknownEmailWithSameError(t *testing.T) {
	svc := NewService(newFakeUserStore())
	if _, err := svc.SignIn(context.Background(), "nobody@example.com", "anything"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	if _, err := svc.CreateUser(context.Background(), "a@example.com", "A", "short", "admin"); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	fs := newFakeUserStore()
	seedUser(t, fs, "mara@example.com", "correct horse")
	svc := NewService(fs)

	if _, err := svc.CreateUser(context.Background(), "mara@example.com", "Mara", "long enough", "admin"); err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	fs := newFakeUserStore()
	seedUser(t, fs, "mara@example.com", "correct horse")
	svc := NewService(fs)

	if err := svc.ChangePassword(context.Background(), "usr_1", "wrong", "new password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), "usr_1", "correct horse", "new password"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "mara@example.com", "new password"); err != nil {
		t.Fatalf("sign in with new password failed: %v", err)
	}
}
