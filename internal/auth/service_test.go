package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskboard/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	createFn      func(ctx context.Context, user *model.User) error
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	findByIDFn    func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func newTestService(repo *mockUserRepo) *Service {
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(repo, tokens, bcrypt.MinCost, nil)
}

// --- テスト ---

// Registerがパスワードをハッシュ化して保存し、平文を保持しないことを検証
func TestService_Register_HashesPassword(t *testing.T) {
	var stored *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 7
			stored = user
			return nil
		},
	}
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "raw-password")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != 7 {
		t.Errorf("ID = %d, want 7", user.ID)
	}
	if stored.PasswordHash == "raw-password" {
		t.Error("password must be stored as a hash, not plaintext")
	}
	if !VerifyPassword(stored.PasswordHash, "raw-password") {
		t.Error("stored hash should verify against the original password")
	}
}

// 登録→ログインの往復で同じユーザーのトークンが得られることを検証
func TestService_RegisterThenLogin_SameUser(t *testing.T) {
	var stored *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			user.ID = 10
			stored = user
			return nil
		},
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if stored != nil && stored.Email == email {
				return stored, nil
			}
			return nil, nil
		},
	}
	tokens := NewTokenManager("test-secret", time.Hour)
	svc := NewService(repo, tokens, bcrypt.MinCost, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "pass123"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "pass123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != 10 {
		t.Errorf("UserID = %d, want 10", claims.UserID)
	}
	if claims.Subject != "alice@example.com" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "alice@example.com")
	}
}

// 未登録メールアドレスとパスワード不一致が同一のエラーになることを検証（列挙対策）
func TestService_Login_UniformFailure(t *testing.T) {
	hash, err := HashPassword("correct", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	known := &model.User{ID: 1, Email: "known@example.com", PasswordHash: hash}

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == known.Email {
				return known, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, "unknown@example.com", "whatever")
	_, errWrongPw := svc.Login(ctx, "known@example.com", "wrong")

	for name, loginErr := range map[string]error{"unknown email": errUnknown, "wrong password": errWrongPw} {
		if loginErr == nil {
			t.Fatalf("%s: expected error, got nil", name)
		}
		var apiErr *model.APIError
		if !errors.As(loginErr, &apiErr) {
			t.Fatalf("%s: error type = %T, want *model.APIError", name, loginErr)
		}
		if apiErr.Code != model.ErrCodeInvalidCredentials {
			t.Errorf("%s: Code = %q, want %q", name, apiErr.Code, model.ErrCodeInvalidCredentials)
		}
	}

	// どちらの失敗も同じメッセージであること（レスポンス形状から存在が漏れない）
	if errUnknown.Error() != errWrongPw.Error() {
		t.Error("login failures must be indistinguishable")
	}
}

// リポジトリのDuplicateEmailエラーがそのまま伝播することを検証
func TestService_Register_DuplicateEmailPassthrough(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.NewDuplicateEmailError()
		},
	}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "dup@example.com", "pass")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("err = %v, want DuplicateEmail APIError", err)
	}
}

// Profileが認証済みユーザーIDからユーザーを返すことを検証
func TestService_Profile(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			if id == 5 {
				return &model.User{ID: 5, Name: "bob", Email: "bob@example.com"}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(repo)

	user, err := svc.Profile(context.Background(), 5)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if user.Email != "bob@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "bob@example.com")
	}
}

// 存在しないユーザーのProfileがUserNotFoundエラーになることを検証
func TestService_Profile_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Profile(context.Background(), 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("err = %v, want UserNotFound APIError", err)
	}
}
