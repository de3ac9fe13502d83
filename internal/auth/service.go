package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// dummyPasswordHash はログイン時のタイミング攻撃対策に使用する。
// メールアドレスが未登録の場合でもbcrypt比較を1回実行することで、
// 応答時間からユーザーの存在が推測できないようにする。
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
// nilを渡した場合は記録をスキップする。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLogin(success bool)
}

// Service は認証に関するビジネスロジックを提供する。
// ユーザー登録、ログイン（トークン発行）、プロフィール取得を担う。
type Service struct {
	userRepo   repository.UserRepository
	tokens     *TokenManager
	bcryptCost int
	metrics    MetricsRecorder
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(userRepo repository.UserRepository, tokens *TokenManager, bcryptCost int, metrics MetricsRecorder) *Service {
	return &Service{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		metrics:    metrics,
	}
}

// Register は新規ユーザーを登録する。
// パスワードはbcryptハッシュとして保存され、平文は保持されない。
// メールアドレスの重複はリポジトリ層でDBの一意制約違反として検出され、
// DuplicateEmailエラーがそのまま呼び出し側に返る。
func (s *Service) Register(ctx context.Context, name, email, rawPassword string) (*model.User, error) {
	passwordHash, err := HashPassword(rawPassword, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("new user registered",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// Login は認証情報を検証し、成功時にセッショントークンを発行する。
// メールアドレス不明とパスワード不一致は区別せず、
// 常に同一のInvalidCredentialsエラーを返す（ユーザー列挙対策）。
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 未登録メールアドレスでも比較コストを揃える
		VerifyPassword(dummyPasswordHash, rawPassword)
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		return "", model.NewInvalidCredentialsError()
	}

	if !VerifyPassword(user.PasswordHash, rawPassword) {
		if s.metrics != nil {
			s.metrics.RecordLogin(false)
		}
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin(true)
	}
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
	)

	return token, nil
}

// Profile は認証済みユーザーIDからユーザー情報を取得する。
func (s *Service) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}
