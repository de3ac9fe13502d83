package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/taskboard/internal/model"
)

// トークン検証の失敗理由。
// ゲートではどちらも一律の401に集約されるが、ログとメトリクスでは区別する。
var (
	// ErrTokenExpired は有効期限切れのトークンを示す。
	ErrTokenExpired = errors.New("token expired")
	// ErrBadSignature は署名不正または解析不能なトークンを示す。
	ErrBadSignature = errors.New("token signature invalid")
)

// Claims はセッショントークンに埋め込むクレームセット。
// Subjectにはメールアドレス、UserIDにはユーザーIDを格納する。
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// TokenManager はHS256署名付きJWTの発行と検証を行う。
// 署名鍵はプロセス全体で共有する設定値であり、トークンごとに生成しない。
// 発行済みトークンはサーバー側に保存されず、失効リストも持たない
// （有効期限のみで失効する設計上の割り切り）。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue はユーザーの身元クレームを持つ署名付きトークンを発行する。
// クレーム: subject=メールアドレス、user_id、発行時刻、発行時刻+TTLの有効期限。
func (m *TokenManager) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: user.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、埋め込まれたクレームを返す。
// 署名検証が先に行われ、改ざんまたは別鍵のトークンはErrBadSignature、
// 署名は正しいが期限切れのトークンはErrTokenExpiredを返す。
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// 署名アルゴリズムの差し替え（alg=none等）を拒否する
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrBadSignature
	}
	if !token.Valid {
		return nil, ErrBadSignature
	}

	return claims, nil
}
