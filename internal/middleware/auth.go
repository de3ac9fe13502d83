// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// リクエストコンテキストに認証済みクレームを格納するためのキー。
var (
	userIDContextKey  = contextKey("user_id")
	subjectContextKey = contextKey("subject")
)

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// VerificationRecorder はトークン検証結果のメトリクス記録インターフェース。
// nilを渡した場合は記録をスキップする。
type VerificationRecorder interface {
	RecordTokenVerification(result string)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証する
// ミドルウェアを返す。検証済みのユーザーIDとsubjectをリクエストコンテキストに注入する。
// ヘッダー欠落・署名不正・期限切れはすべて同一の401レスポンスに集約し、
// 失敗理由はログとメトリクスにのみ記録する（クライアントには区別させない）。
func NewAuthMiddleware(verifier TokenVerifier, metrics VerificationRecorder) func(next http.Handler) http.Handler {
	record := func(result string) {
		if metrics != nil {
			metrics.RecordTokenVerification(result)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからベアラートークンを取得
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				record("missing")
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. 署名と有効期限を検証
			claims, err := verifier.Verify(token)
			if err != nil {
				result := "bad_signature"
				if errors.Is(err, auth.ErrTokenExpired) {
					result = "expired"
				}
				record(result)
				slog.Warn("token verification failed",
					slog.String("reason", result),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			record("ok")

			// 3. 認証済みクレームをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, claims.UserID)
			ctx = context.WithValue(ctx, subjectContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	if !ok || userID == 0 {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SubjectFromContext はリクエストコンテキストから認証済みsubject（メールアドレス）を取得する。
func SubjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("subject not found in context")
	}
	return subject, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSubject はコンテキストにsubjectを注入する。
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}
