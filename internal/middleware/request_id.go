package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDContextKey はリクエストコンテキストにリクエストIDを格納するためのキー。
var requestIDContextKey = contextKey("request_id")

// requestIDHeader はレスポンスに付与するリクエストIDヘッダー名。
const requestIDHeader = "X-Request-Id"

// NewRequestIDMiddleware はリクエストごとに一意のIDを採番するミドルウェアを返す。
// IDはレスポンスヘッダーとリクエストコンテキストの両方に設定され、
// ログの相関に使用される。クライアントから送られたIDは信用せず常に採番し直す。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()

			w.Header().Set(requestIDHeader, requestID)
			ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
