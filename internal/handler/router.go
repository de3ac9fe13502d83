package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/middleware"
)

// HealthChecker はヘルスチェックでのDB疎通確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ヘルスチェック（nil可。nilの場合はプロセス生存のみ確認）
	HealthChecker HealthChecker

	// メトリクス（nil可）
	HTTPRecorder         middleware.HTTPRecorder
	VerificationRecorder middleware.VerificationRecorder

	// サービス
	AuthService AuthServiceInterface
	TaskService TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → Metrics → SecurityHeaders → CORS
//
// 登録・ログインは認証不要。ログインには接続元IPキーのレート制限を追加する。
// 認証が必要なルートは Auth → RateLimit(General) のチェーンを通過する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.TaskService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		// ログインはパスワード総当たり対策のIPキーレート制限を追加
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.VerificationRecorder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/auth/profile", authHandler.Profile)

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.CreateTask)
			r.Get("/", taskHandler.ListTasks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Put("/", taskHandler.UpdateTask)
				r.Delete("/", taskHandler.DeleteTask)
			})
		})
	})

	return r
}
