package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/security"
	"github.com/hitoshi/taskboard/internal/task"
)

// inMemoryUserRepo はDBなしで動作するUserRepository実装。
type inMemoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{nextID: 1, users: make(map[int64]*model.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return model.NewDuplicateEmailError()
		}
	}

	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *inMemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// inMemoryTaskRepo はDBなしで動作するTaskRepository実装。
type inMemoryTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*model.Task
}

func newInMemoryTaskRepo() *inMemoryTaskRepo {
	return &inMemoryTaskRepo{nextID: 1, tasks: make(map[int64]*model.Task)}
}

func (r *inMemoryTaskRepo) Create(ctx context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = r.nextID
	r.nextID++
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *inMemoryTaskRepo) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *inMemoryTaskRepo) Update(ctx context.Context, t *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return model.NewTaskNotFoundError(t.ID)
	}
	t.UpdatedAt = time.Now()
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *inMemoryTaskRepo) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return model.NewTaskNotFoundError(id)
	}
	delete(r.tasks, id)
	return nil
}

func (r *inMemoryTaskRepo) ListByAssignerID(ctx context.Context, assignerID int64) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Task
	for _, t := range r.tasks {
		if t.AssignerID == assignerID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// setupTestServer は全レイヤーを組み立てたテストサーバーを返す。
func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	tokens := auth.NewTokenManager("integration-test-secret", time.Hour)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	authService := auth.NewService(newInMemoryUserRepo(), tokens, bcrypt.MinCost, collector)
	taskService := task.NewService(newInMemoryTaskRepo(), security.NewDescriptionSanitizer())

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rateLimiter.Stop)

	return NewRouter(&RouterDeps{
		TokenVerifier:        tokens,
		CORSAllowedOrigin:    "http://localhost:3000",
		RateLimiter:          rateLimiter,
		HTTPRecorder:         collector,
		VerificationRecorder: collector,
		AuthService:          authService,
		TaskService:          taskService,
	})
}

func doJSON(t *testing.T, server http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// registerAndLogin はユーザーを登録しトークンを取得する。
func registerAndLogin(t *testing.T, server http.Handler, name, email, password string) string {
	t.Helper()

	registerBody := fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, password)
	if w := doJSON(t, server, http.MethodPost, "/auth/register", "", registerBody); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d\nbody: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	loginBody := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	w := doJSON(t, server, http.MethodPost, "/auth/login", "", loginBody)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login response must contain a token")
	}
	return resp.Token
}

// 登録→ログイン→プロフィール取得の一連のフローを検証
func TestIntegration_RegisterLoginProfile(t *testing.T) {
	server := setupTestServer(t)

	token := registerAndLogin(t, server, "Alice", "alice@example.com", "password123")

	w := doJSON(t, server, http.MethodGet, "/auth/profile", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("profile status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var profile userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to parse profile response: %v", err)
	}
	if profile.Email != "alice@example.com" || profile.Name != "Alice" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

// 同一メールアドレスの再登録で409が返ることを検証
func TestIntegration_DuplicateRegistration(t *testing.T) {
	server := setupTestServer(t)

	body := `{"name":"Alice","email":"alice@example.com","password":"password123"}`
	if w := doJSON(t, server, http.MethodPost, "/auth/register", "", body); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want %d", w.Code, http.StatusCreated)
	}

	w := doJSON(t, server, http.MethodPost, "/auth/register", "", body)
	if w.Code != http.StatusConflict {
		t.Errorf("second register status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// 未登録メールアドレスと誤パスワードで同一のエラーレスポンスが返ることを検証
func TestIntegration_LoginFailureIndistinguishable(t *testing.T) {
	server := setupTestServer(t)

	registerAndLogin(t, server, "Alice", "alice@example.com", "password123")

	wrongPassword := doJSON(t, server, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong-password"}`)
	unknownEmail := doJSON(t, server, http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"password123"}`)

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d/%d, want both %d", wrongPassword.Code, unknownEmail.Code, http.StatusUnauthorized)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Error("login failures must be indistinguishable by response body")
	}
}

// トークンなし・不正トークンで保護ルートが401になることを検証
func TestIntegration_ProtectedRoutesRequireToken(t *testing.T) {
	server := setupTestServer(t)

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/profile"},
		{http.MethodGet, "/api/tasks/"},
		{http.MethodPost, "/api/tasks/"},
	}

	for _, target := range targets {
		t.Run(target.method+" "+target.path, func(t *testing.T) {
			if w := doJSON(t, server, target.method, target.path, "", ""); w.Code != http.StatusUnauthorized {
				t.Errorf("without token: status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if w := doJSON(t, server, target.method, target.path, "garbage-token", ""); w.Code != http.StatusUnauthorized {
				t.Errorf("with garbage token: status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

// タスクのCRUDフロー全体を検証
func TestIntegration_TaskLifecycle(t *testing.T) {
	server := setupTestServer(t)

	token := registerAndLogin(t, server, "Alice", "alice@example.com", "password123")

	// 作成
	createBody := `{"title":"設計レビュー","description":"<p>API設計の確認</p><script>alert(1)</script>","priority":3}`
	w := doJSON(t, server, http.MethodPost, "/api/tasks/", token, createBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d\nbody: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var created model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse create response: %v", err)
	}
	if created.Status != model.StatusTodo {
		t.Errorf("status = %q, want %q", created.Status, model.StatusTodo)
	}
	// scriptタグはサニタイズで除去される
	if strings.Contains(created.Description, "script") {
		t.Errorf("description must be sanitized: %q", created.Description)
	}

	// 更新
	updateBody := `{"title":"設計レビュー","description":"<p>完了</p>","status":"DONE","priority":3}`
	w = doJSON(t, server, http.MethodPut, fmt.Sprintf("/api/tasks/%d", created.ID), token, updateBody)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to parse update response: %v", err)
	}
	if updated.Status != model.StatusDone {
		t.Errorf("status = %q, want %q", updated.Status, model.StatusDone)
	}

	// 一覧
	w = doJSON(t, server, http.MethodGet, "/api/tasks/", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", w.Code, http.StatusOK)
	}
	var tasks []model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("failed to parse list response: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}

	// 削除
	w = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), token, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// 削除後の取得は404
	w = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/tasks/%d", created.ID), token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// タスク一覧が作成者スコープで分離されることを検証
func TestIntegration_TaskListScopedByAssigner(t *testing.T) {
	server := setupTestServer(t)

	aliceToken := registerAndLogin(t, server, "Alice", "alice@example.com", "password123")
	bobToken := registerAndLogin(t, server, "Bob", "bob@example.com", "password456")

	if w := doJSON(t, server, http.MethodPost, "/api/tasks/", aliceToken, `{"title":"aliceのタスク"}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", w.Code, http.StatusCreated)
	}

	w := doJSON(t, server, http.MethodGet, "/api/tasks/", bobToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("bob's task list = %q, want []", got)
	}
}

// ヘルスチェックが認証なしで応答することを検証
func TestIntegration_HealthCheck(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %q, want to contain ok", w.Body.String())
	}
}

// レスポンスにリクエストIDとセキュリティヘッダーが付与されることを検証
func TestIntegration_ResponseHeaders(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/health", "", "")

	if w.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header must be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options header must be set")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("CORS headers must be set")
	}
}
