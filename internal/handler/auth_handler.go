// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, name, email, rawPassword string) (*model.User, error)
	// Login は認証情報を検証し、セッショントークンを発行する。
	Login(ctx context.Context, email, rawPassword string) (string, error)
	// Profile は認証済みユーザーIDからユーザー情報を取得する。
	Profile(ctx context.Context, userID int64) (*model.User, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 8

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュは含まない。
type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// tokenResponse はログイン成功時のAPIレスポンス。
type tokenResponse struct {
	Token string `json:"token"`
}

// Register は新規ユーザー登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := validateRegisterRequest(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.service.Register(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Login はログインを処理し、成功時にセッショントークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		// 欠落した認証情報も不一致と同じ扱いにする
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	token, err := h.service.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{Token: token})
}

// Profile は認証済みユーザーのプロフィールを返す。
// GET /auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// validateRegisterRequest は登録リクエストの入力検証を行う。
func validateRegisterRequest(req registerRequest) *model.APIError {
	if strings.TrimSpace(req.Name) == "" {
		return model.NewValidationError("名前は必須です")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(req.Password) < passwordMinLength {
		return model.NewValidationError("パスワードは8文字以上で指定してください")
	}
	return nil
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// --- 共通ヘルパー関数 ---

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody はJSONボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeTaskNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
