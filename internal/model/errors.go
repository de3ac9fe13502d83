package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
// 登録済みメールアドレスで再登録しようとした場合に返す。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー列挙攻撃を防ぐため、メールアドレス不明とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// トークンの署名不正・期限切れ・欠落はすべてこのエラーに集約される。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID int64) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %d", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
