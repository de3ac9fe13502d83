package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// Create はタスクを作成する。
	Create(ctx context.Context, assignerID int64, input task.CreateInput) (*model.Task, error)
	// Get は指定IDのタスクを取得する。
	Get(ctx context.Context, id int64) (*model.Task, error)
	// Update は既存タスクを更新する。
	Update(ctx context.Context, id int64, input task.UpdateInput) (*model.Task, error)
	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id int64) error
	// ListByAssigner は指定ユーザーが作成したタスクの一覧を返す。
	ListByAssigner(ctx context.Context, assignerID int64) ([]model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskRequest はタスク作成・更新リクエストのボディ。
// assigner_idはボディから受け取らず、認証済みコンテキストから取得する。
type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	AssigneeID  *int64 `json:"assignee_id"`
}

// CreateTask はタスク作成を処理する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// GetTask はタスク詳細を取得する。
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(found)
}

// UpdateTask は既存タスクを更新する。
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Update(r.Context(), taskID, task.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// DeleteTask はタスクを削除する。
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTasks は認証済みユーザーが作成したタスクの一覧を返す。
// GET /api/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	tasks, err := h.service.ListByAssigner(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if tasks == nil {
		tasks = []model.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// parseTaskID はURLパラメータからタスクIDを取り出す。
// 数値でない場合は400レスポンスを書き込み、falseを返す。
func parseTaskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("タスクIDは数値で指定してください"))
		return 0, false
	}
	return taskID, true
}
