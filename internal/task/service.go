// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
	"github.com/hitoshi/taskboard/internal/security"
)

// titleMaxLength はタイトルの最大文字数。
const titleMaxLength = 200

// CreateInput はタスク作成の入力。
// AssignerIDは認証済みコンテキストから取得し、リクエストボディからは受け取らない。
type CreateInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    int
	AssigneeID  *int64
}

// UpdateInput はタスク更新の入力。
type UpdateInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    int
	AssigneeID  *int64
}

// Service はタスク管理のサービス層。
// 入力検証、説明文のサニタイズ、作成者スコープの適用を担う。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer security.DescriptionSanitizerService
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository, sanitizer security.DescriptionSanitizerService) *Service {
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
	}
}

// Create はタスクを作成する。
// ステータス未指定時はTODO、優先度未指定（0）時はMediumを設定する。
// assignerIDは認証済みユーザーのIDを渡すこと。
func (s *Service) Create(ctx context.Context, assignerID int64, input CreateInput) (*model.Task, error) {
	if input.Status == "" {
		input.Status = model.StatusTodo
	}
	if input.Priority == 0 {
		input.Priority = model.PriorityMedium
	}

	if err := validateInput(input.Title, input.Status, input.Priority); err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       s.sanitizer.StripTags(strings.TrimSpace(input.Title)),
		Description: s.sanitizer.Sanitize(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		AssignerID:  assignerID,
		AssigneeID:  input.AssigneeID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int64("assigner_id", assignerID),
	)

	return task, nil
}

// Get は指定IDのタスクを取得する。見つからない場合はTaskNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(id)
	}
	return task, nil
}

// Update は既存タスクを更新する。
// 対象が存在しない場合はTaskNotFoundエラーを返す。
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*model.Task, error) {
	existing, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if existing == nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	if err := validateInput(input.Title, input.Status, input.Priority); err != nil {
		return nil, err
	}

	existing.Title = s.sanitizer.StripTags(strings.TrimSpace(input.Title))
	existing.Description = s.sanitizer.Sanitize(input.Description)
	existing.Status = input.Status
	existing.Priority = input.Priority
	existing.AssigneeID = input.AssigneeID

	if err := s.taskRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	slog.Info("task updated",
		slog.Int64("task_id", existing.ID),
		slog.String("status", string(existing.Status)),
	)

	return existing, nil
}

// Delete は指定IDのタスクを削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.taskRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	slog.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

// ListByAssigner は指定ユーザーが作成したタスクの一覧を返す。
// 認証済みユーザーのIDを渡し、他ユーザーのタスクは返さない。
func (s *Service) ListByAssigner(ctx context.Context, assignerID int64) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListByAssignerID(ctx, assignerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// validateInput はタイトル・ステータス・優先度の共通検証を行う。
func validateInput(title string, status model.TaskStatus, priority int) error {
	if strings.TrimSpace(title) == "" {
		return model.NewValidationError("タイトルは必須です")
	}
	if len([]rune(title)) > titleMaxLength {
		return model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で指定してください", titleMaxLength))
	}
	if !status.IsValid() {
		return model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", status))
	}
	if priority < model.PriorityLow || priority > model.PriorityHigh {
		return model.NewValidationError(fmt.Sprintf("優先度は%dから%dの範囲で指定してください", model.PriorityLow, model.PriorityHigh))
	}
	return nil
}
