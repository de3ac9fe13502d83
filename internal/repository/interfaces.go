// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/taskboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに書き戻す。
	// メールアドレスの一意性はDBの一意制約で保証され、
	// 重複時はmodel.NewDuplicateEmailError()を返す。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	// 比較は格納された値そのまま（大文字小文字を区別する）。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// Create はタスクを作成し、採番されたIDとタイムスタンプをtaskに書き戻す。
	Create(ctx context.Context, task *model.Task) error

	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Task, error)

	// Update はタスクを上書き更新し、更新後のタイムスタンプをtaskに書き戻す。
	// 対象が存在しない場合はmodel.NewTaskNotFoundError(id)を返す。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByID は指定IDのタスクを削除する。
	// 対象が存在しない場合はmodel.NewTaskNotFoundError(id)を返す。
	DeleteByID(ctx context.Context, id int64) error

	// ListByAssignerID は指定ユーザーが作成したタスクの一覧を作成日時降順で返す。
	ListByAssignerID(ctx context.Context, assignerID int64) ([]model.Task, error)
}
