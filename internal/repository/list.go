package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/todolists/todolists-go/internal/dbx"
	"github.com/todolists/todolists-go/internal/model"
)

// ListRepository handles todo list and todo item persistence.
type ListRepository struct {
	db dbx.DBTX
	// conn is nil when the repository is bound to a transaction.
	conn *sql.DB
}

// NewListRepository creates a new ListRepository.
func NewListRepository(db *sql.DB) *ListRepository {
	return &ListRepository{db: db, conn: db}
}

const listColumns = `id, user_id, name, created_at, updated_at`

const todoColumns = `id, list_id, user_id, task, completed, created_at, updated_at`

// Atomically runs fn inside a transaction. Calls on a repository that is
// already bound to a transaction run fn in that transaction.
func (r *ListRepository) Atomically(ctx context.Context, fn func(ctx context.Context, tx ItemStore) error) error {
	if r.conn == nil {
		return fn(ctx, r)
	}
	return dbx.WithTx(ctx, r.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &ListRepository{db: tx})
	})
}

// ListNames returns the names of all lists owned by ownerID.
func (r *ListRepository) ListNames(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM todo_lists WHERE user_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// FindList returns the list named name owned by ownerID, with its items.
func (r *ListRepository) FindList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error) {
	query := `SELECT ` + listColumns + ` FROM todo_lists WHERE user_id = ? AND name = ?`

	list, err := scanList(r.db.QueryRowContext(ctx, query, ownerID, name))
	if err != nil {
		return nil, err
	}

	list.Items, err = r.Items(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CreateList inserts a new empty list.
func (r *ListRepository) CreateList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO todo_lists (user_id, name) VALUES (?, ?)`, ownerID, name)
	if err != nil {
		if isDuplicateEntryError(err) {
			return nil, ErrDuplicateList
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &model.TodoList{ID: id, UserID: ownerID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// EnsureList returns the list, creating it when absent, and locks its row.
// LAST_INSERT_ID(id) makes the existing row's id visible when nothing was inserted.
func (r *ListRepository) EnsureList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error) {
	upsert := `INSERT INTO todo_lists (user_id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`

	result, err := r.db.ExecContext(ctx, upsert, ownerID, name)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + listColumns + ` FROM todo_lists WHERE id = ? AND user_id = ? FOR UPDATE`
	return scanList(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// DeleteList removes the list; its items go with it through ON DELETE CASCADE.
func (r *ListRepository) DeleteList(ctx context.Context, ownerID int64, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todo_lists WHERE user_id = ? AND name = ?`, ownerID, name)
	return err
}

// Items returns all items of listID in creation order.
func (r *ListRepository) Items(ctx context.Context, listID int64) ([]model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE list_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.ListID, &t.UserID, &t.Task, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}

	return items, rows.Err()
}

// GetItem returns a single item, requiring it to belong to both listID and ownerID.
func (r *ListRepository) GetItem(ctx context.Context, ownerID, listID, itemID int64) (*model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ? AND list_id = ? AND user_id = ?`

	t := &model.Todo{}
	err := r.db.QueryRowContext(ctx, query, itemID, listID, ownerID).Scan(
		&t.ID, &t.ListID, &t.UserID, &t.Task, &t.Completed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return t, nil
}

// BulkCreate inserts items with a single multi-row INSERT. LastInsertId only
// identifies the first row, and with innodb_autoinc_lock_mode=2 the remaining
// ids need not be consecutive, so IDs are set only for a one-row insert.
func (r *ListRepository) BulkCreate(ctx context.Context, list *model.TodoList, items []model.Todo) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO todos (list_id, user_id, task, completed) VALUES `)
	args := make([]any, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, list.ID, list.UserID, it.Task, it.Completed)
	}

	result, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	if len(items) == 1 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		items[0].ID = id
	}

	now := time.Now().UTC()
	for i := range items {
		items[i].ListID = list.ID
		items[i].UserID = list.UserID
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}
	return nil
}

// BulkUpdate writes task and completed for each item of listID.
func (r *ListRepository) BulkUpdate(ctx context.Context, listID int64, items []model.Todo) error {
	query := `UPDATE todos SET task = ?, completed = ? WHERE id = ? AND list_id = ?`

	for _, it := range items {
		if _, err := r.db.ExecContext(ctx, query, it.Task, it.Completed, it.ID, listID); err != nil {
			return err
		}
	}
	return nil
}

// BulkDelete removes ids from listID with a single statement.
func (r *ListRepository) BulkDelete(ctx context.Context, listID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := `DELETE FROM todos WHERE list_id = ? AND id IN (` + placeholders + `)`

	args := make([]any, 0, len(ids)+1)
	args = append(args, listID)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func scanList(row *sql.Row) (*model.TodoList, error) {
	list := &model.TodoList{}
	err := row.Scan(&list.ID, &list.UserID, &list.Name, &list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return list, nil
}
