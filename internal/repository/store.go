package repository

import (
	"context"
	"errors"

	"github.com/todolists/todolists-go/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrListNotFound      = errors.New("todo list not found")
	ErrDuplicateList     = errors.New("todo list already exists")
	ErrItemNotFound      = errors.New("todo item not found")
)

// CredentialStore persists user identities.
type CredentialStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// ItemStore persists todo lists and their items. Every item operation is
// scoped to a single list id and never touches items of other lists.
type ItemStore interface {
	// ListNames returns the names of all lists owned by ownerID.
	ListNames(ctx context.Context, ownerID int64) ([]string, error)
	// FindList returns the list with its items, or ErrListNotFound.
	FindList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error)
	// CreateList fails with ErrDuplicateList if (name, ownerID) exists.
	CreateList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error)
	// EnsureList returns the list, creating it if absent. Inside Atomically the
	// list row stays locked until the transaction ends.
	EnsureList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error)
	// DeleteList removes the list and its items. Absent lists are not an error.
	DeleteList(ctx context.Context, ownerID int64, name string) error

	Items(ctx context.Context, listID int64) ([]model.Todo, error)
	GetItem(ctx context.Context, ownerID, listID, itemID int64) (*model.Todo, error)
	// BulkCreate inserts items into list. The new ID is set only when exactly
	// one item is inserted.
	BulkCreate(ctx context.Context, list *model.TodoList, items []model.Todo) error
	// BulkUpdate writes task and completed of items belonging to listID.
	BulkUpdate(ctx context.Context, listID int64, items []model.Todo) error
	// BulkDelete removes the given item ids from listID.
	BulkDelete(ctx context.Context, listID int64, ids []int64) error

	// Atomically runs fn against a store bound to a single transaction.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx ItemStore) error) error
}
