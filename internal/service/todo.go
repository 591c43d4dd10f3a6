package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/repository"
)

const (
	maxListNameLength = 255
	maxTaskLength     = 255
	// MaxTodosPerList bounds a single reconciliation payload.
	MaxTodosPerList = 1000
)

var (
	ErrUserNotFound     = apperr.New(apperr.KindNotFound, "User not found.")
	ErrListNotFound     = apperr.New(apperr.KindNotFound, "Todo list not found.")
	ErrItemNotFound     = apperr.New(apperr.KindNotFound, "Todo item not found.")
	ErrListExists       = apperr.New(apperr.KindConflict, "A todo list with this name already exists.")
	ErrInvalidTodos     = apperr.New(apperr.KindValidation, "Invalid todos data.")
	ErrTooManyTodos     = apperr.New(apperr.KindValidation, "Too many todos in one list.")
	ErrTaskRequired     = apperr.New(apperr.KindValidation, "Todo task must not be empty.")
	ErrTaskTooLong      = apperr.New(apperr.KindValidation, "Todo task must be at most 255 characters long.")
	ErrListNameRequired = apperr.New(apperr.KindValidation, "Todo list name must not be empty.")
	ErrListNameTooLong  = apperr.New(apperr.KindValidation, "Todo list name must be at most 255 characters long.")
)

// TodoService handles todo lists, their reconciliation and single-item edits.
type TodoService struct {
	items repository.ItemStore
	users repository.CredentialStore
}

// NewTodoService creates a new TodoService.
func NewTodoService(items repository.ItemStore, users repository.CredentialStore) *TodoService {
	return &TodoService{items: items, users: users}
}

// ListNames returns the names of all lists owned by ownerID.
func (s *TodoService) ListNames(ctx context.Context, ownerID int64) ([]string, error) {
	names, err := s.items.ListNames(ctx, ownerID)
	if err != nil {
		return nil, s.storeError(ctx, "list names", err)
	}
	return names, nil
}

// GetList returns the items of a list.
func (s *TodoService) GetList(ctx context.Context, ownerID int64, name string) ([]model.TodoResponse, error) {
	list, err := s.findList(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	return todosToResponse(list.Items), nil
}

// Summary counts the completed and incomplete items of a list.
func (s *TodoService) Summary(ctx context.Context, ownerID int64, name string) (model.SummaryResponse, error) {
	list, err := s.findList(ctx, ownerID, name)
	if err != nil {
		return model.SummaryResponse{}, err
	}

	sum := model.SummaryResponse{Total: len(list.Items)}
	for _, it := range list.Items {
		if it.Completed {
			sum.Completed++
		}
	}
	sum.Incomplete = sum.Total - sum.Completed
	return sum, nil
}

// CreateList creates an empty list. Unlike Reconcile it fails when the name is taken.
func (s *TodoService) CreateList(ctx context.Context, ownerID int64, name string) (model.CreateListResponse, error) {
	if err := validateListName(name); err != nil {
		return model.CreateListResponse{}, err
	}
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return model.CreateListResponse{}, err
	}

	list, err := s.items.CreateList(ctx, ownerID, name)
	if err != nil {
		return model.CreateListResponse{}, s.storeError(ctx, "create list", err)
	}

	return model.CreateListResponse{
		Message: fmt.Sprintf("Todo list %s created.", name),
		TodoList: model.TodoListResponse{
			ID:        list.ID,
			Name:      list.Name,
			CreatedAt: list.CreatedAt,
			UpdatedAt: list.UpdatedAt,
		},
	}, nil
}

// DeleteList removes a list and its items. Deleting an absent list succeeds.
func (s *TodoService) DeleteList(ctx context.Context, ownerID int64, name string) (model.MessageResponse, error) {
	if err := s.items.DeleteList(ctx, ownerID, name); err != nil {
		return model.MessageResponse{}, s.storeError(ctx, "delete list", err)
	}
	return model.MessageResponse{Message: fmt.Sprintf("Todo list %s deleted.", name)}, nil
}

// Reconcile makes the items of the named list exactly targets, creating the
// list if needed. Creates, updates and deletes are applied in one transaction.
func (s *TodoService) Reconcile(ctx context.Context, ownerID int64, name string, targets []model.TodoInput) error {
	if err := validateListName(name); err != nil {
		return err
	}
	if len(targets) > MaxTodosPerList {
		return ErrTooManyTodos
	}
	for _, t := range targets {
		if err := validateTask(t.Task); err != nil {
			return err
		}
	}
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return err
	}

	var plan ReconcilePlan
	err := s.items.Atomically(ctx, func(ctx context.Context, tx repository.ItemStore) error {
		list, err := tx.EnsureList(ctx, ownerID, name)
		if err != nil {
			return fmt.Errorf("ensure list: %w", err)
		}

		existing, err := tx.Items(ctx, list.ID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		plan = PlanReconcile(existing, targets)

		if err := tx.BulkCreate(ctx, list, plan.Create); err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		if err := tx.BulkUpdate(ctx, list.ID, plan.Update); err != nil {
			return fmt.Errorf("update items: %w", err)
		}
		if err := tx.BulkDelete(ctx, list.ID, plan.Delete); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.storeError(ctx, "reconcile list", err)
	}

	slog.InfoContext(ctx, "list reconciled",
		"user_id", ownerID,
		"list", name,
		"created", len(plan.Create),
		"updated", len(plan.Update),
		"deleted", len(plan.Delete),
		"unchanged", plan.Unchanged,
	)
	return nil
}

// GetItem returns one item of a list owned by ownerID.
func (s *TodoService) GetItem(ctx context.Context, ownerID int64, name string, itemID int64) (model.TodoResponse, error) {
	list, err := s.findList(ctx, ownerID, name)
	if err != nil {
		return model.TodoResponse{}, err
	}

	item, err := s.items.GetItem(ctx, ownerID, list.ID, itemID)
	if err != nil {
		return model.TodoResponse{}, s.storeError(ctx, "get item", err)
	}
	return item.ToResponse(), nil
}

// CreateItem appends a new item to an existing list.
func (s *TodoService) CreateItem(ctx context.Context, ownerID int64, name string, in model.TodoInput) (model.TodoResponse, error) {
	if err := validateTask(in.Task); err != nil {
		return model.TodoResponse{}, err
	}

	var created model.Todo
	err := s.items.Atomically(ctx, func(ctx context.Context, tx repository.ItemStore) error {
		list, err := tx.FindList(ctx, ownerID, name)
		if err != nil {
			return err
		}
		items := []model.Todo{{Task: in.Task, Completed: in.Completed}}
		if err := tx.BulkCreate(ctx, list, items); err != nil {
			return err
		}
		created = items[0]
		return nil
	})
	if err != nil {
		return model.TodoResponse{}, s.storeError(ctx, "create item", err)
	}
	return created.ToResponse(), nil
}

// UpdateItem applies patch to one item. Items of other owners are reported as not found.
func (s *TodoService) UpdateItem(ctx context.Context, ownerID int64, name string, itemID int64, patch model.ItemPatch) (model.TodoResponse, error) {
	if patch.Task != nil {
		if err := validateTask(*patch.Task); err != nil {
			return model.TodoResponse{}, err
		}
	}

	var updated model.Todo
	err := s.items.Atomically(ctx, func(ctx context.Context, tx repository.ItemStore) error {
		list, err := tx.FindList(ctx, ownerID, name)
		if err != nil {
			return err
		}
		item, err := tx.GetItem(ctx, ownerID, list.ID, itemID)
		if err != nil {
			return err
		}
		if patch.Task != nil {
			item.Task = *patch.Task
		}
		if patch.Completed != nil {
			item.Completed = *patch.Completed
		}
		if err := tx.BulkUpdate(ctx, list.ID, []model.Todo{*item}); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return model.TodoResponse{}, s.storeError(ctx, "update item", err)
	}
	return updated.ToResponse(), nil
}

// DeleteItem removes one item. Items of other owners are reported as not found.
func (s *TodoService) DeleteItem(ctx context.Context, ownerID int64, name string, itemID int64) (model.MessageResponse, error) {
	err := s.items.Atomically(ctx, func(ctx context.Context, tx repository.ItemStore) error {
		list, err := tx.FindList(ctx, ownerID, name)
		if err != nil {
			return err
		}
		if _, err := tx.GetItem(ctx, ownerID, list.ID, itemID); err != nil {
			return err
		}
		return tx.BulkDelete(ctx, list.ID, []int64{itemID})
	})
	if err != nil {
		return model.MessageResponse{}, s.storeError(ctx, "delete item", err)
	}
	return model.MessageResponse{Message: "Todo item deleted successfully."}, nil
}

func (s *TodoService) findList(ctx context.Context, ownerID int64, name string) (*model.TodoList, error) {
	list, err := s.items.FindList(ctx, ownerID, name)
	if err != nil {
		return nil, s.storeError(ctx, "find list", err)
	}
	return list, nil
}

func (s *TodoService) requireOwner(ctx context.Context, ownerID int64) error {
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return s.storeError(ctx, "lookup owner", err)
	}
	return nil
}

// storeError maps repository failures onto the public error taxonomy.
// Anything unrecognised is logged and reported as a server error.
func (s *TodoService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrListNotFound):
		return ErrListNotFound
	case errors.Is(err, repository.ErrItemNotFound):
		return ErrItemNotFound
	case errors.Is(err, repository.ErrDuplicateList):
		return ErrListExists
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	slog.ErrorContext(ctx, "store operation failed", "op", op, "error", err)
	return apperr.Server(fmt.Errorf("%s: %w", op, err))
}

func validateListName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrListNameRequired
	}
	if utf8.RuneCountInString(name) > maxListNameLength {
		return ErrListNameTooLong
	}
	return nil
}

func validateTask(task string) error {
	if strings.TrimSpace(task) == "" {
		return ErrTaskRequired
	}
	if utf8.RuneCountInString(task) > maxTaskLength {
		return ErrTaskTooLong
	}
	return nil
}

// todosToResponse converts items for the wire; never returns nil.
func todosToResponse(items []model.Todo) []model.TodoResponse {
	result := make([]model.TodoResponse, len(items))
	for i, it := range items {
		result[i] = it.ToResponse()
	}
	return result
}
