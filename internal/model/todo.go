package model

import "time"

// TodoList is a named list owned by a single user.
type TodoList struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []Todo
}

// Todo is a single list item. UserID duplicates the owning list's owner.
type Todo struct {
	ID        int64
	ListID    int64
	UserID    int64
	Task      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoInput is one entry of a client's desired list state.
// A nil ID asks for a new item.
type TodoInput struct {
	ID        *int64 `json:"id,omitempty"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// ReconcileRequest is the body of PUT /todos/{listName}.
type ReconcileRequest struct {
	Todos *[]TodoInput `json:"todos"`
}

// ItemPatch is the body of PUT /todos/{listName}/todos/{id}.
// Absent fields are left untouched.
type ItemPatch struct {
	Task      *string `json:"task"`
	Completed *bool   `json:"completed"`
}

// TodoResponse is a todo as returned to clients.
type TodoResponse struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TodoListResponse describes a list without its items.
type TodoListResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateListResponse is returned by POST /todos/{listName}.
type CreateListResponse struct {
	Message  string           `json:"message"`
	TodoList TodoListResponse `json:"todoList"`
}

// SummaryResponse counts a list's items by completion.
type SummaryResponse struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Incomplete int `json:"incomplete"`
}

// ToResponse converts a Todo for the wire.
func (t Todo) ToResponse() TodoResponse {
	return TodoResponse{
		ID:        t.ID,
		Task:      t.Task,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
