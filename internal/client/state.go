package client

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/todolists/todolists-go/internal/model"
)

// Item is a todo as held by the client. Key addresses it locally; ID is set
// once the server has stored it.
type Item struct {
	Key       string
	ID        *int64
	Task      string
	Completed bool
}

// State is the client view of one list. It changes only through Reduce.
type State struct {
	ListName string
	Todos    []Item
	Err      string
}

// Targets builds the reconciliation payload for the current items.
func (s State) Targets() []model.TodoInput {
	out := make([]model.TodoInput, len(s.Todos))
	for i, it := range s.Todos {
		out[i] = model.TodoInput{ID: it.ID, Task: it.Task, Completed: it.Completed}
	}
	return out
}

// Find returns the item with key.
func (s State) Find(key string) (Item, bool) {
	for _, it := range s.Todos {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Command is a state transition consumed by Reduce.
type Command interface {
	apply(State) State
}

// SetTodos replaces the items with a server snapshot.
type SetTodos struct{ Todos []model.TodoResponse }

// SetListName switches to another list.
type SetListName struct{ Name string }

// AddTodo appends an unsaved item.
type AddTodo struct {
	Task string
	// Key is generated when empty.
	Key string
}

// UpdateTodo overwrites the task of the item with Key.
type UpdateTodo struct {
	Key  string
	Task string
}

// DeleteTodo removes the item with Key.
type DeleteTodo struct{ Key string }

// ToggleTodo flips the completed flag of the item with Key.
type ToggleTodo struct{ Key string }

// SetError records a message for display.
type SetError struct{ Message string }

// ClearError drops the current message.
type ClearError struct{}

// Reduce returns the state after cmd. It never mutates s.
func Reduce(s State, cmd Command) State {
	return cmd.apply(s)
}

func (c SetTodos) apply(s State) State {
	todos := make([]Item, len(c.Todos))
	for i, t := range c.Todos {
		id := t.ID
		todos[i] = Item{Key: savedKey(id), ID: &id, Task: t.Task, Completed: t.Completed}
	}
	s.Todos = todos
	return s
}

func (c SetListName) apply(s State) State {
	s.ListName = c.Name
	return s
}

func (c AddTodo) apply(s State) State {
	key := c.Key
	if key == "" {
		key = uuid.NewString()
	}
	todos := make([]Item, 0, len(s.Todos)+1)
	todos = append(todos, s.Todos...)
	s.Todos = append(todos, Item{Key: key, Task: c.Task})
	return s
}

func (c UpdateTodo) apply(s State) State {
	return mapItem(s, c.Key, func(it Item) Item {
		it.Task = c.Task
		return it
	})
}

func (c DeleteTodo) apply(s State) State {
	todos := make([]Item, 0, len(s.Todos))
	for _, it := range s.Todos {
		if it.Key != c.Key {
			todos = append(todos, it)
		}
	}
	s.Todos = todos
	return s
}

func (c ToggleTodo) apply(s State) State {
	return mapItem(s, c.Key, func(it Item) Item {
		it.Completed = !it.Completed
		return it
	})
}

func (c SetError) apply(s State) State {
	s.Err = c.Message
	return s
}

func (ClearError) apply(s State) State {
	s.Err = ""
	return s
}

func mapItem(s State, key string, f func(Item) Item) State {
	todos := make([]Item, len(s.Todos))
	for i, it := range s.Todos {
		if it.Key == key {
			it = f(it)
		}
		todos[i] = it
	}
	s.Todos = todos
	return s
}

// savedKey is the stable key of an item the server has stored.
func savedKey(id int64) string {
	return "id:" + strconv.FormatInt(id, 10)
}
