package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/repository/repotest"
)

type todoFixture struct {
	svc   *TodoService
	items *repotest.Store
	users *repotest.Users
	alice int64
	bob   int64
}

func newTodoFixture(t *testing.T) *todoFixture {
	t.Helper()

	users := repotest.NewUsers()
	items := repotest.NewStore()
	ctx := context.Background()

	alice := &model.User{Username: "alice", PasswordHash: "x"}
	bob := &model.User{Username: "bob", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	return &todoFixture{
		svc:   NewTodoService(items, users),
		items: items,
		users: users,
		alice: alice.ID,
		bob:   bob.ID,
	}
}

func tasks(todos []model.TodoResponse) []string {
	out := make([]string, len(todos))
	for i, td := range todos {
		out[i] = td.Task
	}
	return out
}

func TestReconcile_AliceScenario(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "groceries", []model.TodoInput{
		{Task: "milk"},
		{Task: "eggs"},
	}))

	names, err := f.svc.ListNames(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"groceries"}, names)

	list, err := f.svc.GetList(ctx, f.alice, "groceries")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"milk", "eggs"}, tasks(list))

	// Tick eggs, drop milk, add bread.
	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "groceries", []model.TodoInput{
		{ID: &list[1].ID, Task: "eggs", Completed: true},
		{Task: "bread"},
	}))

	list2, err := f.svc.GetList(ctx, f.alice, "groceries")
	require.NoError(t, err)
	require.Len(t, list2, 2)
	assert.Equal(t, list[1].ID, list2[0].ID, "matched item keeps its id")
	assert.True(t, list2[0].Completed)
	assert.Equal(t, "bread", list2[1].Task)

	sum, err := f.svc.Summary(ctx, f.alice, "groceries")
	require.NoError(t, err)
	assert.Equal(t, model.SummaryResponse{Total: 2, Completed: 1, Incomplete: 1}, sum)

	_, err = f.svc.DeleteList(ctx, f.alice, "groceries")
	require.NoError(t, err)

	_, err = f.svc.GetList(ctx, f.alice, "groceries")
	assert.ErrorIs(t, err, ErrListNotFound)
	assert.Zero(t, f.items.ItemCount())
}

func TestReconcile_EmptyTargetsClearList(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "work", []model.TodoInput{{Task: "a"}, {Task: "b"}}))
	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "work", nil))

	list, err := f.svc.GetList(ctx, f.alice, "work")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestReconcile_ForeignIDBecomesCreate(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.bob, "secret", []model.TodoInput{{Task: "bob's item"}}))
	bobList, err := f.svc.GetList(ctx, f.bob, "secret")
	require.NoError(t, err)
	bobItem := bobList[0].ID

	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "mine", []model.TodoInput{
		{ID: &bobItem, Task: "hijack", Completed: true},
	}))

	bobList, err = f.svc.GetList(ctx, f.bob, "secret")
	require.NoError(t, err)
	require.Len(t, bobList, 1)
	assert.Equal(t, "bob's item", bobList[0].Task)
	assert.False(t, bobList[0].Completed)

	aliceList, err := f.svc.GetList(ctx, f.alice, "mine")
	require.NoError(t, err)
	require.Len(t, aliceList, 1)
	assert.NotEqual(t, bobItem, aliceList[0].ID)
}

func TestReconcile_Validation(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		list    string
		targets []model.TodoInput
		want    error
	}{
		{"blank list name", "  ", nil, ErrListNameRequired},
		{"long list name", strings.Repeat("n", 256), nil, ErrListNameTooLong},
		{"blank task", "work", []model.TodoInput{{Task: ""}}, ErrTaskRequired},
		{"long task", "work", []model.TodoInput{{Task: strings.Repeat("t", 256)}}, ErrTaskTooLong},
		{"too many", "work", make([]model.TodoInput, MaxTodosPerList+1), ErrTooManyTodos},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Reconcile(ctx, f.alice, tc.list, tc.targets)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	names, err := f.svc.ListNames(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReconcile_UnknownOwner(t *testing.T) {
	f := newTodoFixture(t)

	err := f.svc.Reconcile(context.Background(), 999, "work", []model.TodoInput{{Task: "x"}})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestReconcile_RollsBackOnFailure(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "work", []model.TodoInput{{Task: "keep"}, {Task: "drop"}}))
	before, err := f.svc.GetList(ctx, f.alice, "work")
	require.NoError(t, err)

	f.items.FailOn("BulkDelete", errors.New("connection lost"))
	err = f.svc.Reconcile(ctx, f.alice, "work", []model.TodoInput{
		{ID: &before[0].ID, Task: "keep", Completed: true},
		{Task: "new"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
	assert.Equal(t, "Server error.", apperr.MessageOf(err))

	f.items.FailOn("BulkDelete", nil)
	after, err := f.svc.GetList(ctx, f.alice, "work")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReconcile_RollsBackNewList(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	f.items.FailOn("BulkCreate", errors.New("disk full"))
	err := f.svc.Reconcile(ctx, f.alice, "fresh", []model.TodoInput{{Task: "x"}})
	require.Error(t, err)

	names, err := f.svc.ListNames(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCreateList(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CreateList(ctx, f.alice, "work")
	require.NoError(t, err)
	assert.Equal(t, "Todo list work created.", resp.Message)
	assert.Equal(t, "work", resp.TodoList.Name)
	assert.NotZero(t, resp.TodoList.ID)

	_, err = f.svc.CreateList(ctx, f.alice, "work")
	assert.ErrorIs(t, err, ErrListExists)

	// Names are scoped per owner.
	_, err = f.svc.CreateList(ctx, f.bob, "work")
	assert.NoError(t, err)

	_, err = f.svc.CreateList(ctx, 999, "work")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteList_Idempotent(t *testing.T) {
	f := newTodoFixture(t)

	resp, err := f.svc.DeleteList(context.Background(), f.alice, "never-existed")
	require.NoError(t, err)
	assert.Equal(t, "Todo list never-existed deleted.", resp.Message)
}

func TestDeleteList_OtherOwnerUntouched(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.bob, "work", []model.TodoInput{{Task: "b"}}))
	_, err := f.svc.DeleteList(ctx, f.alice, "work")
	require.NoError(t, err)

	list, err := f.svc.GetList(ctx, f.bob, "work")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListNames_Isolated(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "b-list", nil))
	require.NoError(t, f.svc.Reconcile(ctx, f.alice, "a-list", nil))
	require.NoError(t, f.svc.Reconcile(ctx, f.bob, "bobs", nil))

	names, err := f.svc.ListNames(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-list", "b-list"}, names)

	_, err = f.svc.GetList(ctx, f.bob, "a-list")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestListNames_StoreFailure(t *testing.T) {
	f := newTodoFixture(t)
	f.items.FailOn("ListNames", errors.New("boom"))

	_, err := f.svc.ListNames(context.Background(), f.alice)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
}

func TestItemOperations(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, f.alice, "work", model.TodoInput{Task: "x"})
	assert.ErrorIs(t, err, ErrListNotFound)

	_, err = f.svc.CreateList(ctx, f.alice, "work")
	require.NoError(t, err)

	created, err := f.svc.CreateItem(ctx, f.alice, "work", model.TodoInput{Task: "write report"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.Completed)

	got, err := f.svc.GetItem(ctx, f.alice, "work", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "write report", got.Task)

	done := true
	updated, err := f.svc.UpdateItem(ctx, f.alice, "work", created.ID, model.ItemPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "write report", updated.Task)

	empty := " "
	_, err = f.svc.UpdateItem(ctx, f.alice, "work", created.ID, model.ItemPatch{Task: &empty})
	assert.ErrorIs(t, err, ErrTaskRequired)

	msg, err := f.svc.DeleteItem(ctx, f.alice, "work", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Todo item deleted successfully.", msg.Message)

	_, err = f.svc.GetItem(ctx, f.alice, "work", created.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.svc.DeleteItem(ctx, f.alice, "work", created.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestItemOperations_OtherOwner(t *testing.T) {
	f := newTodoFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.bob, "work", []model.TodoInput{{Task: "bob"}}))
	bobList, err := f.svc.GetList(ctx, f.bob, "work")
	require.NoError(t, err)
	bobItem := bobList[0].ID

	_, err = f.svc.CreateList(ctx, f.alice, "work")
	require.NoError(t, err)

	_, err = f.svc.GetItem(ctx, f.alice, "work", bobItem)
	assert.ErrorIs(t, err, ErrItemNotFound)

	done := true
	_, err = f.svc.UpdateItem(ctx, f.alice, "work", bobItem, model.ItemPatch{Completed: &done})
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = f.svc.DeleteItem(ctx, f.alice, "work", bobItem)
	assert.ErrorIs(t, err, ErrItemNotFound)

	bobList, err = f.svc.GetList(ctx, f.bob, "work")
	require.NoError(t, err)
	require.Len(t, bobList, 1)
	assert.False(t, bobList[0].Completed)
}

func TestTodosToResponse_EmptySlice(t *testing.T) {
	result := todosToResponse(nil)

	if result == nil {
		t.Fatal("expected non-nil empty slice, got nil")
	}
	if len(result) != 0 {
		t.Errorf("expected length 0, got %d", len(result))
	}
}
