// Package repotest provides in-memory implementations of the repository stores
// for tests of the layers above it.
package repotest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/repository"
)

// Users is an in-memory repository.CredentialStore.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.User
}

// NewUsers returns an empty Users store.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]model.User)}
}

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.byID {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	u.nextID++
	now := time.Now().UTC()
	user.ID = u.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	u.byID[user.ID] = *user
	return nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.byID {
		if existing.Username == username {
			return &existing, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	existing, ok := u.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &existing, nil
}

// Remove deletes a user record, leaving its lists in place.
func (u *Users) Remove(id int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.byID, id)
}

type memData struct {
	nextListID int64
	nextItemID int64
	lists      map[int64]model.TodoList
	items      map[int64]model.Todo
}

func (d *memData) clone() *memData {
	c := &memData{
		nextListID: d.nextListID,
		nextItemID: d.nextItemID,
		lists:      make(map[int64]model.TodoList, len(d.lists)),
		items:      make(map[int64]model.Todo, len(d.items)),
	}
	for k, v := range d.lists {
		c.lists[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	return c
}

// Store is an in-memory repository.ItemStore. Atomically serialises
// transactions and restores a snapshot when fn fails.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *memData
	fail map[string]error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		data: &memData{lists: make(map[int64]model.TodoList), items: make(map[int64]model.Todo)},
		fail: make(map[string]error),
	}
}

// FailOn makes the named method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

// ItemCount returns the number of items stored across all lists.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.items)
}

func (s *Store) injected(method string) error {
	return s.fail[method]
}

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx repository.ItemStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, boundStore{s}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) ListNames(_ context.Context, ownerID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ListNames"); err != nil {
		return nil, err
	}

	names := []string{}
	for _, l := range s.data.lists {
		if l.UserID == ownerID {
			names = append(names, l.Name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) FindList(_ context.Context, ownerID int64, name string) (*model.TodoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("FindList"); err != nil {
		return nil, err
	}

	l, ok := s.lookup(ownerID, name)
	if !ok {
		return nil, repository.ErrListNotFound
	}
	l.Items = s.itemsOf(l.ID)
	return &l, nil
}

func (s *Store) CreateList(_ context.Context, ownerID int64, name string) (*model.TodoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateList"); err != nil {
		return nil, err
	}

	if _, ok := s.lookup(ownerID, name); ok {
		return nil, repository.ErrDuplicateList
	}
	l := s.insertList(ownerID, name)
	return &l, nil
}

func (s *Store) EnsureList(_ context.Context, ownerID int64, name string) (*model.TodoList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("EnsureList"); err != nil {
		return nil, err
	}

	l, ok := s.lookup(ownerID, name)
	if !ok {
		l = s.insertList(ownerID, name)
	}
	return &l, nil
}

func (s *Store) DeleteList(_ context.Context, ownerID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteList"); err != nil {
		return err
	}

	l, ok := s.lookup(ownerID, name)
	if !ok {
		return nil
	}
	delete(s.data.lists, l.ID)
	for id, it := range s.data.items {
		if it.ListID == l.ID {
			delete(s.data.items, id)
		}
	}
	return nil
}

func (s *Store) Items(_ context.Context, listID int64) ([]model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Items"); err != nil {
		return nil, err
	}
	return s.itemsOf(listID), nil
}

func (s *Store) GetItem(_ context.Context, ownerID, listID, itemID int64) (*model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetItem"); err != nil {
		return nil, err
	}

	it, ok := s.data.items[itemID]
	if !ok || it.ListID != listID || it.UserID != ownerID {
		return nil, repository.ErrItemNotFound
	}
	return &it, nil
}

func (s *Store) BulkCreate(_ context.Context, list *model.TodoList, items []model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("BulkCreate"); err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range items {
		s.data.nextItemID++
		items[i].ID = s.data.nextItemID
		items[i].ListID = list.ID
		items[i].UserID = list.UserID
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
		s.data.items[items[i].ID] = items[i]
	}
	return nil
}

func (s *Store) BulkUpdate(_ context.Context, listID int64, items []model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("BulkUpdate"); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, upd := range items {
		cur, ok := s.data.items[upd.ID]
		if !ok || cur.ListID != listID {
			continue
		}
		cur.Task = upd.Task
		cur.Completed = upd.Completed
		cur.UpdatedAt = now
		s.data.items[upd.ID] = cur
	}
	return nil
}

func (s *Store) BulkDelete(_ context.Context, listID int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("BulkDelete"); err != nil {
		return err
	}

	for _, id := range ids {
		if cur, ok := s.data.items[id]; ok && cur.ListID == listID {
			delete(s.data.items, id)
		}
	}
	return nil
}

func (s *Store) lookup(ownerID int64, name string) (model.TodoList, bool) {
	for _, l := range s.data.lists {
		if l.UserID == ownerID && strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return model.TodoList{}, false
}

func (s *Store) insertList(ownerID int64, name string) model.TodoList {
	s.data.nextListID++
	now := time.Now().UTC()
	l := model.TodoList{ID: s.data.nextListID, UserID: ownerID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.data.lists[l.ID] = l
	return l
}

func (s *Store) itemsOf(listID int64) []model.Todo {
	items := []model.Todo{}
	for _, it := range s.data.items {
		if it.ListID == listID {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b model.Todo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return items
}

// boundStore is the store handed to an Atomically callback. Nested calls
// join the running transaction.
type boundStore struct {
	*Store
}

func (b boundStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx repository.ItemStore) error) error {
	return fn(ctx, b)
}
