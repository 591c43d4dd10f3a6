package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todolists/todolists-go/internal/crypto"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/repository/repotest"
	"github.com/todolists/todolists-go/internal/service"
	"github.com/todolists/todolists-go/internal/session"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{t: t, now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	users := repotest.NewUsers()
	items := repotest.NewStore()
	hasher := crypto.NewArgon2Hasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	sessions := session.NewManager("handler-secret", time.Hour, session.WithClock(func() time.Time { return ts.now }))

	ts.router = NewRouter(RouterDeps{
		Auth:     service.NewAuthService(service.NewCredentials(users, hasher), sessions),
		Todos:    service.NewTodoService(items, users),
		Sessions: sessions,
	})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(username, password string) string {
	ts.t.Helper()

	rec := ts.do(http.MethodPost, "/api/users/register", "", model.CredentialsRequest{Username: username, Password: password})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/users/login", "", model.CredentialsRequest{Username: username, Password: password})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.LoginResponse
	require.NoError(ts.t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAliceGroceriesEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodPut, "/api/todos/groceries", token, map[string]any{
		"todos": []map[string]any{{"task": "milk", "completed": false}, {"task": "eggs", "completed": false}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Todo list groceries saved.", decode[model.MessageResponse](t, rec).Message)

	rec = ts.do(http.MethodGet, "/api/todos", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"groceries"}, decode[[]string](t, rec))

	rec = ts.do(http.MethodGet, "/api/todos/groceries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	todos := decode[[]model.TodoResponse](t, rec)
	require.Len(t, todos, 2)

	rec = ts.do(http.MethodPut, "/api/todos/groceries", token, map[string]any{
		"todos": []map[string]any{
			{"id": todos[0].ID, "task": "milk", "completed": true},
			{"id": todos[1].ID, "task": "eggs", "completed": false},
			{"task": "bread", "completed": false},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/todos/groceries/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.SummaryResponse{Total: 3, Completed: 1, Incomplete: 2}, decode[model.SummaryResponse](t, rec))

	rec = ts.do(http.MethodDelete, "/api/todos/groceries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Todo list groceries deleted.", decode[model.MessageResponse](t, rec).Message)

	rec = ts.do(http.MethodGet, "/api/todos/groceries", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo list not found.", decode[errorBody](t, rec).Message)

	// Deleting again still succeeds.
	rec = ts.do(http.MethodDelete, "/api/todos/groceries", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodPost, "/api/users/register", "", model.CredentialsRequest{Username: "alice", Password: "another1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already registered.", decode[errorBody](t, rec).Message)

	rec = ts.do(http.MethodPost, "/api/users/register", "", model.CredentialsRequest{Username: "al", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Contains(t, body.Errors, "username")
	assert.Contains(t, body.Errors, "password")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodPost, "/api/users/login", "", model.CredentialsRequest{Username: "alice", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials.", decode[errorBody](t, rec).Message)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"username":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(big))
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGate(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodGet, "/api/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[model.UserResponse](t, rec).Username)

	ts.now = ts.now.Add(time.Hour + time.Second)
	rec = ts.do(http.MethodGet, "/api/todos", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired.", decode[errorBody](t, rec).Message)
}

func TestRefreshToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	ts.now = ts.now.Add(50 * time.Minute)
	rec := ts.do(http.MethodPost, "/api/users/refresh-token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fresh := decode[model.TokenResponse](t, rec).Token

	ts.now = ts.now.Add(30 * time.Minute)
	rec = ts.do(http.MethodPost, "/api/users/refresh-token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/todos", fresh, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/users/refresh-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReconcile_InvalidTodos(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	tests := []struct {
		name string
		body any
	}{
		{"missing", map[string]any{"items": []string{}}},
		{"null", map[string]any{"todos": nil}},
		{"string", map[string]any{"todos": "milk"}},
		{"object", map[string]any{"todos": map[string]any{"task": "milk"}}},
		{"number", map[string]any{"todos": 42}},
		{"wrong element type", map[string]any{"todos": []any{map[string]any{"task": 5}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(http.MethodPut, "/api/todos/work", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid todos data.", decode[errorBody](t, rec).Message)
		})
	}

	rec := ts.do(http.MethodGet, "/api/todos", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]string](t, rec))
}

func TestCreateList_Collision(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodPost, "/api/todos/work", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.CreateListResponse](t, rec)
	assert.Equal(t, "work", created.TodoList.Name)

	rec = ts.do(http.MethodPost, "/api/todos/work", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "A todo list with this name already exists.", decode[errorBody](t, rec).Message)
}

func TestListNameIsDecoded(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login("alice", "s3cret!")

	rec := ts.do(http.MethodPost, "/api/todos/weekend%20chores", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/todos", token, nil)
	assert.Equal(t, []string{"weekend chores"}, decode[[]string](t, rec))
}

func TestItemRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login("alice", "s3cret!")
	bob := ts.login("bob", "hunter22")

	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/todos/work", alice, nil).Code)

	rec := ts.do(http.MethodPost, "/api/todos/work/todos", alice, model.TodoInput{Task: "report"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[model.TodoResponse](t, rec)

	path := "/api/todos/work/todos/" + jsonNumber(item.ID)

	rec = ts.do(http.MethodPut, path, alice, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.TodoResponse](t, rec).Completed)

	rec = ts.do(http.MethodGet, "/api/todos/work/todos", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.TodoResponse](t, rec), 1)

	// Bob cannot see alice's list or item.
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, path, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, path, bob, nil).Code)

	rec = ts.do(http.MethodGet, "/api/todos/work/todos/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Todo item deleted successfully.", decode[model.MessageResponse](t, rec).Message)

	rec = ts.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo item not found.", decode[errorBody](t, rec).Message)
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
