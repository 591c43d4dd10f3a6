// Package client talks to the todo list server and holds the client-side state
// machines: the list reducer, the session keeper and the save debouncer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/todolists/todolists-go/internal/model"
)

// ErrUnauthorized matches any 401 response. Callers treat it as a forced logout.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response. A 401 APIError matches ErrUnauthorized.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// API is a typed HTTP client for the server routes. It is safe for concurrent use.
type API struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

// NewAPI creates a client for the server at baseURL, e.g. "http://localhost:8080".
func NewAPI(baseURL string) *API {
	return &API{
		base: strings.TrimRight(baseURL, "/") + "/api",
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token sent with every request. An empty token clears it.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Close releases idle connections.
func (a *API) Close() {
	a.http.CloseIdleConnections()
}

// Token returns the current bearer token.
func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) Register(ctx context.Context, username, password string) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := a.do(ctx, http.MethodPost, "/users/register", model.CredentialsRequest{Username: username, Password: password}, &resp)
	return resp, err
}

// Login authenticates and stores the issued token on the client.
func (a *API) Login(ctx context.Context, username, password string) (model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := a.do(ctx, http.MethodPost, "/users/login", model.CredentialsRequest{Username: username, Password: password}, &resp); err != nil {
		return model.LoginResponse{}, err
	}
	a.SetToken(resp.Token)
	return resp, nil
}

// Refresh exchanges the current token for a fresh one and stores it.
func (a *API) Refresh(ctx context.Context) (string, error) {
	var resp model.TokenResponse
	if err := a.do(ctx, http.MethodPost, "/users/refresh-token", nil, &resp); err != nil {
		return "", err
	}
	a.SetToken(resp.Token)
	return resp.Token, nil
}

func (a *API) Me(ctx context.Context) (model.UserResponse, error) {
	var resp model.UserResponse
	err := a.do(ctx, http.MethodGet, "/users/me", nil, &resp)
	return resp, err
}

func (a *API) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := a.do(ctx, http.MethodGet, "/todos", nil, &names)
	return names, err
}

func (a *API) GetList(ctx context.Context, name string) ([]model.TodoResponse, error) {
	var todos []model.TodoResponse
	err := a.do(ctx, http.MethodGet, listPath(name), nil, &todos)
	return todos, err
}

func (a *API) CreateList(ctx context.Context, name string) (model.CreateListResponse, error) {
	var resp model.CreateListResponse
	err := a.do(ctx, http.MethodPost, listPath(name), nil, &resp)
	return resp, err
}

// SaveList replaces the items of the named list with todos.
func (a *API) SaveList(ctx context.Context, name string, todos []model.TodoInput) error {
	if todos == nil {
		todos = []model.TodoInput{}
	}
	return a.do(ctx, http.MethodPut, listPath(name), model.ReconcileRequest{Todos: &todos}, nil)
}

func (a *API) DeleteList(ctx context.Context, name string) error {
	return a.do(ctx, http.MethodDelete, listPath(name), nil, nil)
}

func (a *API) Summary(ctx context.Context, name string) (model.SummaryResponse, error) {
	var resp model.SummaryResponse
	err := a.do(ctx, http.MethodGet, listPath(name)+"/summary", nil, &resp)
	return resp, err
}

func (a *API) AddItem(ctx context.Context, list, task string) (model.TodoResponse, error) {
	var resp model.TodoResponse
	err := a.do(ctx, http.MethodPost, listPath(list)+"/todos", model.TodoInput{Task: task}, &resp)
	return resp, err
}

func (a *API) UpdateItem(ctx context.Context, list string, id int64, patch model.ItemPatch) (model.TodoResponse, error) {
	var resp model.TodoResponse
	err := a.do(ctx, http.MethodPut, itemPath(list, id), patch, &resp)
	return resp, err
}

func (a *API) DeleteItem(ctx context.Context, list string, id int64) error {
	return a.do(ctx, http.MethodDelete, itemPath(list, id), nil, nil)
}

func listPath(name string) string {
	return "/todos/" + url.PathEscape(name)
}

func itemPath(list string, id int64) string {
	return listPath(list) + "/todos/" + strconv.FormatInt(id, 10)
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := a.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Message = eb.Message
			apiErr.Fields = eb.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
