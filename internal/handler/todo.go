package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/service"
	"github.com/todolists/todolists-go/internal/session"
)

var errInvalidItemID = apperr.New(apperr.KindValidation, "Invalid todo item id.")

// TodoHandler handles HTTP requests for todo lists and their items.
// Every route sits behind the request gate.
type TodoHandler struct {
	service *service.TodoService
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{service: svc}
}

// HandleListNames handles GET /api/todos requests.
func (h *TodoHandler) HandleListNames(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	names, err := h.service.ListNames(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, names)
}

// HandleGetList handles GET /api/todos/{listName} requests.
func (h *TodoHandler) HandleGetList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	todos, err := h.service.GetList(r.Context(), id.UserID, listName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

// HandleCreateList handles POST /api/todos/{listName} requests.
func (h *TodoHandler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	resp, err := h.service.CreateList(r.Context(), id.UserID, listName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleReconcile handles PUT /api/todos/{listName} requests.
func (h *TodoHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	// A todos value that is not an array is invalid todos, not a malformed body.
	var req struct {
		Todos json.RawMessage `json:"todos"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var todos *[]model.TodoInput
	if len(req.Todos) == 0 || json.Unmarshal(req.Todos, &todos) != nil || todos == nil {
		writeError(w, r, service.ErrInvalidTodos)
		return
	}

	name := listName(r)
	if err := h.service.Reconcile(r.Context(), id.UserID, name, *todos); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: fmt.Sprintf("Todo list %s saved.", name)})
}

// HandleDeleteList handles DELETE /api/todos/{listName} requests.
func (h *TodoHandler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	resp, err := h.service.DeleteList(r.Context(), id.UserID, listName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleSummary handles GET /api/todos/{listName}/summary requests.
func (h *TodoHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Summary(r.Context(), id.UserID, listName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleListItems handles GET /api/todos/{listName}/todos requests.
func (h *TodoHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	h.HandleGetList(w, r)
}

// HandleCreateItem handles POST /api/todos/{listName}/todos requests.
func (h *TodoHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req model.TodoInput
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.CreateItem(r.Context(), id.UserID, listName(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleGetItem handles GET /api/todos/{listName}/todos/{id} requests.
func (h *TodoHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.GetItem(r.Context(), id.UserID, listName(r), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdateItem handles PUT /api/todos/{listName}/todos/{id} requests.
func (h *TodoHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var patch model.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	resp, err := h.service.UpdateItem(r.Context(), id.UserID, listName(r), itemID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDeleteItem handles DELETE /api/todos/{listName}/todos/{id} requests.
func (h *TodoHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	itemID, ok := parseItemID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.DeleteItem(r.Context(), id.UserID, listName(r), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func identity(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	id, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, session.ErrInvalidToken)
	}
	return id, ok
}

// listName returns the decoded {listName} path segment.
func listName(r *http.Request) string {
	raw := chi.URLParam(r, "listName")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, r, errInvalidItemID)
		return 0, false
	}
	return itemID, true
}
