package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/todolists/todolists-go/internal/middleware"
	"github.com/todolists/todolists-go/internal/service"
	"github.com/todolists/todolists-go/internal/session"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Auth     *service.AuthService
	Todos    *service.TodoService
	Sessions *session.Manager
	// AuthLimiter throttles the unauthenticated user routes. Nil disables it.
	AuthLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
}

// NewRouter mounts every route under /api plus /health.
func NewRouter(d RouterDeps) http.Handler {
	authHandler := NewAuthHandler(d.Auth)
	todoHandler := NewTodoHandler(d.Todos)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(d.AuthLimiter.Handler)
			}
			r.Post("/users/register", authHandler.HandleRegister)
			r.Post("/users/login", authHandler.HandleLogin)
			r.Post("/users/refresh-token", authHandler.HandleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(d.Sessions))

			r.Get("/users/me", authHandler.HandleMe)

			r.Get("/todos", todoHandler.HandleListNames)
			r.Route("/todos/{listName}", func(r chi.Router) {
				r.Get("/", todoHandler.HandleGetList)
				r.Post("/", todoHandler.HandleCreateList)
				r.Put("/", todoHandler.HandleReconcile)
				r.Delete("/", todoHandler.HandleDeleteList)
				r.Get("/summary", todoHandler.HandleSummary)

				r.Get("/todos", todoHandler.HandleListItems)
				r.Post("/todos", todoHandler.HandleCreateItem)
				r.Get("/todos/{id}", todoHandler.HandleGetItem)
				r.Put("/todos/{id}", todoHandler.HandleUpdateItem)
				r.Delete("/todos/{id}", todoHandler.HandleDeleteItem)
			})
		})
	})

	return r
}
