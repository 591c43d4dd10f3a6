package cli

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/todolists/todolists-go/internal/client"
	"github.com/todolists/todolists-go/internal/model"
)

const editHelp = `Commands:
  a <task>        add an item
  t <n>           toggle item n
  e <n> <task>    change the task of item n
  d <n>           delete item n
  l               show the list
  q               save and quit
`

// editor holds the list being edited. version counts local edits so a save
// result is only applied when nothing changed while it was in flight.
type editor struct {
	mu      sync.Mutex
	state   client.State
	version int

	// lost receives the first error showing the server rejected the session.
	lost chan error
}

type snapshot struct {
	state   client.State
	version int
}

func (e *editor) apply(cmd client.Command) snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = client.Reduce(e.state, cmd)
	e.version++
	return snapshot{state: e.state, version: e.version}
}

func (e *editor) current() client.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// saved adopts the server's items if no edit happened since version.
func (e *editor) saved(version int, todos []model.TodoResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.version == version {
		e.state = client.Reduce(e.state, client.SetTodos{Todos: todos})
		e.state = client.Reduce(e.state, client.ClearError{})
	}
}

func (e *editor) failed(err error) {
	e.mu.Lock()
	e.state = client.Reduce(e.state, client.SetError{Message: err.Error()})
	e.mu.Unlock()

	if errors.Is(err, client.ErrUnauthorized) {
		select {
		case e.lost <- err:
		default:
		}
	}
}

func (a *App) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <list>",
		Short: "Edit a list interactively; changes are saved as you go",
		Long: `Edit a list interactively. Changes are saved shortly after you stop
typing, and the session is refreshed in the background while you work.
A list that does not exist yet is created on the first save.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runEdit,
	}
}

func (a *App) runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := a.requireSession(ctx); err != nil {
		return err
	}

	name := args[0]
	ed := &editor{lost: make(chan error, 1)}
	ed.apply(client.SetListName{Name: name})

	todos, err := a.api.GetList(ctx, name)
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		a.printf("New list %s.\n", name)
	case err != nil:
		return a.sessionLost(err)
	default:
		ed.apply(client.SetTodos{Todos: todos})
	}

	saves := client.NewDebouncer(client.DefaultDebounce, func(s snapshot) {
		a.saveSnapshot(ctx, ed, s)
	})

	keeper := client.NewKeeper(a.api, client.KeeperConfig{OnRefresh: a.storeToken})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return keeper.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return a.editLoop(gctx, ed, saves)
	})

	if err := g.Wait(); err != nil {
		return a.sessionLost(err)
	}
	return nil
}

func (a *App) saveSnapshot(ctx context.Context, ed *editor, s snapshot) {
	if err := a.api.SaveList(ctx, s.state.ListName, s.state.Targets()); err != nil {
		ed.failed(err)
		a.printf("save failed: %v\n", err)
		return
	}
	todos, err := a.api.GetList(ctx, s.state.ListName)
	if err != nil {
		ed.failed(err)
		return
	}
	ed.saved(s.version, todos)
}

func (a *App) editLoop(ctx context.Context, ed *editor, saves *client.Debouncer[snapshot]) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- strings.TrimSpace(line):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	a.printf("%s", editHelp)
	a.printState(ed.current())

	for {
		select {
		case <-ctx.Done():
			// The session ended; unsaved edits cannot be sent.
			saves.Stop()
			return nil
		case err := <-ed.lost:
			saves.Stop()
			return err
		case line, ok := <-lines:
			if !ok || line == "q" {
				saves.Flush()
				saves.Stop()
				select {
				case err := <-ed.lost:
					return err
				default:
				}
				a.printState(ed.current())
				return nil
			}
			cmd, err := parseEditLine(line, ed.current())
			if err != nil {
				a.printf("%v\n", err)
				continue
			}
			if cmd == nil {
				a.printState(ed.current())
				continue
			}
			saves.Submit(ed.apply(cmd))
		}
	}
}

// parseEditLine turns one prompt line into a reducer command. A nil command
// with a nil error means "show the list".
func parseEditLine(line string, s client.State) (client.Command, error) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "l", "":
		return nil, nil
	case "a":
		if rest == "" {
			return nil, errors.New("usage: a <task>")
		}
		return client.AddTodo{Task: rest}, nil
	case "t", "d", "e":
		posArg, task, _ := strings.Cut(rest, " ")
		key, err := keyAt(s, posArg)
		if err != nil {
			return nil, err
		}
		switch verb {
		case "t":
			return client.ToggleTodo{Key: key}, nil
		case "d":
			return client.DeleteTodo{Key: key}, nil
		}
		task = strings.TrimSpace(task)
		if task == "" {
			return nil, errors.New("usage: e <n> <task>")
		}
		return client.UpdateTodo{Key: key, Task: task}, nil
	default:
		return nil, errors.New("unknown command, type l to list or q to quit")
	}
}

func keyAt(s client.State, posArg string) (string, error) {
	pos, err := strconv.Atoi(posArg)
	if err != nil || pos < 1 || pos > len(s.Todos) {
		return "", errors.New("no such item")
	}
	return s.Todos[pos-1].Key, nil
}

func (a *App) printState(s client.State) {
	a.printf("== %s ==\n", s.ListName)
	if s.Err != "" {
		a.printf("! %s\n", s.Err)
	}
	if len(s.Todos) == 0 {
		a.printf("(empty)\n")
	}
	for i, it := range s.Todos {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		suffix := ""
		if it.ID == nil {
			suffix = " *"
		}
		a.printf("%2d. [%s] %s%s\n", i+1, mark, it.Task, suffix)
	}
}
