package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/todolists/todolists-go/internal/model"
)

func (a *App) listsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show the names of your lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			names, err := a.api.ListNames(cmd.Context())
			if err != nil {
				return a.sessionLost(err)
			}
			if len(names) == 0 {
				a.printf("No lists yet.\n")
			}
			for _, n := range names {
				a.printf("%s\n", n)
			}
			return nil
		},
	}
}

func (a *App) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <list>",
		Short: "Show the items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			todos, err := a.api.GetList(cmd.Context(), args[0])
			if err != nil {
				return a.sessionLost(err)
			}
			a.printTodos(todos)
			return nil
		},
	}
}

func (a *App) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <list>",
		Short: "Create an empty list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			resp, err := a.api.CreateList(cmd.Context(), args[0])
			if err != nil {
				return a.sessionLost(err)
			}
			a.printf("%s\n", resp.Message)
			return nil
		},
	}
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list>",
		Short: "Delete a list and all its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := a.api.DeleteList(cmd.Context(), args[0]); err != nil {
				return a.sessionLost(err)
			}
			a.printf("Deleted %s.\n", args[0])
			return nil
		},
	}
}

func (a *App) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <list>",
		Short: "Count done and open items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			sum, err := a.api.Summary(cmd.Context(), args[0])
			if err != nil {
				return a.sessionLost(err)
			}
			a.printf("%d items: %d done, %d open\n", sum.Total, sum.Completed, sum.Incomplete)
			return nil
		},
	}
}

func (a *App) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <list> <task...>",
		Short: "Add an item to an existing list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			item, err := a.api.AddItem(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return a.sessionLost(err)
			}
			a.printf("Added %q (id %d).\n", item.Task, item.ID)
			return nil
		},
	}
}

func (a *App) doneCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <list> <id>",
		Short: "Mark an item as completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			completed := !undo
			item, err := a.api.UpdateItem(cmd.Context(), args[0], id, model.ItemPatch{Completed: &completed})
			if err != nil {
				return a.sessionLost(err)
			}
			a.printf("%s\n", formatTodo(0, item))
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the item as not completed")
	return cmd
}

func (a *App) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <list> <id>",
		Short: "Remove an item from a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := a.api.DeleteItem(cmd.Context(), args[0], id); err != nil {
				return a.sessionLost(err)
			}
			a.printf("Removed item %d.\n", id)
			return nil
		},
	}
}

func (a *App) printTodos(todos []model.TodoResponse) {
	if len(todos) == 0 {
		a.printf("The list is empty.\n")
		return
	}
	for i, t := range todos {
		a.printf("%s\n", formatTodo(i+1, t))
	}
}

func formatTodo(pos int, t model.TodoResponse) string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	if pos == 0 {
		return fmt.Sprintf("[%s] %s (id %d)", mark, t.Task, t.ID)
	}
	return fmt.Sprintf("%2d. [%s] %s (id %d)", pos, mark, t.Task, t.ID)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}
