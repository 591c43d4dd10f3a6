// Package cli implements listctl, a terminal client for the todo list server.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/todolists/todolists-go/internal/client"
)

var errNotLoggedIn = errors.New("not logged in: run 'listctl login' first")

// App carries what every command needs: IO, the persisted config and an API client.
type App struct {
	in  *bufio.Reader
	out io.Writer
	// outMu serialises writes from background saves and the prompt loop.
	outMu sync.Mutex

	configPath string
	server     string

	cfg *client.Config
	api *client.API
}

// NewRootCmd builds the listctl command tree reading from in and writing to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &App{in: bufio.NewReader(in), out: out}

	root := &cobra.Command{
		Use:   "listctl",
		Short: "Manage your todo lists from the terminal",
		Long: `listctl talks to a todo list server.

Log in once; the session token is kept in the config file and refreshed
automatically while it is still valid.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/listctl/config.yaml)")
	root.PersistentFlags().StringVar(&a.server, "server", "", "server URL, overrides the config file")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.listsCmd(),
		a.showCmd(),
		a.createCmd(),
		a.deleteCmd(),
		a.summaryCmd(),
		a.addCmd(),
		a.doneCmd(),
		a.rmCmd(),
		a.editCmd(),
	)

	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath == "" {
		path, err := client.DefaultConfigPath()
		if err != nil {
			return err
		}
		a.configPath = path
	}

	cfg, err := client.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.server != "" {
		cfg.Server = a.server
	}

	a.cfg = cfg
	a.api = client.NewAPI(cfg.Server)
	a.api.SetToken(cfg.Token)
	return nil
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// storeToken persists a newly issued token.
func (a *App) storeToken(token string) {
	a.cfg.Token = token
	if err := a.cfg.Save(a.configPath); err != nil {
		a.printf("warning: could not save session: %v\n", err)
	}
}

// endSession discards the stored session. Tokens cannot be revoked server
// side, so this is all logout does.
func (a *App) endSession() error {
	a.cfg.Logout()
	a.api.SetToken("")
	return a.cfg.Save(a.configPath)
}

// requireSession applies the refresh policy once before a command runs:
// refresh when close to expiry, log out when expired.
func (a *App) requireSession(ctx context.Context) error {
	keeper := client.NewKeeper(a.api, client.KeeperConfig{OnRefresh: a.storeToken})

	phase, err := keeper.Check(ctx)
	if err != nil {
		return a.sessionLost(err)
	}
	if phase == client.Unauthenticated {
		return errNotLoggedIn
	}
	return nil
}

// sessionLost turns a rejected or expired session into a logout.
// Other errors pass through.
func (a *App) sessionLost(err error) error {
	if !errors.Is(err, client.ErrUnauthorized) && !errors.Is(err, client.ErrSessionExpired) && !errors.Is(err, client.ErrTokenUnreadable) {
		return err
	}
	if saveErr := a.endSession(); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	return fmt.Errorf("session ended, log in again: %w", err)
}
