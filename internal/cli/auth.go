package cli

import (
	"github.com/spf13/cobra"
)

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runRegister,
	}
}

func (a *App) runRegister(cmd *cobra.Command, args []string) error {
	username, err := a.usernameArg(args)
	if err != nil {
		return err
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	resp, err := a.api.Register(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	a.printf("%s\n", resp.Message)
	return nil
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store the session token",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runLogin,
	}
}

func (a *App) runLogin(cmd *cobra.Command, args []string) error {
	username, err := a.usernameArg(args)
	if err != nil {
		return err
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	resp, err := a.api.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}

	a.cfg.Username = resp.Username
	a.storeToken(resp.Token)
	a.printf("Logged in as %s.\n", resp.Username)
	return nil
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.endSession(); err != nil {
				return err
			}
			a.printf("Logged out.\n")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			me, err := a.api.Me(cmd.Context())
			if err != nil {
				return a.sessionLost(err)
			}
			a.printf("%s (id %d, since %s)\n", me.Username, me.ID, me.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}

func (a *App) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the session token for a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.api.Token() == "" {
				return errNotLoggedIn
			}
			token, err := a.api.Refresh(cmd.Context())
			if err != nil {
				return a.sessionLost(err)
			}
			a.storeToken(token)
			a.printf("Session refreshed.\n")
			return nil
		},
	}
}
