package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/spf13/cobra"
)

// credentials resolves the email from the flag or a prompt, then reads the
// password without echo.
func (a *App) credentials(email string) (string, string, error) {
	if email == "" {
		var err error
		email, err = GetSimpleText(a.in, "Email", a.out)
		if err != nil {
			return "", "", err
		}
	}
	pw, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(pw)
	return email, string(pw), nil
}

func (a *App) registerCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email)
			if err != nil {
				return err
			}
			u, err := a.client.Register(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := a.persist(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := a.credentials(email)
			if err != nil {
				return err
			}
			u, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := a.persist(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.client.Me(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if p == nil {
				fmt.Fprintln(a.out, "Not signed in")
				return nil
			}
			fmt.Fprintf(a.out, "id:     %s\nemail:  %s\nroles:  %s\n", p.ID, p.Email, strings.Join(p.Roles, ","))
			if p.GoogleSub != nil {
				fmt.Fprintf(a.out, "google: %s\n", *p.GoogleSub)
			}
			return nil
		},
	}
}

func (a *App) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the refresh token and get a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Refresh(cmd.Context()); err != nil {
				return describe(err)
			}
			if err := a.persist(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Session refreshed")
			return nil
		},
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				a.logger.Warn(cmd.Context(), "server logout failed", "error", err)
			}
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}
