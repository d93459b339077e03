package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	email      string
	password   string
	signUpName string
)

// readPassword falls back to a line on stdin when --password is not set.
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func signUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := readPassword(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			if _, err := appCtx.SignUp(ctx, email, pwd, signUpName); err != nil {
				return err
			}
			cur, _ := appCtx.Session().Current()
			fmt.Printf("Welcome, %s! Your username is @%s\n", cur.DisplayName, cur.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&signUpName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func signInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := readPassword(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callCtx(cmd)
			defer cancel()
			if _, err := appCtx.SignIn(ctx, email, pwd); err != nil {
				return err
			}
			cur, _ := appCtx.Session().Current()
			fmt.Printf("Signed in as @%s\n", cur.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			if err := appCtx.SignOut(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "server sign-out failed; local session cleared")
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, ok := appCtx.Session().Current()
			if !ok {
				fmt.Println("Not signed in")
				return nil
			}
			fmt.Printf("%s (@%s)  id=%s  session expires %s\n",
				cur.DisplayName, cur.Username, cur.UserID, cur.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the current token for a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := callCtx(cmd)
			defer cancel()
			if err := appCtx.Refresh(ctx); err != nil {
				return err
			}
			cur, _ := appCtx.Session().Current()
			fmt.Printf("Token refreshed, expires %s\n", cur.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
