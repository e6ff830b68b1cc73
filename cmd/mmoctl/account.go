package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mmoclient/internal/app/gateway"
	"mmoclient/internal/pkg/auth/jwt"
)

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd(c *client) *cobra.Command {
	var in gateway.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long:  `Create an account on the game backend. Registering does not log in; run login afterwards.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.gateway.Register(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Log in with: mmoctl login -u %s\n", in.Username, in.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "account name (3-50 characters)")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "contact email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "password (8+ characters, a letter and a digit)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd(c *client) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		Long:  `Log in with username and password. The token and identity are stored in the session file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.gateway.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (user id %d)\n", res.Username, res.UserID)
			printWarnings(cmd, res.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.gateway.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd(c *client) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in identity",
		Long: `Show the identity stored in the session and when its token expires. With
--verify the backend is asked whether the token is still accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			if verify {
				identity, err := c.gateway.VerifyToken(cmd.Context())
				if err != nil {
					return err
				}
				printWarnings(cmd, identity.Warnings)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (user id %d)\n", c.session.Username(), c.session.UserID())

			claims, err := jwt.PeekClaims(c.session.Token())
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Token: opaque")
				return nil
			}
			if expiry, ok := claims.Expiry(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Token expires: %s (%s)\n", expiry.Format(time.RFC3339), describeExpiry(expiry, time.Now()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check the token with the backend")

	return cmd
}

func describeExpiry(expiry, now time.Time) string {
	if !expiry.After(now) {
		return "expired"
	}
	return fmt.Sprintf("in %s", expiry.Sub(now).Round(time.Minute))
}
