package main

import (
	"github.com/spf13/cobra"

	"github.com/and161185/notekeeper/internal/model"
)

func (c *cli) password(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return readPassword(c.in, cmd.ErrOrStderr())
}

func (c *cli) loginCmd() *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := c.password(cmd, pass)
			if err != nil {
				return err
			}
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			s, err := c.app.Session.Login(ctx, model.Credentials{Email: email, Password: pw})
			if err != nil {
				return err
			}
			c.printf("Logged in as %s\n", s.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&pass, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var name, email, pass string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := c.password(cmd, pass)
			if err != nil {
				return err
			}
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			s, err := c.app.Session.Register(ctx, model.Profile{Name: name, Email: email, Password: pw})
			if err != nil {
				return err
			}
			c.printf("Welcome, %s\n", s.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&pass, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := c.app.Session.Logout(); err != nil {
				return err
			}
			c.printf("Logged out\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			s, _ := c.app.Session.Current()
			c.printf("%s (%s)\n", s.Name, s.ID)
			return nil
		},
	}
}
