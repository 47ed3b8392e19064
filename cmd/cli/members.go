package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

func (c *cli) shareCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Invite a collaborator or change their role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := model.Role(role)
			if !r.Valid() {
				return errs.Validation(fmt.Sprintf("unknown role %q, want viewer or editor", role))
			}
			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()

			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if isMember(ed.Note(), email) {
				err = ed.ChangeRole(ctx, email, r)
			} else {
				err = ed.AddMember(ctx, email, r)
			}
			if err != nil {
				return err
			}
			c.printf("Shared %s with %s as %s\n", ed.ID(), strings.TrimSpace(email), r)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "collaborator email")
	cmd.Flags().StringVar(&role, "role", string(model.RoleViewer), "viewer or editor")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) unshareCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "unshare <id>",
		Short: "Remove a collaborator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()

			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := ed.RemoveMember(ctx, email); err != nil {
				return err
			}
			c.printf("Removed %s from %s\n", strings.TrimSpace(email), ed.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "collaborator email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func isMember(n model.Note, email string) bool {
	email = strings.TrimSpace(email)
	for _, m := range n.Members {
		if m.Status != model.StatusRemoved && strings.EqualFold(m.User.Email, email) {
			return true
		}
	}
	return false
}
