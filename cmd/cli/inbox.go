package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/notekeeper/internal/inbox"
)

func (c *cli) notificationsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List notifications and invitations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			in := c.app.Inbox
			if err := in.Fetch(ctx); err != nil {
				return err
			}
			list := in.List()
			if asJSON {
				return printJSON(c.out, list)
			}
			if len(list) == 0 {
				c.printf("No notifications\n")
				return nil
			}

			now := time.Now()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			for _, n := range list {
				mark := " "
				if !n.IsRead {
					mark = "*"
				}
				hint := ""
				if inbox.NeedsAction(n) {
					hint = "(nk accept|decline " + n.ID + ")"
				}
				fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", mark, n.ID, inbox.TimeAgo(now, n.CreatedAt), inbox.Message(n), hint)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.printf("%d unread\n", in.UnreadCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// answerCmd builds accept and decline, which differ only in the call.
func (c *cli) answerCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <notification-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			answer := c.app.Inbox.Accept
			done := "Accepted"
			if name == "decline" {
				answer, done = c.app.Inbox.Decline, "Declined"
			}
			if err := answer(ctx, args[0]); err != nil {
				return err
			}
			c.printf("%s %s\n", done, args[0])
			return nil
		},
	}
}

func (c *cli) dismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			in := c.app.Inbox
			if err := in.Fetch(ctx); err != nil {
				return err
			}
			if err := in.Dismiss(ctx, args[0]); err != nil {
				return err
			}
			c.printf("Dismissed %s\n", args[0])
			return nil
		},
	}
}
