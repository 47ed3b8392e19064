package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/notekeeper/internal/access"
	"github.com/and161185/notekeeper/internal/editor"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/notes"
)

func (c *cli) listCmd() *cobra.Command {
	var search string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, pinned first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			col := c.app.Notes
			if err := col.Query(ctx, search); err != nil {
				return err
			}
			if asJSON {
				return printJSON(c.out, col.Notes())
			}

			switch col.View() {
			case notes.ViewEmpty:
				c.printf("No notes yet. Create one with `nk new`.\n")
				return nil
			case notes.ViewNoResults:
				c.printf("No notes match %q.\n", search)
				return nil
			}
			pinned, others := col.Partition()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			writeSection(tw, "Pinned", pinned)
			writeSection(tw, "Notes", others)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeSection(tw *tabwriter.Writer, title string, ns []model.Note) {
	if len(ns) == 0 {
		return
	}
	fmt.Fprintf(tw, "%s\n", title)
	for _, n := range ns {
		tag := ""
		if n.Tag != "" {
			tag = "#" + n.Tag
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", n.ID, displayTitle(n.Title), tag, n.Color)
	}
}

func displayTitle(t string) string {
	if strings.TrimSpace(t) == "" {
		return "(untitled)"
	}
	return t
}

func (c *cli) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := c.requireSession(ctx); err != nil {
				return err
			}
			n, err := c.app.Notes.Create(ctx)
			if err != nil {
				return err
			}
			c.printf("%s\n", n.ID)
			return nil
		},
	}
}

// openNote restores the session and starts an editing session for id. The
// caller closes it.
func (c *cli) openNote(cmd *cobra.Command, id string) (*editor.Session, error) {
	ctx, cancel := c.timeout(cmd)
	defer cancel()
	if err := c.requireSession(ctx); err != nil {
		return nil, err
	}
	return c.app.OpenNote(ctx, id)
}

func (c *cli) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note with its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()
			n := ed.Note()
			if asJSON {
				return printJSON(c.out, n)
			}
			s, _ := c.app.Session.Current()
			c.printNote(n, access.RoleOf(s.ID, n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) printNote(n model.Note, role string) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", n.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", displayTitle(n.Title))
	fmt.Fprintf(tw, "Color:\t%s\n", n.Color)
	if n.Tag != "" {
		fmt.Fprintf(tw, "Tag:\t%s\n", n.Tag)
	}
	fmt.Fprintf(tw, "Pinned:\t%t\n", n.Pinned)
	if role != "" {
		fmt.Fprintf(tw, "Role:\t%s\n", role)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", n.Date.Local().Format(time.DateTime))
	if n.UpdatedAt != nil {
		by := ""
		if n.LastEditedBy != nil && n.LastEditedBy.Name != "" {
			by = " by " + n.LastEditedBy.Name
		}
		fmt.Fprintf(tw, "Edited:\t%s%s (version %d)\n", n.UpdatedAt.Local().Format(time.DateTime), by, n.VersionCount)
	}
	if len(n.Members) > 0 {
		fmt.Fprintf(tw, "Members:\n")
		for _, m := range n.Members {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", memberName(m.User), m.Role, m.Status)
		}
	}
	_ = tw.Flush()
	if n.Content != "" {
		fmt.Fprintf(c.out, "\n%s\n", n.Content)
	}
}

func memberName(u model.UserRef) string {
	switch {
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	}
	return u.ID
}

func (c *cli) editCmd() *cobra.Command {
	var title, content, file, tag, color string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change title, content, tag or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := cmd.Flags()
			if !fl.Changed("title") && !fl.Changed("content") && !fl.Changed("file") &&
				!fl.Changed("tag") && !fl.Changed("color") {
				return errs.Validation("nothing to change: pass --title, --content, --file, --tag or --color")
			}
			if fl.Changed("content") && fl.Changed("file") {
				return errs.Validation("--content and --file are exclusive")
			}
			if fl.Changed("file") {
				b, err := readAll(file, c.in)
				if err != nil {
					return err
				}
				content = string(b)
			}

			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()

			e := ed.Note().Edit()
			if fl.Changed("title") {
				e.Title = title
			}
			if fl.Changed("content") || fl.Changed("file") {
				e.Content = content
			}
			if fl.Changed("tag") {
				e.Tag = tag
			}
			if e != ed.Note().Edit() {
				if err := ed.SetEdit(e); err != nil {
					return err
				}
			}
			if fl.Changed("color") {
				if err := ed.SetColor(model.Color(color)); err != nil {
					return err
				}
			}
			if err := ed.Flush(); err != nil {
				return err
			}
			c.printf("Saved %s\n", ed.ID())
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&title, "title", "", "new title")
	fl.StringVar(&content, "content", "", "new content")
	fl.StringVar(&file, "file", "", "read content from file, - for stdin")
	fl.StringVar(&tag, "tag", "", "new tag")
	fl.StringVar(&color, "color", "", "one of white, "+paletteList())
	return cmd
}

func paletteList() string {
	names := make([]string, 0, len(model.Palette))
	for _, p := range model.Palette {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func (c *cli) pinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle the pinned flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			pinned, err := ed.TogglePin(ctx)
			if err != nil {
				return err
			}
			if pinned {
				c.printf("Pinned %s\n", ed.ID())
			} else {
				c.printf("Unpinned %s\n", ed.ID())
			}
			return nil
		},
	}
}

func (c *cli) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := c.openNote(cmd, args[0])
			if err != nil {
				return err
			}
			defer ed.Close()
			ctx, cancel := c.timeout(cmd)
			defer cancel()
			if err := ed.Delete(ctx); err != nil {
				if errors.Is(err, errs.ErrReadOnly) {
					return fmt.Errorf("cannot delete %s: %w", ed.ID(), err)
				}
				return err
			}
			c.printf("Deleted %s\n", ed.ID())
			return nil
		},
	}
}
