package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/atinyakov/GophNotes/internal/client/notes"
	"github.com/atinyakov/GophNotes/internal/config"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree around c.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "gophnotes",
		Short:         "Notes client",
		Long:          "gophnotes keeps a session with the notes API and manages the account's notes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Flags())
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		registerCmd(c),
		loginCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		notesCmd(c),
		shellCmd(c),
		versionCmd(c),
	)
	return root
}

func registerCmd(c *cli) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newPrompter(c.in, c.out).fill(
				promptField{"Username", &username},
				promptField{"Email", &email},
				promptField{"Password", &password},
			)
			return c.result(c.session.Register(cmd.Context(), username, email, password))
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func loginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newPrompter(c.in, c.out).fill(
				promptField{"Email", &email},
				promptField{"Password", &password},
			)
			if err := c.session.Login(cmd.Context(), email, password); err != nil {
				return c.result(err)
			}
			fmt.Fprintln(c.out, "Logged in")
			return c.result(nil)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.session.Logout()
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return c.result(err)
			}
			acc, _ := c.session.Account()
			printAccount(c.out, acc)
			return nil
		},
	}
}

func notesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.setup(cmd.Flags()); err != nil {
				return err
			}
			return c.result(c.requireSession(cmd.Context()))
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List notes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := c.notes.List(cmd.Context())
				if err != nil {
					return c.result(err)
				}
				printNotes(c.out, list)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				n, err := c.notes.Get(cmd.Context(), id)
				if err != nil {
					return c.result(err)
				}
				printNote(c.out, n)
				return nil
			},
		},
		noteCreateCmd(c),
		noteEditCmd(c),
		noteDeleteCmd(c),
	)
	return cmd
}

func noteCreateCmd(c *cli) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.notes.Create(cmd.Context(), title, description)
			if err != nil {
				return c.result(err)
			}
			fmt.Fprintf(c.out, "Created note %d\n", n.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "note description")
	return cmd
}

func noteEditCmd(c *cli) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or description of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			target := &models.Note{ID: id}
			if !c.opts.Notes.RefetchOnOpen {
				n, err := c.notes.Get(ctx, id)
				if err != nil {
					return c.result(err)
				}
				target = &n
			}
			if err := c.notes.OpenDialog(ctx, notes.DialogEdit, target); err != nil {
				return c.result(err)
			}
			draft := c.notes.Dialog().Draft
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			if cmd.Flags().Changed("description") {
				draft.Description = description
			}
			if err := c.notes.SetDraft(draft.Title, draft.Description); err != nil {
				return err
			}
			if err := c.notes.Submit(ctx); err != nil {
				return c.result(err)
			}
			fmt.Fprintf(c.out, "Updated note %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func noteDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.notes.Remove(cmd.Context(), id); err != nil {
				return c.result(err)
			}
			fmt.Fprintf(c.out, "Deleted note %d\n", id)
			return nil
		},
	}
}

func shellCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runShell(cmd.Context())
		},
	}
}

func versionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(c.out, "GophNotes Client\nVersion: %s\nBuild Date: %s\n", orNA(version), orNA(buildDate))
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func printAccount(w io.Writer, acc models.Account) {
	fmt.Fprintf(w, "ID: %d\nUsername: %s\nEmail: %s\n", acc.ID, acc.Username, acc.Email)
}

func printNote(w io.Writer, n models.Note) {
	fmt.Fprintf(w, "ID: %d\nTitle: %s\nDescription: %s\n", n.ID, n.Title, n.Description)
}

func printNotes(w io.Writer, list []models.Note) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notes")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
	for _, n := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", n.ID, n.Title, n.Description)
	}
	_ = tw.Flush()
}
