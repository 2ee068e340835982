package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/GophNotes/internal/client/notes"
	"github.com/atinyakov/GophNotes/internal/models"
	"go.uber.org/zap"
)

const shellHelp = `Available commands:
  help                 show this help
  register             create an account
  login                log in
  logout               log out
  whoami               show the logged in account
  list                 list notes
  show <id>            show a note
  create               create a note
  edit <id>            edit a note
  delete <id>          delete a note
  exit                 leave the shell`

// runShell runs the interactive loop. The session is validated on entry and
// then periodically until the loop ends.
func (c *cli) runShell(ctx context.Context) error {
	rv := c.session.StartRevalidation(ctx, c.opts.RevalidateInterval)
	defer rv.Stop()

	p := newPrompter(c.in, c.out)
	c.report()
	if acc, ok := c.session.Account(); ok {
		fmt.Fprintf(c.out, "Logged in as %s\n", acc.Username)
	}

	for {
		fmt.Fprint(c.out, "gophnotes> ")
		line, ok := p.line()
		if !ok || ctx.Err() != nil {
			fmt.Fprintln(c.out)
			return nil
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(c.out, "Bye")
			return nil
		}
		c.shellCommand(ctx, p, args)
		c.report()
	}
}

// shellCommand runs one shell command. Failures are reported through status.
func (c *cli) shellCommand(ctx context.Context, p *prompter, args []string) {
	switch args[0] {
	case "help":
		fmt.Fprintln(c.out, shellHelp)
	case "register":
		var username, email, password string
		p.fill(
			promptField{"Username", &username},
			promptField{"Email", &email},
			promptField{"Password", &password},
		)
		_ = c.session.Register(ctx, username, email, password)
	case "login":
		var email, password string
		p.fill(promptField{"Email", &email}, promptField{"Password", &password})
		if c.session.Login(ctx, email, password) == nil {
			fmt.Fprintln(c.out, "Logged in")
		}
	case "logout":
		c.session.Logout()
		fmt.Fprintln(c.out, "Logged out")
	case "whoami":
		if !c.authorized() {
			return
		}
		id, err := c.session.AccountID(ctx)
		if err != nil {
			fmt.Fprintln(c.out, err)
			return
		}
		acc, ok := c.session.Account()
		if !ok {
			acc = models.Account{ID: id}
		}
		printAccount(c.out, acc)
	case "list":
		if !c.authorized() {
			return
		}
		if list, err := c.notes.List(ctx); err == nil {
			printNotes(c.out, list)
		}
	case "show":
		id, ok := c.noteArg(args)
		if !ok {
			return
		}
		if n, err := c.notes.Get(ctx, id); err == nil {
			printNote(c.out, n)
		}
	case "create":
		if !c.authorized() {
			return
		}
		if err := c.notes.OpenDialog(ctx, notes.DialogCreate, nil); err != nil {
			return
		}
		title := p.ask("Title")
		description := p.ask("Description")
		c.submitDraft(ctx, title, description)
	case "edit":
		id, ok := c.noteArg(args)
		if !ok {
			return
		}
		if err := c.notes.OpenDialog(ctx, notes.DialogEdit, c.localNote(id)); err != nil {
			return
		}
		draft := c.notes.Dialog().Draft
		title := p.askDefault("Title", draft.Title)
		description := p.askDefault("Description", draft.Description)
		c.submitDraft(ctx, title, description)
	case "delete":
		id, ok := c.noteArg(args)
		if !ok {
			return
		}
		if err := c.notes.OpenDialog(ctx, notes.DialogDelete, c.localNote(id)); err != nil {
			return
		}
		draft := c.notes.Dialog().Draft
		if !p.confirm(fmt.Sprintf("Delete note %d %q?", draft.ID, draft.Title)) {
			c.notes.CloseDialog()
			return
		}
		if c.notes.Submit(ctx) == nil {
			fmt.Fprintf(c.out, "Deleted note %d\n", id)
		}
	default:
		fmt.Fprintln(c.out, "Unknown command. Type 'help' for a list of commands.")
	}
}

// submitDraft stores the answers in the open dialog and submits it. The
// dialog stays open on failure and is closed here so the next command starts clean.
func (c *cli) submitDraft(ctx context.Context, title, description string) {
	kind := c.notes.Dialog().Kind
	if err := c.notes.SetDraft(title, description); err != nil {
		c.log.Debug("draft rejected", zap.Error(err))
		return
	}
	if err := c.notes.Submit(ctx); err != nil {
		c.notes.CloseDialog()
		return
	}
	switch kind {
	case notes.DialogCreate:
		list := c.notes.Notes()
		fmt.Fprintf(c.out, "Created note %d\n", list[len(list)-1].ID)
	case notes.DialogEdit:
		fmt.Fprintln(c.out, "Note updated")
	}
}

// localNote returns the listed copy of note id, or a stub the store refetches.
func (c *cli) localNote(id int64) *models.Note {
	if n, ok := c.notes.Find(id); ok {
		return &n
	}
	return &models.Note{ID: id}
}

func (c *cli) noteArg(args []string) (int64, bool) {
	if !c.authorized() {
		return 0, false
	}
	if len(args) < 2 {
		fmt.Fprintf(c.out, "Usage: %s <id>\n", args[0])
		return 0, false
	}
	id, err := parseID(args[1])
	if err != nil {
		fmt.Fprintln(c.out, err)
		return 0, false
	}
	return id, true
}

func (c *cli) authorized() bool {
	if c.session.Authorized() {
		return true
	}
	fmt.Fprintln(c.out, errNotLoggedIn)
	return false
}

// report prints and clears the pending status messages.
func (c *cli) report() {
	errMsg, info := c.status.Drain()
	if info != "" {
		fmt.Fprintln(c.out, info)
	}
	if errMsg != "" {
		fmt.Fprintln(c.out, "error: "+errMsg)
	}
}
