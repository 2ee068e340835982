package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/atinyakov/GophNotes/internal/client/api"
	"github.com/atinyakov/GophNotes/internal/client/notes"
	"github.com/atinyakov/GophNotes/internal/client/session"
	"github.com/atinyakov/GophNotes/internal/client/status"
	"github.com/atinyakov/GophNotes/internal/config"
	"github.com/atinyakov/GophNotes/internal/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var errNotLoggedIn = errors.New("not logged in: run login first")

// cli holds the components shared by all commands. They are built once the
// flags are parsed.
type cli struct {
	in  io.Reader
	out io.Writer
	// log is built from the log level unless preset.
	log *zap.Logger

	opts    *config.Options
	status  *status.Status
	client  *api.Client
	session *session.Manager
	notes   *notes.Store
}

func newCLI(in io.Reader, out io.Writer) *cli {
	return &cli{in: in, out: out}
}

// setup loads the configuration and wires the client components.
func (c *cli) setup(fs *pflag.FlagSet) error {
	opts, err := config.Load(fs)
	if err != nil {
		return err
	}
	c.opts = opts

	if c.log == nil {
		l := logger.New()
		if err := l.Init(opts.LogLevel); err != nil {
			return err
		}
		c.log = l.Log
	}

	httpClient, err := api.NewHTTPClient(opts.CA, opts.Timeout)
	if err != nil {
		return err
	}

	c.status = status.New(c.log)
	c.client = api.NewClient(opts.URL, httpClient, c.log)
	c.session = session.NewManager(c.client, session.NewCookieFile(opts.TokenFile), c.status, c.log)

	storeOpts := []notes.Option{notes.WithRefetchOnOpen(opts.Notes.RefetchOnOpen)}
	if opts.Notes.Owner == config.OwnerScopeID {
		storeOpts = append(storeOpts, notes.WithOwnerID(c.session))
	}
	c.notes = notes.NewStore(c.client, c.status, c.log, storeOpts...)

	c.log.Debug("client configured",
		zap.String("url", opts.URL),
		zap.String("token_file", opts.TokenFile),
		zap.String("config", opts.Config),
	)
	return nil
}

// requireSession validates the stored token and fails when there is no
// accepted session.
func (c *cli) requireSession(ctx context.Context) error {
	if err := c.session.Validate(ctx); err != nil {
		return err
	}
	if !c.session.Authorized() {
		return errNotLoggedIn
	}
	return nil
}

// result prints the pending informational message and turns err into the
// message shown to the user.
func (c *cli) result(err error) error {
	errMsg, info := c.status.Drain()
	if info != "" {
		fmt.Fprintln(c.out, info)
	}
	if err == nil {
		return nil
	}
	if errMsg != "" {
		return errors.New(errMsg)
	}
	return err
}
