// Package app wires the client stores together: one API client, the session
// store, the note collection, the inbox and the refresh signal they share.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/api"
	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/editor"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/inbox"
	"github.com/and161185/notekeeper/internal/notes"
	"github.com/and161185/notekeeper/internal/refresh"
	"github.com/and161185/notekeeper/internal/session"
)

// App owns the stores of one client process.
type App struct {
	Cfg     config.Config
	Log     *zap.Logger
	API     *api.Client
	Session *session.Store
	Notes   *notes.Collection
	Inbox   *inbox.Inbox
	Refresh *refresh.Signal
}

// Option configures an App.
type Option func(*options)

type options struct {
	storage session.Storage
	apiOpts []api.Option
}

// WithStorage replaces the session file under cfg.Dir.
func WithStorage(s session.Storage) Option { return func(o *options) { o.storage = s } }

// WithAPIOptions passes extra options to the API client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(o *options) { o.apiOpts = append(o.apiOpts, opts...) }
}

// New builds the stores. Nothing talks to the server until Start.
func New(cfg config.Config, log *zap.Logger, opts ...Option) *App {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{storage: session.NewFileStorage(cfg.Dir)}
	for _, opt := range opts {
		opt(&o)
	}

	client := api.New(cfg.BaseURL, append([]api.Option{
		api.WithLogger(log.Named("api")),
		api.WithTimeout(cfg.Timeout),
	}, o.apiOpts...)...)
	store := session.New(client, o.storage, session.WithLogger(log.Named("session")))
	client.SetTokenSource(store)

	sig := refresh.New()
	return &App{
		Cfg:     cfg,
		Log:     log,
		API:     client,
		Session: store,
		Refresh: sig,
		Notes: notes.New(client,
			notes.WithLogger(log.Named("notes")),
			notes.WithTimeout(cfg.Timeout),
			notes.WithSearchDebounce(cfg.SearchDebounce),
		),
		Inbox: inbox.New(client, sig,
			inbox.WithLogger(log.Named("inbox")),
			inbox.WithTimeout(cfg.Timeout),
		),
	}
}

// Start binds the stores and restores the persisted session. It reports
// whether a session is active. With an active session the first fetches of
// notes and notifications are already running when Start returns.
func (a *App) Start(ctx context.Context) bool {
	a.Notes.Bind(a.Session, a.Refresh)
	a.Inbox.Bind(a.Session)
	return a.Session.Restore(ctx)
}

// Wait blocks until background fetches have finished.
func (a *App) Wait() {
	a.Notes.Wait()
	a.Inbox.Wait()
}

// Close unbinds the stores and waits for background work.
func (a *App) Close() {
	a.Notes.Close()
	a.Inbox.Close()
	_ = a.Log.Sync()
}

// RefreshAll bumps the shared refresh signal.
func (a *App) RefreshAll() refresh.Token { return a.Refresh.Bump() }

// OpenNote starts an editing session for id with the configured debounce
// windows. Closing it bumps the refresh signal so the list picks up the
// edits.
func (a *App) OpenNote(ctx context.Context, id string, opts ...editor.Option) (*editor.Session, error) {
	cur, ok := a.Session.Current()
	if !ok {
		return nil, errs.ErrNoSession
	}
	base := []editor.Option{
		editor.WithEditDelay(a.Cfg.EditDebounce),
		editor.WithColorDelay(a.Cfg.ColorDebounce),
		editor.WithTimeout(a.Cfg.Timeout),
		editor.WithLogger(a.Log.Named("editor")),
		editor.WithOnClose(func() { a.Refresh.Bump() }),
	}
	return editor.Open(ctx, a.API, cur.ID, id, append(base, opts...)...)
}
