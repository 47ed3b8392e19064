package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/apitest"
	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/refresh"
	"github.com/and161185/notekeeper/internal/session"
)

func testConfig(srv *apitest.Server) config.Config {
	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.EditDebounce = 30 * time.Millisecond
	cfg.ColorDebounce = 10 * time.Millisecond
	return cfg
}

func startAs(t *testing.T, srv *apitest.Server, sess model.Session) *App {
	t.Helper()
	st := &session.MemStorage{}
	require.NoError(t, st.Save(sess))
	a := New(testConfig(srv), nil, WithStorage(st))
	t.Cleanup(a.Close)
	require.True(t, a.Start(context.Background()))
	a.Wait()
	return a
}

func TestApp_AcceptInvitationRefreshesBothLists(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	owner := srv.AddUser("Ann", "ann@x.io", "pw")
	guest := srv.AddUser("Bob", "bob@x.io", "pw")
	id := srv.AddNote(owner, model.Note{Title: "Plan"})

	a := startAs(t, srv, owner)
	require.NoError(t, a.API.SetMember(context.Background(), id, "bob@x.io", model.RoleEditor))

	b := startAs(t, srv, guest)
	assert.Empty(t, b.Notes.Notes(), "pending invitation does not share the note")
	list := b.Inbox.List()
	require.Len(t, list, 1)
	require.Equal(t, model.NoteInvitation, list[0].Type)

	var bumps []refresh.Token
	b.Refresh.Subscribe(func(tk refresh.Token) { bumps = append(bumps, tk) })
	notesBefore := srv.Calls(http.MethodGet, "/api/note")
	inboxBefore := srv.Calls(http.MethodGet, "/api/user/notifications")

	require.NoError(t, b.Inbox.Accept(context.Background(), list[0].ID))
	b.Wait()

	assert.Len(t, bumps, 1)
	assert.Equal(t, notesBefore+1, srv.Calls(http.MethodGet, "/api/note"))
	assert.Equal(t, inboxBefore+1, srv.Calls(http.MethodGet, "/api/user/notifications"))
	require.Len(t, b.Notes.Notes(), 1)
	assert.Equal(t, "Plan", b.Notes.Notes()[0].Title)
	assert.Zero(t, b.Inbox.UnreadCount())
}

func TestApp_StartWithoutSession(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	a := New(testConfig(srv), nil, WithStorage(&session.MemStorage{}))
	defer a.Close()

	assert.False(t, a.Start(context.Background()))
	a.Wait()
	assert.Zero(t, srv.Calls(http.MethodGet, "/api/note"))

	_, err := a.OpenNote(context.Background(), "n1")
	assert.ErrorIs(t, err, errs.ErrNoSession)
}

func TestApp_RestoreRejectedToken(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	st := &session.MemStorage{}
	require.NoError(t, st.Save(model.Session{ID: "u9", Token: "forged"}))

	a := New(testConfig(srv), nil, WithStorage(st))
	defer a.Close()
	assert.False(t, a.Start(context.Background()))
	_, err := st.Load()
	assert.ErrorIs(t, err, errs.ErrNoSession)
}

func TestApp_LoginFetchesAndLogoutClears(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	owner := srv.AddUser("Ann", "ann@x.io", "pw")
	srv.AddNote(owner, model.Note{Title: "one"})

	a := New(testConfig(srv), nil, WithStorage(&session.MemStorage{}))
	defer a.Close()
	require.False(t, a.Start(context.Background()))

	_, err := a.Session.Login(context.Background(), model.Credentials{Email: "ann@x.io", Password: "pw"})
	require.NoError(t, err)
	a.Wait()
	assert.Len(t, a.Notes.Notes(), 1)

	require.NoError(t, a.Session.Logout())
	assert.Empty(t, a.Notes.Notes())
	assert.Empty(t, a.Inbox.List())
}

func TestApp_EditorAutosaveAndCloseRefresh(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	owner := srv.AddUser("Ann", "ann@x.io", "pw")
	id := srv.AddNote(owner, model.Note{Title: "draft"})
	a := startAs(t, srv, owner)

	ed, err := a.OpenNote(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, ed.SetTitle("final"))
	require.NoError(t, ed.SetColor(model.ColorGreen))

	require.Eventually(t, func() bool {
		n, _ := srv.Note(id)
		return n.Title == "final" && n.Color == model.ColorGreen
	}, 2*time.Second, 10*time.Millisecond)

	before := a.Refresh.Current()
	ed.Close()
	a.Wait()
	assert.Equal(t, before+1, a.Refresh.Current())
	assert.Equal(t, "final", a.Notes.Notes()[0].Title)
}

func TestApp_ViewerCannotEdit(t *testing.T) {
	t.Parallel()
	srv := apitest.New(t)
	owner := srv.AddUser("Ann", "ann@x.io", "pw")
	guest := srv.AddUser("Bob", "bob@x.io", "pw")
	id := srv.AddNote(owner, model.Note{Title: "ro"})

	a := startAs(t, srv, owner)
	ed, err := a.OpenNote(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, ed.AddMember(context.Background(), "bob@x.io", model.RoleViewer))
	assert.Len(t, ed.Note().Members, 1)
	ed.Close()

	b := startAs(t, srv, guest)
	require.NoError(t, b.Inbox.Accept(context.Background(), b.Inbox.List()[0].ID))
	b.Wait()

	bed, err := b.OpenNote(context.Background(), id)
	require.NoError(t, err)
	defer bed.Close()
	assert.False(t, bed.Capabilities().CanEdit)
	assert.ErrorIs(t, bed.SetContent("x"), errs.ErrReadOnly)
}
