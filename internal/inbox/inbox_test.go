package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/refresh"
)

type fakeAPI struct {
	mu      sync.Mutex
	list    []model.Notification
	listErr error
	actErr  error
	fetches int
	acts    []string
}

func (f *fakeAPI) ListNotifications(context.Context) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.list, f.listErr
}

func (f *fakeAPI) record(kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acts = append(f.acts, kind+":"+id)
	return f.actErr
}

func (f *fakeAPI) AcceptInvite(_ context.Context, id string) error  { return f.record("accept", id) }
func (f *fakeAPI) DeclineInvite(_ context.Context, id string) error { return f.record("decline", id) }
func (f *fakeAPI) MarkRead(_ context.Context, id string) error      { return f.record("read", id) }

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func TestInbox_AcceptBumpsOnceAndRefetches(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{list: []model.Notification{{ID: "x1", Type: model.NoteInvitation}}}
	sig := refresh.New()
	bumps := 0
	sig.Subscribe(func(refresh.Token) { bumps++ })

	in := New(api, sig)
	in.Bind(nil)
	defer in.Close()

	require.NoError(t, in.Accept(context.Background(), "x1"))
	in.Wait()

	assert.Equal(t, 1, bumps)
	assert.Equal(t, refresh.Token(1), sig.Current())
	assert.Equal(t, 1, api.fetchCount())
	assert.Equal(t, []string{"accept:x1"}, api.acts)
	assert.Len(t, in.List(), 1)
}

func TestInbox_DeclineAndDismiss(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{list: []model.Notification{
		{ID: "x1", Type: model.NoteInvitation},
		{ID: "x2", Type: model.InviteAccepted},
	}}
	sig := refresh.New()
	in := New(api, sig)
	require.NoError(t, in.Fetch(context.Background()))

	require.NoError(t, in.Decline(context.Background(), "x1"))
	require.NoError(t, in.Dismiss(context.Background(), "x2"))
	assert.Equal(t, refresh.Token(2), sig.Current())
	assert.Equal(t, []string{"decline:x1", "read:x2"}, api.acts)
}

func TestInbox_DismissRejectsInvitationsAndUnknownIDs(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{list: []model.Notification{{ID: "x1", Type: model.NoteInvitation}}}
	sig := refresh.New()
	in := New(api, sig)
	require.NoError(t, in.Fetch(context.Background()))

	err := in.Dismiss(context.Background(), "x1")
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, DismissInvitationMsg, err.Error())

	assert.ErrorIs(t, in.Dismiss(context.Background(), "nope"), errs.ErrNotFound)

	assert.Empty(t, api.acts)
	assert.Equal(t, refresh.Token(0), sig.Current())
	assert.Equal(t, 1, in.UnreadCount())
}

func TestInbox_FailedActionDoesNotBump(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{actErr: errors.New("gone")}
	sig := refresh.New()
	in := New(api, sig)

	require.Error(t, in.Accept(context.Background(), "x1"))
	assert.Equal(t, refresh.Token(0), sig.Current())
}

func TestInbox_FetchFailureKeepsList(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{list: []model.Notification{{ID: "a"}, {ID: "b", IsRead: true}}}
	in := New(api, nil)
	require.NoError(t, in.Fetch(context.Background()))
	assert.Equal(t, 1, in.UnreadCount())

	api.mu.Lock()
	api.listErr = errors.New("503")
	api.mu.Unlock()
	require.Error(t, in.Fetch(context.Background()))
	assert.Len(t, in.List(), 2)
}

func TestInbox_CloseUnbinds(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	sig := refresh.New()
	in := New(api, sig)
	in.Bind(nil)
	in.Close()

	sig.Bump()
	in.Wait()
	assert.Zero(t, api.fetchCount())
}

func TestTimeAgo(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)

	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{59 * time.Minute, "59m ago"},
		{90 * time.Minute, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{25 * time.Hour, "1d ago"},
		{6 * 24 * time.Hour, "6d ago"},
		{8 * 24 * time.Hour, "2024-05-12"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TimeAgo(now, now.Add(-c.ago)), c.ago.String())
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()
	n := model.Notification{Type: model.NoteInvitation, Role: model.RoleEditor}
	n.Actor.Name = "Ann"
	n.Note.Version.Title = "Plan"
	assert.Equal(t, `Ann invited you as a editor to "Plan"`, Message(n))
	assert.True(t, NeedsAction(n))

	anon := model.Notification{Type: model.NoteRemoved}
	assert.Equal(t, `Someone removed you from "Untitled Note"`, Message(anon))
	assert.False(t, NeedsAction(anon))

	assert.Contains(t, Message(model.Notification{Type: model.InviteAccepted}), "accepted")
	assert.Contains(t, Message(model.Notification{Type: model.InviteRejected}), "declined")
	assert.Equal(t, "You have a new notification", Message(model.Notification{Type: "other"}))
}
