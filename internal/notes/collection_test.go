package notes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/observe"
	"github.com/and161185/notekeeper/internal/refresh"
)

type fakeAPI struct {
	mu       sync.Mutex
	notes    []model.Note
	err      error
	searches []string
	created  int
	// gate, when set, blocks ListNotes for the given search until closed.
	gate map[string]chan struct{}
	// bySearch overrides notes for a search term.
	bySearch map[string][]model.Note
	// createGate, when set, blocks CreateNote until closed.
	createGate  chan struct{}
	createEnter chan struct{}
}

func (f *fakeAPI) ListNotes(_ context.Context, search string) ([]model.Note, error) {
	f.mu.Lock()
	f.searches = append(f.searches, search)
	g := f.gate[search]
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if n, ok := f.bySearch[search]; ok {
		return n, nil
	}
	return f.notes, nil
}

func (f *fakeAPI) CreateNote(_ context.Context, n model.Note) (model.Note, error) {
	if f.createGate != nil {
		f.createEnter <- struct{}{}
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	n.ID = "new"
	return n, nil
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

type fakeSessions struct{ observe.Subject[model.Session] }

func note(id string, pinned bool) model.Note { return model.Note{ID: id, Pinned: pinned} }

func ids(ns []model.Note) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func TestPartition_PreservesServerOrder(t *testing.T) {
	t.Parallel()
	pinned, unpinned := Partition([]model.Note{
		note("p1", true), note("u1", false), note("p2", true), note("u2", false),
	})
	assert.Equal(t, []string{"p1", "p2"}, ids(pinned))
	assert.Equal(t, []string{"u1", "u2"}, ids(unpinned))
}

func TestCollection_EmptyVersusNoResults(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{}}
	c := New(api)

	require.NoError(t, c.Fetch(context.Background()))
	assert.Equal(t, ViewEmpty, c.View())

	c.SetSearch("zzz")
	c.Wait()
	assert.Equal(t, ViewNoResults, c.View())
	assert.Equal(t, []string{"", "zzz"}, api.calls())

	api.mu.Lock()
	api.notes = []model.Note{note("a", false)}
	api.mu.Unlock()
	require.NoError(t, c.Fetch(context.Background()))
	assert.Equal(t, ViewNotes, c.View())
}

func TestCollection_FailureKeepsPreviousNotes(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{note("a", true), note("b", false)}}
	c := New(api)
	require.NoError(t, c.Fetch(context.Background()))

	api.mu.Lock()
	api.err = errors.New("503")
	api.mu.Unlock()
	require.Error(t, c.Fetch(context.Background()))

	assert.Equal(t, []string{"a", "b"}, ids(c.Notes()))
	assert.False(t, c.Loading())
	pinned, unpinned := c.Partition()
	assert.Equal(t, []string{"a"}, ids(pinned))
	assert.Equal(t, []string{"b"}, ids(unpinned))
}

func TestCollection_StaleResponseDropped(t *testing.T) {
	t.Parallel()
	slow := make(chan struct{})
	api := &fakeAPI{
		gate:     map[string]chan struct{}{"old": slow},
		bySearch: map[string][]model.Note{"old": {note("old", false)}, "new": {note("new", false)}},
	}
	c := New(api)

	c.SetSearch("old")
	require.Eventually(t, func() bool { return len(api.calls()) == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Loading())
	assert.Equal(t, ViewLoading, c.View())

	c.SetSearch("new")
	require.Eventually(t, func() bool { return len(c.Notes()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"new"}, ids(c.Notes()))

	close(slow)
	c.Wait()
	assert.Equal(t, []string{"new"}, ids(c.Notes()))
	assert.False(t, c.Loading())
}

func TestCollection_RefetchOnSignalAndSession(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{note("a", false)}}
	sessions := &fakeSessions{}
	sig := refresh.New()

	c := New(api)
	c.Bind(sessions, sig)

	sessions.Publish(model.Session{ID: "u1", Token: "t"})
	c.Wait()
	assert.Len(t, api.calls(), 1)
	assert.Equal(t, []string{"a"}, ids(c.Notes()))

	sig.Bump()
	c.Wait()
	assert.Len(t, api.calls(), 2)

	c.Refresh()
	c.Wait()
	assert.Len(t, api.calls(), 3)
	assert.Equal(t, refresh.Token(2), sig.Current())

	// logout clears without fetching
	sessions.Publish(model.Session{})
	c.Wait()
	assert.Len(t, api.calls(), 3)
	assert.Empty(t, c.Notes())

	c.Close()
	sig.Bump()
	c.Wait()
	assert.Len(t, api.calls(), 3)
}

func TestCollection_SearchDebounce(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{}}
	c := New(api, WithSearchDebounce(40*time.Millisecond))
	defer c.Close()

	for _, s := range []string{"m", "mi", "mil", "milk"} {
		c.SetSearch(s)
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return len(api.calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"milk"}, api.calls())
}

func TestCollection_SameSearchNoFetch(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	c := New(api)
	c.SetSearch("")
	c.Wait()
	assert.Empty(t, api.calls())
}

func TestCollection_CreateRefreshes(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{}}
	sig := refresh.New()
	c := New(api)
	c.Bind(nil, sig)

	n, err := c.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", n.ID)
	assert.Equal(t, model.ColorDefault, n.Color)
	c.Wait()
	assert.Equal(t, refresh.Token(1), sig.Current())
	assert.Len(t, api.calls(), 1)
}

func TestCollection_CreateRejectsDoubleSubmit(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{createGate: make(chan struct{}), createEnter: make(chan struct{}, 1)}
	c := New(api)

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(context.Background())
		done <- err
	}()
	<-api.createEnter

	_, err := c.Create(context.Background())
	assert.ErrorIs(t, err, ErrCreateInFlight)

	close(api.createGate)
	require.NoError(t, <-done)
	c.Wait()
	assert.Equal(t, 1, api.created)
}

func TestCollection_SubscribeSeesAppliedFetch(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{notes: []model.Note{note("a", false)}}
	c := New(api)
	var got []string
	c.Subscribe(func(ns []model.Note) { got = ids(ns) })
	require.NoError(t, c.Fetch(context.Background()))
	assert.Equal(t, []string{"a"}, got)
}

func TestView_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "no-results", ViewNoResults.String())
	assert.Equal(t, "unknown", View(42).String())
}

func TestCollection_QueryIsSynchronous(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{bySearch: map[string][]model.Note{"x": {note("x1", false)}}}
	c := New(api, WithSearchDebounce(time.Hour))
	defer c.Close()

	require.NoError(t, c.Query(context.Background(), "x"))
	assert.Equal(t, "x", c.Search())
	assert.Equal(t, []string{"x1"}, ids(c.Notes()))
	assert.Equal(t, []string{"x"}, api.calls())
}
