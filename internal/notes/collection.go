// Package notes holds the list of notes visible to the current identity.
package notes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/debounce"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/observe"
	"github.com/and161185/notekeeper/internal/refresh"
)

// API is the subset of the service client used by the collection.
type API interface {
	ListNotes(ctx context.Context, search string) ([]model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
}

// SessionSource notifies about identity changes. A zero Session means logout.
type SessionSource interface {
	Subscribe(fn func(model.Session)) (unsubscribe func())
}

// ErrCreateInFlight is returned by Create while a previous Create is running.
var ErrCreateInFlight = errors.New("note creation already in progress")

// View is what a list screen should render.
type View int

const (
	ViewLoading View = iota
	ViewEmpty
	ViewNoResults
	ViewNotes
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewEmpty:
		return "empty"
	case ViewNoResults:
		return "no-results"
	case ViewNotes:
		return "notes"
	}
	return "unknown"
}

// Collection refetches on session change, search change and refresh signal.
// A failed fetch keeps the previous notes. Responses that arrive after a newer
// fetch was started are dropped.
type Collection struct {
	api     API
	log     *zap.Logger
	timeout time.Duration
	delay   time.Duration

	searchDebounce *debounce.Debouncer

	mu       sync.Mutex
	notes    []model.Note
	search   string
	inflight int
	issued   uint64
	applied  uint64
	signal   *refresh.Signal
	unbind   []func()
	creating bool

	wg      sync.WaitGroup
	changes observe.Subject[[]model.Note]
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Collection) { c.log = l } }

// WithTimeout bounds background fetches.
func WithTimeout(d time.Duration) Option { return func(c *Collection) { c.timeout = d } }

// WithSearchDebounce delays search-triggered fetches. Zero fetches on every
// change.
func WithSearchDebounce(d time.Duration) Option { return func(c *Collection) { c.delay = d } }

// New returns an empty collection.
func New(api API, opts ...Option) *Collection {
	c := &Collection{api: api, log: zap.NewNop(), timeout: 30 * time.Second, notes: []model.Note{}}
	for _, o := range opts {
		o(c)
	}
	if c.delay > 0 {
		c.searchDebounce = debounce.New(c.delay, c.fetchAsync)
	}
	return c
}

// Bind subscribes to identity changes and to the refresh signal. Either may
// be nil.
func (c *Collection) Bind(sessions SessionSource, sig *refresh.Signal) {
	var unbind []func()
	if sessions != nil {
		unbind = append(unbind, sessions.Subscribe(func(s model.Session) {
			if !s.Valid() {
				c.reset()
				return
			}
			c.fetchAsync()
		}))
	}
	if sig != nil {
		unbind = append(unbind, sig.Subscribe(func(refresh.Token) { c.fetchAsync() }))
	}

	c.mu.Lock()
	c.signal = sig
	c.unbind = append(c.unbind, unbind...)
	c.mu.Unlock()
}

// Close unsubscribes, cancels a pending search fetch and waits for background
// fetches.
func (c *Collection) Close() {
	c.mu.Lock()
	unbind := c.unbind
	c.unbind = nil
	c.mu.Unlock()
	for _, u := range unbind {
		u()
	}
	if c.searchDebounce != nil {
		c.searchDebounce.Stop()
	}
	c.wg.Wait()
}

// Wait blocks until background fetches started so far have finished.
func (c *Collection) Wait() { c.wg.Wait() }

// SetSearch updates the filter and schedules a fetch. Setting the current
// value again does nothing.
func (c *Collection) SetSearch(text string) {
	c.mu.Lock()
	if c.search == text {
		c.mu.Unlock()
		return
	}
	c.search = text
	c.mu.Unlock()

	if c.searchDebounce != nil {
		c.searchDebounce.Trigger()
		return
	}
	c.fetchAsync()
}

// Query sets the filter and fetches in the caller's goroutine. No background
// fetch is scheduled.
func (c *Collection) Query(ctx context.Context, text string) error {
	c.mu.Lock()
	c.search = text
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// Refresh regenerates the refresh signal, which makes every bound store
// refetch. Without a bound signal it fetches directly.
func (c *Collection) Refresh() {
	c.mu.Lock()
	sig := c.signal
	c.mu.Unlock()
	if sig != nil {
		sig.Bump()
		return
	}
	c.fetchAsync()
}

func (c *Collection) fetchAsync() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_ = c.Fetch(ctx)
	}()
}

// Fetch loads notes for the current search. On error the previous notes are
// kept and the error is logged and returned.
func (c *Collection) Fetch(ctx context.Context) error {
	c.mu.Lock()
	c.inflight++
	c.issued++
	seq := c.issued
	search := c.search
	c.mu.Unlock()

	list, err := c.api.ListNotes(ctx, search)

	c.mu.Lock()
	c.inflight--
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("fetch notes", zap.String("search", search), zap.Error(err))
		return err
	}
	if seq <= c.applied {
		c.mu.Unlock()
		c.log.Debug("stale notes response dropped", zap.Uint64("seq", seq))
		return nil
	}
	c.applied = seq
	c.notes = list
	snapshot := cloneNotes(list)
	c.mu.Unlock()

	c.changes.Publish(snapshot)
	return nil
}

// reset clears the list after logout and drops responses still in flight.
func (c *Collection) reset() {
	c.mu.Lock()
	c.notes = []model.Note{}
	c.search = ""
	c.applied = c.issued
	c.mu.Unlock()
	c.changes.Publish([]model.Note{})
}

// Create posts an empty note and refreshes. A second call while the first is
// running fails with ErrCreateInFlight.
func (c *Collection) Create(ctx context.Context) (model.Note, error) {
	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return model.Note{}, ErrCreateInFlight
	}
	c.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	n, err := c.api.CreateNote(ctx, model.EmptyNote())
	if err != nil {
		return model.Note{}, err
	}
	c.Refresh()
	return n, nil
}

// Notes returns a copy of the current notes in server order.
func (c *Collection) Notes() []model.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneNotes(c.notes)
}

func (c *Collection) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// Loading reports whether any fetch is in flight.
func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Partition splits the current notes into pinned and unpinned.
func (c *Collection) Partition() (pinned, unpinned []model.Note) {
	return Partition(c.Notes())
}

// View picks the list state to render.
func (c *Collection) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewOf(len(c.notes), c.search, c.inflight > 0)
}

// Subscribe registers fn for every applied fetch.
func (c *Collection) Subscribe(fn func([]model.Note)) (unsubscribe func()) {
	return c.changes.Subscribe(fn)
}

func viewOf(n int, search string, loading bool) View {
	switch {
	case n > 0:
		return ViewNotes
	case loading:
		return ViewLoading
	case strings.TrimSpace(search) != "":
		return ViewNoResults
	default:
		return ViewEmpty
	}
}

// Partition splits notes into pinned and unpinned, preserving the relative
// order inside each part.
func Partition(notes []model.Note) (pinned, unpinned []model.Note) {
	pinned = make([]model.Note, 0, len(notes))
	unpinned = make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if n.Pinned {
			pinned = append(pinned, n)
		} else {
			unpinned = append(unpinned, n)
		}
	}
	return pinned, unpinned
}

func cloneNotes(in []model.Note) []model.Note {
	out := make([]model.Note, len(in))
	copy(out, in)
	return out
}
