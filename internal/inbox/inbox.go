// Package inbox implements the notification and invitation flow.
package inbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/refresh"
)

// DismissInvitationMsg rejects Dismiss on an invitation.
const DismissInvitationMsg = "Invitations must be accepted or declined"

// API is the subset of the service client the inbox uses.
type API interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	AcceptInvite(ctx context.Context, id string) error
	DeclineInvite(ctx context.Context, id string) error
	MarkRead(ctx context.Context, id string) error
}

// SessionSource notifies about identity changes. A zero Session means logout.
type SessionSource interface {
	Subscribe(fn func(model.Session)) (unsubscribe func())
}

// Inbox holds the current identity's notifications. It refetches whenever the
// refresh signal changes and has no polling loop of its own.
type Inbox struct {
	api     API
	signal  *refresh.Signal
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	list    []model.Notification
	issued  uint64
	applied uint64
	unbind  []func()

	wg sync.WaitGroup
}

// Option configures an Inbox.
type Option func(*Inbox)

func WithLogger(l *zap.Logger) Option { return func(i *Inbox) { i.log = l } }

// WithTimeout bounds background fetches.
func WithTimeout(d time.Duration) Option { return func(i *Inbox) { i.timeout = d } }

// New returns an inbox whose actions bump sig. sig may be nil.
func New(api API, sig *refresh.Signal, opts ...Option) *Inbox {
	i := &Inbox{
		api:     api,
		signal:  sig,
		log:     zap.NewNop(),
		timeout: 30 * time.Second,
		list:    []model.Notification{},
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Bind makes every refresh bump refetch the list. With a session source the
// list is also fetched on login and cleared on logout. sessions may be nil.
func (i *Inbox) Bind(sessions SessionSource) {
	var unbind []func()
	if i.signal != nil {
		unbind = append(unbind, i.signal.Subscribe(func(refresh.Token) { i.fetchAsync() }))
	}
	if sessions != nil {
		unbind = append(unbind, sessions.Subscribe(func(s model.Session) {
			if !s.Valid() {
				i.reset()
				return
			}
			i.fetchAsync()
		}))
	}
	i.mu.Lock()
	i.unbind = append(i.unbind, unbind...)
	i.mu.Unlock()
}

// Close unsubscribes and waits for background fetches.
func (i *Inbox) Close() {
	i.mu.Lock()
	unbind := i.unbind
	i.unbind = nil
	i.mu.Unlock()
	for _, u := range unbind {
		u()
	}
	i.wg.Wait()
}

func (i *Inbox) reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.list = []model.Notification{}
	i.applied = i.issued
}

// Wait blocks until background fetches started so far have finished.
func (i *Inbox) Wait() { i.wg.Wait() }

func (i *Inbox) fetchAsync() {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
		defer cancel()
		_ = i.Fetch(ctx)
	}()
}

// Fetch replaces the list. On error the previous list is kept.
func (i *Inbox) Fetch(ctx context.Context) error {
	i.mu.Lock()
	i.issued++
	seq := i.issued
	i.mu.Unlock()

	list, err := i.api.ListNotifications(ctx)
	if err != nil {
		i.log.Warn("fetch notifications", zap.Error(err))
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if seq > i.applied {
		i.applied = seq
		i.list = list
	}
	return nil
}

// List returns a copy of the notifications in server order.
func (i *Inbox) List() []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]model.Notification, len(i.list))
	copy(out, i.list)
	return out
}

// UnreadCount counts notifications not yet read.
func (i *Inbox) UnreadCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, x := range i.list {
		if !x.IsRead {
			n++
		}
	}
	return n
}

// Accept accepts an invitation and bumps the refresh signal.
func (i *Inbox) Accept(ctx context.Context, id string) error {
	return i.act(ctx, "accept", id, i.api.AcceptInvite)
}

// Decline declines an invitation and bumps the refresh signal.
func (i *Inbox) Decline(ctx context.Context, id string) error {
	return i.act(ctx, "decline", id, i.api.DeclineInvite)
}

// Dismiss marks a fetched notification read and bumps the refresh signal.
// Invitations are answered with Accept or Decline instead; ids missing from
// the list are reported as errs.ErrNotFound. Neither reaches the server.
func (i *Inbox) Dismiss(ctx context.Context, id string) error {
	n, ok := i.find(id)
	if !ok {
		return fmt.Errorf("dismiss notification %s: %w", id, errs.ErrNotFound)
	}
	if NeedsAction(n) {
		return errs.Validation(DismissInvitationMsg)
	}
	return i.act(ctx, "dismiss", id, i.api.MarkRead)
}

func (i *Inbox) find(id string) (model.Notification, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, n := range i.list {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// act runs call and bumps the signal once on success. A failed call does not
// bump.
func (i *Inbox) act(ctx context.Context, name, id string, call func(context.Context, string) error) error {
	if err := call(ctx, id); err != nil {
		return fmt.Errorf("%s notification %s: %w", name, id, err)
	}
	if i.signal != nil {
		i.signal.Bump()
	}
	return nil
}
