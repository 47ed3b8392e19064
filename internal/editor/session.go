// Package editor implements the per-note editing session: debounced autosave
// of title, content and tag, a separate debounced color save, pin toggle,
// delete and member management.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/access"
	"github.com/and161185/notekeeper/internal/debounce"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

// Default debounce windows.
const (
	DefaultEditDelay  = time.Second
	DefaultColorDelay = 200 * time.Millisecond
)

// Member operation fallbacks when the server gives no message.
const (
	AddMemberFailedMsg    = "Failed to add member"
	ChangeRoleFailedMsg   = "Failed to change role"
	RemoveMemberFailedMsg = "Failed to remove member"
	EmptyEmailMsg         = "Please enter an email address"
)

// API is the subset of the service client an editing session needs.
type API interface {
	GetNote(ctx context.Context, id string) (model.Note, error)
	UpdateNote(ctx context.Context, id string, e model.NoteEdit) error
	UpdateColor(ctx context.Context, id string, c model.Color) error
	TogglePin(ctx context.Context, id string) error
	DeleteNote(ctx context.Context, id string) error
	SetMember(ctx context.Context, noteID, email string, role model.Role) error
	RemoveMember(ctx context.Context, noteID, email string) error
}

// Session edits one note. Edits are applied locally at once and persisted by
// two independent trailing-edge debouncers. After Close no save is started;
// a save already in flight still completes.
type Session struct {
	api     API
	log     *zap.Logger
	userID  string
	id      string
	timeout time.Duration

	editDelay  time.Duration
	colorDelay time.Duration
	onClose    func()
	onError    func(error)

	edits  *debounce.Debouncer
	colors *debounce.Debouncer

	mu       sync.Mutex
	server   model.Note
	edit     model.NoteEdit
	color    model.Color
	pinned   bool
	caps     access.Capabilities
	saving   int
	idle     *sync.Cond // signalled when saving drops to zero
	saveErrs map[string]error
	closed   bool
	closeOne sync.Once
}

// Option configures a Session.
type Option func(*Session)

func WithEditDelay(d time.Duration) Option  { return func(s *Session) { s.editDelay = d } }
func WithColorDelay(d time.Duration) Option { return func(s *Session) { s.colorDelay = d } }
func WithLogger(l *zap.Logger) Option       { return func(s *Session) { s.log = l } }

// WithTimeout bounds each save started by a debouncer.
func WithTimeout(d time.Duration) Option { return func(s *Session) { s.timeout = d } }

// WithOnClose runs fn once when the session closes, including after Delete.
func WithOnClose(fn func()) Option { return func(s *Session) { s.onClose = fn } }

// WithErrorHandler receives every failed autosave.
func WithErrorHandler(fn func(error)) Option { return func(s *Session) { s.onError = fn } }

// Open fetches the note and resolves what userID may do with it.
func Open(ctx context.Context, api API, userID, noteID string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(noteID) == "" {
		return nil, errs.Validation("note id is required")
	}
	s := &Session{
		api:        api,
		log:        zap.NewNop(),
		userID:     userID,
		id:         noteID,
		timeout:    30 * time.Second,
		editDelay:  DefaultEditDelay,
		colorDelay: DefaultColorDelay,
		saveErrs:   map[string]error{},
	}
	s.idle = sync.NewCond(&s.mu)
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("note_id", noteID))

	n, err := api.GetNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("open note %s: %w", noteID, err)
	}
	s.seed(n)

	s.edits = debounce.New(s.editDelay, s.saveEdit)
	s.colors = debounce.New(s.colorDelay, s.saveColor)
	return s, nil
}

// seed replaces local state with a fetched note.
func (s *Session) seed(n model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = n
	s.edit = n.Edit()
	s.color = model.ParseColor(string(n.Color))
	s.pinned = n.Pinned
	s.caps = access.Resolve(s.userID, n)
}

// ID of the edited note.
func (s *Session) ID() string { return s.id }

// Capabilities resolved at the last fetch.
func (s *Session) Capabilities() access.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// Note returns the last fetched note with local edits applied.
func (s *Session) Note() model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.server
	n.Title, n.Content, n.Tag = s.edit.Title, s.edit.Content, s.edit.Tag
	n.Color = s.color
	n.Pinned = s.pinned
	return n
}

// checkEditable must be called with mu held.
func (s *Session) checkEditable() error {
	if s.closed {
		return errs.ErrClosed
	}
	if !s.caps.CanEdit {
		return errs.ErrReadOnly
	}
	return nil
}

// SetEdit replaces title, content and tag and restarts the edit window.
func (s *Session) SetEdit(e model.NoteEdit) error {
	return s.applyEdit(func(cur *model.NoteEdit) { *cur = e })
}

func (s *Session) SetTitle(v string) error {
	return s.applyEdit(func(cur *model.NoteEdit) { cur.Title = v })
}

func (s *Session) SetContent(v string) error {
	return s.applyEdit(func(cur *model.NoteEdit) { cur.Content = v })
}

func (s *Session) SetTag(v string) error {
	return s.applyEdit(func(cur *model.NoteEdit) { cur.Tag = v })
}

func (s *Session) applyEdit(fn func(*model.NoteEdit)) error {
	s.mu.Lock()
	if err := s.checkEditable(); err != nil {
		s.mu.Unlock()
		return err
	}
	fn(&s.edit)
	s.mu.Unlock()

	s.edits.Trigger()
	return nil
}

// SetColor changes the color and restarts the color window.
func (s *Session) SetColor(c model.Color) error {
	if !c.Valid() {
		return errs.Validation(fmt.Sprintf("unknown color %q", c))
	}
	s.mu.Lock()
	if err := s.checkEditable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.color = c
	s.mu.Unlock()

	s.colors.Trigger()
	return nil
}

func (s *Session) saveEdit() {
	s.mu.Lock()
	e := s.edit
	s.saving++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.api.UpdateNote(ctx, s.id, e)
	s.finishSave("edit", err, func(n *model.Note) {
		n.Title, n.Content, n.Tag = e.Title, e.Content, e.Tag
	})
}

func (s *Session) saveColor() {
	s.mu.Lock()
	c := s.color
	s.saving++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.api.UpdateColor(ctx, s.id, c)
	s.finishSave("color", err, func(n *model.Note) { n.Color = c })
}

// finishSave records the outcome per kind. On success apply updates the
// server snapshot and an earlier failure of the same kind is forgotten.
func (s *Session) finishSave(kind string, err error, apply func(*model.Note)) {
	s.mu.Lock()
	s.saving--
	if s.saving == 0 {
		s.idle.Broadcast()
	}
	if err == nil {
		apply(&s.server)
		delete(s.saveErrs, kind)
	} else {
		s.saveErrs[kind] = fmt.Errorf("save %s: %w", kind, err)
	}
	onError := s.onError
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("autosave failed", zap.String("kind", kind), zap.Error(err))
		if onError != nil {
			onError(err)
		}
		return
	}
	s.log.Debug("autosaved", zap.String("kind", kind))
}

// Dirty reports whether a save is scheduled or in flight.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	saving := s.saving
	s.mu.Unlock()
	return saving > 0 || s.edits.Pending() || s.colors.Pending()
}

// Err returns the failures of the latest edit and color saves. A kind whose
// latest save succeeded contributes nothing.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.saveErrs["edit"], s.saveErrs["color"])
}

// Flush runs scheduled saves now, in the caller's goroutine, waits for saves
// already in flight and returns Err.
func (s *Session) Flush() error {
	s.edits.Flush()
	s.colors.Flush()
	s.waitSaves()
	return s.Err()
}

func (s *Session) waitSaves() {
	s.mu.Lock()
	for s.saving > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// TogglePin flips the pin flag locally and on the server. On failure the
// local flag is rolled back.
func (s *Session) TogglePin(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if err := s.checkEditable(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.pinned = !s.pinned
	want := s.pinned
	s.mu.Unlock()

	if err := s.api.TogglePin(ctx, s.id); err != nil {
		s.mu.Lock()
		if s.pinned == want {
			s.pinned = !want
		}
		cur := s.pinned
		s.mu.Unlock()
		s.log.Warn("toggle pin failed, rolled back", zap.Error(err))
		return cur, err
	}

	s.mu.Lock()
	s.server.Pinned = want
	s.mu.Unlock()
	return want, nil
}

// Delete removes the note and closes the session. Scheduled saves are held
// back during the call and rescheduled if it fails.
func (s *Session) Delete(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkEditable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	editPending := s.edits.Cancel()
	colorPending := s.colors.Cancel()
	if err := s.api.DeleteNote(ctx, s.id); err != nil {
		if editPending {
			s.edits.Trigger()
		}
		if colorPending {
			s.colors.Trigger()
		}
		return err
	}
	s.Close()
	return nil
}

// Reload refetches the note, replacing local edits and capabilities.
// Scheduled saves are dropped.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errs.ErrClosed
	}
	n, err := s.api.GetNote(ctx, s.id)
	if err != nil {
		return err
	}
	s.edits.Cancel()
	s.colors.Cancel()
	s.seed(n)
	return nil
}

// AddMember invites email with role.
func (s *Session) AddMember(ctx context.Context, email string, role model.Role) error {
	return s.memberOp(ctx, email, AddMemberFailedMsg, func(email string) error {
		return s.api.SetMember(ctx, s.id, email, role)
	})
}

// ChangeRole re-sends the add call with the new role.
func (s *Session) ChangeRole(ctx context.Context, email string, role model.Role) error {
	return s.memberOp(ctx, email, ChangeRoleFailedMsg, func(email string) error {
		return s.api.SetMember(ctx, s.id, email, role)
	})
}

func (s *Session) RemoveMember(ctx context.Context, email string) error {
	return s.memberOp(ctx, email, RemoveMemberFailedMsg, func(email string) error {
		return s.api.RemoveMember(ctx, s.id, email)
	})
}

// memberOp gates on CanManageMembers, runs op and refreshes members and
// capabilities. Errors carry a user-facing message.
func (s *Session) memberOp(ctx context.Context, email, fallback string, op func(string) error) error {
	s.mu.Lock()
	closed, caps := s.closed, s.caps
	s.mu.Unlock()
	if closed {
		return errs.ErrClosed
	}
	if !caps.CanManageMembers {
		return errs.ErrForbidden
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return errs.Validation(EmptyEmailMsg)
	}
	if err := op(email); err != nil {
		return errs.Surface(err, fallback)
	}

	if err := s.Flush(); err != nil {
		s.log.Warn("flush before member reload", zap.Error(err))
	}
	if err := s.reloadMembers(ctx); err != nil && !errors.Is(err, errs.ErrClosed) {
		s.log.Warn("reload after member change", zap.Error(err))
	}
	return nil
}

// reloadMembers refetches the note but keeps local title, content, tag, color
// and pin. Only the server snapshot, members and capabilities change.
func (s *Session) reloadMembers(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errs.ErrClosed
	}
	n, err := s.api.GetNote(ctx, s.id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = n
	s.caps = access.Resolve(s.userID, n)
	return nil
}

// Close cancels scheduled saves and runs the close hook once. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.edits.Stop()
	s.colors.Stop()
	s.closeOne.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
