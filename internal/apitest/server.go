// Package apitest provides an in-memory notes service for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/and161185/notekeeper/internal/model"
)

type user struct {
	model.UserRef
	password string
}

// Server is a fake of the remote API. Only the behaviour the client relies on
// is modelled: bearer auth, note visibility for creator and members, member
// upsert, and invitation notifications.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	seq     int
	users   map[string]*user // by email
	tokens  map[string]string
	notes   []*model.Note
	notifs  map[string][]*model.Notification // by recipient
	calls   map[string]int
	history []string
}

// New starts a server closed at test cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:  map[string]*user{},
		tokens: map[string]string{},
		notifs: map[string][]*model.Notification{},
		calls:  map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("GET /api/auth/verify", s.authed(func(w http.ResponseWriter, _ *http.Request, _ *user) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("GET /api/note", s.authed(s.listNotes))
	mux.HandleFunc("POST /api/note", s.authed(s.createNote))
	mux.HandleFunc("GET /api/note/{id}", s.authed(s.getNote))
	mux.HandleFunc("PATCH /api/note/{id}", s.authed(s.updateNote))
	mux.HandleFunc("DELETE /api/note/{id}", s.authed(s.deleteNote))
	mux.HandleFunc("PATCH /api/note/color/{id}", s.authed(s.updateColor))
	mux.HandleFunc("PATCH /api/note/pin/{id}", s.authed(s.togglePin))
	mux.HandleFunc("PATCH /api/note/{id}/{role}", s.authed(s.setMember))
	mux.HandleFunc("DELETE /api/note/{id}/member", s.authed(s.removeMember))
	mux.HandleFunc("GET /api/user/notifications", s.authed(s.listNotifications))
	mux.HandleFunc("POST /api/user/notification/{id}/{action}", s.authed(s.answerInvite))
	mux.HandleFunc("PATCH /api/user/notification/{id}/read", s.authed(s.markRead))

	s.Server = httptest.NewServer(s.count(mux))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		key := r.Method + " " + r.URL.Path
		s.calls[key]++
		s.history = append(s.history, key)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests hit method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// History returns every request as "METHOD path" in arrival order.
func (s *Server) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

// AddUser registers a user directly and returns its session.
func (s *Server) AddUser(name, email, password string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password)
}

func (s *Server) addUserLocked(name, email, password string) model.Session {
	u := &user{UserRef: model.UserRef{ID: s.nextID("u"), Name: name, Email: email}, password: password}
	s.users[email] = u
	tok := "tok-" + u.ID
	s.tokens[tok] = u.ID
	return model.Session{ID: u.ID, Name: name, Token: tok}
}

// AddNote stores n as created by the owner session and returns its id.
func (s *Server) AddNote(owner model.Session, n model.Note) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNoteLocked(s.userByID(owner.ID), n).ID
}

func (s *Server) addNoteLocked(owner *user, n model.Note) *model.Note {
	n.ID = s.nextID("n")
	ref := owner.UserRef
	n.CreatedBy = &ref
	if n.Color == "" {
		n.Color = model.ColorDefault
	}
	if n.Date.IsZero() {
		n.Date = time.Now().UTC()
	}
	n.VersionCount = 1
	s.notes = append(s.notes, &n)
	return &n
}

// Note returns a copy of the stored note.
func (s *Server) Note(id string) (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.findNote(id); n != nil {
		return *n, true
	}
	return model.Note{}, false
}

func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) findNote(id string) *model.Note {
	for _, n := range s.notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type handler func(w http.ResponseWriter, r *http.Request, u *user)

func (s *Server) authed(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		id, ok := s.tokens[tok]
		var u *user
		if ok {
			u = s.userByID(id)
		}
		s.mu.Unlock()
		if u == nil {
			fail(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		h(w, r, u)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var cr model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cr); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[cr.Email]
	if !ok || u.password != cr.Password {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	tok := "tok-" + u.ID
	writeJSON(w, http.StatusOK, map[string]any{"data": model.Session{ID: u.ID, Name: u.Name, Token: tok}})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[p.Email]; taken {
		fail(w, http.StatusConflict, "Email already registered")
		return
	}
	writeJSON(w, http.StatusCreated, s.addUserLocked(p.Name, p.Email, p.Password))
}

// visible reports whether u is creator or a non-removed member of n.
func visible(n *model.Note, u *user) bool {
	if n.CreatorID() == u.ID {
		return true
	}
	for _, m := range n.Members {
		if m.User.ID == u.ID && m.Status == model.StatusActive {
			return true
		}
	}
	return false
}

func canEdit(n *model.Note, u *user) bool {
	if n.CreatorID() == u.ID {
		return true
	}
	for _, m := range n.Members {
		if m.User.ID == u.ID && m.Status == model.StatusActive && m.Role == model.RoleEditor {
			return true
		}
	}
	return false
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request, u *user) {
	q := strings.ToLower(r.URL.Query().Get("search"))
	s.mu.Lock()
	out := []model.Note{}
	for _, n := range s.notes {
		if !visible(n, u) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title+" "+n.Content+" "+n.Tag), q) {
			continue
		}
		out = append(out, *n)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, u *user) {
	var n model.Note
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.mu.Lock()
	stored := *s.addNoteLocked(u, n)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": stored})
}

// withNote resolves {id}; edit requires edit rights.
func (s *Server) withNote(w http.ResponseWriter, r *http.Request, u *user, edit bool, fn func(n *model.Note)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.findNote(r.PathValue("id"))
	if n == nil || !visible(n, u) {
		fail(w, http.StatusNotFound, "Note not found")
		return
	}
	if edit && !canEdit(n, u) {
		fail(w, http.StatusForbidden, "You cannot edit this note")
		return
	}
	fn(n)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request, u *user) {
	s.withNote(w, r, u, false, func(n *model.Note) {
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) touch(n *model.Note, u *user) {
	now := time.Now().UTC()
	ref := u.UserRef
	n.UpdatedAt = &now
	n.LastEditedBy = &ref
	n.VersionCount++
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request, u *user) {
	var e model.NoteEdit
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.withNote(w, r, u, true, func(n *model.Note) {
		n.Title, n.Content, n.Tag = e.Title, e.Content, e.Tag
		s.touch(n, u)
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) updateColor(w http.ResponseWriter, r *http.Request, u *user) {
	var body struct {
		Color model.Color `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.withNote(w, r, u, true, func(n *model.Note) {
		n.Color = body.Color
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) togglePin(w http.ResponseWriter, r *http.Request, u *user) {
	s.withNote(w, r, u, true, func(n *model.Note) {
		n.Pinned = !n.Pinned
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request, u *user) {
	s.withNote(w, r, u, true, func(n *model.Note) {
		kept := s.notes[:0]
		for _, x := range s.notes {
			if x != n {
				kept = append(kept, x)
			}
		}
		s.notes = kept
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) notify(to *user, typ model.NotificationType, actor *user, n *model.Note, role model.Role) {
	x := &model.Notification{
		ID:          s.nextID("x"),
		RecipientID: to.ID,
		Type:        typ,
		Actor:       actor.UserRef,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	x.UpdatedAt = x.CreatedAt
	x.Note.ID = n.ID
	x.Note.Version.Title = n.Title
	x.Note.Color = n.Color
	s.notifs[to.ID] = append([]*model.Notification{x}, s.notifs[to.ID]...)
}

func (s *Server) setMember(w http.ResponseWriter, r *http.Request, u *user) {
	role := model.Role(r.PathValue("role"))
	if !role.Valid() {
		fail(w, http.StatusNotFound, "Unknown route")
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.withNote(w, r, u, false, func(n *model.Note) {
		if n.CreatorID() != u.ID {
			fail(w, http.StatusForbidden, "Only the owner can manage members")
			return
		}
		target, ok := s.users[body.Email]
		if !ok {
			fail(w, http.StatusNotFound, "User not found")
			return
		}
		for i := range n.Members {
			if n.Members[i].User.ID == target.ID {
				n.Members[i].Role = role
				writeJSON(w, http.StatusOK, map[string]any{"data": *n})
				return
			}
		}
		n.Members = append(n.Members, model.Member{User: target.UserRef, Role: role, Status: model.StatusPending})
		s.notify(target, model.NoteInvitation, u, n, role)
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request, u *user) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "bad request")
		return
	}
	s.withNote(w, r, u, false, func(n *model.Note) {
		if n.CreatorID() != u.ID {
			fail(w, http.StatusForbidden, "Only the owner can manage members")
			return
		}
		target, ok := s.users[body.Email]
		if !ok {
			fail(w, http.StatusNotFound, "User not found")
			return
		}
		for i := range n.Members {
			if n.Members[i].User.ID == target.ID {
				n.Members[i].Status = model.StatusRemoved
				s.notify(target, model.NoteRemoved, u, n, "")
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": *n})
	})
}

func (s *Server) listNotifications(w http.ResponseWriter, _ *http.Request, u *user) {
	s.mu.Lock()
	out := []model.Notification{}
	for _, x := range s.notifs[u.ID] {
		out = append(out, *x)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) findNotif(u *user, id string) *model.Notification {
	for _, x := range s.notifs[u.ID] {
		if x.ID == id {
			return x
		}
	}
	return nil
}

func (s *Server) answerInvite(w http.ResponseWriter, r *http.Request, u *user) {
	action := r.PathValue("action")
	if action != "accept" && action != "decline" {
		fail(w, http.StatusNotFound, "Unknown route")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	x := s.findNotif(u, r.PathValue("id"))
	if x == nil || x.Type != model.NoteInvitation {
		fail(w, http.StatusNotFound, "Invitation not found")
		return
	}
	n := s.findNote(x.Note.ID)
	if n == nil {
		fail(w, http.StatusNotFound, "Note not found")
		return
	}
	x.IsRead = true
	owner := s.userByID(n.CreatorID())
	for i := range n.Members {
		if n.Members[i].User.ID != u.ID {
			continue
		}
		if action == "accept" {
			n.Members[i].Status = model.StatusActive
			s.notify(owner, model.InviteAccepted, u, n, "")
		} else {
			n.Members[i].Status = model.StatusRemoved
			s.notify(owner, model.InviteRejected, u, n, "")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": *x})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request, u *user) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x := s.findNotif(u, r.PathValue("id"))
	if x == nil {
		fail(w, http.StatusNotFound, "Notification not found")
		return
	}
	x.IsRead = true
	writeJSON(w, http.StatusOK, map[string]any{"data": *x})
}
