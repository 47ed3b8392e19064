// Package model defines the entities exchanged with the notes service.
package model

import (
	"time"
)

// Session is the authenticated identity of the current user.
type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool { return s.Token != "" }

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is posted to the register endpoint.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserRef is a user as embedded by the server in notes and notifications.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Role of a collaborator on a note.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

// Valid reports whether r is a known member role.
func (r Role) Valid() bool { return r == RoleViewer || r == RoleEditor }

// MemberStatus is the invitation state of a collaborator.
type MemberStatus string

const (
	StatusPending MemberStatus = "pending"
	StatusActive  MemberStatus = "active"
	StatusRemoved MemberStatus = "removed"
)

// Member is a collaborator attached to a note.
type Member struct {
	User   UserRef      `json:"id"`
	Role   Role         `json:"role"`
	Status MemberStatus `json:"status"`
}

// Note is the core document owned by its creator.
type Note struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Color        Color      `json:"color"`
	Tag          string     `json:"tag,omitempty"`
	Pinned       bool       `json:"isPinned"`
	Date         time.Time  `json:"date"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	VersionCount int64      `json:"versionCount,omitempty"`
	Author       string     `json:"author,omitempty"`
	CreatedBy    *UserRef   `json:"createdBy,omitempty"`
	LastEditedBy *UserRef   `json:"lastEditedBy,omitempty"`
	Members      []Member   `json:"members,omitempty"`
}

// CreatorID returns the creator's user id or "" when the server omitted it.
func (n Note) CreatorID() string {
	if n.CreatedBy == nil {
		return ""
	}
	return n.CreatedBy.ID
}

// Edit returns the autosaved fields of the note.
func (n Note) Edit() NoteEdit {
	return NoteEdit{Title: n.Title, Content: n.Content, Tag: n.Tag}
}

// EmptyNote is the template posted by the "create empty note" action.
func EmptyNote() Note {
	return Note{
		Color: ColorDefault,
		Date:  time.Now().UTC(),
	}
}

// NoteEdit is the payload of the debounced content save.
type NoteEdit struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tag     string `json:"tag"`
}

// NotificationType distinguishes notification events.
type NotificationType string

const (
	NoteInvitation NotificationType = "note_invitation"
	NoteRemoved    NotificationType = "note_removed"
	InviteAccepted NotificationType = "invite_accepted"
	InviteRejected NotificationType = "invite_rejected"
)

// NoteRef is the note summary embedded in a notification.
type NoteRef struct {
	ID      string `json:"_id"`
	Version struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	} `json:"versionId"`
	Color Color `json:"color"`
}

// Notification is a server-created event addressed to the current user.
type Notification struct {
	ID          string           `json:"_id"`
	RecipientID string           `json:"recipientId"`
	Type        NotificationType `json:"type"`
	Note        NoteRef          `json:"relatedNoteId"`
	Actor       UserRef          `json:"actorId"`
	Role        Role             `json:"role,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
