// Package access resolves what the current identity may do with a note.
package access

import (
	"strings"

	"github.com/and161185/notekeeper/internal/model"
)

// Capabilities of one identity on one note.
type Capabilities struct {
	CanEdit          bool
	CanManageMembers bool
}

// Resolve computes capabilities for userID on note.
//
// Rules:
//   - The creator manages members and edits.
//   - A member whose role is editor edits.
//
// Member status is not consulted: a pending or removed member with the editor
// role still resolves as an editor. The server re-validates every mutation.
func Resolve(userID string, note model.Note) Capabilities {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Capabilities{}
	}

	owner := note.CreatorID() == userID
	if owner {
		return Capabilities{CanEdit: true, CanManageMembers: true}
	}
	for _, m := range note.Members {
		if m.User.ID == userID && m.Role == model.RoleEditor {
			return Capabilities{CanEdit: true}
		}
	}
	return Capabilities{}
}

// Role names for display.
const (
	RoleOwner = "owner"
)

// RoleOf returns "owner", the member role, or "" when userID has no relation
// to the note.
func RoleOf(userID string, note model.Note) string {
	if userID == "" {
		return ""
	}
	if note.CreatorID() == userID {
		return RoleOwner
	}
	for _, m := range note.Members {
		if m.User.ID == userID {
			return string(m.Role)
		}
	}
	return ""
}

// ActiveMembers filters members whose invitation was accepted.
func ActiveMembers(members []model.Member) []model.Member {
	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		if m.Status == model.StatusActive {
			out = append(out, m)
		}
	}
	return out
}
