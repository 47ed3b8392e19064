package inbox

import (
	"fmt"
	"time"

	"github.com/and161185/notekeeper/internal/model"
)

// TimeAgo renders t relative to now: "just now", "5m ago", "3h ago", "2d ago",
// or the date once a week has passed.
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
	if days := int(d / (24 * time.Hour)); days < 7 {
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Local().Format("2006-01-02")
}

// NeedsAction reports whether n expects accept or decline.
func NeedsAction(n model.Notification) bool {
	return n.Type == model.NoteInvitation
}

// Message is the human text for n.
func Message(n model.Notification) string {
	actor := n.Actor.Name
	if actor == "" {
		actor = "Someone"
	}
	title := n.Note.Version.Title
	if title == "" {
		title = "Untitled Note"
	}

	switch n.Type {
	case model.NoteInvitation:
		return fmt.Sprintf("%s invited you as a %s to %q", actor, n.Role, title)
	case model.NoteRemoved:
		return fmt.Sprintf("%s removed you from %q", actor, title)
	case model.InviteAccepted:
		return fmt.Sprintf("%s accepted your invitation to %q", actor, title)
	case model.InviteRejected:
		return fmt.Sprintf("%s declined your invitation to %q", actor, title)
	}
	return "You have a new notification"
}
