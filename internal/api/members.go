package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

const (
	pathMemberRole = "api/note/{id}/{role}"
	pathMember     = "api/note/{id}/member"
)

type emailBody struct {
	Email string `json:"email"`
}

// SetMember adds a collaborator or changes the role of an existing one. The
// server treats the call as an upsert keyed by email.
func (c *Client) SetMember(ctx context.Context, noteID, email string, role model.Role) error {
	if !role.Valid() {
		return errs.Validation(fmt.Sprintf("unknown role %q", role))
	}
	return c.call(ctx, http.MethodPatch, pathMemberRole, func(r *resty.Request) {
		r.SetPathParams(map[string]string{"id": noteID, "role": string(role)}).
			SetBody(emailBody{Email: email})
	}, nil)
}

// RemoveMember detaches a collaborator.
func (c *Client) RemoveMember(ctx context.Context, noteID, email string) error {
	return c.call(ctx, http.MethodDelete, pathMember, func(r *resty.Request) {
		r.SetPathParam("id", noteID).SetBody(emailBody{Email: email})
	}, nil)
}
