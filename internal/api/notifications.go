package api

import (
	"context"
	"net/http"

	"github.com/and161185/notekeeper/internal/model"
)

const (
	pathNotifications = "api/user/notifications"
	pathAccept        = "api/user/notification/{id}/accept"
	pathDecline       = "api/user/notification/{id}/decline"
	pathRead          = "api/user/notification/{id}/read"
)

// ListNotifications returns every notification of the caller. There is no
// pagination.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out envelope[[]model.Notification]
	if err := c.call(ctx, http.MethodGet, pathNotifications, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []model.Notification{}
	}
	return out.Data, nil
}

func (c *Client) AcceptInvite(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, pathAccept, withID(id), nil)
}

func (c *Client) DeclineInvite(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPost, pathDecline, withID(id), nil)
}

// MarkRead marks an informational notification read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPatch, pathRead, withID(id), nil)
}
