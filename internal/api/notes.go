package api

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/and161185/notekeeper/internal/model"
)

const (
	pathNotes     = "api/note"
	pathNote      = "api/note/{id}"
	pathNoteColor = "api/note/color/{id}"
	pathNotePin   = "api/note/pin/{id}"
)

func withID(id string) func(*resty.Request) {
	return func(r *resty.Request) { r.SetPathParam("id", id) }
}

// ListNotes returns the notes visible to the caller in server order. An empty
// search lists everything.
func (c *Client) ListNotes(ctx context.Context, search string) ([]model.Note, error) {
	var out envelope[[]model.Note]
	err := c.call(ctx, http.MethodGet, pathNotes, func(r *resty.Request) {
		r.SetQueryParam("search", search)
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []model.Note{}
	}
	return out.Data, nil
}

// CreateNote posts a template and returns the stored note.
func (c *Client) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	var out envelope[model.Note]
	err := c.call(ctx, http.MethodPost, pathNotes, func(r *resty.Request) {
		r.SetBody(n)
	}, &out)
	return out.Data, err
}

// GetNote returns the full note including members.
func (c *Client) GetNote(ctx context.Context, id string) (model.Note, error) {
	var out envelope[model.Note]
	err := c.call(ctx, http.MethodGet, pathNote, withID(id), &out)
	return out.Data, err
}

// UpdateNote saves title, content and tag.
func (c *Client) UpdateNote(ctx context.Context, id string, e model.NoteEdit) error {
	return c.call(ctx, http.MethodPatch, pathNote, func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(e)
	}, nil)
}

// UpdateColor saves the note color.
func (c *Client) UpdateColor(ctx context.Context, id string, color model.Color) error {
	return c.call(ctx, http.MethodPatch, pathNoteColor, func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(map[string]model.Color{"color": color})
	}, nil)
}

// TogglePin flips the pinned flag server-side.
func (c *Client) TogglePin(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPatch, pathNotePin, func(r *resty.Request) {
		r.SetPathParam("id", id).SetBody(struct{}{})
	}, nil)
}

// DeleteNote removes the note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, pathNote, withID(id), nil)
}
