package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
)

const (
	pathLogin    = "api/auth/login"
	pathRegister = "api/auth/register"
	pathVerify   = "api/auth/verify"
)

// Login posts credentials and returns the issued session.
func (c *Client) Login(ctx context.Context, cr model.Credentials) (model.Session, error) {
	var out envelope[model.Session]
	err := c.call(ctx, http.MethodPost, pathLogin, func(r *resty.Request) {
		r.SetBody(cr)
	}, &out)
	if err != nil {
		return model.Session{}, err
	}
	if !out.Data.Valid() {
		return model.Session{}, fmt.Errorf("login: %w", errMissingToken)
	}
	return out.Data, nil
}

// registerResponse accepts both {data:{...}} and a bare session object.
type registerResponse struct {
	Data *model.Session `json:"data"`
	model.Session
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, p model.Profile) (model.Session, error) {
	var out registerResponse
	err := c.call(ctx, http.MethodPost, pathRegister, func(r *resty.Request) {
		r.SetBody(p)
	}, &out)
	if err != nil {
		return model.Session{}, err
	}
	s := out.Session
	if out.Data != nil && out.Data.Valid() {
		s = *out.Data
	}
	if !s.Valid() {
		return model.Session{}, fmt.Errorf("register: %w", errMissingToken)
	}
	return s, nil
}

// Verify checks token against the server. It returns nil only for a 2xx
// answer.
func (c *Client) Verify(ctx context.Context, token string) error {
	if token == "" {
		return errs.ErrUnauthorized
	}
	return c.call(ctx, http.MethodGet, pathVerify, func(r *resty.Request) {
		r.SetAuthToken(token)
	}, nil)
}

var errMissingToken = errors.New("response carries no session token")
