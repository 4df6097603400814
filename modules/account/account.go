package account

import (
	"errors"

	"github.com/dmitrymomot/accountkit/handler"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

type deleteAccountRequest struct {
	Confirmed bool   `json:"confirmed" form:"confirmed"`
	Password  string `json:"password" form:"password"`
}

func (m *module) overview(ctx handler.Context, _ struct{}) handler.Response {
	user, ok := identity.UserFromContext(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	ov, err := m.svc.Overview(ctx, user)
	if err != nil {
		return fail(err)
	}
	return handler.JSON(ov)
}

func (m *module) deleteAccount(ctx handler.Context, req deleteAccountRequest) handler.Response {
	user, ok := identity.UserFromContext(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	token, _ := identity.TokenFromContext(ctx)

	err := m.svc.DeleteAccount(ctx, user, token, accountsvc.DeleteRequest{
		Confirmed: req.Confirmed,
		Password:  req.Password,
	})
	m.observeDeletion(err)
	if err != nil {
		return fail(err)
	}
	m.sessions.Clear(ctx.ResponseWriter())
	return handler.Redirect("/?message=account-deleted")
}

func (m *module) observeDeletion(err error) {
	if m.metrics == nil {
		return
	}
	var blocked *accountsvc.BlockedError
	switch {
	case err == nil:
		m.metrics.ObserveDeletion("deleted")
	case errors.As(err, &blocked):
		m.metrics.ObserveDeletion("blocked")
	case errors.Is(err, accountsvc.ErrUnexpected):
		m.metrics.ObserveDeletion("failed")
	default:
		m.metrics.ObserveDeletion("rejected")
	}
}
