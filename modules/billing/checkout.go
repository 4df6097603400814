package billing

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/accountkit/handler"
	core "github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

// checkout redirects to a hosted checkout. Users who already have an active
// subscription go back to the account page instead.
func (m *module) checkout(ctx handler.Context, _ struct{}) handler.Response {
	user, ok := identity.UserFromContext(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	log := m.log.With(logger.UserID(user.ID))

	ent, err := m.entitlements.GetEntitlement(ctx, user.ID)
	if err != nil && !errors.Is(err, core.ErrEntitlementNotFound) {
		return m.storeFailure(ctx, fmt.Errorf("load entitlement: %w", err))
	}
	if ent.IsActive() {
		return handler.Redirect(m.accountURL(""))
	}

	req := core.CheckoutRequest{
		UserID:     user.ID,
		SuccessURL: m.accountURL("message=checkout-success"),
		CancelURL:  m.accountURL("message=checkout-canceled"),
	}
	link, err := m.links.GetCustomerLink(ctx, user.ID)
	switch {
	case err == nil:
		req.CustomerID = link.CustomerID
	case errors.Is(err, core.ErrCustomerLinkNotFound):
		req.Email = user.Email
	default:
		return m.storeFailure(ctx, fmt.Errorf("load customer link: %w", err))
	}

	session, err := m.provider.CreateCheckoutLink(ctx, req)
	if err != nil {
		log.ErrorContext(ctx, "failed to create checkout session", logger.Error(err))
		return handler.JSONError(errProvider)
	}
	log.InfoContext(ctx, "checkout session created", logger.CustomerID(req.CustomerID))
	return handler.Redirect(session.URL)
}

// portal redirects to the provider's customer portal, or back to the account
// page when the user has never checked out.
func (m *module) portal(ctx handler.Context, _ struct{}) handler.Response {
	user, ok := identity.UserFromContext(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}

	link, err := m.links.GetCustomerLink(ctx, user.ID)
	if errors.Is(err, core.ErrCustomerLinkNotFound) {
		return handler.Redirect(m.accountURL(""))
	}
	if err != nil {
		return m.storeFailure(ctx, fmt.Errorf("load customer link: %w", err))
	}

	session, err := m.provider.CreatePortalLink(ctx, link.CustomerID, m.accountURL(""))
	if err != nil {
		m.log.ErrorContext(ctx, "failed to create portal session",
			logger.UserID(user.ID),
			logger.CustomerID(link.CustomerID),
			logger.Error(err),
		)
		return handler.JSONError(errProvider)
	}
	return handler.Redirect(session.URL)
}

func (m *module) storeFailure(ctx handler.Context, err error) handler.Response {
	m.log.ErrorContext(ctx, "billing store failure", logger.Error(err))
	return handler.JSONError(err)
}
