// Package billing keeps a local projection of remote subscription state and
// decides whether an account may be deleted against that projection.
//
// Three persisted records make up the projection:
//
//   - Entitlement: last reconciled subscription state per user.
//   - CustomerLink: user to billing-customer mapping, reverse-searchable by customer.
//   - Processed event records: the dedup ledger for provider events.
//
// Provider events arrive through a WebhookVerifier implementation (see the
// stripe and paddle subpackages), are normalised into the closed Event union,
// and are applied by a Reconciler:
//
//	rec := billing.NewReconciler(entitlements, links, ledger, provider,
//		billing.WithLogger(log),
//	)
//	outcome, err := rec.Apply(ctx, event)
//
// Apply claims the event in the Ledger, dispatches on the payload type and
// marks the event processed only after every write succeeded. A failed
// application releases the claim so the provider's redelivery applies it again.
//
// Evaluate is the pure deletion-eligibility rule set; DisplayStateOf derives the
// subscription summary shown on the account page.
//
// Store implementations live in memstore (in-process), pgstore (PostgreSQL),
// mongostore (MongoDB) and redisledger (Redis, ledger only).
package billing
