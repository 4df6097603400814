// Package account implements the user-facing account operations: sign up,
// sign in, password reset, the account overview and account deletion.
//
// Deletion is a linear workflow
// (await_confirmation, verify_password, check_eligibility, delete, signed_out)
// driven by pkg/statemachine. Every rejection is a *PolicyError whose Message
// is safe to show to the user; a blocked deletion is a *BlockedError carrying
// the billing.BlockReason.
package account
