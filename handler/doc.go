// Package handler adapts typed handler functions to net/http.
//
// A HandlerFunc receives a request struct filled by the configured binders
// and returns a Response:
//
//	type deleteRequest struct {
//		Confirmed bool   `json:"confirmed" form:"confirmed"`
//		Password  string `json:"password" form:"password"`
//	}
//
//	r.Post("/app/account/delete", handler.Wrap(deleteAccount,
//		handler.WithBinders[handler.Context, deleteRequest](binder.JSON(), binder.Form()),
//		handler.WithErrorHandler[handler.Context, deleteRequest](handler.NewErrorHandler(log)),
//	))
//
// Responses are JSON envelopes (JSON, JSONError), redirects (Redirect) or
// empty bodies (Empty). Errors are mapped through HTTPError; anything else is
// reported as a 500 without leaking its message.
package handler
