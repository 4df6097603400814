// Package binder decodes HTTP request bodies into typed request structs for
// handler.Wrap. JSON handles application/json, Form handles url-encoded and
// multipart forms; each returns ErrBinderNotApplicable for other content
// types so several binders can be chained on one endpoint.
package binder
