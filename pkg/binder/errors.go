package binder

import "errors"

var (
	// ErrBinderNotApplicable tells the caller to try the next binder.
	ErrBinderNotApplicable  = errors.New("binder not applicable to request")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidJSON          = errors.New("failed to parse JSON request body")
	ErrInvalidForm          = errors.New("failed to parse form data")
)
