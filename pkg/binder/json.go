package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxJSONSize caps JSON request bodies.
const MaxJSONSize = 1 << 20

// JSON decodes application/json bodies into v. Unknown fields and trailing
// data are rejected. Other content types yield ErrBinderNotApplicable.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if mediaType(r) != "application/json" {
			return ErrBinderNotApplicable
		}

		dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONSize+1))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrInvalidJSON)
			}
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		if dec.InputOffset() > MaxJSONSize {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidJSON, MaxJSONSize)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
		}
		return nil
	}
}
