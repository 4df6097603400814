package binder

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const maxMultipartMemory = 1 << 20

// Form binds url-encoded and multipart form values into v using `form`
// struct tags. Untagged fields bind by lowercased field name; `form:"-"`
// skips a field. Other content types yield ErrBinderNotApplicable.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		switch mediaType(r) {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindToStruct(v, "form", r.PostForm, ErrInvalidForm)
		case "multipart/form-data":
			if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindToStruct(v, "form", r.MultipartForm.Value, ErrInvalidForm)
		default:
			return ErrBinderNotApplicable
		}
	}
}

func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mt
}
