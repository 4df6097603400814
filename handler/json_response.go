package handler

import (
	"encoding/json"
	"net/http"
)

// JSONResponse is the envelope for every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type jsonResponse struct {
	status int
	header http.Header
	body   JSONResponse
	raw    any // written as is, without the envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	for k, vs := range j.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	if j.raw != nil {
		return json.NewEncoder(w).Encode(j.raw)
	}
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// WithJSONHeader adds a response header.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.header == nil {
			r.header = make(http.Header)
		}
		r.header.Add(key, value)
	}
}

// JSON wraps v in the data envelope with status 200.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RawJSON writes v without the envelope, for callers such as webhook
// senders that expect a fixed body.
func RawJSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, raw: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err in the error envelope. An HTTPError sets status and
// code; an *ErrorDetail is used as is with status 500 unless overridden.
func JSONError(err any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusInternalServerError}
	switch e := err.(type) {
	case *ErrorDetail:
		r.body.Error = e
	case error:
		r.body.Error = errorToDetail(e, &r.status)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
