package handler

import "net/http"

type redirectResponse struct {
	url    string
	status int
}

func (rr redirectResponse) Render(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, rr.url, rr.status)
	return nil
}

// Redirect answers 303 See Other, the status for redirecting after a form POST.
func Redirect(url string) Response {
	return redirectResponse{url: url, status: http.StatusSeeOther}
}

func RedirectWithStatus(url string, status int) Response {
	return redirectResponse{url: url, status: status}
}

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty answers 204 No Content.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}
