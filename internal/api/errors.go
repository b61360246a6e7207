package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sells-group/edinet-cli/internal/store"
)

// ErrResponse is the JSON error body.
type ErrResponse struct {
	Err        error  `json:"-"`
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func errBadRequest(err error) render.Renderer {
	return &ErrResponse{Err: err, StatusCode: http.StatusBadRequest, Message: err.Error()}
}

func errUnavailable(err error) render.Renderer {
	return &ErrResponse{Err: err, StatusCode: http.StatusServiceUnavailable, Message: err.Error()}
}

// errFor maps a service error to a response. Unknown documents are 404.
func errFor(err error) render.Renderer {
	if errors.Is(err, store.ErrNotFound) {
		return &ErrResponse{Err: err, StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return &ErrResponse{Err: err, StatusCode: http.StatusInternalServerError, Message: "internal error"}
}
