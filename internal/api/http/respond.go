package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/starmaker/internal/console"
	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/progress"
	"github.com/mind-engage/starmaker/internal/registry"
	"github.com/mind-engage/starmaker/internal/session"
)

var (
	errBadJSON = errors.New("bad json")
	errBadCell = errors.New("bad cell")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and runs its validate tags.
func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return s.validate.Struct(v)
}

func cellParams(r *http.Request) (int, int, error) {
	col, err := strconv.Atoi(chi.URLParam(r, "col"))
	if err != nil {
		return 0, 0, errBadCell
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		return 0, 0, errBadCell
	}
	return col, row, nil
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errBadJSON),
		errors.Is(err, errBadCell),
		errors.Is(err, grid.ErrOutOfRange),
		errors.Is(err, session.ErrEmptyName),
		errors.Is(err, session.ErrEmptyPassword),
		errors.Is(err, session.ErrEmptyQuestion),
		errors.Is(err, console.ErrEmptyFeedback),
		errors.Is(err, console.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrPasswordMismatch),
		errors.Is(err, console.ErrUnauthorized),
		errors.Is(err, console.ErrNotAuthenticated),
		errors.Is(err, registry.ErrUnknown):
		return http.StatusUnauthorized
	case errors.Is(err, progress.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, console.ErrSaveInFlight),
		errors.Is(err, console.ErrNoSelection),
		errors.Is(err, progress.ErrNameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail maps err to a status. Anything unexpected is logged and answered with
// a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.internalError(w, r, err)
		return
	}
	http.Error(w, message(err), code)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func message(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return "invalid request (" + strings.Join(parts, ", ") + ")"
	}
	return err.Error()
}
