package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/starmaker/internal/auth/middleware"
	"github.com/mind-engage/starmaker/internal/console"
	"github.com/mind-engage/starmaker/internal/progress"
	"github.com/mind-engage/starmaker/internal/registry"
	syncx "github.com/mind-engage/starmaker/internal/sync"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type feedbackRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type resetRequest struct {
	Confirmed bool `json:"confirmed"`
}

type deleteRequest struct {
	Password string `json:"password" validate:"required"`
}

func (s *Server) teacherLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := s.decode(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		c := console.New(s.store, s.gate, s.archiver, s.logger)
		if err := c.Login(r.Context(), req.Password); err != nil {
			if errors.Is(err, console.ErrUnauthorized) {
				s.logger.Warn(r.Context(), "teacher login rejected", "remote", r.RemoteAddr)
			}
			s.fail(w, r, err)
			return
		}
		id := s.consoles.Add(c)
		tok, err := s.auth.IssueJWT(id, auth.RoleTeacher)
		if err != nil {
			s.consoles.Remove(id)
			s.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    tok,
			"students": console.Summaries(c.Roster()),
		})
	}
}

func (s *Server) teacherLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.consoles.Remove(auth.SubjectFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}
}

// withConsole runs fn against the caller's console and writes its result.
func (s *Server) withConsole(fn func(r *http.Request, c *console.Console) (any, error)) http.HandlerFunc {
	return s.consoleHandler(s.consoles.Do, fn)
}

// consoleHandler is withConsole with the registry call chosen by the caller.
func (s *Server) consoleHandler(
	run func(id string, fn func(*console.Console) error) error,
	fn func(r *http.Request, c *console.Console) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out any
		err := run(auth.SubjectFromContext(r.Context()), func(c *console.Console) error {
			var err error
			out, err = fn(r, c)
			return err
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// selectFresh selects id, re-reading the roster once when id is not in the
// cached copy (a student may have signed up since the last refresh).
func selectFresh(r *http.Request, c *console.Console, id string) error {
	_, err := c.Select(id)
	if errors.Is(err, progress.ErrNotFound) {
		if err := c.Refresh(r.Context()); err != nil {
			return err
		}
		_, err = c.Select(id)
	}
	return err
}

func (s *Server) listStudents() http.HandlerFunc {
	return s.withConsole(func(r *http.Request, c *console.Console) (any, error) {
		if err := c.Refresh(r.Context()); err != nil {
			return nil, err
		}
		return console.Summaries(c.Roster()), nil
	})
}

func (s *Server) getStudent() http.HandlerFunc {
	return s.withConsole(func(r *http.Request, c *console.Console) (any, error) {
		if err := c.Refresh(r.Context()); err != nil {
			return nil, err
		}
		rec, err := c.Select(chi.URLParam(r, "id"))
		if err != nil {
			return nil, err
		}
		return console.Detail(rec, s.loc), nil
	})
}

func (s *Server) teacherToggle() http.HandlerFunc {
	return s.withConsole(func(r *http.Request, c *console.Console) (any, error) {
		col, row, err := cellParams(r)
		if err != nil {
			return nil, err
		}
		if err := selectFresh(r, c, chi.URLParam(r, "id")); err != nil {
			return nil, err
		}
		rec, err := c.ToggleCell(r.Context(), col, row)
		if err != nil {
			return nil, err
		}
		return console.Detail(rec, s.loc), nil
	})
}

// appendFeedback refuses, rather than queues, a submit that arrives while
// the same console is still busy with an earlier request.
func (s *Server) appendFeedback() http.HandlerFunc {
	tryDo := func(id string, fn func(*console.Console) error) error {
		err := s.consoles.TryDo(id, fn)
		if errors.Is(err, registry.ErrBusy) {
			return console.ErrSaveInFlight
		}
		return err
	}
	return s.consoleHandler(tryDo, func(r *http.Request, c *console.Console) (any, error) {
		var req feedbackRequest
		if err := s.decode(r, &req); err != nil {
			return nil, err
		}
		if err := selectFresh(r, c, chi.URLParam(r, "id")); err != nil {
			return nil, err
		}
		rec, err := c.AppendFeedback(r.Context(), req.Text)
		if err != nil {
			return nil, err
		}
		return console.Detail(rec, s.loc), nil
	})
}

func (s *Server) resetAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if err := s.decode(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		var (
			n        int
			resetErr error
		)
		err := s.consoles.Do(auth.SubjectFromContext(r.Context()), func(c *console.Console) error {
			n, resetErr = c.ResetAll(r.Context(), req.Confirmed)
			if errors.Is(resetErr, console.ErrNotConfirmed) || errors.Is(resetErr, console.ErrNotAuthenticated) {
				return resetErr
			}
			return nil
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if s.audit != nil {
			s.audit.Note(r.Context(), syncx.TypeRosterReset, "*", map[string]any{"cleared": n, "failed": resetErr != nil})
		}
		if resetErr != nil {
			s.logger.Error(r.Context(), "roster reset incomplete", "cleared", n, "error", resetErr)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"cleared": n, "error": "some grids could not be reset"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
	}
}

func (s *Server) deleteAll() http.HandlerFunc {
	return s.withConsole(func(r *http.Request, c *console.Console) (any, error) {
		var req deleteRequest
		if err := s.decode(r, &req); err != nil {
			return nil, err
		}
		n, key, err := c.DeleteAll(r.Context(), req.Password)
		if err != nil {
			return nil, err
		}
		return map[string]any{"deleted": n, "snapshot": key}, nil
	})
}

func (s *Server) listEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.events == nil {
			writeJSON(w, http.StatusOK, []syncx.Event{})
			return
		}
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := s.events.List(r.Context(), after, limit)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
