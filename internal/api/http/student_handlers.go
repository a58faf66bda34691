package http

import (
	"net/http"

	auth "github.com/mind-engage/starmaker/internal/auth/middleware"
	"github.com/mind-engage/starmaker/internal/session"
)

type studentResponse struct {
	Token   string           `json:"token,omitempty"`
	View    session.View     `json:"view"`
	Outcome *session.Outcome `json:"outcome,omitempty"`
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"max=200"`
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

type questionRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// eventDecoder turns a request into the session event it stands for.
type eventDecoder func(s *Server, r *http.Request) (session.Event, error)

func decodeName(s *Server, r *http.Request) (session.Event, error) {
	var req nameRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return session.SubmitName{Name: req.Name}, nil
}

func decodePassword(s *Server, r *http.Request) (session.Event, error) {
	var req passwordRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return session.SubmitPassword{Password: req.Password}, nil
}

func decodeToggle(_ *Server, r *http.Request) (session.Event, error) {
	col, row, err := cellParams(r)
	if err != nil {
		return nil, err
	}
	return session.RequestToggle{Col: col, Row: row}, nil
}

func decodeConfirm(s *Server, r *http.Request) (session.Event, error) {
	var req confirmRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return session.AnswerConfirmation{Confirmed: *req.Confirmed}, nil
}

func decodeQuestion(s *Server, r *http.Request) (session.Event, error) {
	var req questionRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return session.SubmitQuestion{Text: req.Text}, nil
}

func fixed(ev session.Event) eventDecoder {
	return func(*Server, *http.Request) (session.Event, error) { return ev, nil }
}

// startSession opens a fresh student session and returns its bearer token.
func (s *Server) startSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := session.New(s.store, s.logger)
		id := s.sessions.Add(m)
		tok, err := s.auth.IssueJWT(id, auth.RoleStudent)
		if err != nil {
			s.sessions.Remove(id)
			s.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, studentResponse{Token: tok, View: m.View(s.loc)})
	}
}

func (s *Server) endSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Remove(auth.SubjectFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) studentState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp studentResponse
		err := s.sessions.Do(auth.SubjectFromContext(r.Context()), func(m *session.Machine) error {
			resp.View = m.View(s.loc)
			return nil
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// studentEvent feeds one decoded event to the caller's session and answers
// with the resulting view.
func (s *Server) studentEvent(dec eventDecoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := dec(s, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var resp studentResponse
		err = s.sessions.Do(auth.SubjectFromContext(r.Context()), func(m *session.Machine) error {
			out, err := m.Handle(r.Context(), ev)
			if err != nil {
				return err
			}
			resp.View = m.View(s.loc)
			resp.Outcome = &out
			return nil
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
