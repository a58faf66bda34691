package http

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	auth "github.com/mind-engage/starmaker/internal/auth/middleware"
	"github.com/mind-engage/starmaker/internal/console"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
	rbac "github.com/mind-engage/starmaker/internal/rbac"
	"github.com/mind-engage/starmaker/internal/registry"
	"github.com/mind-engage/starmaker/internal/session"
	storage "github.com/mind-engage/starmaker/internal/storage"
	syncx "github.com/mind-engage/starmaker/internal/sync"
)

// EventLister is the read side of the audit log.
type EventLister interface {
	List(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// Noter records events that no single store write describes.
type Noter interface {
	Note(ctx context.Context, typ, ref string, data any)
}

type Deps struct {
	Store      progress.Store
	Gate       console.Gate
	Auth       *auth.AuthService
	Logger     logging.Logger
	Location   *time.Location
	SessionTTL time.Duration

	// Optional. Without Blobs no snapshot is taken before delete-all.
	Blobs  storage.BlobStore
	Events EventLister
	Audit  Noter
}

// Server holds the per-visitor state behind the student and teacher APIs.
// Student sessions and teacher consoles live in memory, keyed by the subject
// of the bearer token handed out when they were created.
type Server struct {
	store    progress.Store
	gate     console.Gate
	auth     *auth.AuthService
	logger   logging.Logger
	loc      *time.Location
	validate *validator.Validate

	blobs    storage.BlobStore
	archiver console.Archiver
	events   EventLister
	audit    Noter

	sessions *registry.Registry[*session.Machine]
	consoles *registry.Registry[*console.Console]
}

func NewServer(d Deps) *Server {
	s := &Server{
		store:    d.Store,
		gate:     d.Gate,
		auth:     d.Auth,
		logger:   d.Logger,
		loc:      d.Location,
		validate: validator.New(),
		blobs:    d.Blobs,
		events:   d.Events,
		audit:    d.Audit,
		sessions: registry.New[*session.Machine](d.SessionTTL),
		consoles: registry.New[*console.Console](d.SessionTTL),
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if d.Blobs != nil {
		s.archiver = storage.NewRosterArchiver(d.Blobs)
	}
	return s
}

// Mount wires pages and both APIs onto r.
func (s *Server) Mount(r chi.Router) {
	MountPages(r)
	r.Get("/api/grid", GridLayoutHandler())

	r.Route("/api/student", func(sr chi.Router) {
		sr.Post("/sessions", s.startSession())

		sr.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(s.auth))
			pr.Use(rbac.RequireAny(rbac.PermProgressToggle, rbac.PermQuestionCreate))

			pr.Delete("/sessions", s.endSession())
			pr.Get("/state", s.studentState())
			pr.Post("/name", s.studentEvent(decodeName))
			pr.Post("/password", s.studentEvent(decodePassword))
			pr.With(rbac.Require(rbac.PermProgressToggle)).
				Post("/cells/{col}/{row}", s.studentEvent(decodeToggle))
			pr.With(rbac.Require(rbac.PermProgressToggle)).
				Post("/confirm", s.studentEvent(decodeConfirm))
			pr.With(rbac.Require(rbac.PermQuestionCreate)).
				Post("/questions", s.studentEvent(decodeQuestion))
			pr.Post("/dismiss", s.studentEvent(fixed(session.Dismiss{})))
			pr.Post("/finish", s.studentEvent(fixed(session.Finish{})))
		})
	})

	r.Route("/api/teacher", func(tr chi.Router) {
		tr.Post("/login", s.teacherLogin())

		tr.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(s.auth))

			pr.With(rbac.Require(rbac.PermRosterView)).Post("/logout", s.teacherLogout())
			pr.With(rbac.Require(rbac.PermRosterView)).Get("/students", s.listStudents())
			pr.With(rbac.Require(rbac.PermRosterView)).Get("/students/{id}", s.getStudent())
			pr.With(rbac.Require(rbac.PermRosterEdit)).
				Post("/students/{id}/cells/{col}/{row}", s.teacherToggle())
			pr.With(rbac.Require(rbac.PermFeedbackWrite)).
				Post("/students/{id}/feedback", s.appendFeedback())
			pr.With(rbac.Require(rbac.PermRosterReset)).Post("/reset", s.resetAll())
			pr.With(rbac.Require(rbac.PermRosterDelete)).Post("/delete", s.deleteAll())
			pr.With(rbac.Require(rbac.PermEventsView)).Get("/events", s.listEvents())
			pr.Route("/snapshots", func(ar chi.Router) {
				ar.Use(rbac.Require(rbac.PermSnapshotsView))
				MountSnapshots(ar, s.blobs)
			})
		})
	})
}
