package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
)

// student is the record loaded after a successful password step.
type student struct {
	id        string
	name      string
	cells     grid.Cells
	questions []history.Entry
}

// Machine holds one student's session. It is not safe for concurrent use;
// the HTTP layer serializes calls per session.
type Machine struct {
	store  progress.Store
	logger logging.Logger

	state       State
	student     *student
	alreadyStar bool
}

func New(store progress.Store, logger logging.Logger) *Machine {
	return &Machine{store: store, logger: logger, state: NameEntry{}}
}

func (m *Machine) State() State { return m.state }

// AlreadyStar reports that the student logged in with a complete grid, or
// completed it during this session, and has not removed a cell since.
func (m *Machine) AlreadyStar() bool { return m.alreadyStar }

// Handle applies ev to the current state.
func (m *Machine) Handle(ctx context.Context, ev Event) (Outcome, error) {
	switch ev := ev.(type) {
	case Finish:
		m.reset()
		return Outcome{}, nil
	case SubmitName:
		if _, ok := m.state.(NameEntry); !ok {
			return Outcome{}, ErrInvalidTransition
		}
		return m.submitName(ctx, ev.Name)
	case SubmitPassword:
		st, ok := m.state.(PasswordPrompt)
		if !ok {
			return Outcome{}, ErrInvalidTransition
		}
		if st.Mode == ModeCreate {
			return m.createStudent(ctx, st.Name, ev.Password)
		}
		return m.verifyStudent(ctx, st.Name, ev.Password)
	case RequestToggle:
		st, ok := m.state.(GridView)
		if !ok || st.Pending != nil {
			return Outcome{}, ErrInvalidTransition
		}
		if !grid.Valid(ev.Col, ev.Row) {
			return Outcome{}, grid.ErrOutOfRange
		}
		p := &Pending{Col: ev.Col, Row: ev.Row, Message: m.student.cells.Prompt(ev.Col, ev.Row)}
		m.state = GridView{Pending: p}
		return Outcome{Confirm: p}, nil
	case AnswerConfirmation:
		st, ok := m.state.(GridView)
		if !ok || st.Pending == nil {
			return Outcome{}, ErrInvalidTransition
		}
		m.state = GridView{}
		if !ev.Confirmed {
			return Outcome{}, nil
		}
		return m.toggle(ctx, *st.Pending)
	case SubmitQuestion:
		if _, ok := m.state.(GridView); !ok {
			return Outcome{}, ErrInvalidTransition
		}
		return m.submitQuestion(ctx, ev.Text)
	case Dismiss:
		if _, ok := m.state.(Celebration); !ok {
			return Outcome{}, ErrInvalidTransition
		}
		m.state = GridView{}
		m.alreadyStar = m.student.cells.IsComplete()
		return Outcome{}, nil
	default:
		return Outcome{}, ErrInvalidTransition
	}
}

func (m *Machine) submitName(ctx context.Context, raw string) (Outcome, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return Outcome{}, ErrEmptyName
	}
	_, err := m.store.FindByName(ctx, name)
	switch {
	case err == nil:
		m.state = PasswordPrompt{Name: name, Mode: ModeVerify}
		return Outcome{Notice: "Enter the password you set."}, nil
	case errors.Is(err, progress.ErrNotFound):
		m.state = PasswordPrompt{Name: name, Mode: ModeCreate}
		return Outcome{Notice: "Please set a password."}, nil
	default:
		m.logger.Error(ctx, "name lookup failed", "name", name, "error", err)
		return Outcome{}, fmt.Errorf("look up student: %w", err)
	}
}

func (m *Machine) createStudent(ctx context.Context, name, password string) (Outcome, error) {
	if password == "" {
		return Outcome{}, ErrEmptyPassword
	}
	rec, err := m.store.Create(ctx, name, password)
	if err != nil {
		m.logger.Error(ctx, "create student failed", "name", name, "error", err)
		return Outcome{}, fmt.Errorf("create student: %w", err)
	}
	m.logger.Info(ctx, "student created", "student_id", rec.ID)
	m.load(rec)
	m.state = GridView{}
	return Outcome{}, nil
}

func (m *Machine) verifyStudent(ctx context.Context, name, password string) (Outcome, error) {
	rec, err := m.store.FindByName(ctx, name)
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		m.logger.Error(ctx, "password lookup failed", "name", name, "error", err)
		return Outcome{}, fmt.Errorf("look up student: %w", err)
	}
	if err != nil || rec.Password != password {
		return Outcome{}, ErrPasswordMismatch
	}
	m.load(rec)
	m.alreadyStar = rec.Cells.IsComplete()
	m.state = GridView{}
	return Outcome{}, nil
}

func (m *Machine) toggle(ctx context.Context, p Pending) (Outcome, error) {
	before := m.student.cells
	after, err := before.Toggle(p.Col, p.Row)
	if err != nil {
		return Outcome{}, err
	}
	if err := m.store.UpdateCells(ctx, m.student.id, after); err != nil {
		m.logger.Error(ctx, "save cells failed", "student_id", m.student.id, "error", err)
		return Outcome{}, fmt.Errorf("save progress: %w", err)
	}
	m.student.cells = after

	if grid.Transition(before, after).Celebrate() {
		m.state = Celebration{}
		return Outcome{Celebrate: true}, nil
	}
	if !after.IsComplete() {
		m.alreadyStar = false
	}
	return Outcome{}, nil
}

func (m *Machine) submitQuestion(ctx context.Context, raw string) (Outcome, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Outcome{}, ErrEmptyQuestion
	}
	log, err := progress.AppendLog(ctx, m.store, m.student.id, progress.QuestionLog, history.NewEntry(text))
	if err != nil {
		m.logger.Error(ctx, "save question failed", "student_id", m.student.id, "error", err)
		return Outcome{}, fmt.Errorf("save question: %w", err)
	}
	m.student.questions = log
	return Outcome{Notice: "Your question was sent to the teacher."}, nil
}

func (m *Machine) load(rec progress.Record) {
	cells := rec.Cells
	if cells == nil {
		cells = grid.Cells{}
	}
	m.student = &student{id: rec.ID, name: rec.UserName, cells: cells, questions: rec.Questions}
}

func (m *Machine) reset() {
	m.state = NameEntry{}
	m.student = nil
	m.alreadyStar = false
}
