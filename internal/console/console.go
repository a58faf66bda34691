// Package console is the teacher side: a shared-password gate, the roster of
// every student, grid editing, feedback and the bulk reset/delete actions.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
)

var (
	ErrUnauthorized     = errors.New("wrong teacher password")
	ErrNotAuthenticated = errors.New("teacher login required")
	ErrNoSelection      = errors.New("no student selected")
	ErrEmptyFeedback    = errors.New("feedback is empty")
	ErrSaveInFlight     = errors.New("feedback save already in progress")
	ErrNotConfirmed     = errors.New("reset not confirmed")
)

// Archiver keeps a copy of the roster before it is deleted and returns the
// key it was stored under.
type Archiver interface {
	Archive(ctx context.Context, roster []progress.Record) (string, error)
}

// Console is one teacher's working state. Apart from the in-flight feedback
// guard it is not safe for concurrent use.
type Console struct {
	store    progress.Store
	gate     Gate
	archiver Archiver
	logger   logging.Logger

	authenticated bool
	roster        []progress.Record
	selected      string
	saving        atomic.Bool
}

// New builds a console. archiver may be nil.
func New(store progress.Store, gate Gate, archiver Archiver, logger logging.Logger) *Console {
	return &Console{store: store, gate: gate, archiver: archiver, logger: logger}
}

// Login checks the shared password and loads the roster.
func (c *Console) Login(ctx context.Context, password string) error {
	if !c.gate.Check(password) {
		return ErrUnauthorized
	}
	c.authenticated = true
	return c.Refresh(ctx)
}

func (c *Console) Authenticated() bool { return c.authenticated }

// Refresh re-reads the roster. The selection survives if the student still
// exists.
func (c *Console) Refresh(ctx context.Context) error {
	if !c.authenticated {
		return ErrNotAuthenticated
	}
	list, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error(ctx, "fetch roster failed", "error", err)
		return fmt.Errorf("fetch roster: %w", err)
	}
	c.roster = list
	if _, ok := c.find(c.selected); !ok {
		c.selected = ""
	}
	return nil
}

func (c *Console) Roster() []progress.Record { return c.roster }

// Select makes id the current student.
func (c *Console) Select(id string) (progress.Record, error) {
	if !c.authenticated {
		return progress.Record{}, ErrNotAuthenticated
	}
	i, ok := c.find(id)
	if !ok {
		return progress.Record{}, progress.ErrNotFound
	}
	c.selected = id
	return c.roster[i], nil
}

// Selected returns the current student, if any.
func (c *Console) Selected() (progress.Record, bool) {
	i, ok := c.find(c.selected)
	if !ok {
		return progress.Record{}, false
	}
	return c.roster[i], true
}

// ToggleCell flips a cell of the selected student without asking for
// confirmation. The store is written first; memory follows on success.
func (c *Console) ToggleCell(ctx context.Context, col, row int) (progress.Record, error) {
	if !c.authenticated {
		return progress.Record{}, ErrNotAuthenticated
	}
	i, ok := c.find(c.selected)
	if !ok {
		return progress.Record{}, ErrNoSelection
	}
	next, err := c.roster[i].Cells.Toggle(col, row)
	if err != nil {
		return progress.Record{}, err
	}
	if err := c.store.UpdateCells(ctx, c.roster[i].ID, next); err != nil {
		c.logger.Error(ctx, "teacher cell update failed", "student_id", c.roster[i].ID, "error", err)
		return progress.Record{}, fmt.Errorf("update cells: %w", err)
	}
	c.roster[i].Cells = next
	return c.roster[i], nil
}

// AppendFeedback adds one timestamped entry to the selected student's
// feedback log.
func (c *Console) AppendFeedback(ctx context.Context, text string) (progress.Record, error) {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return progress.Record{}, ErrEmptyFeedback
	}
	if !c.saving.CompareAndSwap(false, true) {
		return progress.Record{}, ErrSaveInFlight
	}
	defer c.saving.Store(false)

	if !c.authenticated {
		return progress.Record{}, ErrNotAuthenticated
	}
	i, ok := c.find(c.selected)
	if !ok {
		return progress.Record{}, ErrNoSelection
	}
	id := c.roster[i].ID
	log, err := progress.AppendLog(ctx, c.store, id, progress.FeedbackLog, history.NewEntry(msg))
	if err != nil {
		c.logger.Error(ctx, "save feedback failed", "student_id", id, "error", err)
		return progress.Record{}, fmt.Errorf("save feedback: %w", err)
	}
	c.roster[i].Feedback = log
	return c.roster[i], nil
}

// Saving reports whether a feedback save is in flight.
func (c *Console) Saving() bool { return c.saving.Load() }

// ResetAll clears every student's grid, one row at a time. A failure does
// not stop the loop and nothing is rolled back; the first error is returned
// with the number of grids that were cleared.
func (c *Console) ResetAll(ctx context.Context, confirmed bool) (int, error) {
	if !c.authenticated {
		return 0, ErrNotAuthenticated
	}
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	list, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error(ctx, "reset: fetch roster failed", "error", err)
		return 0, fmt.Errorf("fetch roster: %w", err)
	}
	var (
		n     int
		first error
	)
	for _, rec := range list {
		if err := c.store.UpdateCells(ctx, rec.ID, grid.Cells{}); err != nil {
			c.logger.Error(ctx, "reset: update failed", "student_id", rec.ID, "error", err)
			if first == nil {
				first = fmt.Errorf("reset %s: %w", rec.UserName, err)
			}
			continue
		}
		n++
	}
	c.logger.Info(ctx, "roster reset", "cleared", n, "total", len(list))
	c.selected = ""
	if err := c.Refresh(ctx); err != nil && first == nil {
		first = err
	}
	return n, first
}

// DeleteAll removes every record after the shared password is entered again.
// When an archiver is configured the roster is archived first; an archive
// failure is logged and does not stop the delete.
func (c *Console) DeleteAll(ctx context.Context, password string) (int64, string, error) {
	if !c.authenticated {
		return 0, "", ErrNotAuthenticated
	}
	if !c.gate.Check(password) {
		return 0, "", ErrUnauthorized
	}
	var key string
	if c.archiver != nil {
		list, err := c.store.List(ctx)
		if err == nil {
			key, err = c.archiver.Archive(ctx, list)
		}
		if err != nil {
			c.logger.Warn(ctx, "roster snapshot failed", "error", err)
			key = ""
		}
	}
	n, err := c.store.DeleteAll(ctx)
	if err != nil {
		c.logger.Error(ctx, "delete all failed", "error", err)
		return 0, key, fmt.Errorf("delete all: %w", err)
	}
	c.logger.Info(ctx, "roster deleted", "deleted", n, "snapshot", key)
	c.selected = ""
	if err := c.Refresh(ctx); err != nil {
		return n, key, err
	}
	return n, key, nil
}

func (c *Console) find(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for i := range c.roster {
		if c.roster[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
