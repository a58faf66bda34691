package syncx

import (
	"context"
	"encoding/json"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
)

// Appender is the write side of EventRepo.
type Appender interface {
	Append(ctx context.Context, e Event) error
}

// AuditStore records an event after every successful write to the wrapped
// store. A failed append is logged; the write it describes stands.
type AuditStore struct {
	progress.Store
	events Appender
	siteID string
	logger logging.Logger
}

var _ progress.Store = (*AuditStore)(nil)

func NewAuditStore(inner progress.Store, events Appender, siteID string, logger logging.Logger) *AuditStore {
	return &AuditStore{Store: inner, events: events, siteID: siteID, logger: logger}
}

func (s *AuditStore) Create(ctx context.Context, name, password string) (progress.Record, error) {
	rec, err := s.Store.Create(ctx, name, password)
	if err != nil {
		return rec, err
	}
	s.Note(ctx, TypeStudentCreated, rec.ID, map[string]any{"user_name": rec.UserName})
	return rec, nil
}

func (s *AuditStore) UpdateCells(ctx context.Context, id string, cells grid.Cells) error {
	if err := s.Store.UpdateCells(ctx, id, cells); err != nil {
		return err
	}
	s.Note(ctx, TypeCellsUpdated, id, map[string]any{"cells": grid.Normalize(cells), "progress": cells.Count()})
	return nil
}

func (s *AuditStore) UpdateLog(ctx context.Context, id string, field progress.LogField, log []history.Entry) error {
	if err := s.Store.UpdateLog(ctx, id, field, log); err != nil {
		return err
	}
	data := map[string]any{"field": string(field), "entries": len(log)}
	if n := len(log); n > 0 {
		data["message"] = log[n-1].Message
	}
	s.Note(ctx, TypeLogAppended, id, data)
	return nil
}

func (s *AuditStore) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.Store.DeleteAll(ctx)
	if err != nil {
		return n, err
	}
	s.Note(ctx, TypeRosterDeleted, "*", map[string]any{"deleted": n})
	return n, nil
}

// Note appends an event that no single store write describes, such as a
// roster-wide reset.
func (s *AuditStore) Note(ctx context.Context, typ, ref string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn(ctx, "audit: encode event failed", "type", typ, "error", err)
		return
	}
	if err := s.events.Append(ctx, Event{SiteID: s.siteID, Type: typ, Ref: ref, Data: raw}); err != nil {
		s.logger.Warn(ctx, "audit: append event failed", "type", typ, "ref", ref, "error", err)
	}
}
