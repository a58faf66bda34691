// Package syncx keeps an append-only event log of roster changes. Each row
// carries the site that produced it so logs from several classrooms can be
// merged later.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const (
	TypeStudentCreated = "StudentCreated"
	TypeCellsUpdated   = "CellsUpdated"
	TypeLogAppended    = "LogAppended"
	TypeRosterReset    = "RosterReset"
	TypeRosterDeleted  = "RosterDeleted"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Ref       string          `json:"ref"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

var timeNow = time.Now

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	data := string(e.Data)
	if data == "" {
		data = "{}"
	}
	site := e.SiteID
	if site == "" {
		site = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, ref, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, e.Type, e.Ref, data, timeNow().Unix())
	return err
}

// List returns up to limit events with seq greater than after, oldest first.
func (r *EventRepo) List(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, ref, data, created_at
		 FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var (
			e    Event
			data string
		)
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Ref, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
