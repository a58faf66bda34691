package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/progress"
)

const SnapshotPrefix = "snapshots"

var timeNow = time.Now

// snapshotRow is one student in an archived roster. Passwords are left out.
type snapshotRow struct {
	ID        string          `json:"id"`
	UserName  string          `json:"user_name"`
	Cells     grid.Cells      `json:"cell_data"`
	Progress  int             `json:"progress"`
	Questions []history.Entry `json:"student_question"`
	Feedback  []history.Entry `json:"teacher_feedback"`
	CreatedAt int64           `json:"created_at"`
}

type Snapshot struct {
	TakenAt  string        `json:"taken_at"`
	Students []snapshotRow `json:"students"`
}

// RosterArchiver writes roster snapshots into a blob store.
type RosterArchiver struct{ blobs BlobStore }

func NewRosterArchiver(bs BlobStore) *RosterArchiver { return &RosterArchiver{blobs: bs} }

func (a *RosterArchiver) Archive(ctx context.Context, roster []progress.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := timeNow().UTC()
	snap := Snapshot{TakenAt: now.Format(time.RFC3339), Students: make([]snapshotRow, 0, len(roster))}
	for _, r := range roster {
		snap.Students = append(snap.Students, snapshotRow{
			ID:        r.ID,
			UserName:  r.UserName,
			Cells:     grid.Normalize(r.Cells),
			Progress:  r.Cells.Count(),
			Questions: nonNil(r.Questions),
			Feedback:  nonNil(r.Feedback),
			CreatedAt: r.CreatedAt,
		})
	}
	buf, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	key := SnapshotPrefix + "/roster-" + now.Format("20060102T150405.000Z") + ".json"
	return a.blobs.Put(key, bytes.NewReader(buf))
}

// Snapshots lists archived roster keys, oldest first.
func (a *RosterArchiver) Snapshots() ([]string, error) {
	keys, err := a.blobs.List(SnapshotPrefix)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func nonNil(l []history.Entry) []history.Entry {
	if l == nil {
		return []history.Entry{}
	}
	return l
}
