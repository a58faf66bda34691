package syncx

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/starmaker/internal/db"
	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
)

func openRepo(t *testing.T) (*EventRepo, *progress.SQLStore) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewEventRepo(dbh), progress.NewSQLStore(dbh)
}

func TestEventRepo_AppendList(t *testing.T) {
	ctx := context.Background()
	repo, _ := openRepo(t)

	old := timeNow
	timeNow = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { timeNow = old })

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, Event{Type: TypeCellsUpdated, Ref: "s1"}))
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "local", all[0].SiteID)
	assert.JSONEq(t, "{}", string(all[0].Data))
	assert.EqualValues(t, 1700000000, all[0].CreatedAt)
	assert.Less(t, all[0].Seq, all[1].Seq)

	tail, err := repo.List(ctx, all[0].Seq, 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, all[1].Seq, tail[0].Seq)
}

func TestAuditStore_RecordsSuccessfulWrites(t *testing.T) {
	ctx := context.Background()
	repo, inner := openRepo(t)
	s := NewAuditStore(inner, repo, "room-12", logging.Discard())

	rec, err := s.Create(ctx, "Kim", "pw")
	require.NoError(t, err)
	_, err = s.Create(ctx, "Kim", "pw")
	require.ErrorIs(t, err, progress.ErrNameTaken)

	require.NoError(t, s.UpdateCells(ctx, rec.ID, grid.Cells{"0-0": true}))
	require.ErrorIs(t, s.UpdateCells(ctx, "missing", grid.Cells{}), progress.ErrNotFound)

	_, err = progress.AppendLog(ctx, s, rec.ID, progress.QuestionLog, history.Entry{Message: "why?"})
	require.NoError(t, err)

	s.Note(ctx, TypeRosterReset, "*", map[string]int{"cleared": 1})

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	events, err := repo.List(ctx, 0, 50)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
		assert.Equal(t, "room-12", e.SiteID)
	}
	assert.Equal(t, []string{TypeStudentCreated, TypeCellsUpdated, TypeLogAppended, TypeRosterReset, TypeRosterDeleted}, types)

	var logged map[string]any
	require.NoError(t, json.Unmarshal(events[2].Data, &logged))
	assert.Equal(t, "student_question", logged["field"])
	assert.Equal(t, "why?", logged["message"])
	assert.Equal(t, rec.ID, events[1].Ref)
}

type brokenAppender struct{ calls int }

func (b *brokenAppender) Append(context.Context, Event) error {
	b.calls++
	return errors.New("event log offline")
}

func TestAuditStore_AppendFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	ev := &brokenAppender{}
	s := NewAuditStore(progress.NewMemoryStore(), ev, "local", logging.Discard())

	rec, err := s.Create(ctx, "Lee", "pw")
	require.NoError(t, err)
	require.NoError(t, s.UpdateCells(ctx, rec.ID, grid.Cells{"3-4": true}))
	assert.Equal(t, 2, ev.calls)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Cells.Has(3, 4))
}
