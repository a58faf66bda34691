package progress

import (
	"context"
	"errors"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
)

var (
	ErrNotFound  = errors.New("student not found")
	ErrNameTaken = errors.New("user name already taken")

	ErrUnknownField = errors.New("unknown log field")
)

// Record is one row of user_progress with its logs already parsed.
type Record struct {
	ID        string
	UserName  string
	Password  string
	Cells     grid.Cells
	Questions []history.Entry
	Feedback  []history.Entry
	CreatedAt int64
}

// LogField selects which log column an update writes.
type LogField string

const (
	QuestionLog LogField = "student_question"
	FeedbackLog LogField = "teacher_feedback"
)

func (f LogField) Valid() bool { return f == QuestionLog || f == FeedbackLog }

// Log returns the entries of r stored under f.
func (r Record) Log(f LogField) []history.Entry {
	if f == FeedbackLog {
		return r.Feedback
	}
	return r.Questions
}

// Store is the record store behind both the student flow and the teacher
// console. Every update overwrites the whole column.
type Store interface {
	FindByName(ctx context.Context, name string) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, name, password string) (Record, error)
	UpdateCells(ctx context.Context, id string, cells grid.Cells) error
	UpdateLog(ctx context.Context, id string, field LogField, log []history.Entry) error
	List(ctx context.Context) ([]Record, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// AppendLog reads the current log of id, appends e and writes the whole log
// back. It returns the log as written.
func AppendLog(ctx context.Context, s Store, id string, field LogField, e history.Entry) ([]history.Entry, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := history.Append(rec.Log(field), e)
	if err := s.UpdateLog(ctx, id, field, next); err != nil {
		return nil, err
	}
	return next, nil
}
