package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectRecord = `SELECT id,user_name,password,cell_data,student_question,teacher_feedback,created_at FROM user_progress`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r         Record
		cells     string
		questions sql.NullString
		feedback  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserName, &r.Password, &cells, &questions, &feedback, &r.CreatedAt); err != nil {
		return Record{}, err
	}
	c, err := grid.Decode(cells)
	if err != nil {
		// a corrupt grid should not lock the student out
		c = grid.Cells{}
	}
	r.Cells = c
	r.Questions = history.Parse(questions.String)
	r.Feedback = history.Parse(feedback.String)
	return r, nil
}

func (s *SQLStore) FindByName(ctx context.Context, name string) (Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+` WHERE user_name=$1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find by name: %w", err)
	}
	return r, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

func (s *SQLStore) Create(ctx context.Context, name, password string) (Record, error) {
	r := Record{
		ID:        uuid.NewString(),
		UserName:  name,
		Password:  password,
		Cells:     grid.Cells{},
		Questions: []history.Entry{},
		Feedback:  []history.Entry{},
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_progress (id,user_name,password,cell_data,created_at) VALUES ($1,$2,$3,'{}',$4)`,
		r.ID, r.UserName, r.Password, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrNameTaken
		}
		return Record{}, fmt.Errorf("create record: %w", err)
	}
	return r, nil
}

func (s *SQLStore) UpdateCells(ctx context.Context, id string, cells grid.Cells) error {
	buf, err := cells.Encode()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE user_progress SET cell_data=$1 WHERE id=$2`, buf, id)
	if err != nil {
		return fmt.Errorf("update cells: %w", err)
	}
	return expectOne(res)
}

func (s *SQLStore) UpdateLog(ctx context.Context, id string, field LogField, log []history.Entry) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	buf, err := history.Serialize(log)
	if err != nil {
		return err
	}
	// field is one of two constants, never user input
	res, err := s.db.ExecContext(ctx, `UPDATE user_progress SET `+string(field)+`=$1 WHERE id=$2`, buf, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", field, err)
	}
	return expectOne(res)
}

func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+` ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_progress WHERE id IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return res.RowsAffected()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
