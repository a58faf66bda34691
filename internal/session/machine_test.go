package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/logging"
	"github.com/mind-engage/starmaker/internal/progress"
)

// flakyStore fails selected operations and counts cell writes.
type flakyStore struct {
	*progress.MemoryStore
	failCreate  error
	failUpdate  error
	failFind    error
	cellUpdates int
}

func (s *flakyStore) Create(ctx context.Context, name, password string) (progress.Record, error) {
	if s.failCreate != nil {
		return progress.Record{}, s.failCreate
	}
	return s.MemoryStore.Create(ctx, name, password)
}

func (s *flakyStore) FindByName(ctx context.Context, name string) (progress.Record, error) {
	if s.failFind != nil {
		return progress.Record{}, s.failFind
	}
	return s.MemoryStore.FindByName(ctx, name)
}

func (s *flakyStore) UpdateCells(ctx context.Context, id string, cells grid.Cells) error {
	s.cellUpdates++
	if s.failUpdate != nil {
		return s.failUpdate
	}
	return s.MemoryStore.UpdateCells(ctx, id, cells)
}

func newMachine(t *testing.T) (*Machine, *flakyStore) {
	t.Helper()
	st := &flakyStore{MemoryStore: progress.NewMemoryStore()}
	return New(st, logging.Discard()), st
}

func handle(t *testing.T, m *Machine, ev Event) Outcome {
	t.Helper()
	out, err := m.Handle(context.Background(), ev)
	require.NoError(t, err)
	return out
}

func TestNewStudent_Kim(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)

	handle(t, m, SubmitName{Name: "Kim"})
	require.Equal(t, PasswordPrompt{Name: "Kim", Mode: ModeCreate}, m.State())

	handle(t, m, SubmitPassword{Password: "1234"})
	require.Equal(t, KindGridView, m.State().Kind())

	rec, err := st.FindByName(ctx, "Kim")
	require.NoError(t, err)
	assert.Equal(t, "1234", rec.Password)
	assert.Equal(t, grid.Cells{}, rec.Cells)

	out := handle(t, m, RequestToggle{Col: 0, Row: 0})
	require.NotNil(t, out.Confirm)
	assert.Equal(t, grid.Cells{}.Prompt(0, 0), out.Confirm.Message)
	assert.Equal(t, 0, st.cellUpdates, "nothing is written before confirmation")

	handle(t, m, AnswerConfirmation{Confirmed: true})

	rec, err = st.FindByName(ctx, "Kim")
	require.NoError(t, err)
	assert.Equal(t, grid.Cells{"0-0": true}, rec.Cells)

	v := m.View(time.UTC)
	assert.Equal(t, 1, v.Progress)
	assert.Equal(t, grid.Cells{"0-0": true}, v.Cells)
	assert.Equal(t, "Kim", v.Name)
}

func TestDeclinedConfirmation_NoWrite(t *testing.T) {
	m, st := newMachine(t)
	handle(t, m, SubmitName{Name: "Han"})
	handle(t, m, SubmitPassword{Password: "pw"})

	handle(t, m, RequestToggle{Col: 2, Row: 3})
	out := handle(t, m, AnswerConfirmation{Confirmed: false})

	assert.Equal(t, Outcome{}, out)
	assert.Equal(t, GridView{}, m.State())
	assert.Equal(t, 0, st.cellUpdates)
	assert.Equal(t, 0, m.View(nil).Progress)
}

func TestRedoPromptForCompletedCell(t *testing.T) {
	m, _ := newMachine(t)
	handle(t, m, SubmitName{Name: "Yoon"})
	handle(t, m, SubmitPassword{Password: "pw"})
	handle(t, m, RequestToggle{Col: 1, Row: 1})
	handle(t, m, AnswerConfirmation{Confirmed: true})

	out := handle(t, m, RequestToggle{Col: 1, Row: 1})
	assert.Equal(t, grid.RedoPrompt, out.Confirm.Message)
	handle(t, m, AnswerConfirmation{Confirmed: true})
	assert.Equal(t, 0, m.View(nil).Progress)
}

func TestReturningStar_NoCelebration(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)
	rec, err := st.Create(ctx, "Star", "pw")
	require.NoError(t, err)
	require.NoError(t, st.UpdateCells(ctx, rec.ID, grid.Full()))

	handle(t, m, SubmitName{Name: "Star"})
	require.Equal(t, PasswordPrompt{Name: "Star", Mode: ModeVerify}, m.State())

	out := handle(t, m, SubmitPassword{Password: "pw"})
	assert.False(t, out.Celebrate)
	assert.Equal(t, KindGridView, m.State().Kind())
	assert.True(t, m.AlreadyStar())
	assert.Equal(t, grid.Total, m.View(nil).Progress)

	// removing a cell clears the indicator
	handle(t, m, RequestToggle{Col: 3, Row: 4})
	handle(t, m, AnswerConfirmation{Confirmed: true})
	assert.False(t, m.AlreadyStar())
	assert.Equal(t, KindGridView, m.State().Kind())
}

func TestCompletingGrid_Celebrates(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)
	rec, err := st.Create(ctx, "Almost", "pw")
	require.NoError(t, err)
	almost, err := grid.Full().Toggle(2, 2)
	require.NoError(t, err)
	require.NoError(t, st.UpdateCells(ctx, rec.ID, almost))

	handle(t, m, SubmitName{Name: "Almost"})
	handle(t, m, SubmitPassword{Password: "pw"})
	assert.False(t, m.AlreadyStar())

	handle(t, m, RequestToggle{Col: 2, Row: 2})
	out := handle(t, m, AnswerConfirmation{Confirmed: true})
	assert.True(t, out.Celebrate)
	assert.Equal(t, Celebration{}, m.State())

	_, err = m.Handle(ctx, RequestToggle{Col: 0, Row: 0})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	handle(t, m, Dismiss{})
	assert.Equal(t, GridView{}, m.State())
	assert.True(t, m.AlreadyStar())

	handle(t, m, Finish{})
	assert.Equal(t, NameEntry{}, m.State())
	assert.False(t, m.AlreadyStar())
}

func TestWrongPassword_StaysInPrompt(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)
	_, err := st.Create(ctx, "Jo", "right")
	require.NoError(t, err)

	handle(t, m, SubmitName{Name: "Jo"})
	for i := 0; i < 3; i++ {
		_, err = m.Handle(ctx, SubmitPassword{Password: "wrong"})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
		assert.Equal(t, PasswordPrompt{Name: "Jo", Mode: ModeVerify}, m.State())
	}
	handle(t, m, SubmitPassword{Password: "right"})
	assert.Equal(t, KindGridView, m.State().Kind())
}

func TestEmptyInputs(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t)

	_, err := m.Handle(ctx, SubmitName{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, NameEntry{}, m.State())

	handle(t, m, SubmitName{Name: "  Seo  "})
	assert.Equal(t, PasswordPrompt{Name: "Seo", Mode: ModeCreate}, m.State())

	_, err = m.Handle(ctx, SubmitPassword{Password: ""})
	assert.ErrorIs(t, err, ErrEmptyPassword)

	handle(t, m, SubmitPassword{Password: "pw"})
	_, err = m.Handle(ctx, SubmitQuestion{Text: " \t "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")

	t.Run("create keeps prompt", func(t *testing.T) {
		m, st := newMachine(t)
		handle(t, m, SubmitName{Name: "New"})
		st.failCreate = boom
		_, err := m.Handle(ctx, SubmitPassword{Password: "pw"})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, PasswordPrompt{Name: "New", Mode: ModeCreate}, m.State())
	})

	t.Run("lookup keeps name entry", func(t *testing.T) {
		m, st := newMachine(t)
		st.failFind = boom
		_, err := m.Handle(ctx, SubmitName{Name: "Any"})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, NameEntry{}, m.State())
	})

	t.Run("toggle leaves grid untouched", func(t *testing.T) {
		m, st := newMachine(t)
		handle(t, m, SubmitName{Name: "T"})
		handle(t, m, SubmitPassword{Password: "pw"})
		st.failUpdate = boom
		handle(t, m, RequestToggle{Col: 0, Row: 0})
		_, err := m.Handle(ctx, AnswerConfirmation{Confirmed: true})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, GridView{}, m.State())
		assert.Equal(t, 0, m.View(nil).Progress)
	})
}

func TestQuestions(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)
	handle(t, m, SubmitName{Name: "Q"})
	handle(t, m, SubmitPassword{Password: "pw"})

	out := handle(t, m, SubmitQuestion{Text: "  What is latitude?  "})
	assert.NotEmpty(t, out.Notice)
	handle(t, m, SubmitQuestion{Text: "And longitude?"})

	rec, err := st.FindByName(ctx, "Q")
	require.NoError(t, err)
	require.Len(t, rec.Questions, 2)
	assert.Equal(t, "What is latitude?", rec.Questions[0].Message)
	assert.Equal(t, "And longitude?", rec.Questions[1].Message)
	assert.NotNil(t, rec.Questions[0].CreatedAt)

	v := m.View(time.UTC)
	require.Len(t, v.Questions, 2)
	assert.Equal(t, "And longitude?", v.Questions[1].Message)
}

func TestFinish_DoesNotTouchStore(t *testing.T) {
	ctx := context.Background()
	m, st := newMachine(t)
	handle(t, m, SubmitName{Name: "F"})
	handle(t, m, SubmitPassword{Password: "pw"})
	handle(t, m, RequestToggle{Col: 0, Row: 4})
	handle(t, m, AnswerConfirmation{Confirmed: true})

	handle(t, m, Finish{})
	v := m.View(nil)
	assert.Equal(t, KindNameEntry, v.State)
	assert.Empty(t, v.Name)
	assert.Equal(t, 0, v.Progress)

	rec, err := st.FindByName(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, grid.Cells{"0-4": true}, rec.Cells)

	// a new lookup of the same name now asks to verify
	handle(t, m, SubmitName{Name: "F"})
	assert.Equal(t, PasswordPrompt{Name: "F", Mode: ModeVerify}, m.State())
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m, _ := newMachine(t)

	for _, ev := range []Event{SubmitPassword{Password: "x"}, RequestToggle{}, AnswerConfirmation{}, SubmitQuestion{Text: "q"}, Dismiss{}} {
		_, err := m.Handle(ctx, ev)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%T", ev)
	}

	handle(t, m, SubmitName{Name: "I"})
	handle(t, m, SubmitPassword{Password: "pw"})

	_, err := m.Handle(ctx, RequestToggle{Col: 9, Row: 0})
	assert.ErrorIs(t, err, grid.ErrOutOfRange)

	handle(t, m, RequestToggle{Col: 0, Row: 0})
	_, err = m.Handle(ctx, RequestToggle{Col: 1, Row: 0})
	assert.ErrorIs(t, err, ErrInvalidTransition, "one confirmation at a time")

	_, err = m.Handle(ctx, SubmitName{Name: "other"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
