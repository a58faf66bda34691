// Package session drives the student flow: name lookup, password gate, the
// progress grid and the celebration shown on completion.
//
// The flow is a single state value plus one transition function
// (Machine.Handle). Confirmation before a toggle is an explicit step: a
// RequestToggle event moves GridView into a pending state carrying the
// question to ask, and AnswerConfirmation resolves it.
package session

import "errors"

var (
	ErrEmptyName         = errors.New("name is required")
	ErrEmptyPassword     = errors.New("password is required")
	ErrPasswordMismatch  = errors.New("wrong password")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrInvalidTransition = errors.New("action not allowed right now")
)

type Kind string

const (
	KindNameEntry      Kind = "name_entry"
	KindPasswordPrompt Kind = "password_prompt"
	KindGridView       Kind = "grid_view"
	KindCelebration    Kind = "celebration"
)

// Mode tells a PasswordPrompt whether the password is being set or checked.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeVerify Mode = "verify"
)

type State interface {
	Kind() Kind
}

type NameEntry struct{}

type PasswordPrompt struct {
	Name string
	Mode Mode
}

// GridView shows the grid. Pending is set while a toggle waits for the
// student's answer.
type GridView struct {
	Pending *Pending
}

// Celebration overlays the grid once all cells are complete.
type Celebration struct{}

func (NameEntry) Kind() Kind      { return KindNameEntry }
func (PasswordPrompt) Kind() Kind { return KindPasswordPrompt }
func (GridView) Kind() Kind       { return KindGridView }
func (Celebration) Kind() Kind    { return KindCelebration }

// Pending is a toggle awaiting confirmation.
type Pending struct {
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type Event interface {
	isEvent()
}

type (
	SubmitName         struct{ Name string }
	SubmitPassword     struct{ Password string }
	RequestToggle      struct{ Col, Row int }
	AnswerConfirmation struct{ Confirmed bool }
	SubmitQuestion     struct{ Text string }
	Dismiss            struct{}
	Finish             struct{}
)

func (SubmitName) isEvent()         {}
func (SubmitPassword) isEvent()     {}
func (RequestToggle) isEvent()      {}
func (AnswerConfirmation) isEvent() {}
func (SubmitQuestion) isEvent()     {}
func (Dismiss) isEvent()            {}
func (Finish) isEvent()             {}

// Outcome is what the caller should show after an event besides the new view.
type Outcome struct {
	Confirm   *Pending `json:"confirm,omitempty"`
	Celebrate bool     `json:"celebrate,omitempty"`
	Notice    string   `json:"notice,omitempty"`
}
