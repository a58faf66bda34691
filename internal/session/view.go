package session

import (
	"time"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
)

// View is a render-ready snapshot of a session.
type View struct {
	State       Kind           `json:"state"`
	Mode        Mode           `json:"mode,omitempty"`
	Name        string         `json:"name,omitempty"`
	Cells       grid.Cells     `json:"cells"`
	Progress    int            `json:"progress"`
	Total       int            `json:"total"`
	AlreadyStar bool           `json:"already_star"`
	Pending     *Pending       `json:"pending,omitempty"`
	Questions   []history.View `json:"questions"`
}

func (m *Machine) View(loc *time.Location) View {
	v := View{State: m.state.Kind(), Cells: grid.Cells{}, Total: grid.Total, Questions: []history.View{}}
	switch st := m.state.(type) {
	case PasswordPrompt:
		v.Name = st.Name
		v.Mode = st.Mode
	case GridView:
		v.Pending = st.Pending
	}
	if m.student != nil {
		v.Name = m.student.name
		v.Cells = m.student.cells
		v.Progress = m.student.cells.Count()
		v.AlreadyStar = m.alreadyStar
		v.Questions = history.Render(m.student.questions, loc)
	}
	return v
}
