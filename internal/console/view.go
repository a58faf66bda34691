package console

import (
	"time"

	"github.com/mind-engage/starmaker/internal/grid"
	"github.com/mind-engage/starmaker/internal/history"
	"github.com/mind-engage/starmaker/internal/progress"
)

// RosterEntry is one line of the student list.
type RosterEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
}

// StudentDetail is the selected student's grid and both logs, oldest first.
type StudentDetail struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Cells     grid.Cells     `json:"cells"`
	Progress  int            `json:"progress"`
	Total     int            `json:"total"`
	Questions []history.View `json:"questions"`
	Feedback  []history.View `json:"feedback"`
}

func Summaries(roster []progress.Record) []RosterEntry {
	out := make([]RosterEntry, len(roster))
	for i, r := range roster {
		out[i] = RosterEntry{ID: r.ID, Name: r.UserName, Progress: r.Cells.Count(), Total: grid.Total}
	}
	return out
}

func Detail(r progress.Record, loc *time.Location) StudentDetail {
	cells := r.Cells
	if cells == nil {
		cells = grid.Cells{}
	}
	return StudentDetail{
		ID:        r.ID,
		Name:      r.UserName,
		Cells:     cells,
		Progress:  cells.Count(),
		Total:     grid.Total,
		Questions: history.Render(r.Questions, loc),
		Feedback:  history.Render(r.Feedback, loc),
	}
}
