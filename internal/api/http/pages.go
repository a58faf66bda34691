package http

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/starmaker/internal/grid"
)

//go:embed web/*.html
var pages embed.FS

// MountPages serves the two single-page screens. / goes to the student one.
func MountPages(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/student", http.StatusFound)
	})
	r.Get("/student", pageHandler("web/student.html"))
	r.Get("/teacher", pageHandler("web/teacher.html"))
}

func pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := pages.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	}
}

type gridLayout struct {
	Rows         int      `json:"rows"`
	Cols         int      `json:"cols"`
	Letters      []string `json:"letters"`
	ColumnTitles []string `json:"column_titles"`
	RowTitles    []string `json:"row_titles"`
}

// GridLayoutHandler returns the fixed labels both screens draw the grid with.
func GridLayoutHandler() http.HandlerFunc {
	layout := gridLayout{
		Rows:         grid.Rows,
		Cols:         grid.Cols,
		Letters:      grid.Letters[:],
		ColumnTitles: grid.ColumnTitles[:],
		RowTitles:    grid.RowTitles[:],
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, layout)
	}
}
