package http

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	storage "github.com/mind-engage/starmaker/internal/storage"
)

// MountSnapshots serves archived roster snapshots: GET / lists their keys,
// GET /{name} returns one file.
func MountSnapshots(r chi.Router, bs storage.BlobStore) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if bs == nil {
			writeJSON(w, http.StatusOK, []string{})
			return
		}
		keys, err := storage.NewRosterArchiver(bs).Snapshots()
		if err != nil {
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, keys)
	})

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if bs == nil {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if name == "" || strings.Contains(name, "..") {
			http.Error(w, "bad key", http.StatusBadRequest)
			return
		}
		rc, err := bs.Get(storage.SnapshotPrefix + "/" + name)
		switch {
		case errors.Is(err, storage.ErrBadKey):
			http.Error(w, "bad key", http.StatusBadRequest)
			return
		case errors.Is(err, fs.ErrNotExist):
			http.NotFound(w, r)
			return
		case err != nil:
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = io.Copy(w, rc)
	})
}
