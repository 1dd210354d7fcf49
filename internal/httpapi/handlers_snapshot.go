package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"opensentry/internal/snapshot"
)

// handleSnapshotCurrent returns the most recent in-memory snapshot the
// worker produced, independent of what has been pruned from disk.
func (s *Server) handleSnapshotCurrent(w http.ResponseWriter, r *http.Request) {
	jpg, ok := s.Snapshots.Latest()
	if !ok {
		http.Error(w, "no snapshot available yet", http.StatusNotFound)
		return
	}
	name := fmt.Sprintf("opensentry-snapshot-%s.jpg", time.Now().Format("2006-01-02_15-04-05"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	writeJPEG(w, jpg)
}

// handleSnapshotLatest returns the newest file on disk, which may differ
// from the in-memory one right after a prune.
func (s *Server) handleSnapshotLatest(w http.ResponseWriter, r *http.Request) {
	dir := s.Settings.Get().Snapshots.Directory
	entries, err := snapshot.List(dir)
	if err != nil {
		http.Error(w, "listing failed", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "no snapshots on disk", http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Filename))
	if err != nil {
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	writeJPEG(w, data)
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	dir := s.Settings.Get().Snapshots.Directory
	entries, err := snapshot.List(dir)
	if err != nil {
		http.Error(w, "listing failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": entries})
}

// validSnapshotName rejects path traversal before any filesystem access,
// per spec §7's edge case.
func validSnapshotName(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

func (s *Server) handleSnapshotImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validSnapshotName(name) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	dir := s.Settings.Get().Snapshots.Directory
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.Header().Set("Cache-Control", "no-store")
	writeJPEG(w, data)
}

func (s *Server) handleSnapshotDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validSnapshotName(name) {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	dir := s.Settings.Get().Snapshots.Directory
	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

// writeJPEG writes the body and content type only; callers set
// Cache-Control/Content-Disposition themselves since those vary per route.
func writeJPEG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
