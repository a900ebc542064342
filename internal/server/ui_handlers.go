package server

import (
	"net/http"

	"github.com/cwbudde/spheredist/internal/ui"
)

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	page := ui.Index(ui.IndexData{
		Title:      s.opts.Title,
		StreamURL:  "/api/v1/stream",
		PointsURL:  "/api/v1/points",
		StatusURL:  "/api/v1/status",
		View:       ui.DefaultView(),
		PaletteLen: 64,
	})
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
