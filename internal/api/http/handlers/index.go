package handlers

import (
	"net/http"

	"github.com/flowmesh/schemagate/internal/version"
)

// Index serves GET / with build information
func Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, version.Get())
}
