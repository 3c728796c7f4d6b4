package server

import (
	"encoding/json"
	"net/http"

	"github.com/615RealtyGuy/rf401-timeline/internal/routing"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/clausemap"
)

func handleClauseMapAPI(w http.ResponseWriter, r *http.Request, catalog *clausemap.Catalog) {
	if r.Method != http.MethodGet {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(catalog)
}
