package server

import (
	"encoding/json"
	"net/http"

	"github.com/615RealtyGuy/rf401-timeline/internal/export"
	"github.com/615RealtyGuy/rf401-timeline/internal/routing"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

func handleICSExportAPI(w http.ResponseWriter, r *http.Request, store ports.DealStore) {
	dealUUID := routing.PathParam(r, "deal_id")
	if dealUUID == "" {
		routing.WriteError(w, r, routing.RouteClassExport, http.StatusBadRequest, "missing_deal_id", "deal_id is required")
		return
	}

	deal, err := store.GetDeal(r.Context(), dealUUID)
	if err != nil {
		writeStoreError(w, r, routing.RouteClassExport, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.ICSFilename(deal)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.GenerateICS(deal)))
}

func handleCalendarLinksAPI(w http.ResponseWriter, r *http.Request, store ports.DealStore) {
	dealUUID := routing.PathParam(r, "deal_id")
	if dealUUID == "" {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusBadRequest, "missing_deal_id", "deal_id is required")
		return
	}

	deal, err := store.GetDeal(r.Context(), dealUUID)
	if err != nil {
		writeStoreError(w, r, routing.RouteClassPublicAPI, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"deal_id": deal.DealUUID,
		"links":   export.BuildCalendarLinks(deal),
	})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, rc routing.RouteClass, err error) {
	if httperr.IsNotFound(err) {
		routing.WriteError(w, r, rc, http.StatusNotFound, "not_found", err.Error())
		return
	}

	code := stablePgMessage(err)
	status := http.StatusInternalServerError
	if isStableDBCode(code) {
		status = http.StatusUnprocessableEntity
	}
	if httperr.IsBadRequest(err) || isPgInvalidInput(err) {
		status = http.StatusBadRequest
	}
	routing.WriteError(w, r, rc, status, code, "request failed")
}
