package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/615RealtyGuy/rf401-timeline/internal/routing"
	"github.com/615RealtyGuy/rf401-timeline/internal/rules"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/pkg/civildate"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

type rulesEvaluateRequest struct {
	DealUUID   string            `json:"deal_id"`
	AsOf       string            `json:"as_of"`
	Candidates []rules.Candidate `json:"candidates,omitempty"`
}

func handleRulesEvaluateAPI(w http.ResponseWriter, r *http.Request, store ports.DealStore, defaults []rules.Candidate) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req rulesEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	req.DealUUID = strings.TrimSpace(req.DealUUID)
	req.AsOf = strings.TrimSpace(req.AsOf)
	if req.DealUUID == "" {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_request", "deal_id required")
		return
	}
	if req.AsOf == "" {
		req.AsOf = time.Now().UTC().Format(civildate.Layout)
	}
	if _, ok := civildate.Parse(req.AsOf); !ok {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "invalid_as_of", "invalid as_of")
		return
	}

	deal, err := store.GetDeal(r.Context(), req.DealUUID)
	if err != nil {
		if httperr.IsNotFound(err) {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusNotFound, "not_found", "deal not found")
			return
		}
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, stablePgMessage(err), "deal lookup failed")
		return
	}

	candidates := req.Candidates
	if candidates == nil {
		candidates = defaults
	}

	result, err := rules.Evaluate(rules.BuildDealContext(deal, req.AsOf), candidates)
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusUnprocessableEntity, "rule_evaluation_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
