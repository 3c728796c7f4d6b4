package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/615RealtyGuy/rf401-timeline/internal/routing"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/services"
	"github.com/615RealtyGuy/rf401-timeline/pkg/civildate"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

type DealsController struct {
	Facade services.DealsFacade
}

// HandleDealsAPI serves the deal collection: GET lists, POST creates.
func (c DealsController) HandleDealsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeArchived := r.URL.Query().Get("include_archived") == "true"
		deals, err := c.Facade.ListDeals(r.Context(), includeArchived)
		if err != nil {
			writeFacadeError(w, r, err, "list failed")
			return
		}
		if deals == nil {
			deals = make([]types.Deal, 0)
		}
		writeJSON(w, http.StatusOK, map[string]any{"deals": deals})
		return

	case http.MethodPost:
		var req services.CreateDealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if req.BindingAgreementDate != nil && *req.BindingAgreementDate != "" {
			if _, ok := civildate.Parse(*req.BindingAgreementDate); !ok {
				writeError(w, r, http.StatusBadRequest, "invalid_binding_agreement_date", "invalid binding_agreement_date")
				return
			}
		}
		deal, err := c.Facade.CreateDeal(r.Context(), req)
		if err != nil {
			writeFacadeError(w, r, err, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, deal)
		return

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

type dealPatchRequest struct {
	Name                 *string `json:"name"`
	PropertyAddress      *string `json:"property_address"`
	BuyerName            *string `json:"buyer_name"`
	SellerName           *string `json:"seller_name"`
	BindingAgreementDate *string `json:"binding_agreement_date"`
	Status               *string `json:"status"`
}

// HandleDealAPI serves a single deal: GET reads, PATCH edits metadata,
// DELETE removes.
func (c DealsController) HandleDealAPI(w http.ResponseWriter, r *http.Request) {
	dealUUID := routing.PathParam(r, "deal_id")
	if dealUUID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_deal_id", "deal_id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		deal, err := c.Facade.GetDeal(r.Context(), dealUUID)
		if err != nil {
			writeFacadeError(w, r, err, "get failed")
			return
		}
		writeJSON(w, http.StatusOK, deal)
		return

	case http.MethodPatch:
		var req dealPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
			return
		}
		if req.BindingAgreementDate != nil && *req.BindingAgreementDate != "" {
			if _, ok := civildate.Parse(*req.BindingAgreementDate); !ok {
				writeError(w, r, http.StatusBadRequest, "invalid_binding_agreement_date", "invalid binding_agreement_date")
				return
			}
		}
		deal, err := c.Facade.UpdateDeal(r.Context(), dealUUID, types.DealUpdate{
			Name:                 req.Name,
			PropertyAddress:      req.PropertyAddress,
			BuyerName:            req.BuyerName,
			SellerName:           req.SellerName,
			BindingAgreementDate: req.BindingAgreementDate,
			Status:               req.Status,
		})
		if err != nil {
			writeFacadeError(w, r, err, "update failed")
			return
		}
		writeJSON(w, http.StatusOK, deal)
		return

	case http.MethodDelete:
		if err := c.Facade.DeleteDeal(r.Context(), dealUUID); err != nil {
			writeFacadeError(w, r, err, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// HandleManualEntryAPI replaces a deal's manual-entry payload and returns
// the deal with its freshly derived timeline.
func (c DealsController) HandleManualEntryAPI(w http.ResponseWriter, r *http.Request) {
	dealUUID := routing.PathParam(r, "deal_id")
	if dealUUID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_deal_id", "deal_id is required")
		return
	}
	if r.Method != http.MethodPut {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var entry types.ManualEntryPayload
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	for _, a := range entry.Anchors {
		if strings.TrimSpace(a.AnchorID) == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_anchor", "anchor_id is required")
			return
		}
	}
	for _, o := range entry.Offsets {
		if strings.TrimSpace(o.ClauseID) == "" {
			writeError(w, r, http.StatusBadRequest, "invalid_offset", "clause_id is required")
			return
		}
	}

	deal, err := c.Facade.SubmitManualEntry(r.Context(), dealUUID, entry)
	if err != nil {
		writeFacadeError(w, r, err, "manual entry failed")
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// HandleOverrideAPI upserts a per-clause offset override and returns the
// deal with its recomputed timeline.
func (c DealsController) HandleOverrideAPI(w http.ResponseWriter, r *http.Request) {
	dealUUID := routing.PathParam(r, "deal_id")
	clauseID := routing.PathParam(r, "clause_id")
	if dealUUID == "" || clauseID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_path_params", "deal_id and clause_id are required")
		return
	}
	if r.Method != http.MethodPut {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var override types.OffsetOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	if override.OffsetValue == nil && override.OffsetKind == nil && override.Direction == nil && override.Trigger == nil {
		writeError(w, r, http.StatusBadRequest, "empty_override", "at least one override field is required")
		return
	}

	deal, err := c.Facade.UpsertOverride(r.Context(), dealUUID, clauseID, override)
	if err != nil {
		writeFacadeError(w, r, err, "override failed")
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

type taskStatusRequest struct {
	Status string `json:"status"`
}

// HandleTaskStatusAPI moves one derived task across the todo/doing/done
// board.
func (c DealsController) HandleTaskStatusAPI(w http.ResponseWriter, r *http.Request) {
	dealUUID := routing.PathParam(r, "deal_id")
	taskUUID := routing.PathParam(r, "task_id")
	if dealUUID == "" || taskUUID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_path_params", "deal_id and task_id are required")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	deal, err := c.Facade.UpdateTaskStatus(r.Context(), dealUUID, taskUUID, strings.TrimSpace(req.Status))
	if err != nil {
		writeFacadeError(w, r, err, "task status failed")
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// HandleRefreshAPI re-derives a deal's timeline from the stored facts,
// preserving task progress.
func (c DealsController) HandleRefreshAPI(w http.ResponseWriter, r *http.Request) {
	dealUUID := routing.PathParam(r, "deal_id")
	if dealUUID == "" {
		writeError(w, r, http.StatusBadRequest, "missing_deal_id", "deal_id is required")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	deal, err := c.Facade.RefreshDeal(r.Context(), dealUUID)
	if err != nil {
		writeFacadeError(w, r, err, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFacadeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if httperr.IsNotFound(err) {
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
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
	writeError(w, r, status, code, message)
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	TraceID string            `json:"trace_id"`
	Meta    errorEnvelopeMeta `json:"meta"`
}

type errorEnvelopeMeta struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Code:    code,
		Message: message,
		TraceID: traceIDFromRequest(r),
		Meta: errorEnvelopeMeta{
			Path:   r.URL.Path,
			Method: r.Method,
		},
	})
}

func traceIDFromRequest(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == "00000000000000000000000000000000" {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}

func pgErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		msg := strings.TrimSpace(pgErr.Message)
		if msg != "" {
			return msg
		}
	}
	return "UNKNOWN"
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return strings.TrimSpace(pgErr.Code)
	}
	return ""
}

func isPgInvalidInput(err error) bool {
	switch pgErrorCode(err) {
	case "22P02", "22003", "22007", "22008":
		return true
	default:
		return false
	}
}

func stablePgMessage(err error) string {
	msg := pgErrorMessage(err)
	if isStableDBCode(msg) {
		return msg
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		switch strings.TrimSpace(pgErr.ConstraintName) {
		case "deals_status_check":
			return "DEAL_STATUS_INVALID"
		case "deals_pkey":
			return "DEAL_ALREADY_EXISTS"
		}
	}
	return err.Error()
}

func isStableDBCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || code == "UNKNOWN" {
		return false
	}
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch >= 'A' && ch <= 'Z' {
			continue
		}
		if ch >= '0' && ch <= '9' {
			continue
		}
		if ch == '_' {
			continue
		}
		return false
	}
	if code[0] < 'A' || code[0] > 'Z' {
		return false
	}
	return true
}
