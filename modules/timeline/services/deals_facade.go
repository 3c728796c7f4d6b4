package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/clausemap"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

// DealsFacade sequences store reads, materialization, and derived-data
// writes so that each user-visible edit appears atomic: every mutation that
// can move a date re-derives the timeline before returning. Concurrent
// edits to the same deal are last-writer-wins at the store.
type DealsFacade struct {
	store ports.DealStore
	mat   Materializer
}

func NewDealsFacade(store ports.DealStore, mat Materializer) DealsFacade {
	return DealsFacade{store: store, mat: mat}
}

type CreateDealRequest struct {
	OwnerName            string  `json:"owner_name"`
	Name                 string  `json:"name"`
	PropertyAddress      string  `json:"property_address"`
	BuyerName            string  `json:"buyer_name"`
	SellerName           string  `json:"seller_name"`
	BindingAgreementDate *string `json:"binding_agreement_date"`
}

func (f DealsFacade) CreateDeal(ctx context.Context, req CreateDealRequest) (types.Deal, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Untitled Deal"
	}
	deal := types.Deal{
		DealUUID:             uuid.NewString(),
		OwnerName:            strings.TrimSpace(req.OwnerName),
		Name:                 name,
		PropertyAddress:      strings.TrimSpace(req.PropertyAddress),
		BuyerName:            strings.TrimSpace(req.BuyerName),
		SellerName:           strings.TrimSpace(req.SellerName),
		BindingAgreementDate: req.BindingAgreementDate,
		Status:               types.DealStatusActive,
		Overrides:            types.OverrideSet{},
		Events:               []types.DerivedEvent{},
		Tasks:                []types.DerivedTask{},
		InfoItems:            []types.DerivedInfoItem{},
	}
	return f.store.CreateDeal(ctx, deal)
}

func (f DealsFacade) GetDeal(ctx context.Context, dealUUID string) (types.Deal, error) {
	return f.store.GetDeal(ctx, dealUUID)
}

func (f DealsFacade) ListDeals(ctx context.Context, includeArchived bool) ([]types.Deal, error) {
	return f.store.ListDeals(ctx, includeArchived)
}

func (f DealsFacade) DeleteDeal(ctx context.Context, dealUUID string) error {
	return f.store.DeleteDeal(ctx, dealUUID)
}

// UpdateDeal edits top-level deal metadata. A binding-agreement-date change
// shifts every derived deadline, so the timeline is recomputed with task
// progress preserved; pure metadata edits leave derived data untouched.
func (f DealsFacade) UpdateDeal(ctx context.Context, dealUUID string, update types.DealUpdate) (types.Deal, error) {
	if update.Status != nil {
		switch *update.Status {
		case types.DealStatusActive, types.DealStatusArchived:
		default:
			return types.Deal{}, httperr.NewBadRequest("invalid status")
		}
	}

	deal, err := f.store.UpdateDealFields(ctx, dealUUID, update)
	if err != nil {
		return types.Deal{}, err
	}
	if update.BindingAgreementDate == nil || deal.ManualEntry == nil {
		return deal, nil
	}

	// Keep the manual-entry anchor in step with the deal-level field, the
	// way the original entry form does.
	entry := *deal.ManualEntry
	anchors := make([]types.AnchorInput, len(entry.Anchors))
	copy(anchors, entry.Anchors)
	for i := range anchors {
		if anchors[i].AnchorID == clausemap.AnchorBindingAgreementDate {
			if *update.BindingAgreementDate == "" {
				anchors[i].Value = ""
			} else {
				anchors[i].Value = *update.BindingAgreementDate
			}
		}
	}
	entry.Anchors = anchors
	deal, err = f.store.SetManualEntry(ctx, dealUUID, &entry)
	if err != nil {
		return types.Deal{}, err
	}

	return f.storeDerived(ctx, dealUUID, f.mat.Rematerialize(deal))
}

// SubmitManualEntry replaces the deal's manual-entry payload wholesale and
// materializes a fresh timeline. Task statuses start over: a new payload is
// a new contract reading, not an edit to the old one.
func (f DealsFacade) SubmitManualEntry(ctx context.Context, dealUUID string, entry types.ManualEntryPayload) (types.Deal, error) {
	deal, err := f.store.SetManualEntry(ctx, dealUUID, &entry)
	if err != nil {
		return types.Deal{}, err
	}

	// Promote the BAD anchor to the deal-level field when provided.
	for _, a := range entry.Anchors {
		if a.AnchorID == clausemap.AnchorBindingAgreementDate && a.Value != "" {
			v := a.Value
			deal, err = f.store.UpdateDealFields(ctx, dealUUID, types.DealUpdate{BindingAgreementDate: &v})
			if err != nil {
				return types.Deal{}, err
			}
			break
		}
	}

	return f.storeDerived(ctx, dealUUID, f.mat.Materialize(deal))
}

// UpsertOverride records a per-clause correction and recomputes the
// timeline, carrying task progress forward.
func (f DealsFacade) UpsertOverride(ctx context.Context, dealUUID string, clauseID string, override types.OffsetOverride) (types.Deal, error) {
	if strings.TrimSpace(clauseID) == "" {
		return types.Deal{}, httperr.NewBadRequest("clause_id is required")
	}
	deal, err := f.store.UpsertOffsetOverride(ctx, dealUUID, clauseID, override)
	if err != nil {
		return types.Deal{}, err
	}
	return f.storeDerived(ctx, dealUUID, f.mat.Rematerialize(deal))
}

// RefreshDeal re-runs materialization from the stored facts, preserving
// task progress. Useful after a catalog change.
func (f DealsFacade) RefreshDeal(ctx context.Context, dealUUID string) (types.Deal, error) {
	deal, err := f.store.GetDeal(ctx, dealUUID)
	if err != nil {
		return types.Deal{}, err
	}
	return f.storeDerived(ctx, dealUUID, f.mat.Rematerialize(deal))
}

func (f DealsFacade) UpdateTaskStatus(ctx context.Context, dealUUID string, taskUUID string, status string) (types.Deal, error) {
	if !types.ValidTaskStatus(status) {
		return types.Deal{}, httperr.NewBadRequest("invalid task status")
	}
	return f.store.UpdateTaskStatus(ctx, dealUUID, taskUUID, status)
}

func (f DealsFacade) storeDerived(ctx context.Context, dealUUID string, derived types.Derived) (types.Deal, error) {
	return f.store.SetDerived(ctx, dealUUID, derived)
}
