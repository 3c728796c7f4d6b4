package ports

import (
	"context"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
)

// DealStore persists deals and their derived collections. Derived data is
// always replaced wholesale (never diffed by id) because materialization
// regenerates every record id on each run.
type DealStore interface {
	CreateDeal(ctx context.Context, deal types.Deal) (types.Deal, error)
	GetDeal(ctx context.Context, dealUUID string) (types.Deal, error)
	ListDeals(ctx context.Context, includeArchived bool) ([]types.Deal, error)
	UpdateDealFields(ctx context.Context, dealUUID string, update types.DealUpdate) (types.Deal, error)
	DeleteDeal(ctx context.Context, dealUUID string) error

	SetManualEntry(ctx context.Context, dealUUID string, entry *types.ManualEntryPayload) (types.Deal, error)
	UpsertOffsetOverride(ctx context.Context, dealUUID string, clauseID string, override types.OffsetOverride) (types.Deal, error)
	SetDerived(ctx context.Context, dealUUID string, derived types.Derived) (types.Deal, error)
	UpdateTaskStatus(ctx context.Context, dealUUID string, taskUUID string, status string) (types.Deal, error)
}
