package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

type pgQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DealPGStore persists deals in a single Postgres table. The manual-entry
// payload, overrides, and the three derived collections live in jsonb
// columns: derived data is replaced wholesale on every materialization, so
// relational decomposition would buy nothing.
type DealPGStore struct {
	pool pgQuerier
}

func NewDealPGStore(pool pgQuerier) ports.DealStore {
	return &DealPGStore{pool: pool}
}

const dealColumns = `
	deal_uuid,
	owner_name,
	name,
	property_address,
	buyer_name,
	seller_name,
	to_char(binding_agreement_date, 'YYYY-MM-DD'),
	status,
	to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
	to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
	manual_entry,
	overrides,
	events,
	tasks,
	info_items`

type pgRowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row pgRowScanner) (types.Deal, error) {
	var (
		d           types.Deal
		bindingDate *string
		manualEntry []byte
		overrides   []byte
		events      []byte
		tasks       []byte
		infoItems   []byte
	)
	err := row.Scan(
		&d.DealUUID,
		&d.OwnerName,
		&d.Name,
		&d.PropertyAddress,
		&d.BuyerName,
		&d.SellerName,
		&bindingDate,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&manualEntry,
		&overrides,
		&events,
		&tasks,
		&infoItems,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Deal{}, httperr.NewNotFound("deal not found")
		}
		return types.Deal{}, err
	}

	d.BindingAgreementDate = bindingDate
	if len(manualEntry) > 0 {
		var entry types.ManualEntryPayload
		if err := json.Unmarshal(manualEntry, &entry); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: manual_entry: %w", d.DealUUID, err)
		}
		d.ManualEntry = &entry
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &d.Overrides); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: overrides: %w", d.DealUUID, err)
		}
	}
	d.Events = []types.DerivedEvent{}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &d.Events); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: events: %w", d.DealUUID, err)
		}
	}
	d.Tasks = []types.DerivedTask{}
	if len(tasks) > 0 {
		if err := json.Unmarshal(tasks, &d.Tasks); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: tasks: %w", d.DealUUID, err)
		}
	}
	d.InfoItems = []types.DerivedInfoItem{}
	if len(infoItems) > 0 {
		if err := json.Unmarshal(infoItems, &d.InfoItems); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: info_items: %w", d.DealUUID, err)
		}
	}
	return d, nil
}

func marshalJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *DealPGStore) CreateDeal(ctx context.Context, deal types.Deal) (types.Deal, error) {
	overrides, err := marshalJSONB(deal.Overrides)
	if err != nil {
		return types.Deal{}, err
	}
	var manualEntry []byte
	if deal.ManualEntry != nil {
		manualEntry, err = marshalJSONB(deal.ManualEntry)
		if err != nil {
			return types.Deal{}, err
		}
	}
	events, err := marshalJSONB(deal.Events)
	if err != nil {
		return types.Deal{}, err
	}
	tasks, err := marshalJSONB(deal.Tasks)
	if err != nil {
		return types.Deal{}, err
	}
	infoItems, err := marshalJSONB(deal.InfoItems)
	if err != nil {
		return types.Deal{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO deals (
			deal_uuid, owner_name, name, property_address, buyer_name, seller_name,
			binding_agreement_date, status,
			manual_entry, overrides, events, tasks, info_items
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, $8, $9, $10, $11, $12, $13)
		RETURNING `+dealColumns,
		deal.DealUUID,
		deal.OwnerName,
		deal.Name,
		deal.PropertyAddress,
		deal.BuyerName,
		deal.SellerName,
		derefOrEmpty(deal.BindingAgreementDate),
		deal.Status,
		manualEntry,
		overrides,
		events,
		tasks,
		infoItems,
	)
	return scanDeal(row)
}

func (s *DealPGStore) GetDeal(ctx context.Context, dealUUID string) (types.Deal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE deal_uuid = $1`, dealUUID)
	return scanDeal(row)
}

func (s *DealPGStore) ListDeals(ctx context.Context, includeArchived bool) ([]types.Deal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+dealColumns+`
		FROM deals
		WHERE $1::bool OR status <> 'archived'
		ORDER BY created_at DESC, deal_uuid`,
		includeArchived,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DealPGStore) UpdateDealFields(ctx context.Context, dealUUID string, update types.DealUpdate) (types.Deal, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE deals
		SET name                   = COALESCE($2, name),
		    property_address       = COALESCE($3, property_address),
		    buyer_name             = COALESCE($4, buyer_name),
		    seller_name            = COALESCE($5, seller_name),
		    binding_agreement_date = CASE WHEN $6::bool THEN NULLIF($7, '')::date ELSE binding_agreement_date END,
		    status                 = COALESCE($8, status),
		    updated_at             = now()
		WHERE deal_uuid = $1
		RETURNING `+dealColumns,
		dealUUID,
		update.Name,
		update.PropertyAddress,
		update.BuyerName,
		update.SellerName,
		update.BindingAgreementDate != nil,
		derefOrEmpty(update.BindingAgreementDate),
		update.Status,
	)
	return scanDeal(row)
}

func (s *DealPGStore) DeleteDeal(ctx context.Context, dealUUID string) error {
	rows, err := s.pool.Query(ctx, `DELETE FROM deals WHERE deal_uuid = $1 RETURNING deal_uuid`, dealUUID)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return httperr.NewNotFound("deal not found")
	}
	return nil
}

func (s *DealPGStore) SetManualEntry(ctx context.Context, dealUUID string, entry *types.ManualEntryPayload) (types.Deal, error) {
	var payload []byte
	if entry != nil {
		b, err := marshalJSONB(entry)
		if err != nil {
			return types.Deal{}, err
		}
		payload = b
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE deals
		SET manual_entry = $2,
		    updated_at   = now()
		WHERE deal_uuid = $1
		RETURNING `+dealColumns,
		dealUUID,
		payload,
	)
	return scanDeal(row)
}

// UpsertOffsetOverride merges the provided fields into the stored override
// for the clause inside a transaction, so two concurrent upserts to
// different clauses cannot drop each other's writes.
func (s *DealPGStore) UpsertOffsetOverride(ctx context.Context, dealUUID string, clauseID string, override types.OffsetOverride) (types.Deal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Deal{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT overrides FROM deals WHERE deal_uuid = $1 FOR UPDATE`, dealUUID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Deal{}, httperr.NewNotFound("deal not found")
		}
		return types.Deal{}, err
	}

	var overrides types.OverrideSet
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: overrides: %w", dealUUID, err)
		}
	}
	if overrides.Offsets == nil {
		overrides.Offsets = make(map[string]types.OffsetOverride)
	}
	existing := overrides.Offsets[clauseID]
	if override.OffsetValue != nil {
		existing.OffsetValue = override.OffsetValue
	}
	if override.OffsetKind != nil {
		existing.OffsetKind = override.OffsetKind
	}
	if override.Direction != nil {
		existing.Direction = override.Direction
	}
	if override.Trigger != nil {
		existing.Trigger = override.Trigger
	}
	overrides.Offsets[clauseID] = existing

	merged, err := marshalJSONB(overrides)
	if err != nil {
		return types.Deal{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE deals
		SET overrides  = $2,
		    updated_at = now()
		WHERE deal_uuid = $1
		RETURNING `+dealColumns,
		dealUUID,
		merged,
	)
	deal, err := scanDeal(row)
	if err != nil {
		return types.Deal{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return types.Deal{}, err
	}
	return deal, nil
}

func (s *DealPGStore) SetDerived(ctx context.Context, dealUUID string, derived types.Derived) (types.Deal, error) {
	events, err := marshalJSONB(derived.Events)
	if err != nil {
		return types.Deal{}, err
	}
	tasks, err := marshalJSONB(derived.Tasks)
	if err != nil {
		return types.Deal{}, err
	}
	infoItems, err := marshalJSONB(derived.InfoItems)
	if err != nil {
		return types.Deal{}, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE deals
		SET events     = $2,
		    tasks      = $3,
		    info_items = $4,
		    updated_at = now()
		WHERE deal_uuid = $1
		RETURNING `+dealColumns,
		dealUUID,
		events,
		tasks,
		infoItems,
	)
	return scanDeal(row)
}

func (s *DealPGStore) UpdateTaskStatus(ctx context.Context, dealUUID string, taskUUID string, status string) (types.Deal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Deal{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT tasks FROM deals WHERE deal_uuid = $1 FOR UPDATE`, dealUUID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Deal{}, httperr.NewNotFound("deal not found")
		}
		return types.Deal{}, err
	}

	tasks := []types.DerivedTask{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tasks); err != nil {
			return types.Deal{}, fmt.Errorf("deal %s: tasks: %w", dealUUID, err)
		}
	}
	for i := range tasks {
		if tasks[i].TaskUUID == taskUUID {
			tasks[i].Status = status
			break
		}
	}
	patched, err := marshalJSONB(tasks)
	if err != nil {
		return types.Deal{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE deals
		SET tasks      = $2,
		    updated_at = now()
		WHERE deal_uuid = $1
		RETURNING `+dealColumns,
		dealUUID,
		patched,
	)
	deal, err := scanDeal(row)
	if err != nil {
		return types.Deal{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return types.Deal{}, err
	}
	return deal, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
