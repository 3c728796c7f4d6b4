package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/ports"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

// DealMemoryStore keeps deals in process memory. It backs the server when
// no database is configured (the offline fallback mode) and doubles as the
// store double in tests. Reads and writes exchange deep copies so callers
// can never alias the stored state.
type DealMemoryStore struct {
	mu    sync.Mutex
	deals map[string]types.Deal
	order []string // deal uuids, newest first
	now   func() time.Time
}

func NewDealMemoryStore() *DealMemoryStore {
	return &DealMemoryStore{
		deals: make(map[string]types.Deal),
		now:   time.Now,
	}
}

// NewDealMemoryStoreWithClock pins the timestamp source for tests.
func NewDealMemoryStoreWithClock(now func() time.Time) *DealMemoryStore {
	s := NewDealMemoryStore()
	s.now = now
	return s
}

var _ ports.DealStore = (*DealMemoryStore)(nil)

func cloneDeal(d types.Deal) types.Deal {
	b, err := json.Marshal(d)
	if err != nil {
		return d
	}
	var out types.Deal
	if err := json.Unmarshal(b, &out); err != nil {
		return d
	}
	return out
}

func (s *DealMemoryStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *DealMemoryStore) CreateDeal(_ context.Context, deal types.Deal) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := cloneDeal(deal)
	ts := s.timestamp()
	d.CreatedAt = ts
	d.UpdatedAt = ts
	if d.Status == "" {
		d.Status = types.DealStatusActive
	}
	s.deals[d.DealUUID] = d
	s.order = append([]string{d.DealUUID}, s.order...)
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) GetDeal(_ context.Context, dealUUID string) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) ListDeals(_ context.Context, includeArchived bool) ([]types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Deal, 0, len(s.order))
	for _, id := range s.order {
		d, ok := s.deals[id]
		if !ok {
			continue
		}
		if !includeArchived && d.Status == types.DealStatusArchived {
			continue
		}
		out = append(out, cloneDeal(d))
	}
	return out, nil
}

func (s *DealMemoryStore) UpdateDealFields(_ context.Context, dealUUID string, update types.DealUpdate) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	if update.Name != nil {
		d.Name = *update.Name
	}
	if update.PropertyAddress != nil {
		d.PropertyAddress = *update.PropertyAddress
	}
	if update.BuyerName != nil {
		d.BuyerName = *update.BuyerName
	}
	if update.SellerName != nil {
		d.SellerName = *update.SellerName
	}
	if update.BindingAgreementDate != nil {
		if *update.BindingAgreementDate == "" {
			d.BindingAgreementDate = nil
		} else {
			v := *update.BindingAgreementDate
			d.BindingAgreementDate = &v
		}
	}
	if update.Status != nil {
		d.Status = *update.Status
	}
	d.UpdatedAt = s.timestamp()
	s.deals[dealUUID] = d
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) DeleteDeal(_ context.Context, dealUUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deals[dealUUID]; !ok {
		return httperr.NewNotFound("deal not found")
	}
	delete(s.deals, dealUUID)
	for i, id := range s.order {
		if id == dealUUID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *DealMemoryStore) SetManualEntry(_ context.Context, dealUUID string, entry *types.ManualEntryPayload) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	if entry == nil {
		d.ManualEntry = nil
	} else {
		clone := *entry
		d.ManualEntry = &clone
	}
	d.UpdatedAt = s.timestamp()
	s.deals[dealUUID] = cloneDeal(d)
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) UpsertOffsetOverride(_ context.Context, dealUUID string, clauseID string, override types.OffsetOverride) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	if d.Overrides.Offsets == nil {
		d.Overrides.Offsets = make(map[string]types.OffsetOverride)
	}
	existing := d.Overrides.Offsets[clauseID]
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
	d.Overrides.Offsets[clauseID] = existing
	d.UpdatedAt = s.timestamp()
	s.deals[dealUUID] = cloneDeal(d)
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) SetDerived(_ context.Context, dealUUID string, derived types.Derived) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	d.Events = derived.Events
	d.Tasks = derived.Tasks
	d.InfoItems = derived.InfoItems
	d.UpdatedAt = s.timestamp()
	s.deals[dealUUID] = cloneDeal(d)
	return cloneDeal(d), nil
}

func (s *DealMemoryStore) UpdateTaskStatus(_ context.Context, dealUUID string, taskUUID string, status string) (types.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deals[dealUUID]
	if !ok {
		return types.Deal{}, httperr.NewNotFound("deal not found")
	}
	// An unknown task id is tolerated silently; the write still bumps
	// updated_at, matching the original data layer.
	for i := range d.Tasks {
		if d.Tasks[i].TaskUUID == taskUUID {
			d.Tasks[i].Status = status
			break
		}
	}
	d.UpdatedAt = s.timestamp()
	s.deals[dealUUID] = cloneDeal(d)
	return cloneDeal(d), nil
}
