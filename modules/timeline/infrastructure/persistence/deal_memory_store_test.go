package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

func testClock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestDealMemoryStore_CreateGetList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStoreWithClock(testClock())

	first, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "First"})
	if err != nil {
		t.Fatal(err)
	}
	if first.CreatedAt == "" || first.CreatedAt != first.UpdatedAt {
		t.Fatalf("timestamps: %q %q", first.CreatedAt, first.UpdatedAt)
	}
	if first.Status != types.DealStatusActive {
		t.Fatalf("status=%q", first.Status)
	}

	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d2", Name: "Second"}); err != nil {
		t.Fatal(err)
	}

	deals, err := s.ListDeals(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(deals) != 2 || deals[0].DealUUID != "d2" {
		t.Fatalf("newest first expected: %+v", deals)
	}

	got, err := s.GetDeal(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "First" {
		t.Fatalf("name=%q", got.Name)
	}
	if _, err := s.GetDeal(ctx, "nope"); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDealMemoryStore_ListExcludesArchived(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	archived := types.DealStatusArchived
	if _, err := s.UpdateDealFields(ctx, "d1", types.DealUpdate{Status: &archived}); err != nil {
		t.Fatal(err)
	}

	deals, err := s.ListDeals(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(deals) != 0 {
		t.Fatalf("archived deal listed: %+v", deals)
	}
	deals, err = s.ListDeals(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deals) != 1 {
		t.Fatalf("include_archived missed deal: %+v", deals)
	}
}

func TestDealMemoryStore_UpdateDealFields_ClearBindingDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	v := "2025-01-15"
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A", BindingAgreementDate: &v}); err != nil {
		t.Fatal(err)
	}

	empty := ""
	got, err := s.UpdateDealFields(ctx, "d1", types.DealUpdate{BindingAgreementDate: &empty})
	if err != nil {
		t.Fatal(err)
	}
	if got.BindingAgreementDate != nil {
		t.Fatalf("binding date not cleared: %v", *got.BindingAgreementDate)
	}
}

func TestDealMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetDerived(ctx, "d1", types.Derived{
		Tasks: []types.DerivedTask{{TaskUUID: "t1", Title: "T", Status: types.TaskStatusTodo}},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetDeal(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	got.Tasks[0].Status = types.TaskStatusDone

	again, err := s.GetDeal(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Tasks[0].Status != types.TaskStatusTodo {
		t.Fatal("stored state aliased by caller mutation")
	}
}

func TestDealMemoryStore_UpsertOffsetOverride_MergesFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A"}); err != nil {
		t.Fatal(err)
	}

	v := 14
	if _, err := s.UpsertOffsetOverride(ctx, "d1", "inspection_period", types.OffsetOverride{OffsetValue: &v}); err != nil {
		t.Fatal(err)
	}
	dir := "before"
	got, err := s.UpsertOffsetOverride(ctx, "d1", "inspection_period", types.OffsetOverride{Direction: &dir})
	if err != nil {
		t.Fatal(err)
	}

	ov := got.Overrides.Offsets["inspection_period"]
	if ov.OffsetValue == nil || *ov.OffsetValue != 14 {
		t.Fatalf("earlier field lost: %+v", ov)
	}
	if ov.Direction == nil || *ov.Direction != "before" {
		t.Fatalf("later field missing: %+v", ov)
	}
}

func TestDealMemoryStore_UpdateTaskStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetDerived(ctx, "d1", types.Derived{
		Tasks: []types.DerivedTask{{TaskUUID: "t1", Title: "T", Status: types.TaskStatusTodo}},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.UpdateTaskStatus(ctx, "d1", "t1", types.TaskStatusDone)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tasks[0].Status != types.TaskStatusDone {
		t.Fatalf("status=%q", got.Tasks[0].Status)
	}

	// Unknown task id is tolerated.
	if _, err := s.UpdateTaskStatus(ctx, "d1", "nope", types.TaskStatusDone); err != nil {
		t.Fatal(err)
	}
}

func TestDealMemoryStore_DeleteDeal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewDealMemoryStore()
	if _, err := s.CreateDeal(ctx, types.Deal{DealUUID: "d1", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDeal(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDeal(ctx, "d1"); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	deals, err := s.ListDeals(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(deals) != 0 {
		t.Fatalf("deal still listed: %+v", deals)
	}
}
