package services

import (
	"context"
	"testing"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/infrastructure/persistence"
	"github.com/615RealtyGuy/rf401-timeline/pkg/httperr"
)

// The facade tests exercise the real memory store; doubles would just
// restate its behavior.

func testFacade(t *testing.T) (DealsFacade, context.Context) {
	t.Helper()
	return NewDealsFacade(persistence.NewDealMemoryStore(), testMaterializer()), context.Background()
}

func sampleEntry() types.ManualEntryPayload {
	return types.ManualEntryPayload{
		Anchors: []types.AnchorInput{
			{AnchorID: "binding_agreement_date", Value: "2025-01-15"},
			{AnchorID: "closing_date", Value: "2025-06-01"},
		},
		Offsets: []types.OffsetInput{
			{ClauseID: "inspection_period", OffsetValue: 10, OffsetKind: "calendar", Direction: "after", Trigger: "binding_agreement_date"},
		},
	}
}

func TestDealsFacade_CreateDeal_Defaults(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "  "})
	if err != nil {
		t.Fatal(err)
	}
	if deal.Name != "Untitled Deal" {
		t.Fatalf("name=%q", deal.Name)
	}
	if deal.Status != types.DealStatusActive {
		t.Fatalf("status=%q", deal.Status)
	}
	if deal.DealUUID == "" {
		t.Fatal("missing deal uuid")
	}
	if deal.Events == nil || deal.Tasks == nil || deal.InfoItems == nil {
		t.Fatal("derived collections must start empty, not nil")
	}
}

func TestDealsFacade_SubmitManualEntry(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}

	deal, err = f.SubmitManualEntry(ctx, deal.DealUUID, sampleEntry())
	if err != nil {
		t.Fatal(err)
	}

	// BAD anchor is promoted to the deal-level field.
	if deal.BindingAgreementDate == nil || *deal.BindingAgreementDate != "2025-01-15" {
		t.Fatalf("binding date not promoted: %v", deal.BindingAgreementDate)
	}
	if len(deal.Events) != 3 || len(deal.Tasks) != 1 {
		t.Fatalf("events=%d tasks=%d", len(deal.Events), len(deal.Tasks))
	}
	if deal.Tasks[0].DueDate == nil || *deal.Tasks[0].DueDate != "2025-01-25" {
		t.Fatalf("due date: %v", deal.Tasks[0].DueDate)
	}
}

func TestDealsFacade_ResubmitResetsTaskStatus(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.SubmitManualEntry(ctx, deal.DealUUID, sampleEntry())
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.UpdateTaskStatus(ctx, deal.DealUUID, deal.Tasks[0].TaskUUID, types.TaskStatusDone)
	if err != nil {
		t.Fatal(err)
	}
	if deal.Tasks[0].Status != types.TaskStatusDone {
		t.Fatalf("status=%q", deal.Tasks[0].Status)
	}

	// A fresh submission is a new contract reading.
	deal, err = f.SubmitManualEntry(ctx, deal.DealUUID, sampleEntry())
	if err != nil {
		t.Fatal(err)
	}
	if deal.Tasks[0].Status != types.TaskStatusTodo {
		t.Fatalf("resubmit should reset status, got %q", deal.Tasks[0].Status)
	}
}

func TestDealsFacade_UpsertOverride_Rematerializes(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.SubmitManualEntry(ctx, deal.DealUUID, sampleEntry())
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.UpdateTaskStatus(ctx, deal.DealUUID, deal.Tasks[0].TaskUUID, types.TaskStatusDoing)
	if err != nil {
		t.Fatal(err)
	}

	deal, err = f.UpsertOverride(ctx, deal.DealUUID, "inspection_period", types.OffsetOverride{OffsetValue: intPtr(14)})
	if err != nil {
		t.Fatal(err)
	}
	if deal.Tasks[0].DueDate == nil || *deal.Tasks[0].DueDate != "2025-01-29" {
		t.Fatalf("due date after override: %v", deal.Tasks[0].DueDate)
	}
	// Task progress survives the override.
	if deal.Tasks[0].Status != types.TaskStatusDoing {
		t.Fatalf("status=%q", deal.Tasks[0].Status)
	}

	if _, err := f.UpsertOverride(ctx, deal.DealUUID, "  ", types.OffsetOverride{OffsetValue: intPtr(1)}); !httperr.IsBadRequest(err) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestDealsFacade_UpdateDeal_BindingDateShiftsTimeline(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.SubmitManualEntry(ctx, deal.DealUUID, sampleEntry())
	if err != nil {
		t.Fatal(err)
	}
	deal, err = f.UpdateTaskStatus(ctx, deal.DealUUID, deal.Tasks[0].TaskUUID, types.TaskStatusDone)
	if err != nil {
		t.Fatal(err)
	}

	newDate := "2025-02-01"
	deal, err = f.UpdateDeal(ctx, deal.DealUUID, types.DealUpdate{BindingAgreementDate: &newDate})
	if err != nil {
		t.Fatal(err)
	}
	if deal.BindingAgreementDate == nil || *deal.BindingAgreementDate != newDate {
		t.Fatalf("binding date: %v", deal.BindingAgreementDate)
	}
	if deal.Tasks[0].DueDate == nil || *deal.Tasks[0].DueDate != "2025-02-11" {
		t.Fatalf("timeline did not shift: %v", deal.Tasks[0].DueDate)
	}
	if deal.Tasks[0].Status != types.TaskStatusDone {
		t.Fatalf("progress lost: %q", deal.Tasks[0].Status)
	}
}

func TestDealsFacade_UpdateDeal_InvalidStatus(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}
	bad := "closed"
	if _, err := f.UpdateDeal(ctx, deal.DealUUID, types.DealUpdate{Status: &bad}); !httperr.IsBadRequest(err) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestDealsFacade_UpdateTaskStatus_Invalid(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	deal, err := f.CreateDeal(ctx, CreateDealRequest{Name: "123 Main"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.UpdateTaskStatus(ctx, deal.DealUUID, "t1", "blocked"); !httperr.IsBadRequest(err) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestDealsFacade_NotFound(t *testing.T) {
	t.Parallel()

	f, ctx := testFacade(t)
	if _, err := f.GetDeal(ctx, "nope"); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.RefreshDeal(ctx, "nope"); !httperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
