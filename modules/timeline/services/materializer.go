package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/clausemap"
	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/civildate"
)

const sourceQuoteManualEntry = "Manual entry"

// Materializer derives a deal's events, tasks, and info items from its
// contract facts. It is purely computational: given the same manual entry,
// binding date, overrides, and catalog, the output is field-for-field
// identical apart from the freshly generated record ids. It never fails;
// every missing or malformed fact degrades to a null date or an empty
// collection.
type Materializer struct {
	catalog *clausemap.Catalog
	newID   func() string
}

func NewMaterializer(catalog *clausemap.Catalog) Materializer {
	return Materializer{catalog: catalog, newID: uuid.NewString}
}

// ComputeDeadline computes a target date from a basis date and an offset
// definition. Nil basis or zero magnitude yields nil (unknown, not an
// error). Business-day counts are converted with the fixed round(n*7/5)
// approximation; there is no holiday table or weekend walk, and existing
// derived dates depend on this exact formula. Any direction other than
// "before", including empty, adds.
func ComputeDeadline(basis *time.Time, offsetValue int, direction string, offsetKind string) *time.Time {
	if basis == nil || offsetValue == 0 {
		return nil
	}

	days := offsetValue
	if offsetKind == clausemap.OffsetKindBusiness {
		days = int(math.Round(float64(offsetValue) * 7 / 5))
	}

	if direction == clausemap.DirectionBefore {
		days = -days
	}
	d := civildate.AddDays(*basis, days)
	return &d
}

// ApplyOverrides shallow-merges per-clause override fields onto the offset
// definitions. The input slices are never mutated, order is preserved, and
// overrides for clause ids with no matching offset are inert.
func ApplyOverrides(offsets []types.OffsetInput, overrides types.OverrideSet) []types.OffsetInput {
	if len(overrides.Offsets) == 0 {
		return offsets
	}

	merged := make([]types.OffsetInput, len(offsets))
	for i, offset := range offsets {
		ov, ok := overrides.Offsets[offset.ClauseID]
		if offset.ClauseID == "" || !ok {
			merged[i] = offset
			continue
		}
		patched := offset
		if ov.OffsetValue != nil {
			patched.OffsetValue = *ov.OffsetValue
		}
		if ov.OffsetKind != nil {
			patched.OffsetKind = *ov.OffsetKind
		}
		if ov.Direction != nil {
			patched.Direction = *ov.Direction
		}
		if ov.Trigger != nil {
			patched.Trigger = *ov.Trigger
		}
		merged[i] = patched
	}
	return merged
}

// ResolveAnchorDate resolves an anchor's declared value to a concrete date.
// The at_closing sentinel inherits the first closing_date anchor's value;
// anything else parses as an ISO date. Nil for unknown or unparseable.
func ResolveAnchorDate(value string, anchors []types.AnchorInput) *time.Time {
	if value == "" {
		return nil
	}
	if value == types.AnchorValueAtClosing {
		for _, a := range anchors {
			if a.AnchorID == clausemap.AnchorClosingDate && a.Value != "" {
				return civildate.ParsePtr(a.Value)
			}
		}
		return nil
	}
	return civildate.ParsePtr(value)
}

// resolveBindingDate prefers the manual-entry binding_agreement_date anchor
// and falls back to the deal-level field, which stays authoritative for
// deals recorded before the anchor existed in the form.
func resolveBindingDate(anchors []types.AnchorInput, dealBindingDate *string) *time.Time {
	for _, a := range anchors {
		if a.AnchorID == clausemap.AnchorBindingAgreementDate && a.Value != "" {
			if d := civildate.ParsePtr(a.Value); d != nil {
				return d
			}
		}
	}
	if dealBindingDate != nil {
		return civildate.ParsePtr(*dealBindingDate)
	}
	return nil
}

func (m Materializer) anchorEvents(anchors []types.AnchorInput, bindingDate *time.Time) []types.DerivedEvent {
	events := make([]types.DerivedEvent, 0, len(anchors))
	for _, anchor := range anchors {
		eventDate := ResolveAnchorDate(anchor.Value, anchors)
		if eventDate == nil && anchor.AnchorID == clausemap.AnchorBindingAgreementDate {
			eventDate = bindingDate
		}

		title := anchor.AnchorID
		if meta, ok := m.catalog.Anchor(anchor.AnchorID); ok && meta.Label != "" {
			title = meta.Label
		}
		if anchor.Value == types.AnchorValueAtClosing {
			title += " (at Closing)"
		}

		// A milestone with an unknown date is still listed, as TBD.
		events = append(events, types.DerivedEvent{
			EventUUID:   m.newID(),
			Title:       title,
			EventDate:   civildate.FormatPtr(eventDate),
			EventType:   types.EventTypeMilestone,
			Basis:       nil,
			SourceQuote: sourceQuoteManualEntry,
		})
	}
	return events
}

func (m Materializer) offsetEventsAndTasks(offsets []types.OffsetInput, bindingDate *time.Time) ([]types.DerivedEvent, []types.DerivedTask) {
	events := make([]types.DerivedEvent, 0, len(offsets))
	tasks := make([]types.DerivedTask, 0, len(offsets))

	for _, offset := range offsets {
		// Only binding-agreement-date triggers are independently datable;
		// dependent triggers (e.g. inspection_notice_delivered) have no
		// known basis and stay TBD.
		var deadline *time.Time
		if offset.Trigger == clausemap.AnchorBindingAgreementDate {
			deadline = ComputeDeadline(bindingDate, offset.OffsetValue, offset.Direction, offset.OffsetKind)
		}
		deadlineStr := civildate.FormatPtr(deadline)

		meta, _ := m.catalog.Clause(offset.ClauseID)
		label := meta.Label
		if label == "" {
			label = offset.ClauseID
		}
		if label == "" {
			label = "Unknown Deadline"
		}

		basisTrigger := offset.Trigger
		if basisTrigger == "" {
			basisTrigger = clausemap.AnchorBindingAgreementDate
		}
		events = append(events, types.DerivedEvent{
			EventUUID: m.newID(),
			Title:     label,
			EventDate: deadlineStr,
			EventType: types.EventTypeDeadline,
			Basis: &types.EventBasis{
				ClauseID:    offset.ClauseID,
				OffsetValue: offset.OffsetValue,
				OffsetKind:  offset.OffsetKind,
				Direction:   offset.Direction,
				Trigger:     basisTrigger,
				BindingDate: civildate.FormatPtr(bindingDate),
			},
			SourceQuote: sourceQuoteManualEntry,
		})

		category := meta.Category
		if category == "" {
			category = "other"
		}
		tasks = append(tasks, types.DerivedTask{
			TaskUUID:    m.newID(),
			Title:       label,
			Description: taskDescription(offset, meta),
			DueDate:     deadlineStr,
			Status:      types.TaskStatusTodo,
			Category:    category,
		})
	}
	return events, tasks
}

// taskDescription composes the section reference and a human-readable
// offset phrase, e.g. "Section: 8(D). 10 calendar days after
// binding_agreement_date". Nil when neither part is known.
func taskDescription(offset types.OffsetInput, meta clausemap.ClauseMeta) *string {
	var phrase string
	if offset.OffsetValue != 0 {
		kind := offset.OffsetKind
		if kind == "" {
			kind = clausemap.OffsetKindCalendar
		}
		dir := offset.Direction
		if dir == "" {
			dir = clausemap.DirectionAfter
		}
		trig := offset.Trigger
		if trig == "" {
			trig = "binding agreement date"
		}
		phrase = fmt.Sprintf("%d %s days %s %s", offset.OffsetValue, kind, dir, trig)
	}

	parts := make([]string, 0, 2)
	if meta.Section != "" {
		parts = append(parts, "Section: "+meta.Section)
	}
	if phrase != "" {
		parts = append(parts, phrase)
	}
	if len(parts) == 0 {
		return nil
	}
	desc := strings.Join(parts, ". ")
	return &desc
}

func (m Materializer) financialInfoItems(financials []types.FinancialInput) []types.DerivedInfoItem {
	items := make([]types.DerivedInfoItem, 0, len(financials))
	for _, fin := range financials {
		if fin.Value == "" {
			continue
		}
		label := fin.FieldID
		var section *string
		if meta, ok := m.catalog.FinancialField(fin.FieldID); ok {
			if meta.Label != "" {
				label = meta.Label
			}
			if meta.Section != "" {
				s := meta.Section
				section = &s
			}
		}
		items = append(items, types.DerivedInfoItem{
			ItemUUID: m.newID(),
			Label:    label,
			Value:    fin.Value,
			FieldID:  fin.FieldID,
			Section:  section,
		})
	}
	return items
}

func (m Materializer) textFieldInfoItems(textFields []types.TextInput) []types.DerivedInfoItem {
	items := make([]types.DerivedInfoItem, 0, len(textFields))
	for _, tf := range textFields {
		if tf.Value == "" {
			continue
		}
		label := tf.FieldID
		var section *string
		if meta, ok := m.catalog.TextField(tf.FieldID); ok {
			if meta.Label != "" {
				label = meta.Label
			}
			if meta.Section != "" {
				s := meta.Section
				section = &s
			}
		}
		items = append(items, types.DerivedInfoItem{
			ItemUUID: m.newID(),
			Label:    label,
			Value:    tf.Value,
			FieldID:  tf.FieldID,
			Section:  section,
		})
	}
	return items
}

// Materialize derives the full timeline for a deal. A deal with no manual
// entry yet has no derived timeline and yields empty collections; that is
// a normal state, not an error. Anchor milestones always precede offset
// deadlines in the returned event order.
func (m Materializer) Materialize(deal types.Deal) types.Derived {
	if deal.ManualEntry == nil {
		return types.Derived{
			Events:    []types.DerivedEvent{},
			Tasks:     []types.DerivedTask{},
			InfoItems: []types.DerivedInfoItem{},
		}
	}
	entry := deal.ManualEntry

	offsets := ApplyOverrides(entry.Offsets, deal.Overrides)
	bindingDate := resolveBindingDate(entry.Anchors, deal.BindingAgreementDate)

	events := m.anchorEvents(entry.Anchors, bindingDate)
	offsetEvents, tasks := m.offsetEventsAndTasks(offsets, bindingDate)
	events = append(events, offsetEvents...)

	infoItems := m.financialInfoItems(entry.Financials)
	infoItems = append(infoItems, m.textFieldInfoItems(entry.TextFields)...)

	return types.Derived{Events: events, Tasks: tasks, InfoItems: infoItems}
}

// Rematerialize recomputes a deal's timeline while carrying forward the
// user's task progress. Matching is by task title, not by clause id: that
// is the contract the UI depends on, and when two prior tasks share a
// title the later occurrence wins. Tasks whose title changed revert to
// todo.
func (m Materializer) Rematerialize(deal types.Deal) types.Derived {
	statusByTitle := make(map[string]string, len(deal.Tasks))
	for _, t := range deal.Tasks {
		statusByTitle[t.Title] = t.Status
	}

	derived := m.Materialize(deal)

	for i := range derived.Tasks {
		if prior, ok := statusByTitle[derived.Tasks[i].Title]; ok && prior != "" {
			derived.Tasks[i].Status = prior
		}
	}
	return derived
}
