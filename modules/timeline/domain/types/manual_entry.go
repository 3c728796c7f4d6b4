package types

// ManualEntryPayload is the full set of contract facts captured by the
// manual-entry form. A submission replaces the prior payload wholesale; the
// engine never merges two payloads.
type ManualEntryPayload struct {
	Anchors    []AnchorInput    `json:"anchors"`
	Offsets    []OffsetInput    `json:"offsets"`
	Financials []FinancialInput `json:"financials"`
	TextFields []TextInput      `json:"text_fields"`
}

// AnchorValueAtClosing marks an anchor that derives its date from the
// closing_date anchor instead of stating one.
const AnchorValueAtClosing = "at_closing"

type AnchorInput struct {
	AnchorID string `json:"anchor_id"`
	// Value is an ISO date or the at_closing sentinel; empty means unknown.
	Value string `json:"value"`
}

type OffsetInput struct {
	ClauseID    string `json:"clause_id"`
	OffsetValue int    `json:"offset_value"`
	OffsetKind  string `json:"offset_kind"`
	Direction   string `json:"direction"`
	Trigger     string `json:"trigger"`
}

type FinancialInput struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

type TextInput struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// OverrideSet holds the user's per-clause corrections, keyed by clause id.
// It grows by upsert and is applied on top of the manual-entry offsets
// before every computation; the payload itself is never rewritten.
type OverrideSet struct {
	Offsets map[string]OffsetOverride `json:"offsets,omitempty"`
}

// OffsetOverride is a partial OffsetInput; only non-nil fields replace the
// original definition.
type OffsetOverride struct {
	OffsetValue *int    `json:"offset_value,omitempty"`
	OffsetKind  *string `json:"offset_kind,omitempty"`
	Direction   *string `json:"direction,omitempty"`
	Trigger     *string `json:"trigger,omitempty"`
}
