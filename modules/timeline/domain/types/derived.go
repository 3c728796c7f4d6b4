package types

// Event and task classification values used by the materializer.
const (
	EventTypeMilestone = "milestone"
	EventTypeDeadline  = "deadline"

	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

// Derived is the complete output of one materialization run. All three
// collections are regenerated wholesale; ids are fresh every run and no
// consumer may rely on them surviving a recomputation.
type Derived struct {
	Events    []DerivedEvent    `json:"events"`
	Tasks     []DerivedTask     `json:"tasks"`
	InfoItems []DerivedInfoItem `json:"info_items"`
}

type DerivedEvent struct {
	EventUUID   string      `json:"id"`
	Title       string      `json:"title"`
	EventDate   *string     `json:"event_date"`
	EventType   string      `json:"event_type"`
	Basis       *EventBasis `json:"basis"`
	SourceQuote string      `json:"source_quote"`
}

// EventBasis snapshots the inputs a deadline event was computed from, so
// the UI can explain a date without re-deriving it.
type EventBasis struct {
	ClauseID    string  `json:"clause_id"`
	OffsetValue int     `json:"offset_value"`
	OffsetKind  string  `json:"offset_kind"`
	Direction   string  `json:"direction"`
	Trigger     string  `json:"trigger"`
	BindingDate *string `json:"binding_date"`
}

// DerivedTask is regenerated like an event, with one exception: Status is
// user-managed progress and must be carried forward across recomputation.
type DerivedTask struct {
	TaskUUID    string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
	Category    string  `json:"category"`
}

type DerivedInfoItem struct {
	ItemUUID string  `json:"id"`
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	FieldID  string  `json:"field_id"`
	Section  *string `json:"section"`
}

// ValidTaskStatus reports whether s is one of the three task states.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusDoing, TaskStatusDone:
		return true
	default:
		return false
	}
}
