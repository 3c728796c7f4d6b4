// Package rules evaluates deal-review rules against a deal's derived
// timeline. Rules are CEL expression pairs over a flat string context: an
// eligibility expression gates the rule, a decision expression resolves to
// "flag" or "clear". Evaluation is read-only over derived data and never
// feeds back into materialization.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/types"
	"github.com/615RealtyGuy/rf401-timeline/pkg/civildate"
)

const (
	DecisionFlag  = "flag"
	DecisionClear = "clear"

	reasonNoEligibleRule = "NO_ELIGIBLE_RULE"
)

type Candidate struct {
	RuleID          string `json:"rule_id"`
	Priority        int    `json:"priority"`
	EligibilityExpr string `json:"eligibility_expr"`
	DecisionExpr    string `json:"decision_expr"`
	ReasonCode      string `json:"reason_code"`
}

type Result struct {
	Decision            string            `json:"decision"`
	ReasonCode          string            `json:"reason_code"`
	SelectedRuleID      string            `json:"selected_rule_id,omitempty"`
	SelectedRule        *Candidate        `json:"selected_rule,omitempty"`
	BriefExplain        string            `json:"brief_explain"`
	Context             map[string]string `json:"context"`
	CandidatesEvaluated int               `json:"candidates_evaluated"`
	EligibilityMatched  int               `json:"eligibility_matched"`
}

var newCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)))
}

var eligibilityProgramCache sync.Map
var decisionProgramCache sync.Map

// BuildDealContext flattens a deal's derived output into the string map
// CEL rules run against. asOf is the civil date "today" used for overdue
// counts; numeric facts are stringified so the map stays homogeneous.
func BuildDealContext(deal types.Deal, asOf string) map[string]string {
	bindingDate := ""
	if deal.BindingAgreementDate != nil {
		bindingDate = *deal.BindingAgreementDate
	}

	tbdEvents := 0
	closingDate := ""
	for _, e := range deal.Events {
		if e.EventDate == nil {
			tbdEvents++
			continue
		}
		if e.EventType == types.EventTypeMilestone && strings.HasPrefix(e.Title, "Closing") {
			closingDate = *e.EventDate
		}
	}

	openTasks := 0
	overdueTasks := 0
	for _, t := range deal.Tasks {
		if t.Status == types.TaskStatusDone {
			continue
		}
		openTasks++
		if t.DueDate != nil && *t.DueDate < asOf {
			overdueTasks++
		}
	}

	daysToClosing := ""
	if closingDate != "" {
		if from, ok := civildate.Parse(asOf); ok {
			if to, ok := civildate.Parse(closingDate); ok {
				daysToClosing = strconv.Itoa(int(to.Sub(from).Hours() / 24))
			}
		}
	}

	return map[string]string{
		"deal_id":          deal.DealUUID,
		"status":           deal.Status,
		"as_of":            asOf,
		"binding_date":     bindingDate,
		"has_manual_entry": strconv.FormatBool(deal.ManualEntry != nil),
		"closing_date":     closingDate,
		"days_to_closing":  daysToClosing,
		"event_count":      strconv.Itoa(len(deal.Events)),
		"tbd_event_count":  strconv.Itoa(tbdEvents),
		"task_count":       strconv.Itoa(len(deal.Tasks)),
		"open_task_count":  strconv.Itoa(openTasks),
		"overdue_tasks":    strconv.Itoa(overdueTasks),
	}
}

// Evaluate runs the candidates against the context: the highest-priority
// eligible candidate (rule id breaking ties) decides. No eligible
// candidate clears the deal.
func Evaluate(ctxMap map[string]string, candidates []Candidate) (Result, error) {
	matched := 0
	var selected *Candidate
	for i := range candidates {
		candidate := candidates[i]
		eligible, err := evalEligibilityExpr(candidate.EligibilityExpr, ctxMap)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", candidate.RuleID, err)
		}
		if !eligible {
			continue
		}
		matched++
		if selected == nil || candidate.Priority > selected.Priority ||
			(candidate.Priority == selected.Priority && candidate.RuleID > selected.RuleID) {
			copyCandidate := candidate
			selected = &copyCandidate
		}
	}

	result := Result{
		Context:             ctxMap,
		CandidatesEvaluated: len(candidates),
		EligibilityMatched:  matched,
	}
	if selected == nil {
		result.Decision = DecisionClear
		result.ReasonCode = reasonNoEligibleRule
		result.BriefExplain = "no eligible rule candidate"
		return result, nil
	}

	decision, err := evalDecisionExpr(selected.DecisionExpr, ctxMap)
	if err != nil {
		return Result{}, fmt.Errorf("rule %s: %w", selected.RuleID, err)
	}
	switch decision {
	case DecisionFlag, DecisionClear:
	default:
		decision = DecisionClear
	}

	reasonCode := strings.TrimSpace(selected.ReasonCode)
	if reasonCode == "" {
		reasonCode = strings.ToUpper(decision)
	}

	result.Decision = decision
	result.ReasonCode = reasonCode
	result.SelectedRuleID = selected.RuleID
	result.SelectedRule = selected
	result.BriefExplain = fmt.Sprintf("selected %s (priority=%d, matched=%d)", selected.RuleID, selected.Priority, matched)
	return result, nil
}

func evalEligibilityExpr(expr string, ctxMap map[string]string) (bool, error) {
	program, err := loadOrCompileProgram(expr, cel.BoolType, &eligibilityProgramCache)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("eligibility expression did not yield bool")
	}
	return v, nil
}

func evalDecisionExpr(expr string, ctxMap map[string]string) (string, error) {
	program, err := loadOrCompileProgram(expr, cel.StringType, &decisionProgramCache)
	if err != nil {
		return "", err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return "", err
	}
	v, ok := out.Value().(string)
	if !ok {
		return "", errors.New("decision expression did not yield string")
	}
	return strings.ToLower(strings.TrimSpace(v)), nil
}

func loadOrCompileProgram(expr string, outputType *cel.Type, cache *sync.Map) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != outputType {
		return nil, errors.New("expression output type mismatch")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	cache.Store(expr, program)
	return program, nil
}

// DefaultCandidates are the built-in review rules applied when a caller
// supplies none.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			RuleID:          "missing-binding-date",
			Priority:        30,
			EligibilityExpr: `ctx["has_manual_entry"] == "true" && ctx["binding_date"] == ""`,
			DecisionExpr:    `"flag"`,
			ReasonCode:      "BINDING_DATE_MISSING",
		},
		{
			RuleID:          "overdue-tasks",
			Priority:        20,
			EligibilityExpr: `ctx["overdue_tasks"] != "0"`,
			DecisionExpr:    `"flag"`,
			ReasonCode:      "TASKS_OVERDUE",
		},
		{
			RuleID:          "unresolved-deadlines",
			Priority:        10,
			EligibilityExpr: `ctx["tbd_event_count"] != "0"`,
			DecisionExpr:    `"flag"`,
			ReasonCode:      "DEADLINES_TBD",
		},
	}
}
