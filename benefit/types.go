// Package benefit implements the monthly meal-voucher (VR) domain.
// It builds the employee registry from HR exports, adjudicates eligibility
// and computes paid days and values on top of the generic engine.
package benefit

import "github.com/warp/vr-engine/generic"

// =============================================================================
// EMPLOYEE RECORD
// =============================================================================

// Category tags where a record came from.
type Category string

const (
	CategoryActive     Category = "ACTIVE"
	CategoryIntern     Category = "INTERN"
	CategoryApprentice Category = "APPRENTICE"
	CategoryTerminated Category = "TERMINATED"
	CategoryNewHire    Category = "NEW_HIRE"
)

type Location string

const (
	LocationDomestic Location = "Domestic"
	LocationAbroad   Location = "Abroad"
)

// Statuses written by the registry builder. Leave tables carry their own
// free-text description instead.
const (
	StatusWorking    = "Working"
	StatusVacation   = "Vacation"
	StatusTerminated = "Terminated"
	StatusLeave      = "Leave"
)

// EmployeeRecord is the consolidated view of one employee.
// Zero HireDate / TerminationDate mean the date is unknown.
type EmployeeRecord struct {
	ID              generic.EmployeeID
	Title           string
	Status          string
	Union           string
	Category        Category
	HireDate        generic.TimePoint
	TerminationDate generic.TimePoint
	Location        Location
}

// =============================================================================
// DECISION - Ephemeral adjudication outcome
// =============================================================================

type DecisionSource string

const (
	SourceRemote   DecisionSource = "llm"
	SourceFallback DecisionSource = "fallback"
)

// RuleID names the deterministic rule that produced a fallback decision.
type RuleID string

const (
	RuleDirector   RuleID = "director"
	RuleIntern     RuleID = "intern"
	RuleApprentice RuleID = "apprentice"
	RuleVacation   RuleID = "vacation"
	RuleAbroad     RuleID = "abroad"
	RuleMaternity  RuleID = "maternity"
	RuleLeave      RuleID = "leave"
	RuleTerminated RuleID = "terminated"
	RuleDefault    RuleID = "default"
)

type Decision struct {
	Eligible   bool
	Reason     string
	LegalBasis string
	Source     DecisionSource
	Rule       RuleID // empty for remote decisions
}

// =============================================================================
// RESULT - One line of the monthly computation
// =============================================================================

type Result struct {
	EmployeeID generic.EmployeeID
	Eligible   bool
	Reason     string
	LegalBasis string
	Source     DecisionSource

	Days      int
	DailyRate generic.Money
	Total     generic.Money

	UnionLabel     string // as recorded in the source
	UnionCode      string // resolved card
	UnionDefaulted bool

	HireDate generic.TimePoint
}
