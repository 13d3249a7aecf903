/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  benefit types from the external contract. Amounts are decimal strings.

NAMING CONVENTION:
  - *DTO: Items returned to clients
  - *Response: Response wrappers

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/pipeline"
	"github.com/warp/vr-engine/store/sqlite"
)

// =============================================================================
// RUNS
// =============================================================================

type RunResponse struct {
	RunID        string      `json:"run_id"`
	Period       string      `json:"period"`
	PolicyID     string      `json:"policy_id"`
	OutputMode   string      `json:"output_mode"`
	FileName     string      `json:"file_name"`
	PayableCount int         `json:"payable_count"`
	Total        string      `json:"total"`
	Summary      string      `json:"summary"`
	Results      []ResultDTO `json:"results"`
	Load         LoadDTO     `json:"load"`
}

type ResultDTO struct {
	EmployeeID     int64  `json:"employee_id"`
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason"`
	LegalBasis     string `json:"legal_basis,omitempty"`
	Source         string `json:"source"`
	Days           int    `json:"days"`
	DailyRate      string `json:"daily_rate"`
	Total          string `json:"total"`
	Union          string `json:"union"`
	UnionDefaulted bool   `json:"union_defaulted"`
}

type LoadDTO struct {
	Tables  int        `json:"tables"`
	Applied int        `json:"applied"`
	Dropped int        `json:"dropped"`
	Skipped int        `json:"skipped"`
	Ignored []string   `json:"ignored"`
	Issues  []IssueDTO `json:"issues"`
}

type IssueDTO struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Error  string `json:"error"`
}

type RunRecordDTO struct {
	ID        string    `json:"id"`
	Period    string    `json:"period"`
	PolicyID  string    `json:"policy_id"`
	Employees int       `json:"employees"`
	Payable   int       `json:"payable"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// CATALOG
// =============================================================================

type UnionsResponse struct {
	Fallback string     `json:"fallback"`
	Unions   []UnionDTO `json:"unions"`
}

type UnionDTO struct {
	Code      string   `json:"code"`
	Region    string   `json:"region"`
	BaseDays  int      `json:"base_days"`
	DailyRate string   `json:"daily_rate"`
	Holidays  []string `json:"holidays"`
}

type PolicyDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Version              int    `json:"version"`
	Formula              string `json:"formula"`
	Ruleset              string `json:"fallback_ruleset"`
	TerminationCutoffDay int    `json:"termination_cutoff_day"`
	OutputMode           string `json:"output_mode"`
	EmployerShare        string `json:"employer_share"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunResponse(out *pipeline.Outcome) RunResponse {
	resp := RunResponse{
		RunID:        out.RunID,
		Period:       out.Period.Label(),
		PolicyID:     string(out.Policy.ID),
		OutputMode:   string(out.Report.Mode),
		FileName:     out.Report.FileName,
		PayableCount: out.Report.PayableCount,
		Total:        out.Report.Total.String(),
		Summary:      out.Summary,
		Results:      make([]ResultDTO, len(out.Results)),
		Load: LoadDTO{
			Tables:  out.Load.Tables,
			Applied: out.Load.Applied,
			Dropped: out.Load.Dropped,
			Skipped: out.Load.Skipped,
			Ignored: append([]string{}, out.Load.Ignored...),
			Issues:  make([]IssueDTO, len(out.Issues)),
		},
	}
	for i, r := range out.Results {
		resp.Results[i] = toResultDTO(r)
	}
	for i, issue := range out.Issues {
		resp.Load.Issues[i] = toIssueDTO(issue)
	}
	return resp
}

func toResultDTO(r benefit.Result) ResultDTO {
	return ResultDTO{
		EmployeeID:     int64(r.EmployeeID),
		Eligible:       r.Eligible,
		Reason:         r.Reason,
		LegalBasis:     r.LegalBasis,
		Source:         string(r.Source),
		Days:           r.Days,
		DailyRate:      r.DailyRate.String(),
		Total:          r.Total.String(),
		Union:          r.UnionCode,
		UnionDefaulted: r.UnionDefaulted,
	}
}

func toIssueDTO(issue *generic.RowIssue) IssueDTO {
	dto := IssueDTO{Source: issue.Source, Line: issue.Line, Field: issue.Field, Value: issue.Value}
	if issue.Err != nil {
		dto.Error = issue.Err.Error()
	}
	return dto
}

func toRunRecordDTO(r sqlite.RunRecord) RunRecordDTO {
	return RunRecordDTO{
		ID:        r.ID,
		Period:    r.Period,
		PolicyID:  r.PolicyID,
		Employees: r.Employees,
		Payable:   r.Payable,
		Total:     r.Total.String(),
		CreatedAt: r.CreatedAt,
	}
}

func toUnionDTO(c benefit.UnionConfig) UnionDTO {
	return UnionDTO{
		Code:      c.Code,
		Region:    c.Region,
		BaseDays:  c.BaseDays,
		DailyRate: c.DailyRate.String(),
		Holidays:  c.Holidays.Dates(),
	}
}

func toPolicyDTO(p generic.Policy) PolicyDTO {
	return PolicyDTO{
		ID:                   string(p.ID),
		Name:                 p.Name,
		Version:              p.Version,
		Formula:              string(p.Formula),
		Ruleset:              string(p.Ruleset),
		TerminationCutoffDay: p.TerminationCutoffDay,
		OutputMode:           string(p.OutputMode),
		EmployerShare:        p.EmployerShare.String(),
	}
}
