package benefit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/vr-engine/generic"
)

// BuildPrompt renders the adjudication instruction for one employee.
// The reply is expected to contain a single JSON object.
func BuildPrompt(emp EmployeeRecord, period generic.Period) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an HR analyst applying Brazilian labor rules (CLT) to the meal voucher (VR) benefit for %s.\n\n", period.Label())
	b.WriteString("Employee:\n")
	fmt.Fprintf(&b, "- ID: %s\n", emp.ID)
	fmt.Fprintf(&b, "- Title: %s\n", orDash(emp.Title))
	fmt.Fprintf(&b, "- Category: %s\n", orDash(string(emp.Category)))
	fmt.Fprintf(&b, "- Status: %s\n", orDash(emp.Status))
	fmt.Fprintf(&b, "- Location: %s\n", orDash(string(emp.Location)))
	if !emp.TerminationDate.IsZero() {
		fmt.Fprintf(&b, "- Termination date: %s\n", emp.TerminationDate)
	}
	b.WriteString(`
Rules:
1. Active CLT employees are eligible.
2. Employees on maternity leave are eligible, subject to the collective agreement.
3. Directors, interns and apprentices are not eligible.
4. Employees on vacation are not eligible.
5. Employees on leave (sick leave, INSS medical aid) are not eligible.
6. Employees working abroad are not eligible.
7. Employees terminated in the month are eligible; the payment is prorated later.

Answer with only a JSON object:
{"eligible": true or false, "reason": "short explanation", "legal_basis": "law or clause"}
`)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// =============================================================================
// REPLY PARSING
// =============================================================================

type replyJSON struct {
	Eligible   *bool   `json:"eligible"`
	Elegivel   *bool   `json:"elegivel"`
	Reason     *string `json:"reason"`
	Motivo     *string `json:"motivo"`
	LegalBasis string  `json:"legal_basis"`
	BaseLegal  string  `json:"base_legal"`
}

// ParseDecision extracts the first balanced JSON object from a free-text
// model reply. The eligibility flag and a reason are required; English and
// Portuguese key names are accepted.
func ParseDecision(text string) (Decision, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return Decision{}, fmt.Errorf("%w: no JSON object in reply", generic.ErrMalformedResponse)
	}

	var reply replyJSON
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", generic.ErrMalformedResponse, err)
	}

	eligible := reply.Eligible
	if eligible == nil {
		eligible = reply.Elegivel
	}
	reason := reply.Reason
	if reason == nil {
		reason = reply.Motivo
	}
	if eligible == nil {
		return Decision{}, fmt.Errorf("%w: missing eligible", generic.ErrMalformedResponse)
	}
	if reason == nil {
		return Decision{}, fmt.Errorf("%w: missing reason", generic.ErrMalformedResponse)
	}

	basis := reply.LegalBasis
	if basis == "" {
		basis = reply.BaseLegal
	}
	return Decision{Eligible: *eligible, Reason: *reason, LegalBasis: basis, Source: SourceRemote}, nil
}

// ExtractJSONObject returns the first balanced {...} span of text. Braces
// inside string literals are ignored.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
