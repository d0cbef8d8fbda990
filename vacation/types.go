/*
Package vacation holds the core of the vacation calendar: the record model,
the normalizer that turns raw extraction output into a persistable record,
and the reconciliation engine that decides how a record lands in the store.

KEY TYPES:

	Record:     Persisted vacation window of one employee
	Candidate:  Transient extraction result (nil means "no vacation")
	Input:      Raw fields handed to the Normalizer
	Policy:     Conflict policy used by the reconciliation engine
	Outcome:    What reconciliation did with a record

DATES:

	Dates travel as YYYY-MM-DD strings end to end. They are compared
	lexicographically, which is correct once the Normalizer has checked the
	format. There is no time-of-day and no timezone handling.

SEE ALSO:
  - normalize.go: Input -> Record
  - reconcile.go: Record + Policy -> store mutation
  - store.go: Store interfaces consumed by the engine
*/
package vacation

import (
	"fmt"
	"time"
)

// DateLayout is the textual form of every date in the system.
const DateLayout = "2006-01-02"

// Record is one stored vacation window.
type Record struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	MessageText  string    `json:"message_text,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Days returns the inclusive number of calendar days covered by the record.
// Returns 0 when a date does not parse.
func (r Record) Days() int {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func (r Record) String() string {
	return fmt.Sprintf("%s (%s) %s..%s", r.EmployeeName, r.EmployeeID, r.StartDate, r.EndDate)
}

// Candidate is a not-yet-validated extraction of vacation fields.
type Candidate struct {
	EmployeeName string `json:"employee_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// Input carries raw fields into the Normalizer.
type Input struct {
	EmployeeID   string
	EmployeeName string
	StartDate    string
	EndDate      string
	MessageText  string

	// Seq disambiguates synthesized employee ids created within one batch.
	Seq int
}

// =============================================================================
// POLICY & OUTCOME
// =============================================================================

// Policy selects how a submitted record is reconciled with existing ones.
type Policy int

const (
	// PolicyReplaceUnconditional deletes every record of the employee before
	// inserting. Keeps one record per employee.
	PolicyReplaceUnconditional Policy = iota + 1

	// PolicyDedupOnStartDate skips the insert when a record with the same
	// (employee_id, start_date) exists. Nothing is deleted.
	PolicyDedupOnStartDate

	// PolicyAlwaysInsert inserts without looking at existing records.
	PolicyAlwaysInsert
)

func (p Policy) String() string {
	switch p {
	case PolicyReplaceUnconditional:
		return "replace_unconditional"
	case PolicyDedupOnStartDate:
		return "dedup_on_start_date"
	case PolicyAlwaysInsert:
		return "always_insert"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Outcome is the result of reconciling one record.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeReplaced         Outcome = "replaced"
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
)

// Result describes what Submit did.
type Result struct {
	Outcome Outcome
	// Record is the persisted record, or the existing one on DuplicateSkipped.
	Record Record
	// Replaced lists records deleted to make room for Record.
	Replaced []Record
}
