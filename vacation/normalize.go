package vacation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultIDPrefix prefixes employee ids synthesized for manual entries.
const DefaultIDPrefix = "manual_"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalizer validates raw fields into a persistable Record.
type Normalizer struct {
	idPrefix string
	now      func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithIDPrefix overrides the prefix of synthesized employee ids.
func WithIDPrefix(prefix string) NormalizerOption {
	return func(n *Normalizer) {
		if prefix != "" {
			n.idPrefix = prefix
		}
	}
}

// WithClock overrides the clock used for synthesized employee ids.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{idPrefix: DefaultIDPrefix, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize validates in. Names, ids and text are trimmed; dates are
// checked exactly as given, so surrounding whitespace is a format error.
// The returned Record has no ID or CreatedAt; those are assigned by the
// store.
func (n *Normalizer) Normalize(in Input) (Record, error) {
	rec := Record{
		EmployeeID:   strings.TrimSpace(in.EmployeeID),
		EmployeeName: strings.TrimSpace(in.EmployeeName),
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		MessageText:  strings.TrimSpace(in.MessageText),
	}

	for _, f := range []struct{ name, value string }{
		{"employee_name", rec.EmployeeName},
		{"start_date", rec.StartDate},
		{"end_date", rec.EndDate},
	} {
		if f.value == "" {
			return Record{}, &ValidationError{Field: f.name, Err: ErrIncompleteCandidate}
		}
	}

	if err := checkDate("start_date", rec.StartDate); err != nil {
		return Record{}, err
	}
	if err := checkDate("end_date", rec.EndDate); err != nil {
		return Record{}, err
	}
	if rec.StartDate > rec.EndDate {
		return Record{}, &ValidationError{
			Field: "end_date",
			Value: rec.EndDate,
			Err:   ErrReversedRange,
		}
	}

	if rec.EmployeeID == "" {
		rec.EmployeeID = n.syntheticID(in.Seq)
	}
	return rec, nil
}

// NormalizeCandidate validates oracle output for the given employee.
func (n *Normalizer) NormalizeCandidate(c Candidate, employeeID, messageText string) (Record, error) {
	return n.Normalize(Input{
		EmployeeID:   employeeID,
		EmployeeName: c.EmployeeName,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		MessageText:  messageText,
	})
}

// ValidDate reports whether s has the YYYY-MM-DD shape.
func ValidDate(s string) bool {
	return datePattern.MatchString(s)
}

func checkDate(field, value string) error {
	if !datePattern.MatchString(value) {
		return &ValidationError{Field: field, Value: value, Err: ErrInvalidDateFormat}
	}
	return nil
}

func (n *Normalizer) syntheticID(seq int) string {
	id := n.idPrefix + strconv.FormatInt(n.now().UnixMilli(), 10)
	if seq > 0 {
		id += "_" + strconv.Itoa(seq)
	}
	return id
}
