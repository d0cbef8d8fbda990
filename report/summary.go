// Package report builds read-only views over stored vacations: a per-employee
// summary and a spreadsheet export.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/vacation-calendar/vacation"
)

// EmployeeSummary aggregates one employee's records.
type EmployeeSummary struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Vacations    int    `json:"vacations"`
	Days         int    `json:"days"`
	NextStart    string `json:"next_start,omitempty"`
}

// Summary is the calendar-wide aggregate.
type Summary struct {
	Employees      []EmployeeSummary `json:"employees"`
	TotalVacations int               `json:"total_vacations"`
	TotalDays      int               `json:"total_days"`
	// AverageDays is rounded to one fractional digit.
	AverageDays decimal.Decimal `json:"average_days"`
}

// Summarize aggregates records by employee. asOf (YYYY-MM-DD) selects the
// earliest start on or after it as NextStart; empty asOf disables it.
func Summarize(records []vacation.Record, asOf string) Summary {
	byID := make(map[string]*EmployeeSummary)
	var s Summary

	for _, r := range records {
		es, ok := byID[r.EmployeeID]
		if !ok {
			es = &EmployeeSummary{EmployeeID: r.EmployeeID, EmployeeName: r.EmployeeName}
			byID[r.EmployeeID] = es
		}
		days := r.Days()
		es.Vacations++
		es.Days += days
		if asOf != "" && r.StartDate >= asOf && (es.NextStart == "" || r.StartDate < es.NextStart) {
			es.NextStart = r.StartDate
		}

		s.TotalVacations++
		s.TotalDays += days
	}

	s.Employees = make([]EmployeeSummary, 0, len(byID))
	for _, es := range byID {
		s.Employees = append(s.Employees, *es)
	}
	sort.Slice(s.Employees, func(i, j int) bool {
		a, b := s.Employees[i], s.Employees[j]
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		return a.EmployeeID < b.EmployeeID
	})

	s.AverageDays = decimal.Zero
	if s.TotalVacations > 0 {
		s.AverageDays = decimal.NewFromInt(int64(s.TotalDays)).
			DivRound(decimal.NewFromInt(int64(s.TotalVacations)), 1)
	}
	return s
}
