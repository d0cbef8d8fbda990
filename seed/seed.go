/*
Package seed loads a demo vacation calendar.

PURPOSE:
  Populates the store with six employees and summer vacations for demos
  and manual testing of the UI and the reports.

HOW IT WORKS:
  Each record goes through the reconciliation engine with
  ReplaceUnconditional, so loading twice leaves one record per demo
  employee and never touches other employees.

USAGE:
  POST /api/admin/seed
  go run ./cmd/seed

SEE ALSO:
  - api/handlers.go: SeedDemo handler
*/
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/vacation"
)

// =============================================================================
// DEMO DATA
// =============================================================================

var demo = []vacation.Record{
	{EmployeeID: "user_001", EmployeeName: "Иван Иванов", StartDate: "2026-06-01", EndDate: "2026-06-15", MessageText: "Отпуск 1-15 июня"},
	{EmployeeID: "user_002", EmployeeName: "Мария Петрова", StartDate: "2026-07-10", EndDate: "2026-07-24", MessageText: "Уезжаю 10-24 июля"},
	{EmployeeID: "user_003", EmployeeName: "Алексей Сидоров", StartDate: "2026-08-01", EndDate: "2026-08-31", MessageText: "Весь август в отпуске"},
	{EmployeeID: "user_004", EmployeeName: "Елена Кузнецова", StartDate: "2026-06-20", EndDate: "2026-07-05", MessageText: "С 20 июня на 2 недели"},
	{EmployeeID: "user_005", EmployeeName: "Дмитрий Волков", StartDate: "2026-09-01", EndDate: "2026-09-14", MessageText: "Отпуск 1-14 сентября"},
	{EmployeeID: "user_006", EmployeeName: "Анна Соколова", StartDate: "2026-07-01", EndDate: "2026-07-15", MessageText: "Отпуск в июле"},
}

// Records returns a copy of the demo data set.
func Records() []vacation.Record {
	out := make([]vacation.Record, len(demo))
	copy(out, demo)
	return out
}

// Load submits every demo record and returns the stored records.
// It stops at the first store error.
func Load(ctx context.Context, engine *vacation.Engine, logger *zap.Logger) ([]vacation.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loaded := make([]vacation.Record, 0, len(demo))
	for _, rec := range demo {
		res, err := engine.Submit(ctx, rec, vacation.PolicyReplaceUnconditional)
		if err != nil {
			return loaded, fmt.Errorf("seed %s: %w", rec.EmployeeID, err)
		}
		loaded = append(loaded, res.Record)
	}

	logger.Info("demo data loaded", zap.Int("records", len(loaded)))
	return loaded, nil
}
