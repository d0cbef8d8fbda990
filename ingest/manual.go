package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/vacation"
)

// ErrBatchFormat marks a batch line with fewer than four fields.
var ErrBatchFormat = errors.New("expected name|id|start|end|comment")

// BatchReport summarizes one AddBatch run.
type BatchReport struct {
	Added  int `json:"added"`
	Failed int `json:"failed"`
}

// AddManual stores an operator-entered vacation. When a record with the same
// employee and start date exists, confirm decides whether it is replaced;
// a nil confirm keeps the existing record.
func (p *Pipeline) AddManual(ctx context.Context, in vacation.Input, confirm vacation.ConfirmFunc) (vacation.Result, error) {
	rec, err := p.normalizer.Normalize(in)
	if err != nil {
		return vacation.Result{}, err
	}

	var opts []vacation.SubmitOption
	if confirm != nil {
		opts = append(opts, vacation.WithConfirm(confirm))
	}
	return p.engine.Submit(ctx, rec, vacation.PolicyDedupOnStartDate, opts...)
}

// RunInteractive prompts for one vacation on out, reads answers from in and
// stores it with AddManual. An existing record with the same start date is
// replaced only after a "y" answer.
func (p *Pipeline) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) (vacation.Result, error) {
	sc := bufio.NewScanner(in)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	fmt.Fprintln(out, "Add vacation")
	input := vacation.Input{
		EmployeeName: ask("Employee name: "),
		EmployeeID:   ask("Employee ID (empty to generate): "),
		StartDate:    ask("Start date (YYYY-MM-DD): "),
		EndDate:      ask("End date (YYYY-MM-DD): "),
		MessageText:  ask("Comment (optional): "),
	}

	confirm := func(_ context.Context, existing, _ vacation.Record) (bool, error) {
		fmt.Fprintf(out, "A vacation for %s starting %s already exists (until %s).\n",
			existing.EmployeeID, existing.StartDate, existing.EndDate)
		return strings.EqualFold(ask("Overwrite? (y/N): "), "y"), nil
	}

	res, err := p.AddManual(ctx, input, confirm)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return res, err
	}

	switch res.Outcome {
	case vacation.OutcomeDuplicateSkipped:
		fmt.Fprintln(out, "Cancelled")
	default:
		fmt.Fprintf(out, "Saved: %s (%s - %s)\n", res.Record.EmployeeName, res.Record.StartDate, res.Record.EndDate)
	}
	return res, nil
}

// =============================================================================
// BATCH
// =============================================================================

// ParseBatchLine splits "name | id | start | end | comment". The comment
// is optional; the id may be empty. seq disambiguates generated ids.
func ParseBatchLine(line string, seq int) (vacation.Input, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 {
		return vacation.Input{}, ErrBatchFormat
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	in := vacation.Input{
		EmployeeName: parts[0],
		EmployeeID:   parts[1],
		StartDate:    parts[2],
		EndDate:      parts[3],
		Seq:          seq,
	}
	if len(parts) > 4 {
		in.MessageText = parts[4]
	}
	return in, nil
}

// AddBatch reads pipe-delimited lines from in until an empty line or EOF
// and inserts each one unconditionally. Bad lines are counted as Failed.
func (p *Pipeline) AddBatch(ctx context.Context, in io.Reader, out io.Writer) BatchReport {
	var report BatchReport
	sc := bufio.NewScanner(in)

	for seq := 1; sc.Scan(); seq++ {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			break
		}

		rec, err := p.batchRecord(line, seq)
		if err != nil {
			fmt.Fprintf(out, "skip (%v): %s\n", err, line)
			report.Failed++
			continue
		}

		if _, err := p.engine.Submit(ctx, rec, vacation.PolicyAlwaysInsert); err != nil {
			p.logger.Error("batch store failure", zap.String("employee_id", rec.EmployeeID), zap.Error(err))
			fmt.Fprintf(out, "error: %v - %s\n", err, rec.EmployeeName)
			report.Failed++
			continue
		}
		fmt.Fprintf(out, "added: %s (%s - %s)\n", rec.EmployeeName, rec.StartDate, rec.EndDate)
		report.Added++
	}
	if err := sc.Err(); err != nil {
		p.logger.Warn("batch input ended with error", zap.Error(err))
	}

	p.logger.Info("batch finished", zap.Int("added", report.Added), zap.Int("failed", report.Failed))
	return report
}

func (p *Pipeline) batchRecord(line string, seq int) (vacation.Record, error) {
	in, err := ParseBatchLine(line, seq)
	if err != nil {
		return vacation.Record{}, err
	}
	return p.normalizer.Normalize(in)
}
