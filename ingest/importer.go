package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/vacation"
)

// ExportMessage is one message of a messenger chat export.
type ExportMessage struct {
	ID        int64      `json:"id"`
	CreatedAt string     `json:"created_at"`
	Content   string     `json:"content"`
	User      ExportUser `json:"user"`
	Chat      ExportChat `json:"chat"`
}

type ExportUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Email    string `json:"email"`
}

type ExportChat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuthorName joins first and last name.
func (m ExportMessage) AuthorName() string {
	return strings.TrimSpace(m.User.Name + " " + m.User.LastName)
}

// EmployeeID is the author's messenger id as text.
func (m ExportMessage) EmployeeID() string {
	return strconv.FormatInt(m.User.ID, 10)
}

// ImportReport summarizes one Import run.
type ImportReport struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r ImportReport) String() string {
	return fmt.Sprintf("total=%d imported=%d skipped=%d failed=%d", r.Total, r.Imported, r.Skipped, r.Failed)
}

// =============================================================================
// READING EXPORTS
// =============================================================================

// ReadExportFile decodes one export file: a JSON array of messages.
func ReadExportFile(path string) ([]ExportMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msgs []ExportMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return msgs, nil
}

// ReadExportDir reads every *.json file in dir, in name order. Files that
// cannot be read or decoded are logged and skipped.
func ReadExportDir(dir string, logger *zap.Logger) ([]ExportMessage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read export dir: %w", err)
	}

	var msgs []ExportMessage
	files := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files++
		fileMsgs, err := ReadExportFile(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("skipping export file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		msgs = append(msgs, fileMsgs...)
	}

	logger.Info("export dir read",
		zap.String("dir", dir),
		zap.Int("files", files),
		zap.Int("messages", len(msgs)),
	)
	return msgs, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// Import processes msgs one at a time with DedupOnStartDate. Progress lines
// go to progress, which may be nil. Per-message problems are counted, not
// returned; the error is non-nil only when ctx ends the run early.
func (p *Pipeline) Import(ctx context.Context, msgs []ExportMessage, progress io.Writer) (ImportReport, error) {
	if progress == nil {
		progress = io.Discard
	}
	report := ImportReport{Total: len(msgs)}

	for _, msg := range msgs {
		author := msg.AuthorName()

		if strings.TrimSpace(msg.Content) == "" {
			report.Skipped++
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			p.logger.Warn("import interrupted", zap.Stringer("report", report), zap.Error(err))
			return report, err
		}

		cand := p.extractor.Extract(ctx, msg.Content, author)
		if cand == nil {
			report.Skipped++
			continue
		}

		rec, err := p.normalizer.NormalizeCandidate(*cand, msg.EmployeeID(), msg.Content)
		if err != nil {
			p.logger.Info("import candidate rejected",
				zap.Int64("message_id", msg.ID),
				zap.String("kind", vacation.ErrorKind(err)),
				zap.Error(err),
			)
			fmt.Fprintf(progress, "skip (invalid): %s: %v\n", author, err)
			report.Skipped++
			continue
		}

		res, err := p.engine.Submit(ctx, rec, vacation.PolicyDedupOnStartDate)
		if err != nil {
			p.logger.Error("import store failure", zap.Int64("message_id", msg.ID), zap.Error(err))
			fmt.Fprintf(progress, "error: %s: %v\n", author, err)
			report.Failed++
			continue
		}

		if res.Outcome == vacation.OutcomeDuplicateSkipped {
			fmt.Fprintf(progress, "skip (exists): %s %s\n", author, rec.StartDate)
			report.Skipped++
			continue
		}
		fmt.Fprintf(progress, "imported: %s (%s - %s)\n", author, rec.StartDate, rec.EndDate)
		report.Imported++
	}

	p.logger.Info("import finished", zap.Stringer("report", report))
	return report, nil
}
