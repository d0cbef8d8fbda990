package ingest_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/oracle/mock"
	"github.com/warp/vacation-calendar/vacation"
	"github.com/warp/vacation-calendar/vacation/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// scriptedOracle answers by message text. Unknown text means no vacation.
type scriptedOracle struct {
	mu      sync.Mutex
	answers map[string]vacation.Candidate
	calls   []string
}

func (o *scriptedOracle) Extract(_ context.Context, text, _ string) *vacation.Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, text)
	c, ok := o.answers[text]
	if !ok {
		return nil
	}
	return &c
}

func newPipeline(t *testing.T, answers map[string]vacation.Candidate) (*ingest.Pipeline, *store.Memory, *scriptedOracle) {
	t.Helper()
	mem := store.NewMemory()
	o := &scriptedOracle{answers: answers}
	return ingest.New(o, nil, vacation.NewEngine(mem)), mem, o
}

func listAll(t *testing.T, s vacation.Store) []vacation.Record {
	t.Helper()
	all, err := s.List(context.Background())
	require.NoError(t, err)
	return all
}

var july = vacation.Candidate{EmployeeName: "Иван", StartDate: "2026-07-15", EndDate: "2026-07-25"}

// =============================================================================
// WEBHOOK
// =============================================================================

func TestHandleWebhook_VacationMessage_Stored(t *testing.T) {
	// GIVEN: The oracle recognizes a July vacation
	p, mem, _ := newPipeline(t, map[string]vacation.Candidate{"Уезжаю 15-25 июля": july})

	// WHEN: u1 posts the message
	res, err := p.HandleWebhook(context.Background(), ingest.WebhookMessage{
		Text: "Уезжаю 15-25 июля", AuthorID: "u1", AuthorName: "Иван",
	})

	// THEN: Exactly one record for u1 with the message retained
	require.NoError(t, err)
	assert.True(t, res.Recognized)
	assert.Equal(t, vacation.OutcomeInserted, res.Outcome)

	all := listAll(t, mem)
	require.Len(t, all, 1)
	assert.Equal(t, "u1", all[0].EmployeeID)
	assert.Equal(t, "2026-07-15", all[0].StartDate)
	assert.Equal(t, "2026-07-25", all[0].EndDate)
	assert.Equal(t, "Уезжаю 15-25 июля", all[0].MessageText)
}

func TestHandleWebhook_NewMessage_ReplacesOld(t *testing.T) {
	// GIVEN: u1 already has a vacation in June
	p, mem, _ := newPipeline(t, map[string]vacation.Candidate{"Уезжаю 15-25 июля": july})
	_, err := mem.Insert(context.Background(), vacation.Record{
		EmployeeID: "u1", EmployeeName: "Иван", StartDate: "2026-06-01", EndDate: "2026-06-10",
	})
	require.NoError(t, err)

	// WHEN: A new vacation message arrives
	res, err := p.HandleWebhook(context.Background(), ingest.WebhookMessage{
		Text: "Уезжаю 15-25 июля", AuthorID: "u1", AuthorName: "Иван",
	})

	// THEN: The June record is gone
	require.NoError(t, err)
	assert.Equal(t, vacation.OutcomeReplaced, res.Outcome)
	require.Len(t, res.Replaced, 1)
	assert.Equal(t, "2026-06-01", res.Replaced[0].StartDate)

	all := listAll(t, mem)
	require.Len(t, all, 1)
	assert.Equal(t, "2026-07-15", all[0].StartDate)
}

func TestHandleWebhook_NoVacation_StoreUnchanged(t *testing.T) {
	p, mem, o := newPipeline(t, nil)

	res, err := p.HandleWebhook(context.Background(), ingest.WebhookMessage{
		Text: "Привет всем!", AuthorID: "u1", AuthorName: "Иван",
	})

	require.NoError(t, err)
	assert.False(t, res.Recognized)
	assert.Empty(t, listAll(t, mem))
	assert.Equal(t, []string{"Привет всем!"}, o.calls)
}

func TestHandleWebhook_ReversedCandidate_NotRecognized(t *testing.T) {
	p, mem, _ := newPipeline(t, map[string]vacation.Candidate{
		"с 25 по 15 июля": {EmployeeName: "Иван", StartDate: "2026-07-25", EndDate: "2026-07-15"},
	})

	res, err := p.HandleWebhook(context.Background(), ingest.WebhookMessage{
		Text: "с 25 по 15 июля", AuthorID: "u1", AuthorName: "Иван",
	})

	require.NoError(t, err)
	assert.False(t, res.Recognized)
	assert.Empty(t, listAll(t, mem))
}

func TestHandleWebhook_StoreMissing_ReturnsError(t *testing.T) {
	o := &scriptedOracle{answers: map[string]vacation.Candidate{"Уезжаю 15-25 июля": july}}
	p := ingest.New(o, nil, vacation.NewEngine(nil))

	_, err := p.HandleWebhook(context.Background(), ingest.WebhookMessage{
		Text: "Уезжаю 15-25 июля", AuthorID: "u1", AuthorName: "Иван",
	})

	assert.ErrorIs(t, err, vacation.ErrStoreUnavailable)
}

// =============================================================================
// IMPORT
// =============================================================================

func exportMsg(id int64, userID int64, name, last, content string) ingest.ExportMessage {
	return ingest.ExportMessage{
		ID:      id,
		Content: content,
		User:    ingest.ExportUser{ID: userID, Name: name, LastName: last},
	}
}

func TestImport_CountsAndDedup(t *testing.T) {
	// GIVEN: An export with a vacation, a repeat of it with another end
	// date, chatter and an empty message
	p, mem, o := newPipeline(t, map[string]vacation.Candidate{
		"Уезжаю 15-25 июля":    july,
		"Уезжаю 15-28 июля":    {EmployeeName: "Иван", StartDate: "2026-07-15", EndDate: "2026-07-28"},
		"В сентябре с 1 по 10": {EmployeeName: "Иван", StartDate: "2026-09-01", EndDate: "2026-09-10"},
	})
	msgs := []ingest.ExportMessage{
		exportMsg(1, 42, "Иван", "Петров", "Уезжаю 15-25 июля"),
		exportMsg(2, 42, "Иван", "Петров", "Уезжаю 15-28 июля"),
		exportMsg(3, 42, "Иван", "Петров", "В сентябре с 1 по 10"),
		exportMsg(4, 43, "Мария", "", "Привет всем!"),
		exportMsg(5, 43, "Мария", "", "   "),
	}

	// WHEN: Importing
	var out bytes.Buffer
	report, err := p.Import(context.Background(), msgs, &out)

	// THEN: First July and September stored, repeat and chatter skipped
	require.NoError(t, err)
	assert.Equal(t, ingest.ImportReport{Total: 5, Imported: 2, Skipped: 3}, report)

	all := listAll(t, mem)
	require.Len(t, all, 2)
	assert.Equal(t, "42", all[0].EmployeeID)
	assert.Equal(t, "2026-07-25", all[0].EndDate)
	assert.Equal(t, "2026-09-01", all[1].StartDate)

	assert.NotContains(t, o.calls, "   ")
	assert.Contains(t, out.String(), "skip (exists)")
}

func TestImport_EmptyContent_NoOracleCall(t *testing.T) {
	// No EXPECT on the mock: an oracle call fails the test.
	ctrl := gomock.NewController(t)
	extractor := mock.NewMockExtractor(ctrl)
	p := ingest.New(extractor, nil, vacation.NewEngine(store.NewMemory()))

	report, err := p.Import(context.Background(), []ingest.ExportMessage{
		exportMsg(1, 1, "Иван", "", ""),
		exportMsg(2, 1, "Иван", "", "\n\t"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, ingest.ImportReport{Total: 2, Skipped: 2}, report)
}

func TestImport_AuthorNamePassedToOracle(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := mock.NewMockExtractor(ctrl)
	p := ingest.New(extractor, nil, vacation.NewEngine(store.NewMemory()))

	extractor.EXPECT().Extract(gomock.Any(), "в отпуске 3 августа", "Мария Иванова").Return(nil)

	report, err := p.Import(context.Background(), []ingest.ExportMessage{
		exportMsg(1, 7, " Мария", "Иванова ", "в отпуске 3 августа"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestImport_StoreFailure_CountedAndContinues(t *testing.T) {
	o := &scriptedOracle{answers: map[string]vacation.Candidate{"Уезжаю 15-25 июля": july}}
	p := ingest.New(o, nil, vacation.NewEngine(nil))

	report, err := p.Import(context.Background(), []ingest.ExportMessage{
		exportMsg(1, 1, "Иван", "", "Уезжаю 15-25 июля"),
		exportMsg(2, 2, "Иван", "", "Уезжаю 15-25 июля"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, ingest.ImportReport{Total: 2, Failed: 2}, report)
}

func TestImport_CancelledContext_Stops(t *testing.T) {
	p, mem, o := newPipeline(t, map[string]vacation.Candidate{"Уезжаю 15-25 июля": july})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Import(ctx, []ingest.ExportMessage{
		exportMsg(1, 1, "Иван", "", "Уезжаю 15-25 июля"),
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, o.calls)
	assert.Empty(t, listAll(t, mem))
}

// =============================================================================
// READING EXPORTS
// =============================================================================

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReadExportDir(t *testing.T) {
	// GIVEN: Two export files, a broken one and an unrelated file
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `[{"id": 2, "content": "второе", "user": {"id": 5, "name": "Мария", "last_name": "Иванова"}, "chat": {"id": 9, "name": "Отпуски"}}]`)
	writeFile(t, dir, "a.json", `[{"id": 1, "content": "первое", "user": {"id": 4, "name": "Иван", "last_name": ""}}]`)
	writeFile(t, dir, "c.json", `{not json`)
	writeFile(t, dir, "notes.txt", `ignored`)

	// WHEN: Reading the directory
	msgs, err := ingest.ReadExportDir(dir, nil)

	// THEN: Messages of the good files, in file name order
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "первое", msgs[0].Content)
	assert.Equal(t, "4", msgs[0].EmployeeID())
	assert.Equal(t, "Иван", msgs[0].AuthorName())
	assert.Equal(t, "Мария Иванова", msgs[1].AuthorName())
	assert.Equal(t, "Отпуски", msgs[1].Chat.Name)
}

func TestReadExportDir_Missing(t *testing.T) {
	_, err := ingest.ReadExportDir(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}
