package oracle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/vacation-calendar/oracle"
	"github.com/warp/vacation-calendar/oracle/mock"
	"github.com/warp/vacation-calendar/vacation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func newClient(t *testing.T) (*oracle.Client, *mock.MockChatClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	chat := mock.NewMockChatClient(ctrl)
	return oracle.NewClient(chat, oracle.Config{}, nil), chat
}

// =============================================================================
// EXTRACT
// =============================================================================

func TestExtract_ReturnsCandidate(t *testing.T) {
	// GIVEN: The model recognizes a vacation
	client, chat := newClient(t)
	var sent openai.ChatCompletionRequest
	chat.EXPECT().
		CreateChatCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			sent = req
			return reply(`{"employee_name": "Иван", "start_date": "2026-07-15", "end_date": "2026-07-25"}`), nil
		})

	// WHEN: Extracting
	got := client.Extract(context.Background(), "Уезжаю 15-25 июля", "Иван")

	// THEN: Fields come back and the request is shaped as configured
	require.NotNil(t, got)
	assert.Equal(t, vacation.Candidate{EmployeeName: "Иван", StartDate: "2026-07-15", EndDate: "2026-07-25"}, *got)

	assert.Equal(t, oracle.DefaultModel, sent.Model)
	assert.Equal(t, oracle.DefaultMaxTokens, sent.MaxTokens)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[0].Content, "2026")
	assert.Contains(t, sent.Messages[1].Content, "Уезжаю 15-25 июля")
	assert.Contains(t, sent.Messages[1].Content, "Иван")
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, sent.ResponseFormat.Type)

	assert.Equal(t, int64(1), client.Stats().Extracted)
}

func TestExtract_NoVacationSentinel(t *testing.T) {
	client, chat := newClient(t)
	chat.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).Return(reply(`{"vacation": null}`), nil)

	got := client.Extract(context.Background(), "Привет всем!", "Иван")

	assert.Nil(t, got)
	assert.Equal(t, oracle.StatsSnapshot{NoVacation: 1}, client.Stats())
}

func TestExtract_TransportError_DegradesToNil(t *testing.T) {
	// GIVEN: The service is down
	client, chat := newClient(t)
	chat.EXPECT().
		CreateChatCompletion(gomock.Any(), gomock.Any()).
		Return(openai.ChatCompletionResponse{}, errors.New("503 service unavailable"))

	// WHEN: Extracting
	got := client.Extract(context.Background(), "Уезжаю 15-25 июля", "Иван")

	// THEN: Same answer as "no vacation", but counted as failed
	assert.Nil(t, got)
	assert.Equal(t, oracle.StatsSnapshot{Failed: 1}, client.Stats())
}

func TestExtract_SharedCallSurvivesFirstCallerCancel(t *testing.T) {
	// GIVEN: A slow model and two callers asking about the same message
	client, chat := newClient(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	chat.EXPECT().
		CreateChatCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			once.Do(func() { close(started) })
			select {
			case <-release:
				return reply(`{"employee_name": "Иван", "start_date": "2026-07-15", "end_date": "2026-07-25"}`), nil
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			}
		}).
		MinTimes(1).MaxTimes(2)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan *vacation.Candidate, 1)
	second := make(chan *vacation.Candidate, 1)

	go func() { first <- client.Extract(firstCtx, "Уезжаю 15-25 июля", "Иван") }()
	<-started
	go func() { second <- client.Extract(context.Background(), "Уезжаю 15-25 июля", "Иван") }()
	time.Sleep(50 * time.Millisecond)

	// WHEN: The first caller goes away mid-flight
	cancelFirst()
	assert.Nil(t, <-first)
	close(release)

	// THEN: The second caller still gets the vacation
	got := <-second
	require.NotNil(t, got)
	assert.Equal(t, "2026-07-15", got.StartDate)
	assert.Zero(t, client.Stats().Failed)
}

func TestExtract_NoChoices(t *testing.T) {
	client, chat := newClient(t)
	chat.EXPECT().CreateChatCompletion(gomock.Any(), gomock.Any()).Return(openai.ChatCompletionResponse{}, nil)

	assert.Nil(t, client.Extract(context.Background(), "Уезжаю 15-25 июля", "Иван"))
	assert.Equal(t, int64(1), client.Stats().Failed)
}

func TestExtract_EmptyText_SkipsCall(t *testing.T) {
	// No EXPECT: any call fails the test.
	client, _ := newClient(t)

	assert.Nil(t, client.Extract(context.Background(), "   ", "Иван"))
	assert.Equal(t, oracle.StatsSnapshot{EmptyText: 1}, client.Stats())
}

func TestExtract_IncompleteReply_Nil(t *testing.T) {
	client, chat := newClient(t)
	chat.EXPECT().
		CreateChatCompletion(gomock.Any(), gomock.Any()).
		Return(reply(`{"employee_name": "Иван", "start_date": "2026-07-15"}`), nil)

	assert.Nil(t, client.Extract(context.Background(), "С 15 июля в отпуске", "Иван"))
	assert.Equal(t, int64(1), client.Stats().Failed)
}

func TestExtract_CustomConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mock.NewMockChatClient(ctrl)
	client := oracle.NewClient(chat, oracle.Config{Model: "other-model", MaxTokens: 50, DefaultYear: 2027}, nil)

	chat.EXPECT().
		CreateChatCompletion(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			assert.Equal(t, "other-model", req.Model)
			assert.Equal(t, 50, req.MaxTokens)
			assert.Contains(t, req.Messages[0].Content, "используй 2027")
			return reply(`{"vacation": null}`), nil
		})

	client.Extract(context.Background(), "Всем привет", "Мария")
}

// =============================================================================
// REPLY PARSING
// =============================================================================

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *vacation.Candidate
		wantErr error
	}{
		{
			name:    "plain object",
			content: `{"employee_name":"Мария","start_date":"2026-08-01","end_date":"2026-08-31"}`,
			want:    &vacation.Candidate{EmployeeName: "Мария", StartDate: "2026-08-01", EndDate: "2026-08-31"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"employee_name\":\"Мария\",\"start_date\":\"2026-08-01\",\"end_date\":\"2026-08-01\"}\n```",
			want:    &vacation.Candidate{EmployeeName: "Мария", StartDate: "2026-08-01", EndDate: "2026-08-01"},
		},
		{
			name:    "sentinel",
			content: `{"vacation": null}`,
		},
		{
			name:    "empty",
			content: "  ",
			wantErr: oracle.ErrEmptyReply,
		},
		{
			name:    "prose",
			content: "Сотрудник уходит в отпуск в июле",
			wantErr: oracle.ErrMalformedReply,
		},
		{
			name:    "wrong field type",
			content: `{"employee_name": 7, "start_date": "2026-08-01", "end_date": "2026-08-31"}`,
			wantErr: oracle.ErrMalformedReply,
		},
		{
			name:    "padded date passed through",
			content: `{"employee_name":"Мария","start_date":" 2026-08-01","end_date":"2026-08-31"}`,
			want:    &vacation.Candidate{EmployeeName: "Мария", StartDate: " 2026-08-01", EndDate: "2026-08-31"},
		},
		{
			name:    "blank name",
			content: `{"employee_name": " ", "start_date": "2026-08-01", "end_date": "2026-08-31"}`,
			wantErr: oracle.ErrIncompleteReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.ParseReply(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSystemPrompt_UsesYear(t *testing.T) {
	p := oracle.SystemPrompt(2030)
	assert.Contains(t, p, "используй 2030")
	assert.Contains(t, p, `"2030-09-01"`)
	assert.Contains(t, p, `{"vacation": null}`)
}
