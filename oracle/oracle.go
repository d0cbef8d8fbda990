/*
Package oracle wraps the external language model that turns a chat message
into vacation fields.

CONTRACT:
  Extract returns a *vacation.Candidate or nil. nil covers both "the
  message is not about a vacation" and "the service could not answer";
  callers cannot and must not tell them apart. The two are separated only
  in logs and in Stats so operators can notice a degraded oracle.

REQUEST:
  One chat completion per message, no retries:
  - system: SystemPrompt(default year)
  - user:   UserContent(text, author)
  - minimal temperature, JSON object response format, MaxTokens cap

REPLY:
  {"employee_name": ..., "start_date": ..., "end_date": ...}
  or {"vacation": null}. Anything else is a failure.

SEE ALSO:
  - prompt.go: Instruction text
  - ingest/pipeline.go: Consumers
*/
package oracle

//go:generate mockgen -source=oracle.go -destination=mock/oracle_mock.go -package=mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/warp/vacation-calendar/vacation"
)

const (
	DefaultBaseURL   = "https://api.deepseek.com/v1"
	DefaultModel     = "deepseek-chat"
	DefaultMaxTokens = 200
	DefaultYear      = 2026
)

var (
	ErrEmptyReply      = errors.New("empty reply")
	ErrMalformedReply  = errors.New("malformed reply")
	ErrIncompleteReply = errors.New("reply missing required fields")
)

// ChatClient is the part of *openai.Client the adapter uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor turns message text into a vacation candidate.
type Extractor interface {
	Extract(ctx context.Context, text, authorName string) *vacation.Candidate
}

// Config holds request parameters.
type Config struct {
	Model       string
	MaxTokens   int
	DefaultYear int
	// Timeout bounds one call. Zero means no timeout.
	Timeout time.Duration
}

// Status classifies one Extract call.
type Status string

const (
	StatusExtracted  Status = "extracted"
	StatusNoVacation Status = "no_vacation"
	StatusEmptyText  Status = "empty_text"
	StatusFailed     Status = "failed"
)

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Extracted  int64 `json:"extracted"`
	NoVacation int64 `json:"no_vacation"`
	EmptyText  int64 `json:"empty_text"`
	Failed     int64 `json:"failed"`
}

// Client implements Extractor over an OpenAI-compatible chat API.
type Client struct {
	chat   ChatClient
	cfg    Config
	system string
	logger *zap.Logger
	group  singleflight.Group

	extracted  atomic.Int64
	noVacation atomic.Int64
	emptyText  atomic.Int64
	failed     atomic.Int64
}

var _ Extractor = (*Client)(nil)

// NewOpenAI builds a go-openai client for baseURL (DeepSeek by default).
func NewOpenAI(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}

// NewClient creates a Client. Zero config fields take their defaults.
func NewClient(chat ChatClient, cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.DefaultYear == 0 {
		cfg.DefaultYear = DefaultYear
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		chat:   chat,
		cfg:    cfg,
		system: SystemPrompt(cfg.DefaultYear),
		logger: logger.Named("oracle"),
	}
}

// Extract implements Extractor. Identical concurrent calls share one request.
// The shared request ignores the cancellation of whichever caller started
// it; each caller stops waiting when its own ctx is done.
func (c *Client) Extract(ctx context.Context, text, authorName string) *vacation.Candidate {
	text = strings.TrimSpace(text)
	if text == "" {
		c.observe(StatusEmptyText, authorName, nil)
		return nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(authorName+"\x00"+text, func() (any, error) {
		return c.call(shared, text, authorName), nil
	})

	select {
	case res := <-ch:
		cand, _ := res.Val.(*vacation.Candidate)
		if cand == nil {
			return nil
		}
		out := *cand
		return &out
	case <-ctx.Done():
		c.logger.Debug("caller gone before oracle reply",
			zap.String("author", authorName),
			zap.Error(ctx.Err()),
		)
		return nil
	}
}

// Stats returns the call counters.
func (c *Client) Stats() StatsSnapshot {
	return StatsSnapshot{
		Extracted:  c.extracted.Load(),
		NoVacation: c.noVacation.Load(),
		EmptyText:  c.emptyText.Load(),
		Failed:     c.failed.Load(),
	}
}

func (c *Client) call(ctx context.Context, text, authorName string) *vacation.Candidate {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.chat.CreateChatCompletion(ctx, c.request(text, authorName))
	if err != nil {
		c.observe(StatusFailed, authorName, fmt.Errorf("chat completion: %w", err))
		return nil
	}
	if len(resp.Choices) == 0 {
		c.observe(StatusFailed, authorName, ErrEmptyReply)
		return nil
	}

	cand, err := ParseReply(resp.Choices[0].Message.Content)
	switch {
	case err != nil:
		c.observe(StatusFailed, authorName, err)
		return nil
	case cand == nil:
		c.observe(StatusNoVacation, authorName, nil)
		return nil
	}
	c.observe(StatusExtracted, authorName, nil)
	return cand
}

func (c *Client) request(text, authorName string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.system},
			{Role: openai.ChatMessageRoleUser, Content: UserContent(text, authorName)},
		},
		// go-openai drops a zero temperature from the payload.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   c.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

func (c *Client) observe(status Status, authorName string, err error) {
	switch status {
	case StatusExtracted:
		c.extracted.Add(1)
	case StatusNoVacation:
		c.noVacation.Add(1)
	case StatusEmptyText:
		c.emptyText.Add(1)
	case StatusFailed:
		c.failed.Add(1)
		c.logger.Warn("oracle call degraded to no vacation",
			zap.String("status", string(status)),
			zap.String("author", authorName),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("oracle call", zap.String("status", string(status)), zap.String("author", authorName))
}

// =============================================================================
// REPLY PARSING
// =============================================================================

type reply struct {
	EmployeeName string `json:"employee_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// ParseReply decodes the model output. It returns (nil, nil) for the
// no-vacation sentinel and an error for anything it cannot use.
func ParseReply(content string) (*vacation.Candidate, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return nil, ErrEmptyReply
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if raw, ok := fields["vacation"]; ok && strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}

	var r reply
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	// Dates pass through untouched; the normalizer checks their exact shape.
	r.EmployeeName = strings.TrimSpace(r.EmployeeName)
	if r.EmployeeName == "" || strings.TrimSpace(r.StartDate) == "" || strings.TrimSpace(r.EndDate) == "" {
		return nil, ErrIncompleteReply
	}

	return &vacation.Candidate{
		EmployeeName: r.EmployeeName,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
	}, nil
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
