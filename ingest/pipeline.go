/*
Package ingest wires the oracle, the normalizer and the reconciliation
engine into the three entry points that feed the vacation store.

ENTRY POINTS:

	Entry point     Source of fields      Policy
	-------------   -------------------   -----------------------------
	HandleWebhook   oracle                ReplaceUnconditional
	Import          oracle (paced)        DedupOnStartDate
	AddManual       operator              DedupOnStartDate + confirm
	AddBatch        operator              AlwaysInsert

ERRORS:
  Oracle failures never surface: they look like "no vacation". Validation
  errors are reported per message (webhook, import) or returned (manual).
  Store errors are returned by HandleWebhook and AddManual and counted as
  Failed by the batch entry points.

SEE ALSO:
  - importer.go: Bulk import from chat exports
  - manual.go: Operator entry
  - watcher.go: Import directory polling
*/
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/vacation-calendar/oracle"
	"github.com/warp/vacation-calendar/vacation"
)

// Pipeline runs messages through extraction, validation and reconciliation.
type Pipeline struct {
	extractor  oracle.Extractor
	normalizer *vacation.Normalizer
	engine     *vacation.Engine
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithImportLimiter paces oracle calls during Import. Unlimited by default.
func WithImportLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.limiter = l
		}
	}
}

// New creates a Pipeline. A nil normalizer uses vacation defaults.
func New(extractor oracle.Extractor, normalizer *vacation.Normalizer, engine *vacation.Engine, opts ...Option) *Pipeline {
	if normalizer == nil {
		normalizer = vacation.NewNormalizer()
	}
	p := &Pipeline{
		extractor:  extractor,
		normalizer: normalizer,
		engine:     engine,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("ingest")
	return p
}

// =============================================================================
// WEBHOOK
// =============================================================================

// WebhookMessage is one chat message delivered by the messenger.
type WebhookMessage struct {
	Text       string
	CreatedAt  string
	AuthorID   string
	AuthorName string
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	// Recognized is false when no usable vacation was found; nothing was
	// written in that case.
	Recognized bool
	Outcome    vacation.Outcome
	Record     vacation.Record
	Replaced   []vacation.Record
}

// HandleWebhook extracts a vacation from msg and makes it the author's
// only record. Only store errors are returned.
func (p *Pipeline) HandleWebhook(ctx context.Context, msg WebhookMessage) (WebhookResult, error) {
	log := p.logger.With(zap.String("employee_id", msg.AuthorID))

	cand := p.extractor.Extract(ctx, msg.Text, msg.AuthorName)
	if cand == nil {
		log.Debug("webhook message without vacation")
		return WebhookResult{}, nil
	}

	rec, err := p.normalizer.NormalizeCandidate(*cand, msg.AuthorID, msg.Text)
	if err != nil {
		log.Info("webhook candidate rejected",
			zap.String("kind", vacation.ErrorKind(err)),
			zap.Error(err),
		)
		return WebhookResult{}, nil
	}

	res, err := p.engine.Submit(ctx, rec, vacation.PolicyReplaceUnconditional)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("webhook %s: %w", msg.AuthorID, err)
	}

	return WebhookResult{
		Recognized: true,
		Outcome:    res.Outcome,
		Record:     res.Record,
		Replaced:   res.Replaced,
	}, nil
}
