package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/internal/platform/gateway"
	"github.com/fatflowers/storefront/pkg/config"
	"github.com/fatflowers/storefront/pkg/logctx"
	"github.com/fatflowers/storefront/pkg/metrics"
)

var (
	// ErrBadSignature rejects a body whose HMAC does not match; nothing is
	// written and the sender gets a 400.
	ErrBadSignature = errors.New("invalid webhook signature")
	// ErrTamperedMetadata rejects an event whose order/user metadata fails
	// the independent metadata HMAC check.
	ErrTamperedMetadata = errors.New("tampered event metadata")
	// ErrMalformedEvent rejects a payload the guard cannot parse.
	ErrMalformedEvent = errors.New("malformed event")
)

// Outcome tells the HTTP layer how an accepted event was handled.
type Outcome string

const (
	// OutcomeApplied: the event was dispatched and recorded.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the event id was already recorded; no-op.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeStale: the event is older than the replay window; acknowledged
	// so the sender stops retrying, but not applied.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored: unrecognized event type; acknowledged as a no-op.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeInconsistent: applied, but reconciliation hit an invariant
	// breach (e.g. oversold stock); the order is flagged for review.
	OutcomeInconsistent Outcome = "inconsistent"
)

// Guard is the webhook ingress: signature verification, replay window,
// dedup, then dispatch inside one transaction with the WebhookEvent insert.
type Guard struct {
	cfg        *config.Config
	db         *gorm.DB
	dispatcher *Dispatcher
	log        *zap.SugaredLogger
	// now is swappable in tests.
	now func() time.Time
}

func NewGuard(cfg *config.Config, db *gorm.DB, dispatcher *Dispatcher, log *zap.SugaredLogger) *Guard {
	return &Guard{cfg: cfg, db: db, dispatcher: dispatcher, log: log, now: time.Now}
}

// Logger exposes the guard's base logger for the HTTP layer.
func (g *Guard) Logger() *zap.SugaredLogger { return g.log }

func (g *Guard) replayWindow() time.Duration {
	if g.cfg.Gateway.ReplayWindow > 0 {
		return g.cfg.Gateway.ReplayWindow
	}
	return 5 * time.Minute
}

// Process verifies and applies one raw webhook delivery.
//
// The WebhookEvent insert and the business mutation share a transaction, so
// "processed" and "recorded as processed" are atomic: a handler failure
// rolls both back and the next delivery attempt starts from scratch.
func (g *Guard) Process(ctx context.Context, body []byte, signature string) (Outcome, error) {
	start := g.now()
	log := logctx.FromCtx(ctx, g.log)

	if !gateway.VerifyBody(g.cfg.Gateway.WebhookSecret, body, signature) {
		// Security event: unauthenticated caller reached the webhook path.
		log.Errorw("webhook signature verification failed")
		return "", ErrBadSignature
	}

	event, err := ParseEvent(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	log = log.With("event_id", event.ID, "event_type", event.Type)

	if age := start.Sub(time.Unix(event.Created, 0)); age > g.replayWindow() {
		log.Warnw("stale event acknowledged without processing", "age", age.String())
		return OutcomeStale, nil
	}

	outcome := OutcomeApplied
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior models.WebhookEvent
		lookupErr := tx.Where("gateway_event_id = ?", event.ID).First(&prior).Error
		if lookupErr == nil {
			outcome = OutcomeDuplicate
			return nil
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check event dedup: %w", lookupErr)
		}

		record := &models.WebhookEvent{
			GatewayEventID: event.ID,
			EventType:      event.Type,
			ProcessedAt:    start,
			RawPayload:     datatypes.JSON(body),
		}
		if createErr := tx.Create(record).Error; createErr != nil {
			// A racing delivery of the same event lost the unique insert.
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				outcome = OutcomeDuplicate
				return nil
			}
			return fmt.Errorf("failed to record webhook event: %w", createErr)
		}

		var dispatchErr error
		outcome, dispatchErr = g.dispatcher.Dispatch(ctx, tx, event)
		return dispatchErr
	})
	if err != nil {
		return "", err
	}

	metrics.ObserveBusinessProcess("webhook", event.Type, metrics.MillisecondsSince(start))
	log.Infow("webhook processed", "outcome", string(outcome))
	return outcome, nil
}
