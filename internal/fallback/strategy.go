// Package fallback implements the submission paths used when a partner has
// no working direct integration: email to the admissions office, a pre-filled
// portal redirect, or a manual processing queue. Every strategy yields a
// SubmissionResult with FallbackRequired set, so callers can never mistake a
// locally handled submission for a confirmed partner one.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
	"uniapply/internal/common/metrics"
)

// Strategy is one fallback submission path.
type Strategy interface {
	Method() config.FallbackMethod
	Submit(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error)
}

// Dispatcher routes a submission to the strategy a partner is configured
// for.
type Dispatcher struct {
	strategies map[config.FallbackMethod]Strategy
	logger     logger.Logger
}

func NewDispatcher(log logger.Logger, strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{
		strategies: make(map[config.FallbackMethod]Strategy, len(strategies)),
		logger:     log,
	}
	for _, s := range strategies {
		d.strategies[s.Method()] = s
	}
	return d
}

// Dispatch submits via the partner's configured fallback method. A partner
// with no configured method cannot be served here; that is a configuration
// error, not a submission failure.
func (d *Dispatcher) Dispatch(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error) {
	strategy, ok := d.strategies[partner.Fallback.Method]
	if !ok || partner.Fallback.Method == config.FallbackNone {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("no fallback method configured for partner '%s'", partner.Code),
			string(partner.Fallback.Method),
		)
	}

	d.logger.Info("dispatching fallback submission", map[string]interface{}{
		"partner":       partner.Code,
		"method":        string(partner.Fallback.Method),
		"applicationId": app.ApplicationID,
	})

	result, err := strategy.Submit(ctx, partner, app)
	if err != nil {
		metrics.SubmissionFailures.WithLabelValues(partner.Code, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(partner.Code, string(result.IntegrationPath)).Inc()
	return result, nil
}

// placeholderNumber builds the locally issued tracking number for a fallback
// submission, e.g. TEMP_1735689600000_a1b2c3d4. The timestamp alone can
// collide within a millisecond, so a random suffix keeps every issued number
// distinct.
func placeholderNumber(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
