package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
)

// listPusher is the slice of the redis client the manual queue needs.
type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) error
}

// manualSubmission is the queued record an administrator later processes by
// hand.
type manualSubmission struct {
	PartnerCode string                 `json:"partnerCode"`
	Application *canonical.Application `json:"application"`
	Status      string                 `json:"status"`
	CreatedAt   string                 `json:"createdAt"`
}

// ManualStrategy queues the application for manual processing by an
// administrator. The record lands on a per-partner redis list.
type ManualStrategy struct {
	queue  listPusher
	logger logger.Logger
}

func NewManualStrategy(queue listPusher, log logger.Logger) *ManualStrategy {
	return &ManualStrategy{queue: queue, logger: log}
}

func (s *ManualStrategy) Method() config.FallbackMethod {
	return config.FallbackManual
}

// QueueKey returns the redis list key holding a partner's pending manual
// submissions.
func QueueKey(partnerCode string) string {
	return fmt.Sprintf("manual_submissions:%s", partnerCode)
}

func (s *ManualStrategy) Submit(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error) {
	record := manualSubmission{
		PartnerCode: partner.Code,
		Application: app,
		Status:      "pending_manual_processing",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, errors.NewFallbackDispatchError(string(config.FallbackManual), err)
	}

	if err := s.queue.LPush(ctx, QueueKey(partner.Code), payload); err != nil {
		s.logger.WithError(err).Error("failed to queue manual submission", map[string]interface{}{
			"partner":       partner.Code,
			"applicationId": app.ApplicationID,
		})
		return nil, errors.NewFallbackDispatchError(string(config.FallbackManual), err)
	}

	return &canonical.SubmissionResult{
		Success:           true,
		ApplicationNumber: placeholderNumber("MANUAL"),
		FallbackRequired:  true,
		IntegrationPath:   canonical.PathManual,
	}, nil
}
