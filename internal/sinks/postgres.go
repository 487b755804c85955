package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"uniapply/internal/canonical"
	"uniapply/internal/common/logger"
)

// upsertStatusQuery keeps the last writer by partner timestamp, not by
// arrival order. Webhook deliveries can arrive out of order; an older update
// must never overwrite a newer one.
const upsertStatusQuery = `
	INSERT INTO application_status
		(application_id, partner_code, status, message, needs_review, raw_status, additional_data, partner_updated_at, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (application_id, partner_code) DO UPDATE SET
		status             = EXCLUDED.status,
		message            = EXCLUDED.message,
		needs_review       = EXCLUDED.needs_review,
		raw_status         = EXCLUDED.raw_status,
		additional_data    = EXCLUDED.additional_data,
		partner_updated_at = EXCLUDED.partner_updated_at,
		received_at        = EXCLUDED.received_at
	WHERE application_status.partner_updated_at <= EXCLUDED.partner_updated_at`

// PostgresStatusSink stores the current status of each application per
// partner.
type PostgresStatusSink struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStatusSink(db *sql.DB, log logger.Logger) *PostgresStatusSink {
	return &PostgresStatusSink{db: db, logger: log}
}

func (s *PostgresStatusSink) Apply(ctx context.Context, update *canonical.Update) error {
	extra, err := json.Marshal(update.Extra)
	if err != nil {
		return fmt.Errorf("failed to marshal additional data: %w", err)
	}

	partnerUpdatedAt := parsePartnerTimestamp(update.Timestamp)

	result, err := s.db.ExecContext(ctx, upsertStatusQuery,
		update.ApplicationID,
		update.PartnerCode,
		string(update.Status),
		update.Message,
		update.NeedsReview,
		update.RawStatus,
		extra,
		partnerUpdatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert application status: %w", err)
	}

	if rows, rowsErr := result.RowsAffected(); rowsErr == nil && rows == 0 {
		s.logger.Info("stale status update skipped", map[string]interface{}{
			"applicationId":    update.ApplicationID,
			"partner":          update.PartnerCode,
			"partnerTimestamp": update.Timestamp,
		})
	}
	return nil
}

// parsePartnerTimestamp parses the partner-reported update time, falling
// back to now when the partner sent none or an unparseable one. The fallback
// makes the update win the last-writer check, which is the right bias for an
// event we cannot order.
func parsePartnerTimestamp(value string) time.Time {
	if value == "" {
		return time.Now().UTC()
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}
