package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"uniapply/internal/canonical"
	"uniapply/internal/common/logger"
)

// documentIndexer is the slice of the elasticsearch client the history sink
// needs.
type documentIndexer interface {
	Index(ctx context.Context, index string, body []byte) error
}

// ElasticsearchHistorySink appends every status update to a searchable
// history index. It is append-only: unlike the status store, out-of-order
// deliveries are kept as they arrive, the history is the audit trail.
type ElasticsearchHistorySink struct {
	indexer documentIndexer
	index   string
	logger  logger.Logger
}

func NewElasticsearchHistorySink(indexer documentIndexer, index string, log logger.Logger) *ElasticsearchHistorySink {
	return &ElasticsearchHistorySink{indexer: indexer, index: index, logger: log}
}

func (s *ElasticsearchHistorySink) Apply(ctx context.Context, update *canonical.Update) error {
	doc := map[string]interface{}{
		"applicationId":  update.ApplicationID,
		"partnerCode":    update.PartnerCode,
		"status":         string(update.Status),
		"message":        update.Message,
		"needsReview":    update.NeedsReview,
		"rawStatus":      update.RawStatus,
		"additionalData": update.Extra,
		"timestamp":      update.Timestamp,
		"indexedAt":      time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal history document: %w", err)
	}
	return s.indexer.Index(ctx, s.index, body)
}

// MultiStatusSink fans one update out to several sinks. The primary sink's
// error fails the whole apply; secondary sink failures are logged and
// swallowed so a history outage never loses a status update.
type MultiStatusSink struct {
	primary   StatusSink
	secondary []StatusSink
	logger    logger.Logger
}

func NewMultiStatusSink(primary StatusSink, log logger.Logger, secondary ...StatusSink) *MultiStatusSink {
	return &MultiStatusSink{primary: primary, secondary: secondary, logger: log}
}

func (s *MultiStatusSink) Apply(ctx context.Context, update *canonical.Update) error {
	if err := s.primary.Apply(ctx, update); err != nil {
		return err
	}
	for _, sink := range s.secondary {
		if err := sink.Apply(ctx, update); err != nil {
			s.logger.WithError(err).Warn("secondary status sink failed", map[string]interface{}{
				"applicationId": update.ApplicationID,
				"partner":       update.PartnerCode,
			})
		}
	}
	return nil
}
