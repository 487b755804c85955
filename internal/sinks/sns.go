package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"uniapply/internal/canonical"
	"uniapply/internal/common/logger"
)

// snsPublisher is the slice of the SNS client the notification sink needs.
type snsPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSNotificationSink publishes status-change events for downstream
// applicant notification (email, push) to an SNS topic.
type SNSNotificationSink struct {
	publisher snsPublisher
	topicARN  string
	logger    logger.Logger
}

func NewSNSNotificationSink(publisher snsPublisher, topicARN string, log logger.Logger) *SNSNotificationSink {
	return &SNSNotificationSink{publisher: publisher, topicARN: topicARN, logger: log}
}

func (s *SNSNotificationSink) Notify(ctx context.Context, update *canonical.Update) error {
	message, err := json.Marshal(map[string]interface{}{
		"type":          "application_status_update",
		"applicationId": update.ApplicationID,
		"partnerCode":   update.PartnerCode,
		"status":        string(update.Status),
		"message":       update.Message,
		"needsReview":   update.NeedsReview,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"partner": {
				DataType:    aws.String("String"),
				StringValue: aws.String(update.PartnerCode),
			},
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(update.Status)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish status notification: %w", err)
	}

	s.logger.Info("status notification published", map[string]interface{}{
		"applicationId": update.ApplicationID,
		"partner":       update.PartnerCode,
		"status":        string(update.Status),
	})
	return nil
}

// NoOpNotificationSink is used when notifications are disabled.
type NoOpNotificationSink struct{}

func (NoOpNotificationSink) Notify(context.Context, *canonical.Update) error { return nil }
