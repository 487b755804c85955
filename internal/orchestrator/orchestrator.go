// Package orchestrator is the single entry point for outbound partner
// operations. It resolves the partner record, enforces feature gates, runs
// canonical validation, invokes the partner adapter, and falls back to the
// configured alternative path when direct submission fails.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"

	"uniapply/internal/adapters"
	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
	"uniapply/internal/common/metrics"
	"uniapply/internal/registry"
)

// adapterSource abstracts the adapter factory so tests can install fakes.
type adapterSource interface {
	ClientFor(partnerCode string) (adapters.Client, error)
}

// fallbackDispatcher abstracts the fallback dispatcher.
type fallbackDispatcher interface {
	Dispatch(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error)
}

type Orchestrator struct {
	registry *registry.Registry
	adapters adapterSource
	fallback fallbackDispatcher
	logger   logger.Logger
}

func New(reg *registry.Registry, factory adapterSource, dispatcher fallbackDispatcher, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		adapters: factory,
		fallback: dispatcher,
		logger:   log,
	}
}

// SubmitApplication routes an application to a partner. The canonical
// application is validated first; an invalid application never reaches an
// adapter or a fallback path. Direct submission failures fall back to the
// partner's configured alternative when one exists; the caller always learns
// which path actually handled the submission.
func (o *Orchestrator) SubmitApplication(ctx context.Context, partnerCode string, app *canonical.Application) *canonical.SubmissionResult {
	if err := canonical.Validate(app); err != nil {
		return &canonical.SubmissionResult{Success: false, Error: err.Error()}
	}

	partner, ok := o.registry.Lookup(partnerCode)
	if !ok || !partner.Enabled {
		return &canonical.SubmissionResult{
			Success:          false,
			Error:            "Partner integration not available",
			FallbackRequired: true,
		}
	}

	if !partner.Features.DirectSubmission {
		return o.submitViaFallback(ctx, partner, app)
	}

	client, err := o.adapters.ClientFor(partnerCode)
	if err != nil {
		// Configured for direct submission but no adapter exists for the
		// code. Fall back if possible rather than failing outright.
		o.logger.WithError(err).Warn("no direct adapter for partner", map[string]interface{}{
			"partner": partnerCode,
		})
		return o.submitViaFallback(ctx, partner, app)
	}

	applicationNumber, err := client.SubmitApplication(ctx, app)
	if err != nil {
		o.logger.WithError(err).Error("direct submission failed", map[string]interface{}{
			"partner":       partner.Code,
			"applicationId": app.ApplicationID,
			"errorCode":     string(errors.CodeOf(err)),
			"retryable":     isRetryable(err),
		})
		metrics.SubmissionFailures.WithLabelValues(partner.Code, string(errors.CodeOf(err))).Inc()

		if partner.Fallback.Method != config.FallbackNone {
			return o.submitViaFallback(ctx, partner, app)
		}
		return &canonical.SubmissionResult{Success: false, Error: err.Error()}
	}

	metrics.SubmissionsTotal.WithLabelValues(partner.Code, string(canonical.PathDirect)).Inc()
	o.logger.Info("application submitted", map[string]interface{}{
		"partner":           partner.Code,
		"applicationId":     app.ApplicationID,
		"applicationNumber": applicationNumber,
	})

	return &canonical.SubmissionResult{
		Success:           true,
		ApplicationNumber: applicationNumber,
		IntegrationPath:   canonical.PathDirect,
	}
}

func (o *Orchestrator) submitViaFallback(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) *canonical.SubmissionResult {
	result, err := o.fallback.Dispatch(ctx, partner, app)
	if err != nil {
		o.logger.WithError(err).Error("fallback submission failed", map[string]interface{}{
			"partner":       partner.Code,
			"applicationId": app.ApplicationID,
		})
		// A partner with no configured method gets the generic message; a
		// configured method that failed to dispatch reports its own error.
		message := "No fallback method available"
		if partner.Fallback.Method != config.FallbackNone {
			message = err.Error()
		}
		return &canonical.SubmissionResult{
			Success:          false,
			Error:            message,
			FallbackRequired: true,
		}
	}
	return result
}

// GetApplicationStatus polls a partner for the current state of an
// application, gated on the partner's status-tracking feature.
func (o *Orchestrator) GetApplicationStatus(ctx context.Context, partnerCode, partnerApplicationID string) (*canonical.StatusReport, error) {
	partner, ok := o.registry.Lookup(partnerCode)
	if !ok || !partner.Enabled || !partner.Features.StatusTracking {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Status tracking not available for partner '%s'", partnerCode), "")
	}

	client, err := o.adapters.ClientFor(partnerCode)
	if err != nil {
		return nil, err
	}
	return client.GetApplicationStatus(ctx, partnerApplicationID)
}

// UploadDocument sends a supporting document to a partner, gated on the
// partner's document-upload feature.
func (o *Orchestrator) UploadDocument(ctx context.Context, partnerCode, partnerApplicationID string, file []byte, documentType string) (string, error) {
	partner, ok := o.registry.Lookup(partnerCode)
	if !ok || !partner.Enabled || !partner.Features.DocumentUpload {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("Document upload not available for partner '%s'", partnerCode), "")
	}

	client, err := o.adapters.ClientFor(partnerCode)
	if err != nil {
		return "", err
	}
	return client.UploadDocument(ctx, partnerApplicationID, file, documentType)
}

// GetRequirements lists a partner's admission requirements for a course.
func (o *Orchestrator) GetRequirements(ctx context.Context, partnerCode, courseCode string) ([]map[string]interface{}, error) {
	partner, ok := o.registry.Lookup(partnerCode)
	if !ok || !partner.Enabled {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Partner '%s' integration not available", partnerCode), "")
	}

	client, err := o.adapters.ClientFor(partnerCode)
	if err != nil {
		return nil, err
	}
	return client.GetRequirements(ctx, courseCode)
}

// ValidateApplication runs a partner's own validation over a possibly
// partial application.
func (o *Orchestrator) ValidateApplication(ctx context.Context, partnerCode string, app *canonical.Application) (*canonical.ValidationOutcome, error) {
	partner, ok := o.registry.Lookup(partnerCode)
	if !ok || !partner.Enabled {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("Partner '%s' integration not available", partnerCode), "")
	}

	client, err := o.adapters.ClientFor(partnerCode)
	if err != nil {
		return nil, err
	}
	return client.ValidateApplication(ctx, app)
}

// SupportedPartners returns the enabled partner codes.
func (o *Orchestrator) SupportedPartners() []string {
	return o.registry.SupportedPartners()
}

func isRetryable(err error) bool {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}
