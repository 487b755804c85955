package fallback

import (
	"context"
	"fmt"
	"net/url"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
)

// PortalStrategy builds a deep link into the partner's own application
// portal, pre-filled with the applicant's details. It is side-effect free:
// nothing is sent anywhere, the applicant completes the application
// themselves.
type PortalStrategy struct{}

func NewPortalStrategy() *PortalStrategy {
	return &PortalStrategy{}
}

func (s *PortalStrategy) Method() config.FallbackMethod {
	return config.FallbackPortal
}

func (s *PortalStrategy) Submit(_ context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error) {
	portalURL, err := buildPortalURL(partner, app)
	if err != nil {
		return nil, err
	}

	return &canonical.SubmissionResult{
		Success:           true,
		ApplicationNumber: placeholderNumber("REDIRECT"),
		Error:             fmt.Sprintf("Please complete your application at: %s", portalURL),
		FallbackRequired:  true,
		IntegrationPath:   canonical.PathFallback,
	}, nil
}

func buildPortalURL(partner config.PartnerConfig, app *canonical.Application) (string, error) {
	base := partner.Fallback.PortalURL
	if base == "" {
		base = partner.BaseURL
	}
	if base == "" {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("partner '%s' uses portal fallback but has no portal URL", partner.Code), "")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("partner '%s' has an invalid portal URL", partner.Code), err.Error())
	}

	query := parsed.Query()
	query.Set("firstName", app.PersonalInfo.FirstName)
	query.Set("lastName", app.PersonalInfo.LastName)
	query.Set("email", app.PersonalInfo.Email)
	query.Set("courseCode", app.CourseCode)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
