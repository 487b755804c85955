// Package adapters contains one client per partner admission system. Each
// client owns its partner's authentication scheme, field mapping, and
// vocabulary translation; everything it accepts and returns is canonical.
package adapters

import (
	"context"
	"strings"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
)

// Client is the fixed capability set every partner adapter implements.
type Client interface {
	// SubmitApplication maps the canonical application to the partner's
	// native format and submits it. Returns the partner-issued application
	// number.
	SubmitApplication(ctx context.Context, app *canonical.Application) (string, error)

	// GetApplicationStatus fetches and normalizes the partner's view of an
	// application.
	GetApplicationStatus(ctx context.Context, partnerApplicationID string) (*canonical.StatusReport, error)

	// UploadDocument sends a supporting document. Partners that require an
	// upload-then-attach sequence only report success when both steps
	// succeed. Returns the partner-issued document id.
	UploadDocument(ctx context.Context, partnerApplicationID string, file []byte, documentType string) (string, error)

	// GetRequirements lists the partner's admission requirements for a
	// course.
	GetRequirements(ctx context.Context, courseCode string) ([]map[string]interface{}, error)

	// ValidateApplication runs the partner's own validation over a possibly
	// partial application.
	ValidateApplication(ctx context.Context, app *canonical.Application) (*canonical.ValidationOutcome, error)
}

type builder func(cfg config.PartnerConfig, tokens *TokenCache, log logger.Logger) Client

// builders is the factory table. Adding a partner means adding a client type
// and one entry here.
var builders = map[string]builder{
	"uct":  newUCTClient,
	"wits": newWitsClient,
}

// Factory constructs partner clients keyed by partner code.
type Factory struct {
	tokens *TokenCache
	logger logger.Logger

	clients map[string]Client
}

// NewFactory eagerly builds a client for every configured partner that has a
// direct integration. Clients are immutable and shared across requests.
func NewFactory(partners map[string]config.PartnerConfig, tokens *TokenCache, log logger.Logger) *Factory {
	f := &Factory{
		tokens:  tokens,
		logger:  log,
		clients: make(map[string]Client),
	}
	for code, cfg := range partners {
		code = normalizeCode(code)
		build, ok := builders[code]
		if !ok {
			continue
		}
		f.clients[code] = build(cfg, tokens, log.WithFields(map[string]interface{}{"partner": code}))
	}
	return f
}

// ClientFor returns the adapter for a partner code, or an
// UNSUPPORTED_PARTNER error when no direct integration exists for it.
func (f *Factory) ClientFor(partnerCode string) (Client, error) {
	client, ok := f.clients[normalizeCode(partnerCode)]
	if !ok {
		return nil, errors.NewUnsupportedPartnerError(partnerCode)
	}
	return client, nil
}

// SupportedPartners returns the codes with a registered direct adapter.
func SupportedPartners() []string {
	return []string{"uct", "wits"}
}

// normalizeCode lowercases and strips an "_NNN" campus suffix, so "UCT_001"
// selects the uct adapter.
func normalizeCode(partnerCode string) string {
	code := strings.ToLower(strings.TrimSpace(partnerCode))
	if idx := strings.Index(code, "_"); idx > 0 {
		code = code[:idx]
	}
	return code
}

// subjectCodeFallback turns an unmapped subject name into a normalized
// uppercase-with-underscores token rather than failing the submission.
func subjectCodeFallback(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), "_"))
}
