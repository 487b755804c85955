// Package registry holds one immutable integration record per partner
// institution. Pure lookup, no I/O; safe for unsynchronized concurrent reads
// once built.
package registry

import (
	"sort"
	"strings"

	"uniapply/internal/common/config"
)

type Registry struct {
	partners map[string]config.PartnerConfig
}

// New builds a registry from the partner map loaded at startup. Partner codes
// are normalized to lowercase; "uct_001"-style identifiers resolve to their
// base code.
func New(partners map[string]config.PartnerConfig) *Registry {
	r := &Registry{partners: make(map[string]config.PartnerConfig, len(partners))}
	for code, partner := range partners {
		r.partners[strings.ToLower(code)] = partner
	}
	return r
}

// Lookup returns the configuration for a partner code, if present. A missing
// record is treated by every caller exactly like a disabled one.
func (r *Registry) Lookup(partnerCode string) (config.PartnerConfig, bool) {
	partner, ok := r.partners[normalize(partnerCode)]
	return partner, ok
}

// SupportedPartners returns the sorted codes of all enabled partners.
func (r *Registry) SupportedPartners() []string {
	codes := make([]string, 0, len(r.partners))
	for code, partner := range r.partners {
		if partner.Enabled {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// normalize lowercases the code and strips an "_NNN" campus suffix, so both
// "uct" and "UCT_001" address the same record.
func normalize(partnerCode string) string {
	code := strings.ToLower(strings.TrimSpace(partnerCode))
	if idx := strings.Index(code, "_"); idx > 0 {
		code = code[:idx]
	}
	return code
}
