package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniapply/internal/canonical"
	"uniapply/internal/common/errors"
)

func TestProcessUCTPayload(t *testing.T) {
	body := []byte(`{
		"applicationNumber": "UCT2026001234",
		"status": "DOCS_REQUIRED",
		"statusMessage": "Outstanding documents",
		"timestamp": "2026-02-01T10:00:00Z",
		"nextSteps": ["Upload matric certificate"],
		"reviewerComments": "Awaiting certified copies"
	}`)

	update, err := Process("uct", body)
	require.NoError(t, err)

	assert.Equal(t, "UCT2026001234", update.ApplicationID)
	assert.Equal(t, "uct", update.PartnerCode)
	assert.Equal(t, canonical.StatusDocumentsRequired, update.Status)
	assert.False(t, update.NeedsReview)
	assert.Equal(t, "Awaiting certified copies", update.Extra["reviewNotes"])
}

func TestProcessWitsPayload(t *testing.T) {
	body := []byte(`{
		"applicationReference": "WITS-2026-4321",
		"currentStatus": "OFFER_MADE",
		"statusDescription": "Congratulations",
		"lastStatusUpdate": "2026-03-01T08:30:00Z",
		"assignedOfficer": "M. Dlamini"
	}`)

	update, err := Process("wits", body)
	require.NoError(t, err)

	assert.Equal(t, "WITS-2026-4321", update.ApplicationID)
	assert.Equal(t, canonical.StatusAccepted, update.Status)
	assert.Equal(t, "M. Dlamini", update.Extra["admissionOfficer"])
}

func TestProcessStellenboschPayload(t *testing.T) {
	body := []byte(`{
		"aansoekNommer": "SU-2026-777",
		"status": "WAGLYS",
		"beskrywing": "Op die waglys geplaas",
		"datumGewysig": "2026-03-02T09:00:00Z",
		"fakulteit": "Ingenieurswese",
		"kursusKode": "BENG-EE"
	}`)

	update, err := Process("stellenbosch", body)
	require.NoError(t, err)

	assert.Equal(t, "SU-2026-777", update.ApplicationID)
	assert.Equal(t, canonical.StatusWaitlisted, update.Status)
	assert.Equal(t, "Ingenieurswese", update.Extra["fakulteit"])
}

func TestProcessUnknownStatusFlagsForReview(t *testing.T) {
	body := []byte(`{
		"applicationNumber": "UCT123",
		"status": "ESCALATED",
		"statusMessage": "Escalated to faculty board",
		"timestamp": "2026-03-01T10:00:00Z"
	}`)

	update, err := Process("uct", body)
	require.NoError(t, err)

	assert.Equal(t, canonical.StatusUnderReview, update.Status)
	assert.True(t, update.NeedsReview)
	assert.Equal(t, "ESCALATED", update.RawStatus)
}

func TestProcessRejectsMissingIdentifier(t *testing.T) {
	_, err := Process("uct", []byte(`{"status":"ACCEPTED"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownPayload))

	_, err = Process("wits", []byte(`{"applicationReference":"WITS-1"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownPayload))
}

func TestProcessRejectsMalformedJSON(t *testing.T) {
	_, err := Process("uct", []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownPayload))
}

func TestStellenboschStatusMappingIsTotal(t *testing.T) {
	cases := map[string]canonical.Status{
		"ONTVANG":           canonical.StatusReceived,
		"ONDER_HERSIENING":  canonical.StatusUnderReview,
		"DOKUMENTE_BENODIG": canonical.StatusDocumentsRequired,
		"AANVAAR":           canonical.StatusAccepted,
		"VERWERP":           canonical.StatusRejected,
		"WAGLYS":            canonical.StatusWaitlisted,
	}
	for native, want := range cases {
		got, ok := stellenboschStatuses[native]
		require.True(t, ok, native)
		assert.Equal(t, want, got, native)
	}
}
