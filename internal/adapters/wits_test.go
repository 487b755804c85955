package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
)

func witsPartnerConfig(baseURL string) config.PartnerConfig {
	return config.PartnerConfig{
		Code:    "wits",
		Enabled: true,
		BaseURL: baseURL,
		Credentials: config.Credentials{
			Username: "integration-user",
			Password: "integration-pass",
			APIKey:   "wits-key",
		},
		Timeout: 5000,
	}
}

func witsLoginHandler(t *testing.T, logins *int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		*logins++
		assert.Equal(t, "wits-key", r.Header.Get("X-API-Key"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "integration-user", creds["username"])
		json.NewEncoder(w).Encode(map[string]string{"sessionToken": "sess-1"})
	}
}

func TestWitsSubmitApplicationMapsFields(t *testing.T) {
	var submitted witsApplication
	logins := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			witsLoginHandler(t, &logins)(w, r)
		case "/admissions/applications":
			assert.Equal(t, "Bearer sess-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			json.NewEncoder(w).Encode(map[string]string{"applicationReference": "WITS-2026-4321"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newWitsClient(witsPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	reference, err := client.SubmitApplication(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.Equal(t, "WITS-2026-4321", reference)
	assert.Equal(t, 1, logins)

	assert.Equal(t, "Nkosi", submitted.Applicant.PersonalDetails.Surname)
	assert.Equal(t, "thandi@example.com", submitted.Applicant.PersonalDetails.EmailAddress)
	assert.Equal(t, "2023", submitted.Applicant.AcademicHistory.MatriculationYear)
	require.Len(t, submitted.Applicant.AcademicHistory.MatricResults, 2)
	// Wits takes subject names as-is, no code translation.
	assert.Equal(t, "Mathematics", submitted.Applicant.AcademicHistory.MatricResults[0].Subject)
	assert.Equal(t, "FULL_TIME", submitted.ApplicationDetails.StudyType)
	assert.True(t, submitted.ApplicationDetails.BursaryApplication)
	require.Len(t, submitted.SupportingDocuments, 1)
	assert.Equal(t, "IDENTITY_DOCUMENT", submitted.SupportingDocuments[0].Category)
}

func TestWitsSessionTokenReused(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			witsLoginHandler(t, &logins)(w, r)
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"applicationReference": "WITS-1",
				"currentStatus":        "SUBMITTED",
			})
		}
	}))
	defer server.Close()

	client := newWitsClient(witsPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	for i := 0; i < 3; i++ {
		_, err := client.GetApplicationStatus(context.Background(), "WITS-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, logins, "session must be reused across calls")
}

func TestWitsStatusMapping(t *testing.T) {
	cases := map[string]canonical.Status{
		"SUBMITTED":         canonical.StatusReceived,
		"UNDER_REVIEW":      canonical.StatusUnderReview,
		"PENDING_DOCUMENTS": canonical.StatusDocumentsRequired,
		"OFFER_MADE":        canonical.StatusAccepted,
		"DECLINED":          canonical.StatusRejected,
		"WAITING_LIST":      canonical.StatusWaitlisted,
	}
	for native, want := range cases {
		got, ok := MapWitsStatus(native)
		require.True(t, ok, native)
		assert.Equal(t, want, got, native)
	}

	_, ok := MapWitsStatus("SOMETHING_NEW")
	assert.False(t, ok)
}

func TestWitsUploadDocumentTwoSteps(t *testing.T) {
	uploaded := false
	attached := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"sessionToken": "sess-1"})
		case "/documents/upload":
			uploaded = true
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "MATRIC_CERTIFICATE", r.FormValue("category"))
			json.NewEncoder(w).Encode(map[string]string{"documentId": "wits-doc-9"})
		case "/admissions/applications/WITS-1/documents":
			attached = true
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "wits-doc-9", body["documentId"])
			assert.Equal(t, "MATRIC_CERTIFICATE", body["category"])
			json.NewEncoder(w).Encode(map[string]bool{"success": true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newWitsClient(witsPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	documentID, err := client.UploadDocument(context.Background(), "WITS-1", []byte("pdf"), "matric_certificate")
	require.NoError(t, err)
	assert.Equal(t, "wits-doc-9", documentID)
	assert.True(t, uploaded)
	assert.True(t, attached)
}

func TestWitsUploadFailsWhenAttachFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"sessionToken": "sess-1"})
		case "/documents/upload":
			json.NewEncoder(w).Encode(map[string]string{"documentId": "wits-doc-9"})
		default:
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "document already attached"})
		}
	}))
	defer server.Close()

	client := newWitsClient(witsPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	_, err := client.UploadDocument(context.Background(), "WITS-1", []byte("pdf"), "matric_certificate")
	require.Error(t, err, "attach failure must fail the whole upload")
	assert.True(t, errors.IsCode(err, errors.ErrCodePartnerRejection))
}

func TestFactoryResolvesPartnerVariants(t *testing.T) {
	partners := map[string]config.PartnerConfig{
		"uct":  uctPartnerConfig("https://uct.example"),
		"wits": witsPartnerConfig("https://wits.example"),
	}
	factory := NewFactory(partners, NewTokenCache(), logger.NewNoOpLogger())

	for _, code := range []string{"uct", "UCT", "uct_001"} {
		client, err := factory.ClientFor(code)
		require.NoError(t, err, code)
		assert.NotNil(t, client)
	}

	_, err := factory.ClientFor("unikzn")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedPartner))
}
